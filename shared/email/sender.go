package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"video-scout/shared/config"

	"github.com/yuin/goldmark"
)

var md = goldmark.New()

// Section is one topic's Markdown report inside a digest.
type Section struct {
	Topic    string
	Videos   int
	Markdown []byte
}

type Digest struct {
	Date     time.Time
	Sections []Section
}

func (d *Digest) Add(topic string, videos int, markdown []byte) {
	d.Sections = append(d.Sections, Section{Topic: topic, Videos: videos, Markdown: markdown})
}

func (d *Digest) TotalVideos() int {
	n := 0
	for _, s := range d.Sections {
		n += s.Videos
	}
	return n
}

const digestTemplate = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Video Scout Digest</title></head>
<body style="font-family: sans-serif; max-width: 760px; margin: auto;">
<p>{{.Total}} videos across {{len .Sections}} topics, {{.Date.Format "Jan 2, 2006"}}.</p>
{{range .Sections}}
<section>
{{.HTML}}
</section>
<hr>
{{end}}
</body>
</html>
`

var digestPage = template.Must(template.New("digest").Parse(digestTemplate))

type Sender struct {
	config *config.EmailConfig
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config: cfg,
		send:   smtp.SendMail,
	}
}

// SendDigest mails every section of d as one HTML message. An empty digest
// sends nothing.
func (s *Sender) SendDigest(d *Digest) error {
	if d == nil {
		return fmt.Errorf("digest cannot be nil")
	}
	if len(d.Sections) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Video Scout Digest - %d Videos Across %d Topics (%s)",
		d.TotalVideos(), len(d.Sections), d.Date.Format("Jan 2, 2006"))

	body, err := generateEmailBody(d)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)
	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)

	from := s.config.FromEmail
	if from == "" {
		from = s.config.Username
	}

	msg := buildMessage(from, s.config.ToEmail, subject, htmlBody)
	if err := s.send(addr, auth, from, []string{s.config.ToEmail}, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	return []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		to, from, subject, body))
}

func generateEmailBody(d *Digest) (string, error) {
	type renderedSection struct {
		Topic string
		HTML  template.HTML
	}

	sections := make([]renderedSection, 0, len(d.Sections))
	for _, sec := range d.Sections {
		var buf bytes.Buffer
		if err := md.Convert(sec.Markdown, &buf); err != nil {
			return "", fmt.Errorf("failed to convert report for %q: %w", sec.Topic, err)
		}
		sections = append(sections, renderedSection{Topic: sec.Topic, HTML: template.HTML(buf.String())})
	}

	var buf bytes.Buffer
	err := digestPage.Execute(&buf, struct {
		Date     time.Time
		Total    int
		Sections []renderedSection
	}{d.Date, d.TotalVideos(), sections})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
