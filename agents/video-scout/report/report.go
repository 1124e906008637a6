package report

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"
	"time"
	"unicode/utf8"

	"video-scout/internal/apperr"
	"video-scout/internal/models"
	"video-scout/shared/config"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
)

// DescriptionLimit is the number of characters of a description shown per
// entry.
const DescriptionLimit = 200

const markdownTemplate = `# {{.Topic}}

*Generated on {{.GeneratedAt.Format "January 02, 2006 at 03:04 PM"}}*

Total videos: {{len .Entries}}

---
{{range $i, $e := .Entries}}
## {{inc $i}}. {{$e.Video.Title}}

**URL:** [{{$e.Video.URL}}]({{$e.Video.URL}})

**Channel:** {{$e.Video.ChannelTitle}}

**Published:** {{date $e.Video.PublishedAt}}

**Views:** {{views $e.Video.ViewCount}}

**Description:**

{{quote (describe $e.Video.Description)}}
{{with $e.Score}}
**Score:** {{.Composite}}/10 (relevance {{.Relevance}}/4, quality {{.Quality}}/3, recency {{.Recency}}/3)
{{if .Reasoning}}
**Reasoning:** {{.Reasoning}}
{{end}}{{end}}
---
{{end}}`

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`

var (
	md       = goldmark.New()
	markdown = texttemplate.Must(texttemplate.New("report").Funcs(texttemplate.FuncMap{
		"inc":      func(i int) int { return i + 1 },
		"date":     formatDate,
		"views":    formatViews,
		"describe": describe,
		"quote":    quote,
	}).Parse(markdownTemplate))
	page = template.Must(template.New("page").Parse(htmlTemplate))
)

// Writer renders topic results to report files.
type Writer struct {
	formats []string
	now     func() time.Time
}

func NewWriter(formats []string) *Writer {
	if len(formats) == 0 {
		formats = []string{config.FormatMarkdown}
	}
	return &Writer{formats: formats, now: time.Now}
}

// Render produces the Markdown report for a topic result. Entries are
// written in the order given.
func (w *Writer) Render(result models.TopicResult) ([]byte, error) {
	var buf bytes.Buffer
	err := markdown.Execute(&buf, struct {
		Topic       string
		GeneratedAt time.Time
		Entries     []models.Entry
	}{result.Topic, w.now(), result.Entries})
	if err != nil {
		return nil, fmt.Errorf("failed to render report for %q: %w", result.Topic, err)
	}
	return buf.Bytes(), nil
}

// RenderHTML converts a rendered Markdown report into a standalone HTML page.
func RenderHTML(title string, markdownReport []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert(markdownReport, &body); err != nil {
		return nil, fmt.Errorf("failed to convert markdown: %w", err)
	}

	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("failed to render html page: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the Markdown report for result to path, replacing any
// existing file.
func (w *Writer) Write(result models.TopicResult, path string) error {
	content, err := w.Render(result)
	if err != nil {
		return apperr.NewIO(path, err)
	}
	return writeFile(path, content)
}

// WriteAll writes one file per configured format into dir and returns the
// paths written.
func (w *Writer) WriteAll(dir string, result models.TopicResult) ([]string, error) {
	topic := result.Topic
	content, err := w.Render(result)
	if err != nil {
		return nil, apperr.NewIO(dir, err)
	}

	var paths []string
	for _, format := range w.formats {
		var (
			path string
			data []byte
		)
		switch format {
		case config.FormatMarkdown:
			path = filepath.Join(dir, Filename(topic, ".md"))
			data = content
		case config.FormatHTML:
			path = filepath.Join(dir, Filename(topic, ".html"))
			if data, err = RenderHTML(topic, content); err != nil {
				return paths, apperr.NewIO(path, err)
			}
		default:
			return paths, apperr.NewIO(dir, fmt.Errorf("unknown report format %q", format))
		}

		if err := writeFile(path, data); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.NewIO(path, err)
	}
	slog.Info("saved report", "path", path)
	return nil
}

// Filename derives the report file name for topic: lower case, spaces become
// underscores, anything outside [a-z0-9_-] is dropped.
func Filename(topic, ext string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(topic)) {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		name = "report"
	}
	return name + ext
}

// Truncate returns at most n characters of s, never splitting a multi-byte
// character.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func describe(description string) string {
	description = strings.TrimSpace(description)
	if description == "" {
		return "No description available."
	}
	if short := Truncate(description, DescriptionLimit); short != description {
		return short + "..."
	}
	return description
}

func quote(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight("> "+line, " ")
	}
	return strings.Join(lines, "\n")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Format("January 02, 2006")
}

func formatViews(n uint64) string {
	if n > math.MaxInt64 {
		n = math.MaxInt64
	}
	return humanize.Comma(int64(n))
}
