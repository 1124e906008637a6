package videoscout

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
)

type TopicStatus string

const (
	StatusReported TopicStatus = "reported"
	StatusEmpty    TopicStatus = "empty" // nothing to report; not a failure
	StatusFailed   TopicStatus = "failed"
)

// TopicSummary is the outcome of processing one topic.
type TopicSummary struct {
	Topic          string
	Status         TopicStatus
	Found          int
	Retained       int
	BelowThreshold int
	ScoringErrors  int
	AverageScore   float64
	Files          []string
	Err            error
}

// RunMetrics implements scheduler.Metrics for one run over all topics.
type RunMetrics struct {
	Topics    []TopicSummary
	EmailSent bool
}

func (m *RunMetrics) Failed() int {
	n := 0
	for _, t := range m.Topics {
		if t.Status == StatusFailed {
			n++
		}
	}
	return n
}

func (m *RunMetrics) Succeeded() int {
	return len(m.Topics) - m.Failed()
}

// AllFailed reports whether every topic failed outright.
func (m *RunMetrics) AllFailed() bool {
	return len(m.Topics) > 0 && m.Failed() == len(m.Topics)
}

func (m *RunMetrics) TotalFound() int {
	n := 0
	for _, t := range m.Topics {
		n += t.Found
	}
	return n
}

func (m *RunMetrics) TotalReported() int {
	n := 0
	for _, t := range m.Topics {
		if t.Status == StatusReported {
			n += t.Retained
		}
	}
	return n
}

// GetSummary implements the scheduler.Metrics interface
func (m *RunMetrics) GetSummary() string {
	summary := fmt.Sprintf("%s (%d succeeded, %d failed): %s found, %s reported",
		english.Plural(len(m.Topics), "topic", "topics"),
		m.Succeeded(), m.Failed(),
		humanize.Comma(int64(m.TotalFound())),
		humanize.Comma(int64(m.TotalReported())),
	)
	if m.EmailSent {
		summary += ", digest emailed"
	}
	return summary
}
