package models

import (
	"fmt"
	"time"
)

// Video is a single search hit. It is built once by the search client and
// never modified afterwards.
type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
	ViewCount    uint64    `json:"view_count"`
	URL          string    `json:"url"`
}

// WatchURL returns the public watch page for a video id.
func WatchURL(id string) string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", id)
}

// Subscore ranges. The composite is always their sum, so it lies in [0, 10].
const (
	MaxRelevance = 4
	MaxQuality   = 3
	MaxRecency   = 3
	MaxComposite = MaxRelevance + MaxQuality + MaxRecency
)

type Score struct {
	Composite int    `json:"composite"` // 0-10
	Relevance int    `json:"relevance"` // 0-4
	Quality   int    `json:"quality"`   // 0-3
	Recency   int    `json:"recency"`   // 0-3
	Reasoning string `json:"reasoning,omitempty"`
}

// Entry pairs a video with its score. Score is nil when scoring is disabled.
type Entry struct {
	Video *Video `json:"video"`
	Score *Score `json:"score,omitempty"`
}

// TopicResult is the ranked outcome for one topic, ready to be reported.
type TopicResult struct {
	Topic   string  `json:"topic"`
	Entries []Entry `json:"entries"`
}
