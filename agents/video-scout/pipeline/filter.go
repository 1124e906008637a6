package pipeline

import (
	"context"
	"log/slog"

	"video-scout/internal/models"
)

// Scorer is the part of ai.Scorer the filter needs.
type Scorer interface {
	Score(ctx context.Context, video *models.Video, topic string) (*models.Score, error)
}

type FilterStats struct {
	Considered     int     `json:"considered"`
	Retained       int     `json:"retained"`
	BelowThreshold int     `json:"below_threshold"`
	Failures       int     `json:"failures"`
	AverageScore   float64 `json:"average_score"` // over successfully scored videos
}

// Filter scores each video in order and keeps those whose composite reaches
// threshold. A video that fails to score is dropped and counted; the rest of
// the batch still runs. With scoring disabled every video passes unscored and
// scorer may be nil.
func Filter(ctx context.Context, scorer Scorer, videos []*models.Video, topic string, threshold int, enabled bool) ([]models.Entry, FilterStats) {
	stats := FilterStats{Considered: len(videos)}
	entries := make([]models.Entry, 0, len(videos))

	if !enabled {
		for _, v := range videos {
			entries = append(entries, models.Entry{Video: v})
		}
		stats.Retained = len(entries)
		return entries, stats
	}

	slog.Info("filtering videos", "topic", topic, "count", len(videos), "threshold", threshold)

	total := 0
	scored := 0
	for _, v := range videos {
		if ctx.Err() != nil {
			// Unscored remainder counts as failed.
			stats.Failures = len(videos) - scored
			break
		}

		score, err := scorer.Score(ctx, v, topic)
		if err != nil {
			slog.Warn("skipping video due to scoring error", "video_id", v.ID, "title", v.Title, "error", err)
			stats.Failures++
			continue
		}
		scored++
		total += score.Composite

		if score.Composite >= threshold {
			entries = append(entries, models.Entry{Video: v, Score: score})
		} else {
			stats.BelowThreshold++
		}
	}

	stats.Retained = len(entries)
	if scored > 0 {
		stats.AverageScore = float64(total) / float64(scored)
	}

	slog.Info("filtering complete",
		"topic", topic,
		"kept", stats.Retained,
		"below_threshold", stats.BelowThreshold,
		"failures", stats.Failures,
		"avg_score", stats.AverageScore,
	)
	return entries, stats
}
