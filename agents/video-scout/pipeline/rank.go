package pipeline

import (
	"sort"

	"video-scout/internal/models"
)

// Rank returns a new slice ordered for the report: scored entries first by
// composite score descending, then newest first; unscored entries after them
// in the order they arrived. The sort is stable, so ranking twice is a no-op.
func Rank(entries []models.Entry) []models.Entry {
	ranked := make([]models.Entry, len(entries))
	copy(ranked, entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func less(a, b models.Entry) bool {
	switch {
	case a.Score != nil && b.Score == nil:
		return true
	case a.Score == nil:
		return false
	}

	if a.Score.Composite != b.Score.Composite {
		return a.Score.Composite > b.Score.Composite
	}
	return a.Video.PublishedAt.After(b.Video.PublishedAt)
}
