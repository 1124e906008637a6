package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"video-scout/internal/apperr"
	"video-scout/internal/models"
	"video-scout/shared/config"
	"video-scout/shared/retry"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// promptDescriptionLength bounds how much of a description is sent to the
// model, in runes.
const promptDescriptionLength = 500

// Scorer rates videos against a topic with one model call per video.
type Scorer struct {
	provider  Provider
	maxTokens int
	limiter   *rate.Limiter
	retry     retry.Policy
	timeout   time.Duration
	now       func() time.Time
}

func NewScorer(provider Provider, cfg *config.Config) *Scorer {
	s := &Scorer{
		provider:  provider,
		maxTokens: cfg.AI.MaxTokens,
		retry:     retry.FromConfig(cfg.Retry),
		timeout:   cfg.RequestTimeout,
		now:       time.Now,
	}
	if s.maxTokens <= 0 {
		s.maxTokens = 500
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if cfg.AI.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.AI.RequestsPerMinute)), 1)
	}
	return s
}

// Score asks the model for relevance, quality and recency subscores. Any
// failure, including a reply that cannot be parsed, is an
// *apperr.ScoringError.
func (s *Scorer) Score(ctx context.Context, video *models.Video, topic string) (*models.Score, error) {
	if video == nil {
		return nil, apperr.NewScoring("", "video cannot be nil", nil)
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, apperr.NewScoring(video.ID, "rate limiter wait failed", err)
		}
	}

	prompt := s.buildPrompt(video, topic)
	slog.Debug("scoring video", "video_id", video.ID, "title", video.Title, "provider", s.provider.Name())

	text, err := retry.Do(ctx, s.retry, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.provider.Generate(callCtx, prompt, s.maxTokens)
	})
	if err != nil {
		return nil, apperr.NewScoring(video.ID, "model request failed", err)
	}

	score, err := parseScore(text)
	if err != nil {
		slog.Debug("unparseable model reply", "video_id", video.ID, "reply", text)
		return nil, apperr.NewScoring(video.ID, "invalid model reply", err)
	}

	slog.Debug("video scored", "video_id", video.ID, "score", score.Composite)
	return score, nil
}

func (s *Scorer) buildPrompt(video *models.Video, topic string) string {
	published := "unknown"
	if !video.PublishedAt.IsZero() {
		published = video.PublishedAt.Format("2006-01-02")
	}
	description := video.Description
	if description == "" {
		description = "N/A"
	}

	return fmt.Sprintf(`You are a video quality and relevance evaluator.
Score this YouTube video for a search about "%s".

Today's date: %s

VIDEO DETAILS:
- Title: %s
- Channel: %s
- Published: %s
- Views: %s
- Description: %s

SCORING CRITERIA:
1. Topic Relevance (0-4 points):
   - 4: Highly relevant, directly addresses the topic
   - 3: Very relevant, covers most aspects of the topic
   - 2: Moderately relevant, tangentially related
   - 1: Slightly relevant, barely related
   - 0: Not relevant at all

2. Content Quality (0-3 points):
   - 3: High quality - professional, credible source, comprehensive
   - 2: Good quality - decent production, reliable information
   - 1: Fair quality - basic content, some value
   - 0: Poor quality - low value, questionable credibility

3. Recency (0-3 points):
   - 3: Very recent (< 3 months old)
   - 2: Recent (3-12 months old)
   - 1: Somewhat recent (1-2 years old)
   - 0: Old (> 2 years old)

Respond ONLY with a JSON object in this exact format:
{
  "topic_relevance": <0-4>,
  "content_quality": <0-3>,
  "recency": <0-3>,
  "total_score": <sum of above>,
  "reasoning": "<brief explanation of the scoring>"
}`,
		topic,
		s.now().Format("2006-01-02"),
		video.Title,
		video.ChannelTitle,
		published,
		humanize.Comma(int64(video.ViewCount)),
		truncateRunes(description, promptDescriptionLength),
	)
}

// parseScore pulls the JSON object out of a model reply. Markdown fences and
// surrounding prose are ignored. Subscores are clamped to their ranges and
// the composite is recomputed, so a wrong total_score from the model is
// harmless.
func parseScore(reply string) (*models.Score, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end < start {
		return nil, errors.New("no JSON object found in reply")
	}

	var result struct {
		Relevance *int   `json:"topic_relevance"`
		Quality   *int   `json:"content_quality"`
		Recency   *int   `json:"recency"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reply: %w", err)
	}
	if result.Relevance == nil || result.Quality == nil || result.Recency == nil {
		return nil, errors.New("reply is missing topic_relevance, content_quality or recency")
	}

	score := &models.Score{
		Relevance: clamp(*result.Relevance, models.MaxRelevance),
		Quality:   clamp(*result.Quality, models.MaxQuality),
		Recency:   clamp(*result.Recency, models.MaxRecency),
		Reasoning: strings.TrimSpace(result.Reasoning),
	}
	score.Composite = score.Relevance + score.Quality + score.Recency
	return score, nil
}

func clamp(v, hi int) int {
	return max(0, min(v, hi))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
