package videoscout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"video-scout/agents/video-scout/pipeline"
	"video-scout/agents/video-scout/report"
	"video-scout/agents/video-scout/youtube"
	"video-scout/internal/models"
	"video-scout/shared/ai"
	"video-scout/shared/config"
	"video-scout/shared/email"
	"video-scout/shared/scheduler"
	"video-scout/shared/storage"
)

// ErrAllTopicsFailed is returned by RunOnce when no topic completed.
var ErrAllTopicsFailed = errors.New("all topics failed")

type Searcher interface {
	Search(ctx context.Context, topic string, maxResults int) ([]*models.Video, error)
}

type Mailer interface {
	SendDigest(d *email.Digest) error
}

// Agent searches, scores and reports on each configured topic. It
// implements scheduler.Agent.
type Agent struct {
	config   *config.Config
	searcher Searcher
	scorer   pipeline.Scorer
	writer   *report.Writer
	mailer   Mailer
	now      func() time.Time
}

func New(cfg *config.Config) *Agent {
	return &Agent{
		config: cfg,
		now:    time.Now,
	}
}

func (a *Agent) Name() string {
	return "Video Scout"
}

func (a *Agent) Initialize() error {
	slog.Info("initializing agent", "agent", a.Name())
	ctx := context.Background()

	if a.searcher == nil {
		client, err := youtube.NewClient(ctx, a.config)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.searcher = client
		slog.Debug("YouTube client initialized")
	}

	if a.scorer == nil && a.config.Filter.Enabled {
		provider, err := ai.NewProvider(ctx, a.config)
		if err != nil {
			return fmt.Errorf("failed to create %s provider: %w", a.config.AI.Provider, err)
		}
		a.scorer = ai.NewScorer(provider, a.config)
		slog.Debug("scorer initialized", "provider", provider.Name(), "model", a.config.AI.Model)
	}

	if a.writer == nil {
		a.writer = report.NewWriter(a.config.Output.Formats)
	}

	if a.mailer == nil && a.config.Email.Enabled {
		a.mailer = email.NewSender(&a.config.Email)
		slog.Debug("email sender initialized")
	}

	if err := os.MkdirAll(a.config.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", a.config.Output.Dir, err)
	}

	return nil
}

// RunOnce processes every topic in order. A failing topic is logged and the
// rest still run; only a run in which every topic failed returns an error.
func (a *Agent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	metrics := &RunMetrics{}
	manifest := storage.NewManifest(a.config.Output.Dir)
	digest := &email.Digest{Date: a.now()}

	slog.Info("starting run",
		"topics", len(a.config.Topics),
		"max_results", a.config.MaxResults,
		"filtering", a.config.Filter.Enabled,
		"threshold", a.config.Filter.Threshold,
	)

	for i, topic := range a.config.Topics {
		slog.Info("processing topic", "topic", topic, "index", i+1, "of", len(a.config.Topics))

		summary := a.runTopic(ctx, topic, manifest, digest)
		if summary.Status == StatusFailed {
			slog.Error("topic failed", "topic", topic, "error", summary.Err)
		}
		metrics.Topics = append(metrics.Topics, summary)
	}

	if manifest.Len() > 0 {
		if err := manifest.Save(); err != nil {
			slog.Warn("failed to write run manifest", "path", manifest.Path(), "error", err)
			notifyPartial(events, err, time.Since(startTime))
		}
	}

	if a.mailer != nil && len(digest.Sections) > 0 {
		if err := a.mailer.SendDigest(digest); err != nil {
			slog.Warn("failed to send email digest", "error", err)
			notifyPartial(events, fmt.Errorf("failed to send email digest: %w", err), time.Since(startTime))
		} else {
			metrics.EmailSent = true
			slog.Info("email digest sent", "topics", len(digest.Sections))
		}
	}

	duration := time.Since(startTime)
	for _, t := range metrics.Topics {
		logTopicSummary(t)
	}
	slog.Info("run complete", "summary", metrics.GetSummary(), "duration", duration)

	if metrics.AllFailed() {
		return ErrAllTopicsFailed
	}
	if failed := metrics.Failed(); failed > 0 {
		notifyPartial(events, fmt.Errorf("%d of %d topics failed", failed, len(metrics.Topics)), duration)
	}
	if events != nil && events.OnSuccess != nil {
		events.OnSuccess(metrics, duration)
	}
	return nil
}

func (a *Agent) runTopic(ctx context.Context, topic string, manifest *storage.Manifest, digest *email.Digest) TopicSummary {
	summary := TopicSummary{Topic: topic}
	fail := func(err error) TopicSummary {
		summary.Status = StatusFailed
		summary.Err = err
		return summary
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	videos, err := a.searcher.Search(ctx, topic, a.config.MaxResults)
	if err != nil {
		return fail(err)
	}
	summary.Found = len(videos)

	if len(videos) == 0 {
		slog.Warn("no videos found, skipping report", "topic", topic)
		summary.Status = StatusEmpty
		return summary
	}

	entries, stats := pipeline.Filter(ctx, a.scorer, videos, topic, a.config.Filter.Threshold, a.config.Filter.Enabled)
	summary.Retained = stats.Retained
	summary.BelowThreshold = stats.BelowThreshold
	summary.ScoringErrors = stats.Failures
	summary.AverageScore = stats.AverageScore

	if len(entries) == 0 {
		slog.Warn("no videos passed the quality filter, skipping report", "topic", topic, "threshold", a.config.Filter.Threshold)
		summary.Status = StatusEmpty
		return summary
	}

	result := models.TopicResult{Topic: topic, Entries: pipeline.Rank(entries)}

	files, err := a.writer.WriteAll(a.config.Output.Dir, result)
	summary.Files = files
	if err != nil {
		return fail(err)
	}
	summary.Status = StatusReported

	manifest.Record(storage.ReportRecord{
		Topic:          topic,
		Files:          files,
		Found:          summary.Found,
		Retained:       summary.Retained,
		BelowThreshold: summary.BelowThreshold,
		Failures:       summary.ScoringErrors,
		GeneratedAt:    a.now(),
	})

	if a.mailer != nil {
		content, err := a.writer.Render(result)
		if err != nil {
			slog.Warn("failed to render report for digest", "topic", topic, "error", err)
		} else {
			digest.Add(topic, len(result.Entries), content)
		}
	}

	return summary
}

func logTopicSummary(t TopicSummary) {
	attrs := []any{"topic", t.Topic, "status", t.Status, "found", t.Found, "kept", t.Retained}
	if t.BelowThreshold > 0 || t.ScoringErrors > 0 {
		attrs = append(attrs, "below_threshold", t.BelowThreshold, "scoring_errors", t.ScoringErrors, "avg_score", fmt.Sprintf("%.1f", t.AverageScore))
	}
	if t.Err != nil {
		attrs = append(attrs, "error", t.Err)
	}
	slog.Info("topic summary", attrs...)
}

func notifyPartial(events *scheduler.AgentEvents, err error, duration time.Duration) {
	if events != nil && events.OnPartialFailure != nil {
		events.OnPartialFailure(err, duration)
	}
}
