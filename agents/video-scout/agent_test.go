package videoscout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"video-scout/agents/video-scout/report"
	"video-scout/internal/apperr"
	"video-scout/internal/models"
	"video-scout/shared/config"
	"video-scout/shared/email"
	"video-scout/shared/scheduler"
	"video-scout/shared/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results map[string][]*models.Video
	errs    map[string]error
	calls   []string
}

func (f *fakeSearcher) Search(_ context.Context, topic string, maxResults int) ([]*models.Video, error) {
	f.calls = append(f.calls, topic)
	if err := f.errs[topic]; err != nil {
		return nil, err
	}
	videos := f.results[topic]
	if len(videos) > maxResults {
		videos = videos[:maxResults]
	}
	return videos, nil
}

type fakeScorer struct {
	scores map[string]int
}

func (f *fakeScorer) Score(_ context.Context, v *models.Video, _ string) (*models.Score, error) {
	c, ok := f.scores[v.ID]
	if !ok {
		return nil, apperr.NewScoring(v.ID, "invalid model reply", errors.New("no JSON object found in reply"))
	}
	return &models.Score{Composite: c, Relevance: min(c, 4), Quality: max(0, min(c-4, 3)), Recency: max(0, c-7)}, nil
}

type fakeMailer struct {
	err     error
	digests []*email.Digest
}

func (f *fakeMailer) SendDigest(d *email.Digest) error {
	f.digests = append(f.digests, d)
	return f.err
}

type recorder struct {
	successes []string
	partials  []error
}

func (r *recorder) events() *scheduler.AgentEvents {
	return &scheduler.AgentEvents{
		OnSuccess:        func(m scheduler.Metrics, _ time.Duration) { r.successes = append(r.successes, m.GetSummary()) },
		OnPartialFailure: func(err error, _ time.Duration) { r.partials = append(r.partials, err) },
	}
}

func makeVideos(prefix string, n int) []*models.Video {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*models.Video, n)
	for i := range out {
		id := fmt.Sprintf("%s%d", prefix, i)
		out[i] = &models.Video{
			ID:           id,
			Title:        fmt.Sprintf("%s video %d", prefix, i),
			ChannelTitle: "Channel",
			PublishedAt:  base.AddDate(0, i, 0),
			ViewCount:    uint64(1000 * (i + 1)),
			Description:  "About " + id,
			URL:          models.WatchURL(id),
		}
	}
	return out
}

func newTestAgent(t *testing.T, topics []string, searcher Searcher) (*Agent, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Topics:     topics,
		MaxResults: 5,
		Output:     config.OutputConfig{Dir: dir, Formats: []string{config.FormatMarkdown}},
		Filter:     config.FilterConfig{Threshold: 7},
	}
	a := New(cfg)
	a.searcher = searcher
	a.writer = report.NewWriter(cfg.Output.Formats)
	require.NoError(t, a.Initialize())
	return a, dir
}

func readReport(t *testing.T, dir, topic string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, report.Filename(topic, ".md")))
	require.NoError(t, err)
	return string(data)
}

func TestRunOnceUnscored(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]*models.Video{"Docker tutorials": makeVideos("d", 8)}}
	agent, dir := newTestAgent(t, []string{"Docker tutorials"}, searcher)
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	doc := readReport(t, dir, "Docker tutorials")
	assert.Equal(t, 5, strings.Count(doc, "\n## "))
	assert.Contains(t, doc, "Total videos: 5")
	assert.NotContains(t, doc, "**Score:**")

	// Unscored entries keep search order.
	last := -1
	for i := 0; i < 5; i++ {
		idx := strings.Index(doc, fmt.Sprintf("## %d. d video %d", i+1, i))
		require.NotEqual(t, -1, idx, "entry %d", i)
		assert.Greater(t, idx, last)
		last = idx
	}

	manifest, err := storage.LoadManifest(filepath.Join(dir, storage.ManifestFile))
	require.NoError(t, err)
	require.Len(t, manifest.Reports, 1)
	assert.Equal(t, []string{"docker_tutorials.md"}, manifest.Reports[0].Files)

	require.Len(t, rec.successes, 1)
	assert.Contains(t, rec.successes[0], "1 topic (1 succeeded, 0 failed)")
	assert.Empty(t, rec.partials)
}

func TestRunOnceScoredAndRanked(t *testing.T) {
	videos := makeVideos("s", 4)
	searcher := &fakeSearcher{results: map[string][]*models.Video{"Go tutorials": videos}}
	agent, dir := newTestAgent(t, []string{"Go tutorials"}, searcher)
	agent.config.Filter.Enabled = true
	// s3 fails to score, s1 is below threshold, s0 and s2 tie (s2 is newer).
	agent.scorer = &fakeScorer{scores: map[string]int{"s0": 8, "s1": 5, "s2": 8}}

	require.NoError(t, agent.RunOnce(context.Background(), nil))

	doc := readReport(t, dir, "Go tutorials")
	assert.Contains(t, doc, "## 1. s video 2")
	assert.Contains(t, doc, "## 2. s video 0")
	assert.NotContains(t, doc, "s video 1")
	assert.NotContains(t, doc, "s video 3")
	assert.Contains(t, doc, "**Score:** 8/10")
}

func TestRunOnceIsolatesTopicFailures(t *testing.T) {
	searcher := &fakeSearcher{
		results: map[string][]*models.Video{"Go tutorials": makeVideos("g", 2)},
		errs:    map[string]error{"Broken topic": apperr.NewUpstream("search failed", errors.New("quotaExceeded"))},
	}
	agent, dir := newTestAgent(t, []string{"Broken topic", "Go tutorials"}, searcher)
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	assert.Equal(t, []string{"Broken topic", "Go tutorials"}, searcher.calls)
	assert.FileExists(t, filepath.Join(dir, "go_tutorials.md"))
	assert.NoFileExists(t, filepath.Join(dir, "broken_topic.md"))
	require.Len(t, rec.partials, 1)
	assert.Contains(t, rec.partials[0].Error(), "1 of 2 topics failed")
	require.Len(t, rec.successes, 1)
}

func TestRunOnceAllTopicsFailed(t *testing.T) {
	upstream := apperr.NewUpstream("search failed", errors.New("forbidden"))
	searcher := &fakeSearcher{errs: map[string]error{"a": upstream, "b": upstream}}
	agent, _ := newTestAgent(t, []string{"a", "b"}, searcher)
	rec := &recorder{}

	err := agent.RunOnce(context.Background(), rec.events())

	assert.ErrorIs(t, err, ErrAllTopicsFailed)
	assert.Empty(t, rec.successes)
}

func TestRunOnceEmptyResultsAreNotFailures(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]*models.Video{"Filtered out": makeVideos("f", 2)}}
	agent, dir := newTestAgent(t, []string{"Nothing here", "Filtered out"}, searcher)
	agent.config.Filter.Enabled = true
	agent.scorer = &fakeScorer{scores: map[string]int{"f0": 2, "f1": 3}}

	require.NoError(t, agent.RunOnce(context.Background(), nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no reports and no manifest when nothing was reported")
}

func TestRunOnceCancelled(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]*models.Video{"a": makeVideos("a", 1)}}
	agent, _ := newTestAgent(t, []string{"a"}, searcher)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := agent.RunOnce(ctx, nil)

	assert.ErrorIs(t, err, ErrAllTopicsFailed)
	assert.Empty(t, searcher.calls)
}

func TestRunOnceEmailDigest(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]*models.Video{
		"Go tutorials":     makeVideos("g", 2),
		"Docker tutorials": makeVideos("d", 3),
	}}
	agent, _ := newTestAgent(t, []string{"Go tutorials", "Docker tutorials"}, searcher)
	mailer := &fakeMailer{}
	agent.mailer = mailer
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	require.Len(t, mailer.digests, 1)
	d := mailer.digests[0]
	require.Len(t, d.Sections, 2)
	assert.Equal(t, "Go tutorials", d.Sections[0].Topic)
	assert.Equal(t, 5, d.TotalVideos())
	assert.Contains(t, string(d.Sections[1].Markdown), "# Docker tutorials")
	require.Len(t, rec.successes, 1)
	assert.Contains(t, rec.successes[0], "digest emailed")
}

func TestRunOnceEmailFailureDoesNotFailRun(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]*models.Video{"Go tutorials": makeVideos("g", 1)}}
	agent, _ := newTestAgent(t, []string{"Go tutorials"}, searcher)
	agent.mailer = &fakeMailer{err: errors.New("smtp down")}
	rec := &recorder{}

	require.NoError(t, agent.RunOnce(context.Background(), rec.events()))

	require.Len(t, rec.partials, 1)
	assert.Contains(t, rec.partials[0].Error(), "smtp down")
	require.Len(t, rec.successes, 1)
	assert.NotContains(t, rec.successes[0], "digest emailed")
}

func TestRunMetricsSummary(t *testing.T) {
	m := &RunMetrics{Topics: []TopicSummary{
		{Topic: "a", Status: StatusReported, Found: 1200, Retained: 10},
		{Topic: "b", Status: StatusEmpty},
		{Topic: "c", Status: StatusFailed, Err: errors.New("x")},
	}}

	assert.Equal(t, "3 topics (2 succeeded, 1 failed): 1,200 found, 10 reported", m.GetSummary())
	assert.False(t, m.AllFailed())
	assert.False(t, (&RunMetrics{}).AllFailed())

	one := &RunMetrics{Topics: []TopicSummary{{Topic: "a", Status: StatusEmpty}}, EmailSent: true}
	assert.Equal(t, "1 topic (1 succeeded, 0 failed): 0 found, 0 reported, digest emailed", one.GetSummary())
}
