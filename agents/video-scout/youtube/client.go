package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"video-scout/internal/apperr"
	"video-scout/internal/models"
	"video-scout/shared/config"
	"video-scout/shared/retry"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// pageSize is the largest maxResults the search and videos endpoints accept.
const pageSize = 50

type Client struct {
	service *youtube.Service
	config  *config.YouTubeConfig
	retry   retry.Policy
	timeout time.Duration
}

func NewClient(ctx context.Context, cfg *config.Config) (*Client, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.YouTube.APIKey)}
	if cfg.YouTube.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.YouTube.BaseURL))
	}
	return newClient(ctx, cfg, opts...)
}

func newClient(ctx context.Context, cfg *config.Config, opts ...option.ClientOption) (*Client, error) {
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		service: service,
		config:  &cfg.YouTube,
		retry:   retry.FromConfig(cfg.Retry),
		timeout: timeout,
	}, nil
}

// Search returns at most maxResults videos for topic in search-rank order.
// No matches is an empty slice, not an error. Any failed API call is
// reported as an *apperr.UpstreamError.
func (c *Client) Search(ctx context.Context, topic string, maxResults int) ([]*models.Video, error) {
	if maxResults <= 0 {
		return []*models.Video{}, nil
	}

	slog.Info("searching for videos", "topic", topic, "max_results", maxResults)

	ids, err := c.searchVideoIDs(ctx, topic, maxResults)
	if err != nil {
		return nil, apperr.NewUpstream(fmt.Sprintf("search for %q failed", topic), err)
	}
	slog.Debug("retrieved video ids from search", "topic", topic, "count", len(ids))

	if len(ids) == 0 {
		slog.Warn("no videos found", "topic", topic)
		return []*models.Video{}, nil
	}

	videos, err := c.getVideoDetails(ctx, ids)
	if err != nil {
		return nil, apperr.NewUpstream(fmt.Sprintf("fetching video details for %q failed", topic), err)
	}

	slog.Info("found videos", "topic", topic, "count", len(videos))
	return videos, nil
}

// searchVideoIDs pages through search results until maxResults unique ids are
// collected or the API has no further pages.
func (c *Client) searchVideoIDs(ctx context.Context, topic string, maxResults int) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	pageToken := ""

	for len(ids) < maxResults {
		want := min(maxResults-len(ids), pageSize)

		call := c.service.Search.List([]string{"id", "snippet"}).
			Q(topic).
			Type("video").
			Order(c.config.Order).
			MaxResults(int64(want))
		if c.config.RelevanceLanguage != "" {
			call = call.RelevanceLanguage(c.config.RelevanceLanguage)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*youtube.SearchListResponse, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			r, err := call.Context(callCtx).Do()
			return r, withStatus(err)
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			if item.Id == nil || item.Id.VideoId == "" || seen[item.Id.VideoId] {
				continue
			}
			seen[item.Id.VideoId] = true
			ids = append(ids, item.Id.VideoId)
		}

		if len(resp.Items) == 0 || resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(ids) > maxResults {
		ids = ids[:maxResults]
	}
	return ids, nil
}

// getVideoDetails fetches snippet and statistics for ids in batches and
// returns them in the order of ids. Ids the API no longer knows are dropped.
func (c *Client) getVideoDetails(ctx context.Context, ids []string) ([]*models.Video, error) {
	byID := make(map[string]*models.Video, len(ids))

	for i := 0; i < len(ids); i += pageSize {
		end := min(i+pageSize, len(ids))
		batchIDs := ids[i:end]

		slog.Debug("fetching video details", "count", len(batchIDs))
		call := c.service.Videos.List([]string{"snippet", "statistics"}).
			Id(strings.Join(batchIDs, ","))

		resp, err := retry.Do(ctx, c.retry, func(ctx context.Context) (*youtube.VideoListResponse, error) {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			r, err := call.Context(callCtx).Do()
			return r, withStatus(err)
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			if v := toVideo(item); v != nil {
				byID[v.ID] = v
			}
		}
	}

	videos := make([]*models.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			videos = append(videos, v)
		}
	}
	return videos, nil
}

func toVideo(item *youtube.Video) *models.Video {
	if item == nil || item.Id == "" {
		return nil
	}

	video := &models.Video{
		ID:  item.Id,
		URL: models.WatchURL(item.Id),
	}

	if item.Snippet != nil {
		video.Title = item.Snippet.Title
		video.Description = item.Snippet.Description
		video.ChannelTitle = item.Snippet.ChannelTitle
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			video.PublishedAt = publishedAt
		} else if item.Snippet.PublishedAt != "" {
			slog.Debug("unparseable publish date", "video_id", item.Id, "value", item.Snippet.PublishedAt)
		}
	}

	if item.Statistics != nil {
		video.ViewCount = item.Statistics.ViewCount
	}

	return video
}

// withStatus tags Google API errors with their HTTP status for the retry
// policy.
func withStatus(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return retry.WithStatus(gerr.Code, err)
	}
	return err
}
