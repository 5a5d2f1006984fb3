// Package youtube is a minimal YouTube Data API v3 client covering the reads
// used by the discovery pipeline. Every metered call returns the quota units
// it consumed so callers can account for cost per run.
package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Quota unit costs per API method.
const (
	costSearchList = 100
	costListCall   = 1
)

const maxPageSize = 50

// Client performs metered YouTube Data API reads. The int return on every
// call is the quota cost consumed, reported even when the call fails.
type Client interface {
	SearchVideos(ctx context.Context, req SearchRequest) (*SearchPage, int, error)
	ChannelStatsBatch(ctx context.Context, ids []string) (map[string]ChannelSnapshot, int, error)
	RecentTopVideos(ctx context.Context, channelID string, publishedAfter time.Time) ([]Video, int, error)
	VideoDetails(ctx context.Context, ids []string) ([]Video, int, error)
	TrendingVideos(ctx context.Context, regionCode, categoryID string, maxResults int) ([]Video, int, error)
	VideoCategories(ctx context.Context, regionCode string) ([]VideoCategory, int, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a YouTube Data API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(8), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SearchVideos issues one page of a video topic search.
func (c *httpClient) SearchVideos(ctx context.Context, req SearchRequest) (*SearchPage, int, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("order", "viewCount")
	params.Set("q", req.Query)
	if !req.PublishedAfter.IsZero() {
		params.Set("publishedAfter", req.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if req.CategoryID != "" {
		params.Set("videoCategoryId", req.CategoryID)
	}
	if req.RegionCode != "" {
		params.Set("regionCode", req.RegionCode)
	}
	params.Set("maxResults", strconv.Itoa(clampPageSize(req.MaxResults)))
	if req.PageToken != "" {
		params.Set("pageToken", req.PageToken)
	}

	var resp searchListResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, costSearchList, err
	}

	page := &SearchPage{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		page.Items = append(page.Items, SearchResult{
			VideoID:      item.ID.VideoID,
			ChannelID:    item.Snippet.ChannelID,
			ChannelTitle: item.Snippet.ChannelTitle,
		})
	}
	return page, costSearchList, nil
}

// ChannelStatsBatch fetches snippet + statistics for up to 50 channels in a
// single call. Channels missing from the response are absent from the map.
func (c *httpClient) ChannelStatsBatch(ctx context.Context, ids []string) (map[string]ChannelSnapshot, int, error) {
	if len(ids) == 0 {
		return map[string]ChannelSnapshot{}, 0, nil
	}
	if len(ids) > maxPageSize {
		return nil, 0, eris.Errorf("youtube: channel batch too large: %d > %d", len(ids), maxPageSize)
	}

	params := url.Values{}
	params.Set("part", "snippet,statistics")
	params.Set("id", joinIDs(ids))
	params.Set("maxResults", strconv.Itoa(maxPageSize))

	var resp channelListResponse
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return nil, costListCall, err
	}

	out := make(map[string]ChannelSnapshot, len(resp.Items))
	for _, item := range resp.Items {
		out[item.ID] = ChannelSnapshot{
			ChannelID:       item.ID,
			Title:           item.Snippet.Title,
			PublishedAt:     item.Snippet.PublishedAt,
			SubscriberCount: parseCount(item.Statistics.SubscriberCount),
			VideoCount:      parseCount(item.Statistics.VideoCount),
			ViewCount:       parseCount(item.Statistics.ViewCount),
		}
	}
	return out, costListCall, nil
}

// RecentTopVideos returns a channel's top-viewed videos published after the
// cutoff, with the statistics needed for outlier scoring. One search page
// plus one videos.list call.
func (c *httpClient) RecentTopVideos(ctx context.Context, channelID string, publishedAfter time.Time) ([]Video, int, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("order", "viewCount")
	params.Set("channelId", channelID)
	params.Set("publishedAfter", publishedAfter.UTC().Format(time.RFC3339))
	params.Set("maxResults", strconv.Itoa(maxPageSize))

	cost := costSearchList
	var resp searchListResponse
	if err := c.get(ctx, "/search", params, &resp); err != nil {
		return nil, cost, err
	}

	var ids []string
	for _, item := range resp.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil, cost, nil
	}

	videos, listCost, err := c.VideoDetails(ctx, ids)
	cost += listCost
	if err != nil {
		return nil, cost, err
	}
	return videos, cost, nil
}

// VideoDetails fetches snippet, duration, and statistics for up to 50 videos.
func (c *httpClient) VideoDetails(ctx context.Context, ids []string) ([]Video, int, error) {
	if len(ids) == 0 {
		return nil, 0, nil
	}
	if len(ids) > maxPageSize {
		return nil, 0, eris.Errorf("youtube: video batch too large: %d > %d", len(ids), maxPageSize)
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", joinIDs(ids))

	var resp videoListResponse
	if err := c.get(ctx, "/videos", params, &resp); err != nil {
		return nil, costListCall, err
	}
	return videosFromList(resp), costListCall, nil
}

// TrendingVideos returns the most popular videos for a region, optionally
// narrowed to a category.
func (c *httpClient) TrendingVideos(ctx context.Context, regionCode, categoryID string, maxResults int) ([]Video, int, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("chart", "mostPopular")
	if regionCode != "" {
		params.Set("regionCode", regionCode)
	}
	if categoryID != "" {
		params.Set("videoCategoryId", categoryID)
	}
	params.Set("maxResults", strconv.Itoa(clampPageSize(maxResults)))

	var resp videoListResponse
	if err := c.get(ctx, "/videos", params, &resp); err != nil {
		return nil, costListCall, err
	}
	return videosFromList(resp), costListCall, nil
}

// VideoCategories lists the assignable video categories for a region.
func (c *httpClient) VideoCategories(ctx context.Context, regionCode string) ([]VideoCategory, int, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	if regionCode != "" {
		params.Set("regionCode", regionCode)
	}

	var resp categoryListResponse
	if err := c.get(ctx, "/videoCategories", params, &resp); err != nil {
		return nil, costListCall, err
	}

	var out []VideoCategory
	for _, item := range resp.Items {
		out = append(out, VideoCategory{ID: item.ID, Title: item.Snippet.Title})
	}
	return out, costListCall, nil
}

// get performs a rate-limited GET and decodes the JSON response, classifying
// quota exhaustion from 403 responses.
func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "youtube: rate limit wait")
	}

	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "youtube: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "youtube: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "youtube: read response")
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusForbidden {
			var ae apiError
			if json.Unmarshal(body, &ae) == nil {
				for _, e := range ae.Error.Errors {
					if quotaReasons[e.Reason] {
						return &QuotaError{Reason: e.Reason, Message: ae.Error.Message}
					}
				}
			}
		}
		return eris.Errorf("youtube: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "youtube: unmarshal response")
	}
	return nil
}

// Wire formats. The API returns statistics counts as decimal strings.

type searchListResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			ChannelID    string `json:"channelId"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
			VideoCount      string `json:"videoCount"`
			ViewCount       string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title       string    `json:"title"`
			PublishedAt time.Time `json:"publishedAt"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type categoryListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}

func videosFromList(resp videoListResponse) []Video {
	var out []Video
	for _, item := range resp.Items {
		out = append(out, Video{
			VideoID:     item.ID,
			Title:       item.Snippet.Title,
			PublishedAt: item.Snippet.PublishedAt,
			Duration:    item.ContentDetails.Duration,
			ViewCount:   parseCount(item.Statistics.ViewCount),
		})
	}
	return out
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func clampPageSize(n int) int {
	if n <= 0 || n > maxPageSize {
		return maxPageSize
	}
	return n
}
