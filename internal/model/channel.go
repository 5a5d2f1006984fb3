// Package model defines the channel discovery domain types shared across the
// pipeline, store, and platform client.
package model

import "time"

// ChannelStats is a point-in-time snapshot of a channel's size metrics.
type ChannelStats struct {
	FetchedAt       time.Time `json:"fetchedAt"`
	SubscriberCount int64     `json:"subscriberCount"`
	VideoCount      int64     `json:"videoCount"`
	ViewCount       int64     `json:"viewCount"`
}

// MagnitudeMetrics holds the outlier metrics for one magnitude variant.
type MagnitudeMetrics struct {
	OutlierVideoCount     int     `json:"outlierVideoCount"`
	ConsistencyPercentage float64 `json:"consistencyPercentage"`
}

// ChannelAnalysis is one completed consistency analysis. Entries appended to
// a record's history are immutable.
type ChannelAnalysis struct {
	AnalyzedAt                time.Time                             `json:"analyzedAt"`
	SubscriberCountAtAnalysis int64                                 `json:"subscriberCountAtAnalysis"`
	SourceVideoCount          int                                   `json:"sourceVideoCount"`
	Metrics                   map[OutlierMagnitude]MagnitudeMetrics `json:"metrics"`
}

// ChannelRecord is the persistent state for one discovered channel, keyed by
// the platform's channel id. Records are never deleted; exclusions and
// analysis outcomes are expressed through Status.
type ChannelRecord struct {
	ChannelID       string            `json:"channelId" db:"channel_id"`
	Title           string            `json:"title" db:"title"`
	CreatedAt       time.Time         `json:"createdAt" db:"channel_created_at"`
	Status          ChannelStatus     `json:"status" db:"status"`
	LatestStats     ChannelStats      `json:"latestStats"`
	LatestAnalysis  *ChannelAnalysis  `json:"latestAnalysis,omitempty"`
	AnalysisHistory []ChannelAnalysis `json:"analysisHistory"`
	UpdatedAt       time.Time         `json:"updatedAt" db:"updated_at"`
}

// AgeDays returns the channel's age in whole days at the given instant.
func (r *ChannelRecord) AgeDays(now time.Time) int {
	if r.CreatedAt.IsZero() {
		return 0
	}
	return int(now.Sub(r.CreatedAt).Hours() / 24)
}

// Video is a single video as returned by the platform's recent-top-videos
// lookup. Duration carries the platform's structured duration string
// (e.g. "PT12M34S").
type Video struct {
	VideoID     string    `json:"videoId"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"publishedAt"`
	Duration    string    `json:"duration"`
	ViewCount   int64     `json:"viewCount"`
}

// VideoListCacheEntry caches the expensive recent-top-videos fetch for one
// channel. Its TTL is independent of the channel record's stats freshness.
type VideoListCacheEntry struct {
	ChannelID string    `json:"channelId"`
	Videos    []Video   `json:"videos"`
	FetchedAt time.Time `json:"fetchedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SearchCacheEntry caches the deduplicated channel ids produced by one topic
// search, keyed by a normalized hash of the search parameters.
type SearchCacheEntry struct {
	ParamHash  string    `json:"paramHash"`
	ChannelIDs []string  `json:"channelIds"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
