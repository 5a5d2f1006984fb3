// Package store persists channel records, the search and video-list caches,
// and discovery run bookkeeping.
package store

import (
	"context"
	"time"

	"github.com/sells-group/channel-scout/internal/model"
)

// ListOpts configures listing of stored channel records.
type ListOpts struct {
	Statuses []model.ChannelStatus
	Limit    int
	Offset   int
}

// Store defines the persistence operations used by the discovery pipeline.
// Channel records are never deleted; exclusion and analysis outcomes are
// expressed through status updates.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, opts model.RunOptions) (string, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error
	FailRun(ctx context.Context, runID string, errMsg string) error

	// Channel records
	GetChannels(ctx context.Context, ids []string) (map[string]*model.ChannelRecord, error)
	// UpsertChannelSnapshot creates the record (status "candidate") or
	// refreshes title/creation date/stats on an existing one. It never
	// touches status, latestAnalysis, or analysisHistory of existing rows.
	UpsertChannelSnapshot(ctx context.Context, rec *model.ChannelRecord) error
	UpdateChannelStatus(ctx context.Context, channelID string, status model.ChannelStatus) error
	// CommitAnalysis atomically sets the new latest analysis and status and
	// appends the previous latest analysis (when one existed) to the
	// immutable history, as a single conditional update.
	CommitAnalysis(ctx context.Context, channelID string, status model.ChannelStatus, analysis model.ChannelAnalysis) error
	ListChannels(ctx context.Context, opts ListOpts) ([]model.ChannelRecord, error)

	// Video-list cache
	GetVideoCache(ctx context.Context, channelID string) (*model.VideoListCacheEntry, error)
	PutVideoCache(ctx context.Context, channelID string, videos []model.Video, ttl time.Duration) error

	// Search cache
	GetSearchCache(ctx context.Context, paramHash string) (*model.SearchCacheEntry, error)
	PutSearchCache(ctx context.Context, paramHash string, channelIDs []string, ttl time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
