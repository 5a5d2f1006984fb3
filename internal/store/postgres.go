package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/channel-scout/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to the database and returns a PostgresStore.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS channels (
	channel_id         TEXT PRIMARY KEY,
	title              TEXT NOT NULL DEFAULT '',
	channel_created_at TIMESTAMPTZ,
	status             TEXT NOT NULL DEFAULT 'candidate',
	subscriber_count   BIGINT NOT NULL DEFAULT 0,
	video_count        BIGINT NOT NULL DEFAULT 0,
	view_count         BIGINT NOT NULL DEFAULT 0,
	stats_fetched_at   TIMESTAMPTZ,
	latest_analysis    JSONB,
	analysis_history   JSONB NOT NULL DEFAULT '[]'::jsonb,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_channels_status ON channels(status);

CREATE TABLE IF NOT EXISTS video_cache (
	channel_id TEXT PRIMARY KEY,
	videos     JSONB NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	param_hash  TEXT PRIMARY KEY,
	channel_ids JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS discovery_runs (
	id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	options             JSONB NOT NULL,
	status              TEXT NOT NULL DEFAULT 'running',
	candidates_found    INT NOT NULL DEFAULT 0,
	candidates_analyzed INT NOT NULL DEFAULT 0,
	credits_used        INT NOT NULL DEFAULT 0,
	message             TEXT,
	error               TEXT,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at        TIMESTAMPTZ
);
`

// Migrate creates the schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "store: migrate postgres")
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateRun inserts a new discovery run and returns its UUID.
func (s *PostgresStore) CreateRun(ctx context.Context, opts model.RunOptions) (string, error) {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal run options")
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO discovery_runs (options) VALUES ($1) RETURNING id`,
		optsJSON,
	).Scan(&id)
	if err != nil {
		return "", eris.Wrap(err, "store: create run")
	}
	return id, nil
}

// CompleteRun stamps the final status and summary on a run.
func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE discovery_runs SET
			status = $2,
			candidates_found = $3,
			candidates_analyzed = $4,
			credits_used = $5,
			message = $6,
			completed_at = now()
		WHERE id = $1`,
		runID, string(status), summary.CandidatesFound, summary.CandidatesAnalyzed,
		summary.APICreditsUsed, summary.Message,
	)
	if err != nil {
		return eris.Wrapf(err, "store: complete run %s", runID)
	}
	return nil
}

// FailRun marks a run as failed with an error message.
func (s *PostgresStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE discovery_runs SET status = 'failed', error = $2, completed_at = now() WHERE id = $1`,
		runID, errMsg,
	)
	if err != nil {
		return eris.Wrapf(err, "store: fail run %s", runID)
	}
	return nil
}

const channelColumns = `channel_id, title, channel_created_at, status,
	subscriber_count, video_count, view_count, stats_fetched_at,
	latest_analysis, analysis_history, updated_at`

// GetChannels bulk-fetches records by id. Missing ids are absent from the map.
func (s *PostgresStore) GetChannels(ctx context.Context, ids []string) (map[string]*model.ChannelRecord, error) {
	out := make(map[string]*model.ChannelRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM channels WHERE channel_id = ANY($1)`, channelColumns),
		ids,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: get channels")
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out[rec.ChannelID] = rec
	}
	return out, eris.Wrap(rows.Err(), "store: get channels iterate")
}

// UpsertChannelSnapshot creates or refreshes the stats snapshot of a record.
func (s *PostgresStore) UpsertChannelSnapshot(ctx context.Context, rec *model.ChannelRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO channels (channel_id, title, channel_created_at, status,
			subscriber_count, video_count, view_count, stats_fetched_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (channel_id) DO UPDATE SET
			title = EXCLUDED.title,
			channel_created_at = EXCLUDED.channel_created_at,
			subscriber_count = EXCLUDED.subscriber_count,
			video_count = EXCLUDED.video_count,
			view_count = EXCLUDED.view_count,
			stats_fetched_at = EXCLUDED.stats_fetched_at,
			updated_at = now()`,
		rec.ChannelID, rec.Title, nullTime(rec.CreatedAt), string(model.StatusCandidate),
		rec.LatestStats.SubscriberCount, rec.LatestStats.VideoCount,
		rec.LatestStats.ViewCount, nullTime(rec.LatestStats.FetchedAt),
	)
	if err != nil {
		return eris.Wrapf(err, "store: upsert channel %s", rec.ChannelID)
	}
	return nil
}

// UpdateChannelStatus sets the status of one record.
func (s *PostgresStore) UpdateChannelStatus(ctx context.Context, channelID string, status model.ChannelStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE channels SET status = $2, updated_at = now() WHERE channel_id = $1`,
		channelID, string(status),
	)
	if err != nil {
		return eris.Wrapf(err, "store: update status for channel %s", channelID)
	}
	return nil
}

// CommitAnalysis replaces the latest analysis and appends the prior one to
// the history in a single UPDATE, so the previous analysis is never lost and
// never duplicated.
func (s *PostgresStore) CommitAnalysis(ctx context.Context, channelID string, status model.ChannelStatus, analysis model.ChannelAnalysis) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "store: marshal analysis")
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE channels SET
			status = $2,
			latest_analysis = $3,
			analysis_history = CASE
				WHEN latest_analysis IS NULL THEN analysis_history
				ELSE analysis_history || latest_analysis
			END,
			updated_at = now()
		WHERE channel_id = $1`,
		channelID, string(status), analysisJSON,
	)
	if err != nil {
		return eris.Wrapf(err, "store: commit analysis for channel %s", channelID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("store: channel not found: %s", channelID)
	}
	return nil
}

// ListChannels returns stored records, optionally filtered by status.
func (s *PostgresStore) ListChannels(ctx context.Context, opts ListOpts) ([]model.ChannelRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM channels`, channelColumns)
	var args []any

	if len(opts.Statuses) > 0 {
		statuses := make([]string, len(opts.Statuses))
		for i, st := range opts.Statuses {
			statuses[i] = string(st)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, statuses)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += fmt.Sprintf(` ORDER BY channel_id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, opts.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list channels")
	}
	defer rows.Close()

	var out []model.ChannelRecord
	for rows.Next() {
		rec, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "store: list channels iterate")
}

// GetVideoCache returns the cached video list for a channel, or nil when
// absent or expired.
func (s *PostgresStore) GetVideoCache(ctx context.Context, channelID string) (*model.VideoListCacheEntry, error) {
	var (
		entry      model.VideoListCacheEntry
		videosJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT channel_id, videos, fetched_at, expires_at FROM video_cache
		 WHERE channel_id = $1 AND expires_at > now()`,
		channelID,
	).Scan(&entry.ChannelID, &videosJSON, &entry.FetchedAt, &entry.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get video cache for channel %s", channelID)
	}
	if err := json.Unmarshal(videosJSON, &entry.Videos); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal cached videos")
	}
	return &entry, nil
}

// PutVideoCache stores (or replaces) the video list for a channel.
func (s *PostgresStore) PutVideoCache(ctx context.Context, channelID string, videos []model.Video, ttl time.Duration) error {
	videosJSON, err := json.Marshal(videos)
	if err != nil {
		return eris.Wrap(err, "store: marshal videos")
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO video_cache (channel_id, videos, fetched_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (channel_id) DO UPDATE SET
			videos = EXCLUDED.videos,
			fetched_at = EXCLUDED.fetched_at,
			expires_at = EXCLUDED.expires_at`,
		channelID, videosJSON, now, now.Add(ttl),
	)
	if err != nil {
		return eris.Wrapf(err, "store: put video cache for channel %s", channelID)
	}
	return nil
}

// GetSearchCache returns the cached result of a parameter-identical search,
// or nil when absent or expired.
func (s *PostgresStore) GetSearchCache(ctx context.Context, paramHash string) (*model.SearchCacheEntry, error) {
	var (
		entry   model.SearchCacheEntry
		idsJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT param_hash, channel_ids, created_at, expires_at FROM search_cache
		 WHERE param_hash = $1 AND expires_at > now()`,
		paramHash,
	).Scan(&entry.ParamHash, &idsJSON, &entry.CreatedAt, &entry.ExpiresAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: get search cache")
	}
	if err := json.Unmarshal(idsJSON, &entry.ChannelIDs); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal cached search")
	}
	return &entry, nil
}

// PutSearchCache stores (or replaces) a search result under its param hash.
func (s *PostgresStore) PutSearchCache(ctx context.Context, paramHash string, channelIDs []string, ttl time.Duration) error {
	idsJSON, err := json.Marshal(channelIDs)
	if err != nil {
		return eris.Wrap(err, "store: marshal search result")
	}
	now := time.Now().UTC()

	_, err = s.pool.Exec(ctx, `
		INSERT INTO search_cache (param_hash, channel_ids, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (param_hash) DO UPDATE SET
			channel_ids = EXCLUDED.channel_ids,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`,
		paramHash, idsJSON, now, now.Add(ttl),
	)
	if err != nil {
		return eris.Wrap(err, "store: put search cache")
	}
	return nil
}

// helpers

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func scanChannel(rows pgx.Rows) (*model.ChannelRecord, error) {
	var (
		rec          model.ChannelRecord
		createdAt    *time.Time
		fetchedAt    *time.Time
		latestJSON   []byte
		historyJSON  []byte
		statusString string
	)
	if err := rows.Scan(
		&rec.ChannelID, &rec.Title, &createdAt, &statusString,
		&rec.LatestStats.SubscriberCount, &rec.LatestStats.VideoCount,
		&rec.LatestStats.ViewCount, &fetchedAt,
		&latestJSON, &historyJSON, &rec.UpdatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "store: scan channel")
	}

	rec.Status = model.ChannelStatus(statusString)
	if createdAt != nil {
		rec.CreatedAt = *createdAt
	}
	if fetchedAt != nil {
		rec.LatestStats.FetchedAt = *fetchedAt
	}
	if len(latestJSON) > 0 {
		rec.LatestAnalysis = &model.ChannelAnalysis{}
		if err := json.Unmarshal(latestJSON, rec.LatestAnalysis); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal latest analysis")
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &rec.AnalysisHistory); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal analysis history")
		}
	}
	return &rec, nil
}
