package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/channel-scout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local and
// offline runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS channels (
	channel_id         TEXT PRIMARY KEY,
	title              TEXT NOT NULL DEFAULT '',
	channel_created_at DATETIME,
	status             TEXT NOT NULL DEFAULT 'candidate',
	subscriber_count   INTEGER NOT NULL DEFAULT 0,
	video_count        INTEGER NOT NULL DEFAULT 0,
	view_count         INTEGER NOT NULL DEFAULT 0,
	stats_fetched_at   DATETIME,
	latest_analysis    TEXT,
	analysis_history   TEXT NOT NULL DEFAULT '[]',
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_channels_status ON channels(status);

CREATE TABLE IF NOT EXISTS video_cache (
	channel_id TEXT PRIMARY KEY,
	videos     TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	param_hash  TEXT PRIMARY KEY,
	channel_ids TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS discovery_runs (
	id                  TEXT PRIMARY KEY,
	options             TEXT NOT NULL,
	status              TEXT NOT NULL DEFAULT 'running',
	candidates_found    INTEGER NOT NULL DEFAULT 0,
	candidates_analyzed INTEGER NOT NULL DEFAULT 0,
	credits_used        INTEGER NOT NULL DEFAULT 0,
	message             TEXT,
	error               TEXT,
	created_at          DATETIME NOT NULL,
	completed_at        DATETIME
);
`

// Migrate creates the schema.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun inserts a new discovery run and returns its UUID.
func (s *SQLiteStore) CreateRun(ctx context.Context, opts model.RunOptions) (string, error) {
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal run options")
	}

	id := uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discovery_runs (id, options, status, created_at) VALUES (?, ?, 'running', ?)`,
		id, string(optsJSON), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: create run")
	}
	return id, nil
}

// CompleteRun stamps the final status and summary on a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary model.RunSummary) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE discovery_runs SET
			status = ?, candidates_found = ?, candidates_analyzed = ?,
			credits_used = ?, message = ?, completed_at = ?
		WHERE id = ?`,
		string(status), summary.CandidatesFound, summary.CandidatesAnalyzed,
		summary.APICreditsUsed, summary.Message, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return nil
}

// FailRun marks a run as failed with an error message.
func (s *SQLiteStore) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE discovery_runs SET status = 'failed', error = ?, completed_at = ? WHERE id = ?`,
		errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return nil
}

const sqliteChannelColumns = `channel_id, title, channel_created_at, status,
	subscriber_count, video_count, view_count, stats_fetched_at,
	latest_analysis, analysis_history, updated_at`

// GetChannels bulk-fetches records by id. Missing ids are absent from the map.
func (s *SQLiteStore) GetChannels(ctx context.Context, ids []string) (map[string]*model.ChannelRecord, error) {
	out := make(map[string]*model.ChannelRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteChannelColumns+` FROM channels WHERE channel_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get channels")
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanSQLiteChannel(rows)
		if err != nil {
			return nil, err
		}
		out[rec.ChannelID] = rec
	}
	return out, eris.Wrap(rows.Err(), "sqlite: get channels iterate")
}

// UpsertChannelSnapshot creates or refreshes the stats snapshot of a record.
func (s *SQLiteStore) UpsertChannelSnapshot(ctx context.Context, rec *model.ChannelRecord) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (channel_id, title, channel_created_at, status,
			subscriber_count, video_count, view_count, stats_fetched_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET
			title = excluded.title,
			channel_created_at = excluded.channel_created_at,
			subscriber_count = excluded.subscriber_count,
			video_count = excluded.video_count,
			view_count = excluded.view_count,
			stats_fetched_at = excluded.stats_fetched_at,
			updated_at = excluded.updated_at`,
		rec.ChannelID, rec.Title, sqliteTime(rec.CreatedAt), string(model.StatusCandidate),
		rec.LatestStats.SubscriberCount, rec.LatestStats.VideoCount,
		rec.LatestStats.ViewCount, sqliteTime(rec.LatestStats.FetchedAt), now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert channel %s", rec.ChannelID)
	}
	return nil
}

// UpdateChannelStatus sets the status of one record.
func (s *SQLiteStore) UpdateChannelStatus(ctx context.Context, channelID string, status model.ChannelStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE channels SET status = ?, updated_at = ? WHERE channel_id = ?`,
		string(status), time.Now().UTC(), channelID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update status for channel %s", channelID)
	}
	return nil
}

// CommitAnalysis replaces the latest analysis and appends the prior one to
// the history in a single UPDATE.
func (s *SQLiteStore) CommitAnalysis(ctx context.Context, channelID string, status model.ChannelStatus, analysis model.ChannelAnalysis) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal analysis")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE channels SET
			status = ?,
			analysis_history = CASE
				WHEN latest_analysis IS NULL THEN analysis_history
				ELSE json_insert(analysis_history, '$[#]', json(latest_analysis))
			END,
			latest_analysis = ?,
			updated_at = ?
		WHERE channel_id = ?`,
		string(status), string(analysisJSON), time.Now().UTC(), channelID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: commit analysis for channel %s", channelID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: channel not found: %s", channelID)
	}
	return nil
}

// ListChannels returns stored records, optionally filtered by status.
func (s *SQLiteStore) ListChannels(ctx context.Context, opts ListOpts) ([]model.ChannelRecord, error) {
	query := `SELECT ` + sqliteChannelColumns + ` FROM channels`
	var args []any

	if len(opts.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(opts.Statuses)), ",")
		query += ` WHERE status IN (` + placeholders + `)`
		for _, st := range opts.Statuses {
			args = append(args, string(st))
		}
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` ORDER BY channel_id LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list channels")
	}
	defer rows.Close()

	var out []model.ChannelRecord
	for rows.Next() {
		rec, err := scanSQLiteChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list channels iterate")
}

// GetVideoCache returns the cached video list for a channel, or nil when
// absent or expired.
func (s *SQLiteStore) GetVideoCache(ctx context.Context, channelID string) (*model.VideoListCacheEntry, error) {
	var (
		entry      model.VideoListCacheEntry
		videosJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT channel_id, videos, fetched_at, expires_at FROM video_cache
		 WHERE channel_id = ? AND expires_at > ?`,
		channelID, time.Now().UTC(),
	).Scan(&entry.ChannelID, &videosJSON, &entry.FetchedAt, &entry.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get video cache for channel %s", channelID)
	}
	if err := json.Unmarshal([]byte(videosJSON), &entry.Videos); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached videos")
	}
	return &entry, nil
}

// PutVideoCache stores (or replaces) the video list for a channel.
func (s *SQLiteStore) PutVideoCache(ctx context.Context, channelID string, videos []model.Video, ttl time.Duration) error {
	videosJSON, err := json.Marshal(videos)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal videos")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO video_cache (channel_id, videos, fetched_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (channel_id) DO UPDATE SET
			videos = excluded.videos,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		channelID, string(videosJSON), now, now.Add(ttl),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: put video cache for channel %s", channelID)
	}
	return nil
}

// GetSearchCache returns the cached result of a parameter-identical search,
// or nil when absent or expired.
func (s *SQLiteStore) GetSearchCache(ctx context.Context, paramHash string) (*model.SearchCacheEntry, error) {
	var (
		entry   model.SearchCacheEntry
		idsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT param_hash, channel_ids, created_at, expires_at FROM search_cache
		 WHERE param_hash = ? AND expires_at > ?`,
		paramHash, time.Now().UTC(),
	).Scan(&entry.ParamHash, &idsJSON, &entry.CreatedAt, &entry.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get search cache")
	}
	if err := json.Unmarshal([]byte(idsJSON), &entry.ChannelIDs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached search")
	}
	return &entry, nil
}

// PutSearchCache stores (or replaces) a search result under its param hash.
func (s *SQLiteStore) PutSearchCache(ctx context.Context, paramHash string, channelIDs []string, ttl time.Duration) error {
	idsJSON, err := json.Marshal(channelIDs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal search result")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO search_cache (param_hash, channel_ids, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (param_hash) DO UPDATE SET
			channel_ids = excluded.channel_ids,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		paramHash, string(idsJSON), now, now.Add(ttl),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: put search cache")
	}
	return nil
}

// helpers

func sqliteTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

type sqliteScannable interface {
	Scan(dest ...any) error
}

func scanSQLiteChannel(row sqliteScannable) (*model.ChannelRecord, error) {
	var (
		rec          model.ChannelRecord
		createdAt    sql.NullTime
		fetchedAt    sql.NullTime
		latestJSON   sql.NullString
		historyJSON  string
		statusString string
	)
	if err := row.Scan(
		&rec.ChannelID, &rec.Title, &createdAt, &statusString,
		&rec.LatestStats.SubscriberCount, &rec.LatestStats.VideoCount,
		&rec.LatestStats.ViewCount, &fetchedAt,
		&latestJSON, &historyJSON, &rec.UpdatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan channel")
	}

	rec.Status = model.ChannelStatus(statusString)
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	if fetchedAt.Valid {
		rec.LatestStats.FetchedAt = fetchedAt.Time
	}
	if latestJSON.Valid && latestJSON.String != "" {
		rec.LatestAnalysis = &model.ChannelAnalysis{}
		if err := json.Unmarshal([]byte(latestJSON.String), rec.LatestAnalysis); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal latest analysis")
		}
	}
	if historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &rec.AnalysisHistory); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal analysis history")
		}
	}
	return &rec, nil
}
