package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/channel-scout/internal/store"
	"github.com/sells-group/channel-scout/pkg/youtube"
)

// initStore opens the configured store backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("cmd: unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// initYouTube builds the platform client from configuration.
func initYouTube() (youtube.Client, error) {
	if cfg.YouTube.Key == "" {
		return nil, eris.New("cmd: youtube api key not configured (set SCOUT_YOUTUBE_KEY)")
	}

	var opts []youtube.Option
	if cfg.YouTube.BaseURL != "" {
		opts = append(opts, youtube.WithBaseURL(cfg.YouTube.BaseURL))
	}
	if cfg.YouTube.RateLimit > 0 {
		opts = append(opts, youtube.WithRateLimit(cfg.YouTube.RateLimit))
	}
	return youtube.NewClient(cfg.YouTube.Key, opts...), nil
}
