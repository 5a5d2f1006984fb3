package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/internal/pipeline"
	"github.com/sells-group/channel-scout/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the discovery HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		log := zap.L()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		yt, err := initYouTube()
		if err != nil {
			return err
		}
		pipe := pipeline.New(st, yt, &cfg.Discovery)

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/v1/discover", handleDiscover(pipe))
		r.Get("/v1/channels", handleListChannels(st))

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// handleDiscover runs one discovery pass synchronously. A run can take
// minutes when the caches are cold; the client is expected to wait.
func handleDiscover(pipe *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var opts model.RunOptions
		if err := json.NewDecoder(req.Body).Decode(&opts); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		report, err := pipe.Run(req.Context(), opts)
		if err != nil {
			if pipeline.IsValidationError(err) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			zap.L().Error("discovery run failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "discovery run failed"})
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func handleListChannels(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var statuses []model.ChannelStatus
		for _, s := range req.URL.Query()["status"] {
			status := model.ChannelStatus(s)
			if !status.Valid() {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown status %q", s)})
				return
			}
			statuses = append(statuses, status)
		}

		records, err := st.ListChannels(req.Context(), store.ListOpts{
			Statuses: statuses,
			Limit:    100,
		})
		if err != nil {
			zap.L().Error("list channels failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list channels failed"})
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response failed", zap.Error(err))
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
