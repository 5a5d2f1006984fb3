package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/channel-scout/internal/metrics"
	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/pkg/youtube"
)

// analyze is Phase 3: a sequential fold over the prospects that re-analyzes
// each channel when the growth gate demands it, commits the new analysis
// atomically, and short-circuits on quota exhaustion while keeping every
// result accumulated so far. A single channel's failure never aborts the run.
func (p *Pipeline) analyze(ctx context.Context, prospects []string, opts model.RunOptions) (promising []*model.ChannelRecord, analyzed, cost int, quotaHit bool, err error) {
	log := zap.L().With(zap.String("phase", "analyze"))

	threshold := p.levelThreshold(opts.ConsistencyLevel)
	publishedAfter := bandCutoff(p.now(), opts.ChannelAgeBand)

	for i, id := range prospects {
		if ctx.Err() != nil {
			return promising, analyzed, cost, quotaHit, ctx.Err()
		}
		clog := log.With(zap.String("channel_id", id))

		recs, gerr := p.store.GetChannels(ctx, []string{id})
		if gerr != nil {
			clog.Warn("record fetch failed", zap.Error(gerr))
			continue
		}
		rec := recs[id]
		if rec == nil {
			clog.Warn("record missing, skipping")
			continue
		}
		if rec.Status.Terminal() {
			clog.Debug("terminal status, skipping", zap.String("status", string(rec.Status)))
			continue
		}

		if !p.needsReanalysis(rec) {
			// The prior analysis is still trusted; no store writes.
			analyzed++
			if m, ok := rec.LatestAnalysis.Metrics[opts.OutlierMagnitude]; ok && m.ConsistencyPercentage >= threshold {
				promising = append(promising, rec)
			}
			continue
		}

		videos, c, verr := p.recentTopVideos(ctx, id, publishedAfter, clog)
		cost += c
		if verr != nil {
			if youtube.IsQuotaExhausted(verr) {
				clog.Warn("quota exhausted, halting analysis",
					zap.Int("prospects_processed", i),
					zap.Int("prospects_remaining", len(prospects)-i),
				)
				quotaHit = true
				break
			}
			clog.Warn("video fetch failed", zap.Error(verr))
			continue
		}
		if len(videos) == 0 {
			clog.Info("no recent videos, skipping")
			continue
		}

		analysis := metrics.Compute(videos, rec.LatestStats.SubscriberCount, p.now(), p.thresholds())
		meets := analysis.Metrics[opts.OutlierMagnitude].ConsistencyPercentage >= threshold

		automatic := model.StatusAnalyzedLowConsistency
		if meets {
			automatic = model.StatusAnalyzedPromising
		}
		final := model.ResolveAnalyzed(rec.Status, automatic)

		if cerr := p.store.CommitAnalysis(ctx, id, final, analysis); cerr != nil {
			clog.Warn("commit analysis failed", zap.Error(cerr))
			continue
		}

		// Mirror the committed state on the in-memory record.
		if rec.LatestAnalysis != nil {
			rec.AnalysisHistory = append(rec.AnalysisHistory, *rec.LatestAnalysis)
		}
		committed := analysis
		rec.LatestAnalysis = &committed
		rec.Status = final

		analyzed++
		if meets {
			promising = append(promising, rec)
		}
	}

	return promising, analyzed, cost, quotaHit, nil
}

// needsReanalysis is the growth gate: re-analysis is required when no prior
// analysis exists or subscribers grew by the gate ratio (default 20%) or
// more since it ran. Exactly-at-ratio growth forces a refresh.
func (p *Pipeline) needsReanalysis(rec *model.ChannelRecord) bool {
	if rec.LatestAnalysis == nil {
		return true
	}
	gate := float64(rec.LatestAnalysis.SubscriberCountAtAnalysis) * p.cfg.GrowthGateRatio
	return float64(rec.LatestStats.SubscriberCount) >= gate
}

// recentTopVideos returns the channel's recent top videos, preferring the
// video-list cache; a fetch populates the cache. Empty fetch results are not
// cached.
func (p *Pipeline) recentTopVideos(ctx context.Context, channelID string, publishedAfter time.Time, log *zap.Logger) ([]model.Video, int, error) {
	if entry, err := p.store.GetVideoCache(ctx, channelID); err != nil {
		log.Warn("video cache read failed", zap.Error(err))
	} else if entry != nil {
		log.Debug("video cache hit", zap.Int("videos", len(entry.Videos)))
		return entry.Videos, 0, nil
	}

	fetched, cost, err := p.yt.RecentTopVideos(ctx, channelID, publishedAfter)
	if err != nil {
		return nil, cost, err
	}

	videos := make([]model.Video, 0, len(fetched))
	for _, v := range fetched {
		videos = append(videos, model.Video{
			VideoID:     v.VideoID,
			Title:       v.Title,
			PublishedAt: v.PublishedAt,
			Duration:    v.Duration,
			ViewCount:   v.ViewCount,
		})
	}

	if len(videos) > 0 {
		ttl := time.Duration(p.cfg.VideoCacheTTLH) * time.Hour
		if err := p.store.PutVideoCache(ctx, channelID, videos, ttl); err != nil {
			log.Warn("video cache write failed", zap.Error(err))
		}
	}
	return videos, cost, nil
}
