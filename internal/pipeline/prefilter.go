package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/pkg/youtube"
)

// statsBatchSize is the platform's per-call channel id limit.
const statsBatchSize = 50

// statsFetchConcurrency bounds the parallel stats batches. These reads are
// side-effect free, so batching them does not disturb the quota cutover
// semantics of the analysis phase.
const statsFetchConcurrency = 4

// prefilter is Phase 2: it reconciles candidates against cached channel
// state, refreshes stale or missing snapshots in bulk, applies the hard
// eligibility filters, persists exclusion reasons, and returns the surviving
// prospects in input order.
func (p *Pipeline) prefilter(ctx context.Context, candidateIDs []string, opts model.RunOptions) ([]string, int, error) {
	log := zap.L().With(zap.String("phase", "prefilter"))
	now := p.now()

	records, err := p.store.GetChannels(ctx, candidateIDs)
	if err != nil {
		return nil, 0, err
	}

	var needsFetch []string
	for _, id := range candidateIDs {
		rec := records[id]
		// Terminal channels never re-enter the pipeline; spend nothing on them.
		if rec != nil && rec.Status.Terminal() {
			continue
		}
		if p.needsStatsFetch(rec, opts.ChannelAgeBand, now) {
			needsFetch = append(needsFetch, id)
		}
	}
	log.Debug("stats freshness resolved",
		zap.Int("candidates", len(candidateIDs)),
		zap.Int("needs_fetch", len(needsFetch)),
	)

	fresh := make(map[string]youtube.ChannelSnapshot, len(needsFetch))
	var cost int
	if len(needsFetch) > 0 {
		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(statsFetchConcurrency)

		for _, chunk := range chunkIDs(needsFetch, statsBatchSize) {
			g.Go(func() error {
				snaps, c, err := p.yt.ChannelStatsBatch(gctx, chunk)
				mu.Lock()
				cost += c
				for id, snap := range snaps {
					fresh[id] = snap
				}
				mu.Unlock()
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, cost, err
		}
	}

	// Merge fresh snapshots into records, preserving status and analysis
	// state, and persist. Channels the platform did not return stay as they
	// were (possibly nil) and are silently skipped by the filters below.
	for _, id := range needsFetch {
		snap, ok := fresh[id]
		if !ok {
			continue
		}
		rec := records[id]
		if rec == nil {
			rec = &model.ChannelRecord{ChannelID: id, Status: model.StatusCandidate}
			records[id] = rec
		}
		rec.Title = snap.Title
		rec.CreatedAt = snap.PublishedAt
		rec.LatestStats = model.ChannelStats{
			FetchedAt:       now,
			SubscriberCount: snap.SubscriberCount,
			VideoCount:      snap.VideoCount,
			ViewCount:       snap.ViewCount,
		}
		if err := p.store.UpsertChannelSnapshot(ctx, rec); err != nil {
			log.Warn("persist snapshot failed", zap.String("channel_id", id), zap.Error(err))
		}
	}

	var prospects []string
	for _, id := range candidateIDs {
		rec := records[id]
		if rec == nil || rec.LatestStats.FetchedAt.IsZero() {
			log.Debug("no stats available, skipping", zap.String("channel_id", id))
			continue
		}
		if rec.Status.Terminal() {
			log.Debug("terminal status, skipping",
				zap.String("channel_id", id),
				zap.String("status", string(rec.Status)),
			)
			continue
		}

		if archived, excluded := p.hardFilter(rec, opts.ChannelAgeBand, now); excluded {
			// Curated statuses are never overwritten by automatic outcomes; the
			// channel is still excluded from this run.
			if !rec.Status.Preservable() {
				rec.Status = archived
				if err := p.store.UpdateChannelStatus(ctx, id, archived); err != nil {
					log.Warn("persist exclusion failed",
						zap.String("channel_id", id),
						zap.String("status", string(archived)),
						zap.Error(err),
					)
				}
			}
			continue
		}
		prospects = append(prospects, id)
	}

	return prospects, cost, nil
}

// needsStatsFetch decides whether a candidate's stats snapshot must be
// refreshed. A snapshot exactly at its threshold age is stale.
func (p *Pipeline) needsStatsFetch(rec *model.ChannelRecord, band model.ChannelAgeBand, now time.Time) bool {
	if rec == nil || rec.LatestStats.FetchedAt.IsZero() {
		return true
	}
	if rec.LatestAnalysis == nil {
		statsTTL := time.Duration(p.cfg.StatsTTLHours) * time.Hour
		return now.Sub(rec.LatestStats.FetchedAt) >= statsTTL
	}
	return now.Sub(rec.LatestAnalysis.AnalyzedAt) >= p.bandStaleness(band)
}

// hardFilter applies the eligibility filters in order and returns the
// archived status of the first failure.
func (p *Pipeline) hardFilter(rec *model.ChannelRecord, band model.ChannelAgeBand, now time.Time) (model.ChannelStatus, bool) {
	if !ageBandEligible(rec.CreatedAt, band, now) {
		return model.StatusArchivedTooOld, true
	}
	if rec.LatestStats.SubscriberCount > p.cfg.SubscriberCeiling {
		return model.StatusArchivedTooLarge, true
	}

	var avgViews float64
	if rec.LatestStats.VideoCount > 0 {
		avgViews = float64(rec.LatestStats.ViewCount) / float64(rec.LatestStats.VideoCount)
	}
	if avgViews < p.cfg.MinAvgViewsPerVideo {
		return model.StatusArchivedLowPotential, true
	}

	if rec.LatestStats.VideoCount < p.cfg.MinVideoCount {
		return model.StatusArchivedLowSampleSize, true
	}
	return "", false
}

// ageBandEligible checks the channel creation date against the band: NEW
// requires age of at most 6 months, ESTABLISHED between 6 and 24 months.
func ageBandEligible(createdAt time.Time, band model.ChannelAgeBand, now time.Time) bool {
	if createdAt.IsZero() {
		return false
	}
	sixMonthsAgo := now.AddDate(0, -6, 0)
	if band == model.AgeBandNew {
		return !createdAt.Before(sixMonthsAgo)
	}
	twentyFourMonthsAgo := now.AddDate(0, -24, 0)
	return createdAt.Before(sixMonthsAgo) && !createdAt.Before(twentyFourMonthsAgo)
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
