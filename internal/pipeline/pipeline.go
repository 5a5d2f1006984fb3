// Package pipeline implements the four-phase channel discovery run:
// candidate search, cache-aware pre-filtering, deep consistency analysis,
// and confidence ranking.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/channel-scout/internal/config"
	"github.com/sells-group/channel-scout/internal/metrics"
	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/internal/store"
	"github.com/sells-group/channel-scout/pkg/youtube"
)

// Pipeline wires the platform client and record store into a single
// synchronous discovery run.
type Pipeline struct {
	store store.Store
	yt    youtube.Client
	cfg   *config.DiscoveryConfig

	// search collapses concurrent parameter-identical topic searches.
	search singleflight.Group

	// now is injectable for tests.
	now func() time.Time
}

// New creates a Pipeline with the given dependencies.
func New(st store.Store, yt youtube.Client, cfg *config.DiscoveryConfig) *Pipeline {
	return &Pipeline{
		store: st,
		yt:    yt,
		cfg:   cfg,
		now:   time.Now,
	}
}

// Run executes one discovery run. Quota exhaustion during deep analysis
// degrades the run to PARTIAL_DUE_TO_QUOTA rather than failing it; Phase 1
// and Phase 2 failures abort the run.
func (p *Pipeline) Run(ctx context.Context, opts model.RunOptions) (*model.RunReport, error) {
	opts, err := p.normalizeOptions(opts)
	if err != nil {
		return nil, err
	}

	runID, err := p.store.CreateRun(ctx, opts)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	log := zap.L().With(zap.String("run_id", runID), zap.String("query", opts.Query))

	creditsUsed := 0

	candidates, cost, err := p.searchCandidates(ctx, opts)
	creditsUsed += cost
	if err != nil {
		err = eris.Wrap(err, "phase1: candidate search")
		p.failRun(ctx, runID, err)
		return nil, err
	}
	log.Info("candidate search complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("credits", creditsUsed),
	)

	prospects, cost, err := p.prefilter(ctx, candidates, opts)
	creditsUsed += cost
	if err != nil {
		err = eris.Wrap(err, "phase2: channel pre-filter")
		p.failRun(ctx, runID, err)
		return nil, err
	}
	log.Info("pre-filter complete", zap.Int("prospects", len(prospects)))

	promising, analyzed, cost, quotaHit, err := p.analyze(ctx, prospects, opts)
	creditsUsed += cost
	if err != nil {
		err = eris.Wrap(err, "phase3: deep analysis")
		p.failRun(ctx, runID, err)
		return nil, err
	}
	log.Info("deep analysis complete",
		zap.Int("analyzed", analyzed),
		zap.Int("promising", len(promising)),
		zap.Bool("quota_exhausted", quotaHit),
	)

	report := p.rank(promising, opts, quotaHit, model.RunSummary{
		CandidatesFound:    len(candidates),
		CandidatesAnalyzed: analyzed,
		APICreditsUsed:     creditsUsed,
	})

	if err := p.store.CompleteRun(ctx, runID, report.Status, report.Summary); err != nil {
		log.Error("complete run failed", zap.Error(err))
	}

	log.Info("run complete",
		zap.String("status", string(report.Status)),
		zap.Int("results", len(report.Results)),
		zap.Int("credits_used", creditsUsed),
	)
	return report, nil
}

func (p *Pipeline) failRun(ctx context.Context, runID string, err error) {
	if ferr := p.store.FailRun(ctx, runID, err.Error()); ferr != nil {
		zap.L().Error("fail run failed", zap.String("run_id", runID), zap.Error(ferr))
	}
}

// thresholds assembles the metric tunables from configuration.
func (p *Pipeline) thresholds() metrics.Thresholds {
	return metrics.Thresholds{
		MinDurationSecs:    p.cfg.MinVideoDurationSecs,
		MinOutlierViews:    p.cfg.MinOutlierViews,
		StandardMultiplier: p.cfg.StandardMultiplier,
		StrongMultiplier:   p.cfg.StrongMultiplier,
	}
}

// levelThreshold maps a consistency level to its minimum percentage.
func (p *Pipeline) levelThreshold(l model.ConsistencyLevel) float64 {
	if l == model.ConsistencyHigh {
		return p.cfg.HighThreshold
	}
	return p.cfg.ModerateThreshold
}

// bandStaleness returns the maximum trusted analysis age for a band. Newer
// channels change faster, so their analyses go stale sooner.
func (p *Pipeline) bandStaleness(band model.ChannelAgeBand) time.Duration {
	days := p.cfg.StalenessEstablishedDays
	if band == model.AgeBandNew {
		days = p.cfg.StalenessNewDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// bandCutoff computes the publishedAfter cutoff for a band, normalized to
// midnight UTC so parameter-identical requests on the same calendar day
// share a search cache key.
func bandCutoff(now time.Time, band model.ChannelAgeBand) time.Time {
	months := 24
	if band == model.AgeBandNew {
		months = 6
	}
	c := now.UTC().AddDate(0, -months, 0)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, time.UTC)
}
