package pipeline

import (
	"fmt"
	"math"
	"sort"

	"github.com/sells-group/channel-scout/internal/model"
)

// rank is Phase 4: it scores the promising channels, sorts them stably by
// descending confidence (ties keep input order), truncates to the requested
// count, and assembles the result envelope. The confidence score itself is
// internal and never exposed.
func (p *Pipeline) rank(promising []*model.ChannelRecord, opts model.RunOptions, quotaHit bool, summary model.RunSummary) *model.RunReport {
	now := p.now()

	type rankedChannel struct {
		rec   *model.ChannelRecord
		score float64
	}
	ranked := make([]rankedChannel, 0, len(promising))
	for _, rec := range promising {
		m := rec.LatestAnalysis.Metrics[opts.OutlierMagnitude]
		ranked = append(ranked, rankedChannel{
			rec:   rec,
			score: confidenceScore(m, rec.LatestStats),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > opts.MaxResults {
		ranked = ranked[:opts.MaxResults]
	}

	results := make([]model.ChannelResult, 0, len(ranked))
	for _, rc := range ranked {
		m := rc.rec.LatestAnalysis.Metrics[opts.OutlierMagnitude]
		results = append(results, model.ChannelResult{
			ChannelID:       rc.rec.ChannelID,
			ChannelTitle:    rc.rec.Title,
			ChannelAgeDays:  rc.rec.AgeDays(now),
			SubscriberCount: rc.rec.LatestStats.SubscriberCount,
			VideoCount:      rc.rec.LatestStats.VideoCount,
			Analysis: model.ChannelResultAnalysis{
				ConsistencyPercentage: m.ConsistencyPercentage,
				OutlierVideoCount:     m.OutlierVideoCount,
			},
		})
	}

	status := model.RunCompleted
	if quotaHit {
		status = model.RunPartialQuota
		summary.Message = fmt.Sprintf(
			"API quota was exhausted mid-run; results cover the %d channels analyzed before the cutoff.",
			summary.CandidatesAnalyzed,
		)
	}

	return &model.RunReport{
		Status:  status,
		Summary: summary,
		Results: results,
	}
}

// confidenceScore combines consistency, outlier volume, and audience reach
// per video into one ranking signal.
func confidenceScore(m model.MagnitudeMetrics, stats model.ChannelStats) float64 {
	var impactFactor float64
	if stats.VideoCount > 0 {
		impactFactor = float64(stats.SubscriberCount) / float64(stats.VideoCount)
	}
	return m.ConsistencyPercentage * math.Log10(float64(m.OutlierVideoCount)+1) * impactFactor
}
