package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/channel-scout/internal/model"
)

func promisingRecord(id string, subs, videoCount int64, outliers int, consistency float64) *model.ChannelRecord {
	return &model.ChannelRecord{
		ChannelID: id,
		Title:     "Channel " + id,
		Status:    model.StatusAnalyzedPromising,
		CreatedAt: testNow.AddDate(0, -3, 0),
		LatestStats: model.ChannelStats{
			FetchedAt:       testNow,
			SubscriberCount: subs,
			VideoCount:      videoCount,
		},
		LatestAnalysis: &model.ChannelAnalysis{
			AnalyzedAt:                testNow,
			SubscriberCountAtAnalysis: subs,
			Metrics: map[model.OutlierMagnitude]model.MagnitudeMetrics{
				model.MagnitudeStandard: {OutlierVideoCount: outliers, ConsistencyPercentage: consistency},
			},
		},
	}
}

func TestRank_OrdersByConfidenceDescending(t *testing.T) {
	p := newTestPipeline(newMockStore(), &mockClient{})

	promising := []*model.ChannelRecord{
		promisingRecord("low", 10_000, 100, 3, 40),
		promisingRecord("high", 10_000, 100, 9, 90),
		promisingRecord("mid", 10_000, 100, 9, 50),
	}

	report := p.rank(promising, defaultOpts(), false, model.RunSummary{})
	require.Len(t, report.Results, 3)
	assert.Equal(t, "high", report.Results[0].ChannelID)
	assert.Equal(t, "mid", report.Results[1].ChannelID)
	assert.Equal(t, "low", report.Results[2].ChannelID)
	assert.Equal(t, model.RunCompleted, report.Status)
}

func TestRank_TiesKeepInputOrder(t *testing.T) {
	p := newTestPipeline(newMockStore(), &mockClient{})

	promising := []*model.ChannelRecord{
		promisingRecord("first", 10_000, 100, 5, 60),
		promisingRecord("second", 10_000, 100, 5, 60),
	}

	report := p.rank(promising, defaultOpts(), false, model.RunSummary{})
	require.Len(t, report.Results, 2)
	assert.Equal(t, "first", report.Results[0].ChannelID)
	assert.Equal(t, "second", report.Results[1].ChannelID)
}

func TestRank_TruncatesToMaxResults(t *testing.T) {
	p := newTestPipeline(newMockStore(), &mockClient{})

	var promising []*model.ChannelRecord
	for i := 0; i < 15; i++ {
		promising = append(promising, promisingRecord("ch", 10_000, 100, 5, 60))
	}

	opts := defaultOpts()
	opts.MaxResults = 5
	report := p.rank(promising, opts, false, model.RunSummary{})
	assert.Len(t, report.Results, 5)
}

func TestRank_ZeroVideoCountScoresZero(t *testing.T) {
	p := newTestPipeline(newMockStore(), &mockClient{})

	promising := []*model.ChannelRecord{
		promisingRecord("empty", 10_000, 0, 9, 90),
		promisingRecord("normal", 10_000, 100, 3, 40),
	}

	report := p.rank(promising, defaultOpts(), false, model.RunSummary{})
	require.Len(t, report.Results, 2)
	assert.Equal(t, "normal", report.Results[0].ChannelID)
}

func TestRank_QuotaHitMarksPartial(t *testing.T) {
	p := newTestPipeline(newMockStore(), &mockClient{})

	report := p.rank(nil, defaultOpts(), true, model.RunSummary{CandidatesAnalyzed: 7})
	assert.Equal(t, model.RunPartialQuota, report.Status)
	assert.Contains(t, report.Summary.Message, "7 channels")
}

func TestConfidenceScore(t *testing.T) {
	stats := model.ChannelStats{SubscriberCount: 10_000, VideoCount: 100}

	// 50% consistency, 9 outliers, 100 subscribers per video.
	score := confidenceScore(model.MagnitudeMetrics{OutlierVideoCount: 9, ConsistencyPercentage: 50}, stats)
	assert.InDelta(t, 50*1*100, score, 0.001)

	// Zero outliers contribute nothing regardless of consistency.
	score = confidenceScore(model.MagnitudeMetrics{OutlierVideoCount: 0, ConsistencyPercentage: 100}, stats)
	assert.Zero(t, score)
}
