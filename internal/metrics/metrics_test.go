package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/channel-scout/internal/model"
)

var testThresholds = Thresholds{
	MinDurationSecs:    120,
	MinOutlierViews:    10_000,
	StandardMultiplier: 2.0,
	StrongMultiplier:   5.0,
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		input string
		secs  int
	}{
		{"PT12M34S", 754},
		{"PT1H2M30S", 3750},
		{"PT45S", 45},
		{"PT2M", 120},
		{"PT1H", 3600},
		{"PT0S", 0},
		{"", 0},
		{"PT", 0},
		{"P1DT2H", 0},
		{"12M34S", 0},
		{"PT12M34", 0},
		{"PTXS", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.secs, ParseISODuration(tt.input))
		})
	}
}

func TestQualifies(t *testing.T) {
	assert.True(t, Qualifies(model.Video{Duration: "PT2M"}, testThresholds))
	assert.True(t, Qualifies(model.Video{Duration: "PT10M"}, testThresholds))
	assert.False(t, Qualifies(model.Video{Duration: "PT1M59S"}, testThresholds))
	assert.False(t, Qualifies(model.Video{Duration: "PT45S"}, testThresholds))
}

func TestIsOutlier(t *testing.T) {
	tests := []struct {
		name      string
		views     int64
		subs      int64
		magnitude model.OutlierMagnitude
		outlier   bool
	}{
		{"clears standard", 25_000, 10_000, model.MagnitudeStandard, true},
		{"exactly at multiplier", 20_000, 10_000, model.MagnitudeStandard, false},
		{"clears strong", 60_000, 10_000, model.MagnitudeStrong, true},
		{"standard only", 25_000, 10_000, model.MagnitudeStrong, false},
		{"exactly at floor", 10_000, 100, model.MagnitudeStandard, false},
		{"under floor despite tiny channel", 9_000, 100, model.MagnitudeStandard, false},
		{"just over floor on tiny channel", 10_001, 100, model.MagnitudeStandard, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := model.Video{ViewCount: tt.views, Duration: "PT10M"}
			assert.Equal(t, tt.outlier, IsOutlier(v, tt.subs, tt.magnitude, testThresholds))
		})
	}
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// 20 videos: 9 standard outliers, 3 of which are also strong, 2 shorts
	// that never qualify, 9 ordinary long-form videos.
	var videos []model.Video
	for i := 0; i < 6; i++ {
		videos = append(videos, model.Video{Duration: "PT10M", ViewCount: 30_000})
	}
	for i := 0; i < 3; i++ {
		videos = append(videos, model.Video{Duration: "PT10M", ViewCount: 80_000})
	}
	for i := 0; i < 2; i++ {
		videos = append(videos, model.Video{Duration: "PT30S", ViewCount: 500_000})
	}
	for i := 0; i < 9; i++ {
		videos = append(videos, model.Video{Duration: "PT10M", ViewCount: 5_000})
	}

	analysis := Compute(videos, 10_000, now, testThresholds)

	assert.Equal(t, now, analysis.AnalyzedAt)
	assert.Equal(t, int64(10_000), analysis.SubscriberCountAtAnalysis)
	assert.Equal(t, 20, analysis.SourceVideoCount)

	std := analysis.Metrics[model.MagnitudeStandard]
	assert.Equal(t, 9, std.OutlierVideoCount)
	// 9 outliers over 18 qualifying videos.
	assert.InDelta(t, 50.0, std.ConsistencyPercentage, 0.001)

	strong := analysis.Metrics[model.MagnitudeStrong]
	assert.Equal(t, 3, strong.OutlierVideoCount)
	assert.InDelta(t, 100.0/6, strong.ConsistencyPercentage, 0.001)
}

func TestCompute_NoQualifyingVideos(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	videos := []model.Video{
		{Duration: "PT30S", ViewCount: 1_000_000},
		{Duration: "PT59S", ViewCount: 2_000_000},
	}

	analysis := Compute(videos, 100, now, testThresholds)

	require.Contains(t, analysis.Metrics, model.MagnitudeStandard)
	assert.Zero(t, analysis.Metrics[model.MagnitudeStandard].ConsistencyPercentage)
	assert.Zero(t, analysis.Metrics[model.MagnitudeStandard].OutlierVideoCount)
	assert.Equal(t, 2, analysis.SourceVideoCount)
}

func TestCompute_ConsistencyStaysInRange(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	videos := []model.Video{
		{Duration: "PT10M", ViewCount: 1_000_000},
		{Duration: "PT10M", ViewCount: 1_000_000},
	}

	analysis := Compute(videos, 10, now, testThresholds)
	pct := analysis.Metrics[model.MagnitudeStandard].ConsistencyPercentage
	assert.GreaterOrEqual(t, pct, 0.0)
	assert.LessOrEqual(t, pct, 100.0)
	assert.InDelta(t, 100.0, pct, 0.001)
}
