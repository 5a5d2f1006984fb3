// Package metrics computes the outlier and consistency metrics shared by the
// deep analysis phase and its tests.
package metrics

import (
	"time"

	"github.com/sells-group/channel-scout/internal/model"
)

// Thresholds are the tunables for qualifying videos and outlier detection.
type Thresholds struct {
	// MinDurationSecs filters out short-form content.
	MinDurationSecs int
	// MinOutlierViews is the absolute view floor an outlier must clear,
	// regardless of subscriber count.
	MinOutlierViews int64
	// StandardMultiplier and StrongMultiplier scale the subscriber count into
	// the per-magnitude outlier view threshold.
	StandardMultiplier float64
	StrongMultiplier   float64
}

// Multiplier returns the subscriber multiplier for the given magnitude.
func (t Thresholds) Multiplier(m model.OutlierMagnitude) float64 {
	if m == model.MagnitudeStrong {
		return t.StrongMultiplier
	}
	return t.StandardMultiplier
}

// Qualifies reports whether a video participates in consistency scoring.
func Qualifies(v model.Video, th Thresholds) bool {
	return ParseISODuration(v.Duration) >= th.MinDurationSecs
}

// IsOutlier reports whether a qualifying video is an outlier at the given
// magnitude: views must exceed both the subscriber-scaled threshold and the
// absolute floor.
func IsOutlier(v model.Video, subscriberCount int64, m model.OutlierMagnitude, th Thresholds) bool {
	if v.ViewCount <= th.MinOutlierViews {
		return false
	}
	return float64(v.ViewCount) > float64(subscriberCount)*th.Multiplier(m)
}

// Compute derives a full analysis from one video set and the channel's
// current subscriber count. Both magnitude variants are computed from the
// same qualifying set; with no qualifying videos every consistency is 0.
func Compute(videos []model.Video, subscriberCount int64, now time.Time, th Thresholds) model.ChannelAnalysis {
	var qualifying int
	outliers := map[model.OutlierMagnitude]int{}

	for _, v := range videos {
		if !Qualifies(v, th) {
			continue
		}
		qualifying++
		for _, m := range []model.OutlierMagnitude{model.MagnitudeStandard, model.MagnitudeStrong} {
			if IsOutlier(v, subscriberCount, m, th) {
				outliers[m]++
			}
		}
	}

	result := model.ChannelAnalysis{
		AnalyzedAt:                now,
		SubscriberCountAtAnalysis: subscriberCount,
		SourceVideoCount:          len(videos),
		Metrics:                   make(map[model.OutlierMagnitude]model.MagnitudeMetrics, 2),
	}
	for _, m := range []model.OutlierMagnitude{model.MagnitudeStandard, model.MagnitudeStrong} {
		var pct float64
		if qualifying > 0 {
			pct = float64(outliers[m]) / float64(qualifying) * 100
		}
		result.Metrics[m] = model.MagnitudeMetrics{
			OutlierVideoCount:     outliers[m],
			ConsistencyPercentage: pct,
		}
	}
	return result
}
