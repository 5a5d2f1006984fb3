package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/channel-scout/internal/config"
	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/internal/store"
	"github.com/sells-group/channel-scout/pkg/youtube"
)

var testNow = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func testConfig() *config.DiscoveryConfig {
	return &config.DiscoveryConfig{
		SearchPageSize:   50,
		MaxSearchPages:   4,
		MaxSearchResults: 200,
		SearchCacheTTLH:  24,

		StatsTTLHours:            12,
		StalenessNewDays:         7,
		StalenessEstablishedDays: 30,
		SubscriberCeiling:        500_000,
		MinAvgViewsPerVideo:      1000,
		MinVideoCount:            5,

		VideoCacheTTLH:  72,
		GrowthGateRatio: 1.2,

		MinVideoDurationSecs: 120,
		MinOutlierViews:      10_000,
		StandardMultiplier:   2.0,
		StrongMultiplier:     5.0,
		ModerateThreshold:    30,
		HighThreshold:        50,

		MaxResultsCap: 50,
	}
}

func newTestPipeline(st store.Store, yt youtube.Client) *Pipeline {
	p := New(st, yt, testConfig())
	p.now = func() time.Time { return testNow }
	return p
}

func searchPage(next string, channelIDs ...string) *youtube.SearchPage {
	page := &youtube.SearchPage{NextPageToken: next}
	for _, id := range channelIDs {
		page.Items = append(page.Items, youtube.SearchResult{
			VideoID:   "vid-" + id,
			ChannelID: id,
		})
	}
	return page
}

func snapshot(id string, subs, videos, views int64, createdAt time.Time) youtube.ChannelSnapshot {
	return youtube.ChannelSnapshot{
		ChannelID:       id,
		Title:           "Channel " + id,
		PublishedAt:     createdAt,
		SubscriberCount: subs,
		VideoCount:      videos,
		ViewCount:       views,
	}
}

// makeVideos produces count long-form videos with identical view counts.
func makeVideos(count int, views int64) []youtube.Video {
	out := make([]youtube.Video, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, youtube.Video{
			VideoID:     "v",
			Duration:    "PT10M",
			PublishedAt: testNow.AddDate(0, -1, 0),
			ViewCount:   views,
		})
	}
	return out
}

func TestRun_EndToEnd(t *testing.T) {
	newCreated := testNow.AddDate(0, -3, 0)

	st := newMockStore()
	yt := &mockClient{
		searchPages: map[string]*youtube.SearchPage{
			"": searchPage("", "chA", "chB", "chC"),
		},
		statsByID: map[string]youtube.ChannelSnapshot{
			// Promising: every video at 25k views beats both the 10k floor and
			// 2x its 10k subscribers.
			"chA": snapshot("chA", 10_000, 20, 200_000, newCreated),
			// Over the subscriber ceiling.
			"chB": snapshot("chB", 600_000, 20, 2_000_000, newCreated),
			// Views sit exactly at the outlier floor, so nothing qualifies.
			"chC": snapshot("chC", 10_000, 20, 200_000, newCreated),
		},
		videosByChannel: map[string][]youtube.Video{
			"chA": makeVideos(10, 25_000),
			"chC": makeVideos(10, 10_000),
		},
	}
	p := newTestPipeline(st, yt)

	report, err := p.Run(context.Background(), model.RunOptions{
		Query:          "woodworking",
		ChannelAgeBand: model.AgeBandNew,
	})
	require.NoError(t, err)

	assert.Equal(t, model.RunCompleted, report.Status)
	assert.Equal(t, 3, report.Summary.CandidatesFound)
	assert.Equal(t, 2, report.Summary.CandidatesAnalyzed)
	// One search page, one stats batch, two per-channel video fetches.
	assert.Equal(t, 100+1+2*101, report.Summary.APICreditsUsed)

	require.Len(t, report.Results, 1)
	assert.Equal(t, "chA", report.Results[0].ChannelID)
	assert.InDelta(t, 100.0, report.Results[0].Analysis.ConsistencyPercentage, 0.001)
	assert.Equal(t, 10, report.Results[0].Analysis.OutlierVideoCount)

	assert.Equal(t, model.StatusArchivedTooLarge, st.statusUpdates["chB"])
	assert.Equal(t, model.StatusAnalyzedPromising, st.channels["chA"].Status)
	assert.Equal(t, model.StatusAnalyzedLowConsistency, st.channels["chC"].Status)
	assert.Equal(t, []model.RunStatus{model.RunCompleted}, st.completedRuns)
}

func TestRun_ImmediateRerunSpendsNothing(t *testing.T) {
	newCreated := testNow.AddDate(0, -3, 0)

	st := newMockStore()
	yt := &mockClient{
		searchPages: map[string]*youtube.SearchPage{
			"": searchPage("", "chA", "chB"),
		},
		statsByID: map[string]youtube.ChannelSnapshot{
			"chA": snapshot("chA", 10_000, 20, 200_000, newCreated),
			"chB": snapshot("chB", 600_000, 20, 2_000_000, newCreated),
		},
		videosByChannel: map[string][]youtube.Video{
			"chA": makeVideos(10, 25_000),
		},
	}
	p := newTestPipeline(st, yt)

	opts := model.RunOptions{Query: "woodworking", ChannelAgeBand: model.AgeBandNew}

	first, err := p.Run(context.Background(), opts)
	require.NoError(t, err)
	require.NotZero(t, first.Summary.APICreditsUsed)

	second, err := p.Run(context.Background(), opts)
	require.NoError(t, err)

	// Search cache, fresh stats, and the growth gate make the rerun free.
	assert.Zero(t, second.Summary.APICreditsUsed)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, 1, yt.searchCalls)
	assert.Equal(t, 1, yt.statsCalls)
	assert.Equal(t, 1, yt.videoCalls)
	assert.Equal(t, 1, st.commits["chA"])
	assert.Equal(t, 1, second.Summary.CandidatesAnalyzed)
}

func TestRun_SearchFailureFailsRun(t *testing.T) {
	st := newMockStore()
	yt := &mockClient{searchErr: assert.AnError}
	p := newTestPipeline(st, yt)

	_, err := p.Run(context.Background(), model.RunOptions{Query: "woodworking"})
	require.Error(t, err)
	assert.Len(t, st.failedRuns, 1)
	assert.Empty(t, st.completedRuns)
}

func TestRun_InvalidOptionsCreateNoRun(t *testing.T) {
	st := newMockStore()
	p := newTestPipeline(st, &mockClient{})

	_, err := p.Run(context.Background(), model.RunOptions{Query: "   "})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Empty(t, st.createdRuns)
}

func TestBandCutoff(t *testing.T) {
	cutoff := bandCutoff(testNow, model.AgeBandNew)
	assert.Equal(t, time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC), cutoff)

	cutoff = bandCutoff(testNow, model.AgeBandEstablished)
	assert.Equal(t, time.Date(2024, 8, 24, 0, 0, 0, 0, time.UTC), cutoff)
}
