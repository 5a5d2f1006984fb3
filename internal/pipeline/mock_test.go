package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/channel-scout/internal/model"
	"github.com/sells-group/channel-scout/internal/store"
	"github.com/sells-group/channel-scout/pkg/youtube"
)

// mockStore implements store.Store for testing. It applies the same state
// transitions the real stores do so multi-phase runs see consistent records.
type mockStore struct {
	mu sync.Mutex

	channels    map[string]*model.ChannelRecord
	videoCache  map[string]*model.VideoListCacheEntry
	searchCache map[string]*model.SearchCacheEntry

	createdRuns   []model.RunOptions
	completedRuns []model.RunStatus
	failedRuns    []string

	upsertedIDs    []string
	statusUpdates  map[string]model.ChannelStatus
	commits        map[string]int
	searchPuts     int
	videoPuts      int
	getChannelErr  error
	commitErr      error
	searchCacheErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		channels:      map[string]*model.ChannelRecord{},
		videoCache:    map[string]*model.VideoListCacheEntry{},
		searchCache:   map[string]*model.SearchCacheEntry{},
		statusUpdates: map[string]model.ChannelStatus{},
		commits:       map[string]int{},
	}
}

func (m *mockStore) CreateRun(_ context.Context, opts model.RunOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createdRuns = append(m.createdRuns, opts)
	return "run-1", nil
}

func (m *mockStore) CompleteRun(_ context.Context, _ string, status model.RunStatus, _ model.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completedRuns = append(m.completedRuns, status)
	return nil
}

func (m *mockStore) FailRun(_ context.Context, runID string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedRuns = append(m.failedRuns, runID)
	return nil
}

func (m *mockStore) GetChannels(_ context.Context, ids []string) (map[string]*model.ChannelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getChannelErr != nil {
		return nil, m.getChannelErr
	}
	out := make(map[string]*model.ChannelRecord, len(ids))
	for _, id := range ids {
		if rec, ok := m.channels[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (m *mockStore) UpsertChannelSnapshot(_ context.Context, rec *model.ChannelRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertedIDs = append(m.upsertedIDs, rec.ChannelID)

	existing, ok := m.channels[rec.ChannelID]
	if !ok {
		cp := *rec
		cp.Status = model.StatusCandidate
		m.channels[rec.ChannelID] = &cp
		return nil
	}
	existing.Title = rec.Title
	existing.CreatedAt = rec.CreatedAt
	existing.LatestStats = rec.LatestStats
	return nil
}

func (m *mockStore) UpdateChannelStatus(_ context.Context, channelID string, status model.ChannelStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusUpdates[channelID] = status
	if rec, ok := m.channels[channelID]; ok {
		rec.Status = status
	}
	return nil
}

func (m *mockStore) CommitAnalysis(_ context.Context, channelID string, status model.ChannelStatus, analysis model.ChannelAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commitErr != nil {
		return m.commitErr
	}
	rec, ok := m.channels[channelID]
	if !ok {
		return eris.Errorf("channel not found: %s", channelID)
	}
	m.commits[channelID]++
	if rec.LatestAnalysis != nil {
		rec.AnalysisHistory = append(rec.AnalysisHistory, *rec.LatestAnalysis)
	}
	cp := analysis
	rec.LatestAnalysis = &cp
	rec.Status = status
	return nil
}

func (m *mockStore) ListChannels(_ context.Context, opts store.ListOpts) ([]model.ChannelRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ChannelRecord
	for _, rec := range m.channels {
		if len(opts.Statuses) > 0 {
			match := false
			for _, st := range opts.Statuses {
				if rec.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (m *mockStore) GetVideoCache(_ context.Context, channelID string) (*model.VideoListCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.videoCache[channelID], nil
}

func (m *mockStore) PutVideoCache(_ context.Context, channelID string, videos []model.Video, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoPuts++
	now := time.Now().UTC()
	m.videoCache[channelID] = &model.VideoListCacheEntry{
		ChannelID: channelID,
		Videos:    videos,
		FetchedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	return nil
}

func (m *mockStore) GetSearchCache(_ context.Context, paramHash string) (*model.SearchCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.searchCacheErr != nil {
		return nil, m.searchCacheErr
	}
	return m.searchCache[paramHash], nil
}

func (m *mockStore) PutSearchCache(_ context.Context, paramHash string, channelIDs []string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchPuts++
	now := time.Now().UTC()
	m.searchCache[paramHash] = &model.SearchCacheEntry{
		ParamHash:  paramHash,
		ChannelIDs: channelIDs,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	return nil
}

func (m *mockStore) Migrate(_ context.Context) error { return nil }
func (m *mockStore) Close() error                    { return nil }

// mockClient implements youtube.Client for testing.
type mockClient struct {
	mu sync.Mutex

	searchPages map[string]*youtube.SearchPage // keyed by page token, "" for first
	searchCalls int
	searchErr   error

	// When set, SearchVideos signals searchEntered and blocks until
	// searchRelease is closed, so tests can hold a search in flight.
	searchEntered chan struct{}
	searchRelease chan struct{}

	statsByID  map[string]youtube.ChannelSnapshot
	statsCalls int
	statsErr   error

	videosByChannel map[string][]youtube.Video
	videoCalls      int
	videoErrByID    map[string]error
	quotaAfter      int // RecentTopVideos calls before quota errors kick in; 0 disables
}

func (m *mockClient) SearchVideos(_ context.Context, req youtube.SearchRequest) (*youtube.SearchPage, int, error) {
	if m.searchEntered != nil {
		m.searchEntered <- struct{}{}
		<-m.searchRelease
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls++
	if m.searchErr != nil {
		return nil, 100, m.searchErr
	}
	page, ok := m.searchPages[req.PageToken]
	if !ok {
		return &youtube.SearchPage{}, 100, nil
	}
	return page, 100, nil
}

func (m *mockClient) ChannelStatsBatch(_ context.Context, ids []string) (map[string]youtube.ChannelSnapshot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsCalls++
	if m.statsErr != nil {
		return nil, 1, m.statsErr
	}
	out := make(map[string]youtube.ChannelSnapshot)
	for _, id := range ids {
		if snap, ok := m.statsByID[id]; ok {
			out[id] = snap
		}
	}
	return out, 1, nil
}

func (m *mockClient) RecentTopVideos(_ context.Context, channelID string, _ time.Time) ([]youtube.Video, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoCalls++
	if m.quotaAfter > 0 && m.videoCalls > m.quotaAfter {
		return nil, 100, &youtube.QuotaError{Reason: "quotaExceeded", Message: "quota exceeded"}
	}
	if err, ok := m.videoErrByID[channelID]; ok {
		return nil, 100, err
	}
	return m.videosByChannel[channelID], 101, nil
}

func (m *mockClient) VideoDetails(_ context.Context, _ []string) ([]youtube.Video, int, error) {
	return nil, 1, nil
}

func (m *mockClient) TrendingVideos(_ context.Context, _, _ string, _ int) ([]youtube.Video, int, error) {
	return nil, 1, nil
}

func (m *mockClient) VideoCategories(_ context.Context, _ string) ([]youtube.VideoCategory, int, error) {
	return nil, 1, nil
}
