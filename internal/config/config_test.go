package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)

	assert.Equal(t, 50, cfg.Discovery.SearchPageSize)
	assert.Equal(t, 4, cfg.Discovery.MaxSearchPages)
	assert.Equal(t, 200, cfg.Discovery.MaxSearchResults)
	assert.Equal(t, int64(500_000), cfg.Discovery.SubscriberCeiling)
	assert.Equal(t, int64(5), cfg.Discovery.MinVideoCount)
	assert.InDelta(t, 1.2, cfg.Discovery.GrowthGateRatio, 0.001)
	assert.Equal(t, int64(10_000), cfg.Discovery.MinOutlierViews)
	assert.InDelta(t, 2.0, cfg.Discovery.StandardMultiplier, 0.001)
	assert.InDelta(t, 5.0, cfg.Discovery.StrongMultiplier, 0.001)
	assert.InDelta(t, 30.0, cfg.Discovery.ModerateThreshold, 0.001)
	assert.InDelta(t, 50.0, cfg.Discovery.HighThreshold, 0.001)
	assert.Equal(t, 50, cfg.Discovery.MaxResultsCap)
}

func TestApplyProfile_OverridesOnlySetFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
levels:
  moderate: 40
magnitudes:
  strong: 8.0
min_outlier_views: 25000
`), 0o644))

	cfg := DiscoveryConfig{
		ModerateThreshold:    30,
		HighThreshold:        50,
		StandardMultiplier:   2.0,
		StrongMultiplier:     5.0,
		MinOutlierViews:      10_000,
		MinVideoDurationSecs: 120,
	}
	require.NoError(t, ApplyProfile(&cfg, path))

	assert.InDelta(t, 40.0, cfg.ModerateThreshold, 0.001)
	assert.InDelta(t, 8.0, cfg.StrongMultiplier, 0.001)
	assert.Equal(t, int64(25_000), cfg.MinOutlierViews)

	// Untouched fields keep their configured values.
	assert.InDelta(t, 50.0, cfg.HighThreshold, 0.001)
	assert.InDelta(t, 2.0, cfg.StandardMultiplier, 0.001)
	assert.Equal(t, 120, cfg.MinVideoDurationSecs)
}

func TestApplyProfile_MissingFile(t *testing.T) {
	cfg := DiscoveryConfig{}
	err := ApplyProfile(&cfg, filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
