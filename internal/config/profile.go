package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile is an optional scoring profile overriding the enum-mapped
// discovery tunables. Zero values leave the configured default in place.
type Profile struct {
	Levels struct {
		Moderate float64 `yaml:"moderate"`
		High     float64 `yaml:"high"`
	} `yaml:"levels"`
	Magnitudes struct {
		Standard float64 `yaml:"standard"`
		Strong   float64 `yaml:"strong"`
	} `yaml:"magnitudes"`
	MinOutlierViews      int64 `yaml:"min_outlier_views"`
	MinVideoDurationSecs int   `yaml:"min_video_duration_secs"`
}

// ApplyProfile loads a YAML scoring profile and overlays it on the discovery
// configuration.
func ApplyProfile(cfg *DiscoveryConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read profile %s", path)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return eris.Wrapf(err, "config: parse profile %s", path)
	}

	if p.Levels.Moderate > 0 {
		cfg.ModerateThreshold = p.Levels.Moderate
	}
	if p.Levels.High > 0 {
		cfg.HighThreshold = p.Levels.High
	}
	if p.Magnitudes.Standard > 0 {
		cfg.StandardMultiplier = p.Magnitudes.Standard
	}
	if p.Magnitudes.Strong > 0 {
		cfg.StrongMultiplier = p.Magnitudes.Strong
	}
	if p.MinOutlierViews > 0 {
		cfg.MinOutlierViews = p.MinOutlierViews
	}
	if p.MinVideoDurationSecs > 0 {
		cfg.MinVideoDurationSecs = p.MinVideoDurationSecs
	}
	return nil
}
