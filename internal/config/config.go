// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	YouTube   YouTubeConfig   `yaml:"youtube" mapstructure:"youtube"`
	Discovery DiscoveryConfig `yaml:"discovery" mapstructure:"discovery"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// YouTubeConfig holds YouTube Data API settings.
type YouTubeConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// DiscoveryConfig holds every tunable of the discovery pipeline. Enum-mapped
// values (level thresholds, magnitude multipliers) can be overridden by a
// scoring profile file, see ApplyProfile.
type DiscoveryConfig struct {
	// Phase 1: search.
	SearchPageSize   int `yaml:"search_page_size" mapstructure:"search_page_size"`
	MaxSearchPages   int `yaml:"max_search_pages" mapstructure:"max_search_pages"`
	MaxSearchResults int `yaml:"max_search_results" mapstructure:"max_search_results"`
	SearchCacheTTLH  int `yaml:"search_cache_ttl_hours" mapstructure:"search_cache_ttl_hours"`

	// Phase 2: freshness and hard filters.
	StatsTTLHours            int     `yaml:"stats_ttl_hours" mapstructure:"stats_ttl_hours"`
	StalenessNewDays         int     `yaml:"staleness_new_days" mapstructure:"staleness_new_days"`
	StalenessEstablishedDays int     `yaml:"staleness_established_days" mapstructure:"staleness_established_days"`
	SubscriberCeiling        int64   `yaml:"subscriber_ceiling" mapstructure:"subscriber_ceiling"`
	MinAvgViewsPerVideo      float64 `yaml:"min_avg_views_per_video" mapstructure:"min_avg_views_per_video"`
	MinVideoCount            int64   `yaml:"min_video_count" mapstructure:"min_video_count"`

	// Phase 3: analysis.
	VideoCacheTTLH  int     `yaml:"video_cache_ttl_hours" mapstructure:"video_cache_ttl_hours"`
	GrowthGateRatio float64 `yaml:"growth_gate_ratio" mapstructure:"growth_gate_ratio"`

	// Metrics thresholds.
	MinVideoDurationSecs int     `yaml:"min_video_duration_secs" mapstructure:"min_video_duration_secs"`
	MinOutlierViews      int64   `yaml:"min_outlier_views" mapstructure:"min_outlier_views"`
	StandardMultiplier   float64 `yaml:"standard_multiplier" mapstructure:"standard_multiplier"`
	StrongMultiplier     float64 `yaml:"strong_multiplier" mapstructure:"strong_multiplier"`
	ModerateThreshold    float64 `yaml:"moderate_threshold" mapstructure:"moderate_threshold"`
	HighThreshold        float64 `yaml:"high_threshold" mapstructure:"high_threshold"`

	// Phase 4: output bounds.
	MaxResultsCap int `yaml:"max_results_cap" mapstructure:"max_results_cap"`

	// ProfilePath points at an optional YAML scoring profile.
	ProfilePath string `yaml:"profile_path" mapstructure:"profile_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "channel-scout.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("youtube.rate_limit", 8.0)

	v.SetDefault("discovery.search_page_size", 50)
	v.SetDefault("discovery.max_search_pages", 4)
	v.SetDefault("discovery.max_search_results", 200)
	v.SetDefault("discovery.search_cache_ttl_hours", 24)
	v.SetDefault("discovery.stats_ttl_hours", 12)
	v.SetDefault("discovery.staleness_new_days", 7)
	v.SetDefault("discovery.staleness_established_days", 30)
	v.SetDefault("discovery.subscriber_ceiling", 500_000)
	v.SetDefault("discovery.min_avg_views_per_video", 1000.0)
	v.SetDefault("discovery.min_video_count", 5)
	v.SetDefault("discovery.video_cache_ttl_hours", 72)
	v.SetDefault("discovery.growth_gate_ratio", 1.2)
	v.SetDefault("discovery.min_video_duration_secs", 120)
	v.SetDefault("discovery.min_outlier_views", 10_000)
	v.SetDefault("discovery.standard_multiplier", 2.0)
	v.SetDefault("discovery.strong_multiplier", 5.0)
	v.SetDefault("discovery.moderate_threshold", 30.0)
	v.SetDefault("discovery.high_threshold", 50.0)
	v.SetDefault("discovery.max_results_cap", 50)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Discovery.ProfilePath != "" {
		if err := ApplyProfile(&cfg.Discovery, cfg.Discovery.ProfilePath); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
