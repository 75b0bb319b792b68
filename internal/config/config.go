// Package config loads service configuration from a YAML file and EP_*
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"esports-predictor/internal/domain"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

type Config struct {
	App       AppConfig            `mapstructure:"app"`
	Log       LogConfig            `mapstructure:"log"`
	Server    ServerConfig         `mapstructure:"server"`
	Storage   StorageConfig        `mapstructure:"storage"`
	Features  domain.FeatureConfig `mapstructure:"features"`
	Training  TrainingConfig       `mapstructure:"training"`
	Optimizer OptimizerConfig      `mapstructure:"optimizer"`
	Refresh   RefreshConfig        `mapstructure:"refresh"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig selects the backend. File paths are used by the file
// backend; the DSNs by postgres. ClickHouse and Redis are optional add-ons
// for any backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`

	DataDir         string `mapstructure:"data_dir"`
	ModelsDir       string `mapstructure:"models_dir"`
	MatchHistory    string `mapstructure:"match_history"`
	UpcomingMatches string `mapstructure:"upcoming_matches"`
	Predictions     string `mapstructure:"predictions"`
	History         string `mapstructure:"prediction_history"`
	RefreshRuns     string `mapstructure:"refresh_runs"`

	PostgresDSN   string        `mapstructure:"postgres_dsn"`
	ClickHouseDSN string        `mapstructure:"clickhouse_dsn"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
}

type TrainingConfig struct {
	TestSize    float64 `mapstructure:"test_size"`
	RandomState int64   `mapstructure:"random_state"`
	MinSamples  int     `mapstructure:"min_samples"`
}

type OptimizerConfig struct {
	NCalls         int     `mapstructure:"n_calls"`
	NInitialPoints int     `mapstructure:"n_initial_points"`
	Candidates     int     `mapstructure:"candidates"`
	Xi             float64 `mapstructure:"xi"`
}

type RefreshConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Schedule     string        `mapstructure:"schedule"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	HistoryDays  int           `mapstructure:"history_days"`
	UpcomingDays int           `mapstructure:"upcoming_days"`
	RecentWindow int           `mapstructure:"recent_window"`
	RunOnStart   bool          `mapstructure:"run_on_start"`
}

// Load reads path (unless envOnly) and overlays EP_* variables, e.g.
// EP_STORAGE_POSTGRES_DSN.
func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.models_dir", "models")
	v.SetDefault("storage.match_history", "data/match_history.json")
	v.SetDefault("storage.upcoming_matches", "data/upcoming_matches.json")
	v.SetDefault("storage.predictions", "data/upcoming_match_predictions.json")
	v.SetDefault("storage.prediction_history", "data/prediction_history.json")
	v.SetDefault("storage.refresh_runs", "data/refresh_runs.json")
	v.SetDefault("storage.postgres_dsn", "")
	v.SetDefault("storage.clickhouse_dsn", "")
	v.SetDefault("storage.redis_addr", "")
	v.SetDefault("storage.cache_ttl", "5m")

	def := domain.DefaultFeatureConfig()
	v.SetDefault("features.use_basic_features", def.UseBasic)
	v.SetDefault("features.use_team_features", def.UseTeam)
	v.SetDefault("features.use_h2h_features", def.UseH2H)
	v.SetDefault("features.use_recent_form", def.UseRecentForm)
	v.SetDefault("features.use_advanced_features", def.UseAdvanced)
	v.SetDefault("features.use_temporal_features", def.UseTemporal)
	v.SetDefault("features.recent_matches_window", def.RecentMatchesWindow)

	v.SetDefault("training.test_size", 0.2)
	v.SetDefault("training.random_state", 42)
	v.SetDefault("training.min_samples", 10)

	v.SetDefault("optimizer.n_calls", 20)
	v.SetDefault("optimizer.n_initial_points", 10)
	v.SetDefault("optimizer.candidates", 500)
	v.SetDefault("optimizer.xi", 0.01)

	v.SetDefault("refresh.enabled", true)
	v.SetDefault("refresh.schedule", "0 0 */6 * * *")
	v.SetDefault("refresh.fetch_timeout", "2m")
	v.SetDefault("refresh.history_days", 90)
	v.SetDefault("refresh.upcoming_days", 30)
	v.SetDefault("refresh.recent_window", 10)
	v.SetDefault("refresh.run_on_start", false)
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	if c.Training.TestSize <= 0 || c.Training.TestSize >= 1 {
		return fmt.Errorf("training.test_size must be in (0, 1), got %v", c.Training.TestSize)
	}
	if c.Optimizer.NCalls < 1 || c.Optimizer.NInitialPoints < 1 {
		return fmt.Errorf("optimizer.n_calls and optimizer.n_initial_points must be positive")
	}
	if c.Features.RecentMatchesWindow < 1 {
		return fmt.Errorf("features.recent_matches_window must be positive")
	}
	return nil
}
