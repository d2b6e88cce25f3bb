// Package config loads engine configuration from the environment.
//
// A .env file in the working directory is loaded first (ignored when
// absent), then viper binds REELSYNC_* environment variables over the
// defaults.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all engine configuration.
type Config struct {
	// DataDir holds the SQLite database and daemon logs.
	DataDir string

	// Redis is the cloud mirror connection. An empty Addr disables the
	// cloud entirely (local-only operation).
	Redis RedisConfig

	// TMDB configures the movie-metadata collaborator.
	TMDB TMDBConfig

	// PollInterval is the notifier's backstop reconciliation interval.
	PollInterval time.Duration

	// DebounceInterval batches rapid file events in the notifier.
	DebounceInterval time.Duration

	// DashboardPort is the WebSocket status server port.
	DashboardPort int

	// LogFile, when set, receives daemon logs with rotation.
	LogFile string
}

// RedisConfig holds cloud mirror settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TMDBConfig holds metadata provider settings.
type TMDBConfig struct {
	APIKey  string
	BaseURL string
}

// DBPath returns the SQLite database path under the data dir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "reelsync.db")
}

// Load reads configuration from .env and the environment.
func Load() (*Config, error) {
	// Load .env if present; absence is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("REELSYNC")
	v.AutomaticEnv()

	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("tmdb_api_key", "")
	v.SetDefault("tmdb_base_url", "https://api.themoviedb.org/3")
	v.SetDefault("poll_interval", 2*time.Second)
	v.SetDefault("debounce_interval", 100*time.Millisecond)
	v.SetDefault("dashboard_port", 8377)
	v.SetDefault("log_file", "")

	cfg := &Config{
		DataDir: v.GetString("data_dir"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		TMDB: TMDBConfig{
			APIKey:  v.GetString("tmdb_api_key"),
			BaseURL: v.GetString("tmdb_base_url"),
		},
		PollInterval:     v.GetDuration("poll_interval"),
		DebounceInterval: v.GetDuration("debounce_interval"),
		DashboardPort:    v.GetInt("dashboard_port"),
		LogFile:          v.GetString("log_file"),
	}
	return cfg, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reelsync"
	}
	return filepath.Join(home, ".reelsync")
}
