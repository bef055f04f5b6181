package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogLevel    slog.Level

	// StorageBackend selects where snapshots go: memory, redis or sqlite.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	RedisURL       string `env:"REDIS_URL" envDefault:"localhost:6379"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"./data/snapshots.db"`
	SessionID      string `env:"SESSION_ID"`

	ScenarioPath string        `env:"SCENARIO_PATH" envDefault:"./data/scenarios/botica.yaml"`
	SaveDebounce time.Duration `env:"SAVE_DEBOUNCE" envDefault:"2s"`

	LogDedupInterval time.Duration `env:"LOG_DEDUP_INTERVAL" envDefault:"30s"`
	RNGSeed          uint64        `env:"RNG_SEED" envDefault:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)

	switch strings.ToLower(cfg.StorageBackend) {
	case BackendMemory, BackendRedis, BackendSQLite:
		cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q (supported: memory, redis, sqlite)", cfg.StorageBackend)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
