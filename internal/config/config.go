package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the service configuration, loaded from the environment with
// an optional .env file for local development.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"15m"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`

	// Engine policies
	MaxIterations      int     `env:"MAX_ITERATIONS" envDefault:"500000"`
	SyncIterationLimit int     `env:"SYNC_ITERATION_LIMIT" envDefault:"20000"`
	TrendEpsilon       float64 `env:"TREND_EPSILON" envDefault:"0.005"`
	MinVariance        float64 `env:"MIN_VARIANCE" envDefault:"0.0004"`
	DecayTauShortDays  float64 `env:"DECAY_TAU_SHORT_DAYS" envDefault:"7"`
	DecayTauMediumDays float64 `env:"DECAY_TAU_MEDIUM_DAYS" envDefault:"30"`
	DecayTauLongDays   float64 `env:"DECAY_TAU_LONG_DAYS" envDefault:"120"`
	SamplerWorkers     int     `env:"SAMPLER_WORKERS" envDefault:"0"`
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	return &cfg, nil
}
