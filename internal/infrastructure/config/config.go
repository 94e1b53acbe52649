package config

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info" validate:"oneof=trace debug info warn error"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Cache  CacheConfig
	Feed   FeedConfig
	Ingest IngestConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017" validate:"required"`
	Database string `env:"MONGO_DB,  default=transfer_system" validate:"required"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type CacheConfig struct {
	Backend string `env:"CACHE_BACKEND, default=disk" validate:"oneof=disk redis"`
	Dir     string `env:"CACHE_DIR,     default=./cache"`
	Bypass  bool   `env:"CACHE_BYPASS,  default=false"`
}

// FeedConfig configures the external changeset service. URL is a template
// with two %s verbs for the from/to window timestamps.
type FeedConfig struct {
	URL     string        `env:"FEED_URL"`
	APIKey  string        `env:"FEED_API_KEY"`
	Timeout time.Duration `env:"FEED_TIMEOUT, default=2m"`
}

type IngestConfig struct {
	// Start is the ISO-8601 UTC instant the resync window opens at. The
	// week anchor is the Saturday on/before it.
	Start   string        `env:"INGEST_START, default=2013-05-17T00:00:00Z"`
	LockTTL time.Duration `env:"INGEST_LOCK_TTL, default=6h"`
}

// Load reads configuration from environment variables and checks the
// structural constraints. Both failures are unrecoverable at bootstrap.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// ValidateIngest enforces the extra fields only the ingest command needs.
func (c *Config) ValidateIngest() error {
	v := validator.New()
	if err := v.Var(c.Feed.URL, "required,contains=%s"); err != nil {
		return fmt.Errorf("config: FEED_URL must be a template containing %%s window verbs")
	}
	if err := v.Var(c.Feed.APIKey, "required"); err != nil {
		return fmt.Errorf("config: FEED_API_KEY is required")
	}
	if _, err := time.Parse(time.RFC3339, c.Ingest.Start); err != nil {
		return fmt.Errorf("config: INGEST_START: %w", err)
	}
	return nil
}

// StartInstant parses the configured ingestion start. ValidateIngest must
// have passed first.
func (c *Config) StartInstant() time.Time {
	t, _ := time.Parse(time.RFC3339, c.Ingest.Start)
	return t.UTC()
}
