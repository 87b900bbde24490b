// Package config loads relaybox service configuration from the
// environment and builds the corresponding logger.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

// Config is the application configuration for a relaybox deployment.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Email provider
	ResendAPIKey  string `env:"RESEND_API_KEY,required"`
	ResendBaseURL string `env:"RESEND_BASE_URL"` // empty uses the public endpoint
	FromAddress   string `env:"FROM_ADDRESS,required"`

	// Blob storage (S3-compatible; optional)
	BlobBucket    string `env:"BLOB_BUCKET"`
	BlobRegion    string `env:"BLOB_REGION" envDefault:"auto"`
	BlobEndpoint  string `env:"BLOB_ENDPOINT"` // e.g. an R2 account endpoint
	BlobAccessKey string `env:"BLOB_ACCESS_KEY"`
	BlobSecretKey string `env:"BLOB_SECRET_KEY"`

	// Events (optional)
	RedisURL string `env:"REDIS_URL"`

	// Service tuning
	MaxConcurrentSends int           `env:"MAX_CONCURRENT_SENDS" envDefault:"10"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"
}

// BlobEnabled reports whether blob storage is configured.
func (c *Config) BlobEnabled() bool {
	return c.BlobBucket != ""
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.BlobEnabled() && (cfg.BlobAccessKey == "") != (cfg.BlobSecretKey == "") {
		return nil, fmt.Errorf("BLOB_ACCESS_KEY and BLOB_SECRET_KEY must be set together")
	}

	return cfg, nil
}

// Logger builds a slog.Logger per the configured level and format:
// JSON for machines, tinted console output for humans.
func (c *Config) Logger() *slog.Logger {
	level := parseLevel(c.LogLevel)

	var handler slog.Handler
	if c.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.DateTime,
		})
	}

	return slog.New(handler)
}

// parseLevel maps a level name to a slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
