package postgres

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout      = 10 * time.Second
	DefaultSearchConfig = "english"
)

// options holds PostgreSQL store configuration.
type options struct {
	timeout      time.Duration
	searchConfig string
	logger       *slog.Logger
}

func newOptions(opts ...Option) *options {
	o := &options{
		timeout:      DefaultTimeout,
		searchConfig: DefaultSearchConfig,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a PostgreSQL store.
type Option func(*options)

// WithTimeout sets the operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// searchConfigs is the set of text search configurations PostgreSQL
// ships with. The config name ends up inside the schema DDL, so only
// known values are accepted.
var searchConfigs = map[string]bool{
	"simple": true, "arabic": true, "armenian": true, "basque": true,
	"catalan": true, "danish": true, "dutch": true, "english": true,
	"finnish": true, "french": true, "german": true, "greek": true,
	"hindi": true, "hungarian": true, "indonesian": true, "irish": true,
	"italian": true, "lithuanian": true, "nepali": true, "norwegian": true,
	"portuguese": true, "romanian": true, "russian": true, "serbian": true,
	"spanish": true, "swedish": true, "tamil": true, "turkish": true,
	"yiddish": true,
}

// WithSearchConfig sets the text search configuration used for the
// full-text index (e.g. "english", "simple"). Values outside the
// built-in PostgreSQL configurations are ignored and the default kept.
// Changing it after the schema exists requires rebuilding the messages
// table.
func WithSearchConfig(cfg string) Option {
	return func(o *options) {
		if searchConfigs[cfg] {
			o.searchConfig = cfg
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
