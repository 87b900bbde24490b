package relaybox

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestNewOptions(t *testing.T) {
	t.Run("returns defaults without options", func(t *testing.T) {
		opts := newOptions()

		if opts.defaultQueryLimit != DefaultQueryLimit {
			t.Errorf("expected defaultQueryLimit %v, got %v", DefaultQueryLimit, opts.defaultQueryLimit)
		}
		if opts.maxQueryLimit != DefaultMaxQueryLimit {
			t.Errorf("expected maxQueryLimit %v, got %v", DefaultMaxQueryLimit, opts.maxQueryLimit)
		}
		if opts.maxConcurrentSends != DefaultMaxConcurrentSends {
			t.Errorf("expected maxConcurrentSends %v, got %v", DefaultMaxConcurrentSends, opts.maxConcurrentSends)
		}
		if opts.shutdownTimeout != DefaultShutdownTimeout {
			t.Errorf("expected shutdownTimeout %v, got %v", DefaultShutdownTimeout, opts.shutdownTimeout)
		}
		if opts.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("default limit clamped to max", func(t *testing.T) {
		opts := newOptions(WithDefaultQueryLimit(500), WithMaxQueryLimit(100))
		if opts.defaultQueryLimit != 100 {
			t.Errorf("expected default clamped to 100, got %v", opts.defaultQueryLimit)
		}
	})
}

func TestWithLogger(t *testing.T) {
	t.Run("sets custom logger", func(t *testing.T) {
		customLogger := slog.Default()
		opts := newOptions(WithLogger(customLogger))
		if opts.logger != customLogger {
			t.Error("expected custom logger to be set")
		}
	})

	t.Run("ignores nil logger", func(t *testing.T) {
		opts := newOptions(WithLogger(nil))
		if opts.logger == nil {
			t.Error("expected default logger when nil passed")
		}
	})
}

func TestWithQueryLimits(t *testing.T) {
	t.Run("sets custom limits", func(t *testing.T) {
		opts := newOptions(WithDefaultQueryLimit(25), WithMaxQueryLimit(200))
		if opts.defaultQueryLimit != 25 {
			t.Errorf("expected defaultQueryLimit 25, got %v", opts.defaultQueryLimit)
		}
		if opts.maxQueryLimit != 200 {
			t.Errorf("expected maxQueryLimit 200, got %v", opts.maxQueryLimit)
		}
	})

	t.Run("ignores non-positive limits", func(t *testing.T) {
		opts := newOptions(WithDefaultQueryLimit(0), WithMaxQueryLimit(-1))
		if opts.defaultQueryLimit != DefaultQueryLimit {
			t.Errorf("expected default %v, got %v", DefaultQueryLimit, opts.defaultQueryLimit)
		}
		if opts.maxQueryLimit != DefaultMaxQueryLimit {
			t.Errorf("expected default %v, got %v", DefaultMaxQueryLimit, opts.maxQueryLimit)
		}
	})
}

func TestWithMaxConcurrentSends(t *testing.T) {
	t.Run("sets custom bound", func(t *testing.T) {
		opts := newOptions(WithMaxConcurrentSends(3))
		if opts.maxConcurrentSends != 3 {
			t.Errorf("expected 3, got %v", opts.maxConcurrentSends)
		}
	})

	t.Run("ignores non-positive bound", func(t *testing.T) {
		opts := newOptions(WithMaxConcurrentSends(0))
		if opts.maxConcurrentSends != DefaultMaxConcurrentSends {
			t.Errorf("expected default %v, got %v", DefaultMaxConcurrentSends, opts.maxConcurrentSends)
		}
	})
}

func TestWithShutdownTimeout(t *testing.T) {
	t.Run("sets custom timeout", func(t *testing.T) {
		opts := newOptions(WithShutdownTimeout(5 * time.Second))
		if opts.shutdownTimeout != 5*time.Second {
			t.Errorf("expected 5s, got %v", opts.shutdownTimeout)
		}
	})

	t.Run("ignores non-positive timeout", func(t *testing.T) {
		opts := newOptions(WithShutdownTimeout(0))
		if opts.shutdownTimeout != DefaultShutdownTimeout {
			t.Errorf("expected default %v, got %v", DefaultShutdownTimeout, opts.shutdownTimeout)
		}
	})
}

func TestWithOTel(t *testing.T) {
	t.Run("enables both tracing and metrics", func(t *testing.T) {
		opts := newOptions(WithOTel(true))
		if !opts.tracingEnabled {
			t.Error("expected tracing to be enabled")
		}
		if !opts.metricsEnabled {
			t.Error("expected metrics to be enabled")
		}
	})

	t.Run("individual toggles", func(t *testing.T) {
		opts := newOptions(WithTracing(true), WithMetrics(false))
		if !opts.tracingEnabled {
			t.Error("expected tracing enabled")
		}
		if opts.metricsEnabled {
			t.Error("expected metrics disabled")
		}
	})
}

func TestSafeEventPublishFailure(t *testing.T) {
	t.Run("calls handler", func(t *testing.T) {
		var gotEvent string
		var gotErr error
		opts := newOptions(WithEventPublishFailureHandler(func(event string, err error) {
			gotEvent = event
			gotErr = err
		}))

		wantErr := errors.New("bus down")
		opts.safeEventPublishFailure("MessageSent", wantErr)

		if gotEvent != "MessageSent" {
			t.Errorf("expected event MessageSent, got %q", gotEvent)
		}
		if !errors.Is(gotErr, wantErr) {
			t.Errorf("expected handler to receive error, got %v", gotErr)
		}
	})

	t.Run("recovers handler panic", func(t *testing.T) {
		opts := newOptions(WithEventPublishFailureHandler(func(string, error) {
			panic("broken handler")
		}))
		// Must not propagate the panic.
		opts.safeEventPublishFailure("MessageSent", errors.New("x"))
	})

	t.Run("nil handler logs only", func(t *testing.T) {
		opts := newOptions()
		opts.safeEventPublishFailure("MessageSent", errors.New("x"))
	})
}
