package relaybox

import (
	"log/slog"
	"time"

	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra/relaybox/blob"
	"github.com/dmehra/relaybox/sender"
	"github.com/dmehra/relaybox/store"
)

// Default configuration values.
const (
	// DefaultQueryLimit is the page size applied when a list or search
	// request does not specify one.
	DefaultQueryLimit = 50
	// DefaultMaxQueryLimit caps the page size of any single query.
	DefaultMaxQueryLimit = 1000
	// DefaultMaxConcurrentSends bounds provider calls in flight.
	DefaultMaxConcurrentSends = 10
	// DefaultShutdownTimeout bounds how long Close waits for in-flight
	// sends to finish.
	DefaultShutdownTimeout = 30 * time.Second
)

// EventPublishFailureFunc is called when an event fails to publish and
// event errors are not fatal. Handlers must not panic; panics are
// recovered and logged.
type EventPublishFailureFunc func(event string, err error)

// options holds service configuration.
type options struct {
	store  store.Store
	blobs  blob.Store
	sender sender.Sender
	logger *slog.Logger

	// fromAddress is the address outbound mail is sent from.
	fromAddress string

	defaultQueryLimit  int
	maxQueryLimit      int
	maxConcurrentSends int
	shutdownTimeout    time.Duration

	serviceName    string
	tracingEnabled bool
	metricsEnabled bool
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	eventTransport        transport.Transport
	redisClient           redis.UniversalClient
	eventErrorsFatal      bool
	onEventPublishFailure EventPublishFailureFunc
}

// Option configures the service.
type Option func(*options)

// newOptions builds options with defaults applied and invalid values
// corrected.
func newOptions(opts ...Option) *options {
	o := &options{
		logger:             slog.Default(),
		defaultQueryLimit:  DefaultQueryLimit,
		maxQueryLimit:      DefaultMaxQueryLimit,
		maxConcurrentSends: DefaultMaxConcurrentSends,
		shutdownTimeout:    DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}

	// The default page size can never exceed the hard cap.
	if o.defaultQueryLimit > o.maxQueryLimit {
		o.defaultQueryLimit = o.maxQueryLimit
	}

	return o
}

// safeEventPublishFailure invokes the failure handler, recovering panics
// so a broken handler cannot take down the calling operation.
func (o *options) safeEventPublishFailure(event string, err error) {
	if o.onEventPublishFailure == nil {
		o.logger.Error("event publish failed", "event", event, "error", err)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("event publish failure handler panicked",
				"event", event, "panic", r)
		}
	}()
	o.onEventPublishFailure(event, err)
}

// WithStore sets the message store (required).
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithBlobStore sets the blob store for attachment content.
// Optional; LoadAttachment fails without it.
func WithBlobStore(b blob.Store) Option {
	return func(o *options) {
		o.blobs = b
	}
}

// WithSender sets the outbound email provider client (required).
func WithSender(s sender.Sender) Option {
	return func(o *options) {
		o.sender = s
	}
}

// WithFromAddress sets the address outbound mail is sent from.
func WithFromAddress(addr string) Option {
	return func(o *options) {
		o.fromAddress = addr
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithServiceName sets the service name used in event bus naming and
// OTel instrumentation.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

// WithTracing enables OpenTelemetry tracing.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables OpenTelemetry metrics.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithOTel enables both tracing and metrics.
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
		o.metricsEnabled = enabled
	}
}

// WithTracerProvider sets a custom tracer provider.
// Defaults to the global provider when tracing is enabled.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// Defaults to the global provider when metrics are enabled.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithDefaultQueryLimit sets the page size applied when a query does not
// specify one.
func WithDefaultQueryLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.defaultQueryLimit = limit
		}
	}
}

// WithMaxQueryLimit caps the page size of any single query.
func WithMaxQueryLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.maxQueryLimit = limit
		}
	}
}

// WithMaxConcurrentSends bounds the number of provider send calls in
// flight at once.
func WithMaxConcurrentSends(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentSends = n
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for in-flight sends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithEventTransport sets a custom event bus transport.
// Takes precedence over WithRedisClient.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		o.eventTransport = t
	}
}

// WithRedisClient enables the Redis event transport using the given client.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithEventErrorsFatal makes event publish failures surface as
// EventPublishError from the operation that triggered them. By default
// failures are reported through the failure handler and the operation
// still succeeds.
func WithEventErrorsFatal(fatal bool) Option {
	return func(o *options) {
		o.eventErrorsFatal = fatal
	}
}

// WithEventPublishFailureHandler sets the handler called on non-fatal
// event publish failures.
func WithEventPublishFailureHandler(fn EventPublishFailureFunc) Option {
	return func(o *options) {
		o.onEventPublishFailure = fn
	}
}
