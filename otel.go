package relaybox

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dmehra/relaybox"

// otelInstrumentation holds OpenTelemetry instrumentation for the service.
type otelInstrumentation struct {
	enabled bool

	tracingEnabled bool
	tracer         trace.Tracer

	metricsEnabled bool

	ingestLatency metric.Float64Histogram
	ingestCount   metric.Int64Counter
	ingestErrors  metric.Int64Counter

	sendLatency metric.Float64Histogram
	sendCount   metric.Int64Counter
	sendErrors  metric.Int64Counter

	searchLatency  metric.Float64Histogram
	searchCount    metric.Int64Counter
	searchFallback metric.Int64Counter
	searchErrors   metric.Int64Counter

	approveCount    metric.Int64Counter
	approveRevealed metric.Int64Counter
}

// newOtelInstrumentation creates instrumentation from options.
func newOtelInstrumentation(opts *options) (*otelInstrumentation, error) {
	o := &otelInstrumentation{
		enabled:        opts.tracingEnabled || opts.metricsEnabled,
		tracingEnabled: opts.tracingEnabled,
		metricsEnabled: opts.metricsEnabled,
	}

	if !o.enabled {
		return o, nil
	}

	if opts.tracingEnabled {
		tp := opts.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		o.tracer = tp.Tracer(instrumentationName)
	}

	if opts.metricsEnabled {
		mp := opts.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := o.initMetrics(mp); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// initMetrics initializes all metric instruments.
func (o *otelInstrumentation) initMetrics(mp metric.MeterProvider) error {
	meter := mp.Meter(instrumentationName)

	var err error

	o.ingestLatency, err = meter.Float64Histogram(
		"relaybox.ingest.duration",
		metric.WithDescription("Duration of inbound ingestion"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.ingestCount, err = meter.Int64Counter(
		"relaybox.ingest.count",
		metric.WithDescription("Number of messages ingested"),
	)
	if err != nil {
		return err
	}

	o.ingestErrors, err = meter.Int64Counter(
		"relaybox.ingest.errors",
		metric.WithDescription("Number of ingestion errors"),
	)
	if err != nil {
		return err
	}

	o.sendLatency, err = meter.Float64Histogram(
		"relaybox.send.duration",
		metric.WithDescription("Duration of draft sends"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.sendCount, err = meter.Int64Counter(
		"relaybox.send.count",
		metric.WithDescription("Number of drafts sent"),
	)
	if err != nil {
		return err
	}

	o.sendErrors, err = meter.Int64Counter(
		"relaybox.send.errors",
		metric.WithDescription("Number of send errors"),
	)
	if err != nil {
		return err
	}

	o.searchLatency, err = meter.Float64Histogram(
		"relaybox.search.duration",
		metric.WithDescription("Duration of search operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	o.searchCount, err = meter.Int64Counter(
		"relaybox.search.count",
		metric.WithDescription("Number of search operations"),
	)
	if err != nil {
		return err
	}

	o.searchFallback, err = meter.Int64Counter(
		"relaybox.search.fallback",
		metric.WithDescription("Number of searches degraded to substring matching"),
	)
	if err != nil {
		return err
	}

	o.searchErrors, err = meter.Int64Counter(
		"relaybox.search.errors",
		metric.WithDescription("Number of search errors"),
	)
	if err != nil {
		return err
	}

	o.approveCount, err = meter.Int64Counter(
		"relaybox.approve.count",
		metric.WithDescription("Number of sender approvals"),
	)
	if err != nil {
		return err
	}

	o.approveRevealed, err = meter.Int64Counter(
		"relaybox.approve.revealed",
		metric.WithDescription("Messages revealed by retroactive approval"),
	)
	if err != nil {
		return err
	}

	return nil
}

// startSpan starts a span if tracing is enabled.
// The returned func records the error and ends the span.
func (o *otelInstrumentation) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	if !o.tracingEnabled || o.tracer == nil {
		return ctx, func(error) {}
	}
	ctx, span := o.tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// recordIngest records ingestion metrics.
func (o *otelInstrumentation) recordIngest(ctx context.Context, duration time.Duration, approved bool, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("approved", approved))

	o.ingestLatency.Record(ctx, duration.Seconds(), attrs)
	o.ingestCount.Add(ctx, 1, attrs)
	if err != nil {
		o.ingestErrors.Add(ctx, 1, attrs)
	}
}

// recordSend records send metrics.
func (o *otelInstrumentation) recordSend(ctx context.Context, duration time.Duration, recipientCount int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(attribute.Int("recipient_count", recipientCount))

	o.sendLatency.Record(ctx, duration.Seconds(), attrs)
	o.sendCount.Add(ctx, 1, attrs)
	if err != nil {
		o.sendErrors.Add(ctx, 1, attrs)
	}
}

// recordSearch records search metrics.
func (o *otelInstrumentation) recordSearch(ctx context.Context, duration time.Duration, degraded bool, resultCount int, err error) {
	if !o.metricsEnabled {
		return
	}

	attrs := metric.WithAttributes(attribute.Int("result_count", resultCount))

	o.searchLatency.Record(ctx, duration.Seconds(), attrs)
	o.searchCount.Add(ctx, 1, attrs)
	if degraded {
		o.searchFallback.Add(ctx, 1, attrs)
	}
	if err != nil {
		o.searchErrors.Add(ctx, 1, attrs)
	}
}

// recordApprove records approval metrics.
func (o *otelInstrumentation) recordApprove(ctx context.Context, revealed int64, err error) {
	if !o.metricsEnabled {
		return
	}

	o.approveCount.Add(ctx, 1)
	if err == nil && revealed > 0 {
		o.approveRevealed.Add(ctx, revealed)
	}
}
