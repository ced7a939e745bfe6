package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartMaterializeSpan starts a span around a factory run.
	StartMaterializeSpan(ctx context.Context, key, lifetime string) (context.Context, trace.Span)

	// StartSweepSpan starts a span for a sweep of the given registry.
	StartSweepSpan(ctx context.Context, registryID string) (context.Context, trace.Span)

	// StartDestroySpan starts a span for a teardown of the given registry.
	StartDestroySpan(ctx context.Context, registryID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// Spans are started from the global OTel tracer provider, looked up on every
// call, so a provider installed later is still honored:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartMaterializeSpan starts a span around a factory run.
func (m otelSpanManager) StartMaterializeSpan(ctx context.Context, key, lifetime string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "singleton.materialize",
		trace.WithAttributes(
			attribute.String("singleton.key", key),
			attribute.String("singleton.lifetime", lifetime),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartSweepSpan starts a span for a sweep.
func (m otelSpanManager) StartSweepSpan(ctx context.Context, registryID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "singleton.sweep",
		trace.WithAttributes(
			attribute.String("registry.id", registryID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartDestroySpan starts a span for a teardown.
func (m otelSpanManager) StartDestroySpan(ctx context.Context, registryID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "singleton.destroy",
		trace.WithAttributes(
			attribute.String("registry.id", registryID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
