package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordMaterialization does nothing.
func (NoopMetrics) RecordMaterialization(_ context.Context, _, _ string, _ time.Duration, _ error) {}

// RecordHit does nothing.
func (NoopMetrics) RecordHit(_ context.Context, _, _ string) {}

// RecordSweep does nothing.
func (NoopMetrics) RecordSweep(_ context.Context, _ int, _ time.Duration) {}

// RecordDestroy does nothing.
func (NoopMetrics) RecordDestroy(_ context.Context, _ int, _ time.Duration) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartMaterializeSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartMaterializeSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartSweepSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSweepSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartDestroySpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartDestroySpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
