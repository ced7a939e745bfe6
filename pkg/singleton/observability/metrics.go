package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/randalmurphal/singleton"

// MetricsRecorder records registry metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordMaterialization records a factory run with its duration and error status.
	RecordMaterialization(ctx context.Context, key, lifetime string, duration time.Duration, err error)

	// RecordHit records a lookup served from an already built instance.
	RecordHit(ctx context.Context, key, lifetime string)

	// RecordSweep records a sweep and how many instances it released.
	RecordSweep(ctx context.Context, cleared int, duration time.Duration)

	// RecordDestroy records a teardown and how many entries it removed.
	RecordDestroy(ctx context.Context, removed int, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	materializations metric.Int64Counter
	materializeLat   metric.Float64Histogram
	materializeErrs  metric.Int64Counter
	hits             metric.Int64Counter
	sweeps           metric.Int64Counter
	cleared          metric.Int64Counter
	destroys         metric.Int64Counter
	operationLat     metric.Float64Histogram
}

// newOtelMetrics creates the instruments from the global meter provider.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(instrumentationName)

	materializations, err := meter.Int64Counter("singleton.materializations",
		metric.WithDescription("Number of factory runs that produced an instance"),
	)
	if err != nil {
		return nil, err
	}

	materializeLat, err := meter.Float64Histogram("singleton.materialize.latency_ms",
		metric.WithDescription("Factory run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	materializeErrs, err := meter.Int64Counter("singleton.materialize.errors",
		metric.WithDescription("Number of failed factory runs"),
	)
	if err != nil {
		return nil, err
	}

	hits, err := meter.Int64Counter("singleton.hits",
		metric.WithDescription("Number of lookups served from a cached instance"),
	)
	if err != nil {
		return nil, err
	}

	sweeps, err := meter.Int64Counter("singleton.sweeps",
		metric.WithDescription("Number of sweeps"),
	)
	if err != nil {
		return nil, err
	}

	cleared, err := meter.Int64Counter("singleton.cleared",
		metric.WithDescription("Number of entries released by sweeps and teardowns"),
	)
	if err != nil {
		return nil, err
	}

	destroys, err := meter.Int64Counter("singleton.destroys",
		metric.WithDescription("Number of registry teardowns"),
	)
	if err != nil {
		return nil, err
	}

	operationLat, err := meter.Float64Histogram("singleton.operation.latency_ms",
		metric.WithDescription("Sweep and destroy latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		materializations: materializations,
		materializeLat:   materializeLat,
		materializeErrs:  materializeErrs,
		hits:             hits,
		sweeps:           sweeps,
		cleared:          cleared,
		destroys:         destroys,
		operationLat:     operationLat,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider at the time of the call.
// Configure the provider first:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := newOtelMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordMaterialization records a factory run.
func (m *otelMetrics) RecordMaterialization(ctx context.Context, key, lifetime string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("key", key),
		attribute.String("lifetime", lifetime),
	)

	m.materializeLat.Record(ctx, Milliseconds(duration), attrs)
	if err != nil {
		m.materializeErrs.Add(ctx, 1, attrs)
		return
	}
	m.materializations.Add(ctx, 1, attrs)
}

// RecordHit records a cached lookup.
func (m *otelMetrics) RecordHit(ctx context.Context, key, lifetime string) {
	m.hits.Add(ctx, 1, metric.WithAttributes(
		attribute.String("key", key),
		attribute.String("lifetime", lifetime),
	))
}

// RecordSweep records a sweep.
func (m *otelMetrics) RecordSweep(ctx context.Context, cleared int, duration time.Duration) {
	m.sweeps.Add(ctx, 1)
	op := metric.WithAttributes(attribute.String("operation", "sweep"))
	m.cleared.Add(ctx, int64(cleared), op)
	m.operationLat.Record(ctx, Milliseconds(duration), op)
}

// RecordDestroy records a teardown.
func (m *otelMetrics) RecordDestroy(ctx context.Context, removed int, duration time.Duration) {
	m.destroys.Add(ctx, 1)
	op := metric.WithAttributes(attribute.String("operation", "destroy"))
	m.cleared.Add(ctx, int64(removed), op)
	m.operationLat.Record(ctx, Milliseconds(duration), op)
}
