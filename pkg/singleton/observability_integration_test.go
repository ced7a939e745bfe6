package singleton

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/randalmurphal/singleton/pkg/singleton/event"
)

func TestLogging(t *testing.T) {
	ctx := context.Background()
	handler := newTestLogHandler()
	r := New(WithLogger(slog.New(handler)))

	MustGet(ctx, r, ShortLivedKey[int]("n"), func() int { return 1 })
	_, _ = Get(ctx, r, LongLivedKey[int]("bad"), func() (int, error) { return 0, errors.New("boom") })
	r.Sweep(ctx)
	r.Destroy(ctx)

	created := handler.find("singleton entry created")
	require.NotNil(t, created)
	assert.Equal(t, "n", created["key"])
	assert.Equal(t, r.ID(), created["registry_id"])

	built := handler.find("singleton materialized")
	require.NotNil(t, built)
	assert.Equal(t, "short_lived", built["lifetime"])

	failed := handler.find("singleton factory failed")
	require.NotNil(t, failed)
	assert.Equal(t, "ERROR", failed["level"])
	assert.Contains(t, failed["error"], "boom")

	swept := handler.find("singleton sweep completed")
	require.NotNil(t, swept)
	assert.EqualValues(t, 1, swept["cleared"])
	assert.EqualValues(t, 1, swept["retained"])

	destroyed := handler.find("singleton registry destroyed")
	require.NotNil(t, destroyed)
	assert.EqualValues(t, 2, destroyed["removed"])
}

func TestLogging_DisposeError(t *testing.T) {
	ctx := context.Background()
	handler := newTestLogHandler()
	r := New(WithLogger(slog.New(handler)))

	MustGet(ctx, r, ShortLivedKey[*resource]("r"), func() *resource {
		return &resource{err: errors.New("close failed")}
	})
	r.Sweep(ctx)

	rec := handler.find("singleton dispose failed")
	require.NotNil(t, rec)
	assert.Equal(t, "r", rec["key"])
}

func TestNoLoggerIsSilent(t *testing.T) {
	ctx := context.Background()
	r := New()

	assert.NotPanics(t, func() {
		MustGet(ctx, r, ShortLivedKey[int]("n"), func() int { return 1 })
		r.Sweep(ctx)
		r.Destroy(ctx)
	})
}

func setupMetrics(t *testing.T) *sdkmetric.ManualReader {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		otel.SetMeterProvider(original)
		_ = provider.Shutdown(context.Background())
	})
	return reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is not an int64 sum", name)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestMetrics(t *testing.T) {
	reader := setupMetrics(t)
	ctx := context.Background()
	r := New(WithMetrics(true))

	key := ShortLivedKey[int]("n")
	for range 3 {
		MustGet(ctx, r, key, func() int { return 1 })
	}
	_, _ = Get(ctx, r, LongLivedKey[int]("bad"), func() (int, error) { return 0, errors.New("boom") })
	r.Sweep(ctx)
	MustGet(ctx, r, key, func() int { return 1 })
	r.Destroy(ctx)

	assert.Equal(t, int64(2), counterTotal(t, reader, "singleton.materializations"))
	assert.Equal(t, int64(2), counterTotal(t, reader, "singleton.hits"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "singleton.materialize.errors"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "singleton.sweeps"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "singleton.destroys"))
	// One released by the sweep, two entries removed by the teardown.
	assert.Equal(t, int64(3), counterTotal(t, reader, "singleton.cleared"))
}

func TestMetricsDisabledByDefault(t *testing.T) {
	reader := setupMetrics(t)
	ctx := context.Background()
	r := New()

	MustGet(ctx, r, ShortLivedKey[int]("n"), func() int { return 1 })
	r.Sweep(ctx)

	assert.Equal(t, int64(0), counterTotal(t, reader, "singleton.materializations"))
}

func setupTracing(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func spansNamed(exporter *tracetest.InMemoryExporter, name string) []tracetest.SpanStub {
	var out []tracetest.SpanStub
	for _, s := range exporter.GetSpans() {
		if s.Name == name {
			out = append(out, s)
		}
	}
	return out
}

func TestTracing(t *testing.T) {
	exporter := setupTracing(t)
	ctx := context.Background()
	r := New(WithTracing(true))

	MustGet(ctx, r, ShortLivedKey[int]("n"), func() int { return 1 })
	MustGet(ctx, r, ShortLivedKey[int]("n"), func() int { return 1 })
	_, _ = Get(ctx, r, LongLivedKey[int]("bad"), func() (int, error) { return 0, errors.New("boom") })
	r.Sweep(ctx)
	r.Destroy(ctx)

	materialize := spansNamed(exporter, "singleton.materialize")
	require.Len(t, materialize, 2, "cached lookups do not start spans")
	assert.Equal(t, codes.Ok, materialize[0].Status.Code)
	assert.Equal(t, codes.Error, materialize[1].Status.Code)

	sweeps := spansNamed(exporter, "singleton.sweep")
	require.Len(t, sweeps, 1)
	require.Len(t, sweeps[0].Events, 1)
	assert.Equal(t, "singleton.swept", sweeps[0].Events[0].Name)

	require.Len(t, spansNamed(exporter, "singleton.destroy"), 1)
}

func TestTracingDisabledByDefault(t *testing.T) {
	exporter := setupTracing(t)
	ctx := context.Background()
	r := New()

	MustGet(ctx, r, ShortLivedKey[int]("n"), func() int { return 1 })
	r.Sweep(ctx)

	assert.Empty(t, exporter.GetSpans())
}

// recorder collects events delivered by a bus.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (rec *recorder) Handle(_ context.Context, evt event.Event) error {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.events = append(rec.events, evt)
	return nil
}

func (rec *recorder) types() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]string, len(rec.events))
	for i, e := range rec.events {
		out[i] = e.Type
	}
	return out
}

func TestEvents(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus(event.BusConfig{BufferSize: 64, NonBlocking: true})
	defer bus.Close()

	rec := &recorder{}
	sub := bus.SubscribeAll(rec)
	defer sub.Unsubscribe()

	r := New(WithEventBus(bus))
	MustGet(ctx, r, ShortLivedKey[int]("short"), func() int { return 1 })
	MustGet(ctx, r, LongLivedKey[int]("long"), func() int { return 2 })
	_, _ = Get(ctx, r, ShortLivedKey[int]("bad"), func() (int, error) { return 0, errors.New("boom") })
	r.Sweep(ctx)
	r.Destroy(ctx)

	want := []string{
		event.TypeMaterialized,
		event.TypeMaterialized,
		event.TypeMaterializeFailed,
		event.TypeCleared,
		event.TypeSwept,
		event.TypeDestroyed,
	}
	require.Eventually(t, func() bool { return len(rec.types()) == len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, rec.types())

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, evt := range rec.events {
		assert.Equal(t, r.ID(), evt.RegistryID)
	}
	assert.Equal(t, "short", rec.events[0].Key)
	assert.Equal(t, "short_lived", rec.events[0].Lifetime)
	assert.Equal(t, "boom", errorSuffix(rec.events[2].Error))
	assert.Equal(t, "short", rec.events[3].Key)
	assert.Equal(t, 1, rec.events[4].Count)
	assert.Equal(t, "long", rec.events[5].Key)
}

func errorSuffix(msg string) string {
	const prefix = "singleton bad: factory failed: "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}

func TestEvents_ClosedBusDoesNotFailOperations(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus(event.BusConfig{NonBlocking: true})
	require.NoError(t, bus.Close())

	handler := newTestLogHandler()
	r := New(WithEventBus(bus), WithLogger(slog.New(handler)))

	v, err := Get(ctx, r, ShortLivedKey[int]("n"), func() (int, error) { return 5, nil })
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.NotNil(t, handler.find("singleton event not published"))
}
