package singleton

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"k8s.io/utils/clock"

	sgerrors "github.com/randalmurphal/singleton/pkg/singleton/errors"
	"github.com/randalmurphal/singleton/pkg/singleton/event"
	"github.com/randalmurphal/singleton/pkg/singleton/observability"
	"github.com/randalmurphal/singleton/pkg/singleton/store"
)

// Disposable is implemented by instances that hold resources to release
// when the registry lets go of them.
type Disposable interface {
	Dispose() error
}

// Registry lazily builds and caches at most one instance per key.
//
// A Registry is safe for concurrent use. The zero value is not usable;
// create one with New or use the process-wide Default.
type Registry struct {
	id      string
	entries *store.Map[string, *entry]
	cfg     registryConfig
	logger  *slog.Logger

	// isDefault marks the registry built by Default.
	isDefault bool
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	cfg := defaultRegistryConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.NewString()
	return &Registry{
		id:      id,
		entries: store.New[string, *entry](),
		cfg:     cfg,
		logger:  observability.EnrichLogger(cfg.logger, id),
	}
}

// defaultEntry holds the process-wide registry. It is a long-lived entry of
// the same kind the registry manages; Destroy on the default registry clears
// it and the next Default call builds a new one.
var defaultEntry = newEntry(
	"singleton.Registry",
	reflect.TypeFor[*Registry](),
	LongLived,
	func() (any, error) {
		r := New()
		r.isDefault = true
		return r, nil
	},
	clock.RealClock{},
)

// Default returns the process-wide registry, creating it on first use.
//
// Libraries should accept a *Registry instead of reaching for Default, so
// tests can hand them a fresh one.
func Default() *Registry {
	v, _, _ := defaultEntry.materialize()
	return v.(*Registry)
}

// ID returns the registry's unique identifier.
func (r *Registry) ID() string {
	return r.id
}

// Get returns the instance for key, building it with factory if the
// registry holds none.
//
// Concurrent callers for the same key share one factory run. The factory
// given by the caller that creates the entry is the one kept for it; later
// factories for the same key are not called. A factory error is returned
// as a *FactoryError and a panic as a *PanicError; in both cases nothing is
// cached and the next Get runs the factory again.
//
// A factory may Get other keys, but asking for its own key deadlocks.
func Get[T any](ctx context.Context, r *Registry, key Key[T], factory func() (T, error)) (T, error) {
	var zero T
	switch {
	case r == nil:
		return zero, ErrNilRegistry
	case key.name == "":
		return zero, ErrEmptyKey
	case factory == nil:
		return zero, ErrNilFactory
	}

	typ := reflect.TypeFor[T]()
	for {
		e, created := r.entries.LoadOrCreate(key.name, func() *entry {
			return newEntry(key.name, typ, key.lifetime, func() (any, error) {
				return factory()
			}, r.cfg.clock)
		})
		if created {
			observability.LogEntryCreated(r.logger, key.name, key.lifetime.String())
		}
		if e.typ != typ || e.lifetime != key.lifetime {
			return zero, &KeyConflictError{
				Name: key.name,
				Want: fmt.Sprintf("%s/%s", typ, key.lifetime),
				Have: fmt.Sprintf("%s/%s", e.typ, e.lifetime),
			}
		}

		v, err := r.materialize(ctx, e)
		if errors.Is(err, errRetired) {
			continue
		}
		if err != nil {
			return zero, err
		}
		// v is nil only when T is an interface and the factory returned nil.
		t, _ := v.(T)
		return t, nil
	}
}

// MustGet is Get for factories that cannot fail. It panics on a key
// conflict, an invalid key or a factory panic.
func MustGet[T any](ctx context.Context, r *Registry, key Key[T], factory func() T) T {
	if factory == nil {
		panic(ErrNilFactory)
	}
	v, err := Get(ctx, r, key, func() (T, error) {
		return factory(), nil
	})
	if err != nil {
		panic(err)
	}
	return v
}

// GetWithRetry is Get with retries for factories that fail transiently.
// Errors categorized as transient by the errors package are retried with
// backoff; others are returned at once. Because failed factory runs leave
// the entry unbuilt, every attempt starts clean.
//
// Example:
//
//	pool, err := singleton.GetWithRetry(ctx, reg, poolKey, sgerrors.DefaultRetry,
//	    func() (*Pool, error) {
//	        p, err := dial()
//	        if err != nil {
//	            return nil, sgerrors.Transient(err, "dial pool")
//	        }
//	        return p, nil
//	    })
func GetWithRetry[T any](ctx context.Context, r *Registry, key Key[T], cfg sgerrors.RetryConfig, factory func() (T, error)) (T, error) {
	retryable := cfg.RetryableFunc
	if retryable == nil {
		retryable = sgerrors.IsRetryable
	}
	// Only factory failures are worth another attempt.
	cfg.RetryableFunc = func(err error) bool {
		var fe *FactoryError
		return errors.As(err, &fe) && retryable(fe.Err)
	}
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		observability.LogRetry(r.logger, key.name, attempt, err, backoff)
		if onRetry != nil {
			onRetry(attempt, err, backoff)
		}
	}

	result := sgerrors.WithRetryContext(ctx, cfg, func(ctx context.Context) (T, error) {
		return Get(ctx, r, key, factory)
	})
	if result.Err == nil {
		return result.Value, nil
	}
	// Return the last Get error, or the context error, so callers match on
	// the same errors Get returns.
	var ce *sgerrors.CategorizedError
	if errors.As(result.Err, &ce) && ce.Err != nil {
		return result.Value, ce.Err
	}
	return result.Value, result.Err
}

// materialize wraps entry.materialize with logging, metrics, tracing and events.
func (r *Registry) materialize(ctx context.Context, e *entry) (any, error) {
	lifetime := e.lifetime.String()
	if v, ok := e.load(); ok {
		r.cfg.metrics.RecordHit(ctx, e.name, lifetime)
		return v, nil
	}

	spanCtx, span := r.cfg.spans.StartMaterializeSpan(ctx, e.name, lifetime)
	done := observability.TimedOperation()

	v, built, err := e.materialize()
	duration := done()

	switch {
	case errors.Is(err, errRetired):
		r.cfg.spans.AddSpanEvent(spanCtx, "singleton.retired")
		r.cfg.spans.EndSpanWithError(span, nil)
		return nil, err

	case err != nil:
		var pe *PanicError
		if !errors.As(err, &pe) {
			err = &FactoryError{Key: e.name, Err: err}
		}
		r.cfg.spans.EndSpanWithError(span, err)
		r.cfg.metrics.RecordMaterialization(spanCtx, e.name, lifetime, duration, err)
		observability.LogMaterializeError(r.logger, e.name, err, observability.Milliseconds(duration))
		r.publish(ctx, event.TypeMaterializeFailed, event.WithKey(e.name, lifetime), event.WithError(err))
		return nil, err

	case !built:
		// Another caller built it while this one waited.
		r.cfg.spans.AddSpanEvent(spanCtx, "singleton.shared",
			attribute.Float64("wait_ms", observability.Milliseconds(duration)))
		r.cfg.spans.EndSpanWithError(span, nil)
		r.cfg.metrics.RecordHit(spanCtx, e.name, lifetime)
		return v, nil
	}

	r.cfg.spans.EndSpanWithError(span, nil)
	r.cfg.metrics.RecordMaterialization(spanCtx, e.name, lifetime, duration, nil)
	observability.LogMaterialized(r.logger, e.name, lifetime, observability.Milliseconds(duration), e.builds.Load())
	r.publish(ctx, event.TypeMaterialized, event.WithKey(e.name, lifetime))
	return v, nil
}

// SweepResult reports what a sweep released.
type SweepResult struct {
	// Cleared lists the keys whose instances were released, sorted.
	Cleared []string
	// Retained counts long-lived entries left untouched.
	Retained int
	// DisposeErrors holds a *DisposeError per failed Dispose call.
	DisposeErrors []error
	// Duration is how long the sweep took.
	Duration time.Duration
}

// Sweep releases every short-lived instance. The entries stay registered,
// so the next Get for such a key builds a new instance with the entry's
// factory. Long-lived instances are untouched. Sweeping twice in a row has
// the same effect as sweeping once.
func (r *Registry) Sweep(ctx context.Context) SweepResult {
	ctx, span := r.cfg.spans.StartSweepSpan(ctx, r.id)
	done := observability.TimedOperation()

	var result SweepResult
	var released []releasedInstance
	r.entries.Range(func(name string, e *entry) bool {
		if e.lifetime.SurvivesSweep() {
			result.Retained++
			return true
		}
		if v, ok := e.clear(); ok {
			result.Cleared = append(result.Cleared, name)
			released = append(released, releasedInstance{key: name, lifetime: e.lifetime, value: v})
		}
		return true
	})
	slices.Sort(result.Cleared)

	result.DisposeErrors = r.dispose(ctx, released, event.TypeCleared)
	result.Duration = done()

	r.cfg.spans.AddSpanEvent(ctx, "singleton.swept",
		attribute.Int("cleared", len(result.Cleared)),
		attribute.Int("retained", result.Retained))
	r.cfg.spans.EndSpanWithError(span, errors.Join(result.DisposeErrors...))
	r.cfg.metrics.RecordSweep(ctx, len(result.Cleared), result.Duration)
	observability.LogSweep(r.logger, len(result.Cleared), result.Retained, observability.Milliseconds(result.Duration))
	r.publish(ctx, event.TypeSwept, event.WithCount(len(result.Cleared)))

	return result
}

// DestroyResult reports what a teardown removed.
type DestroyResult struct {
	// Removed lists every key that was registered, sorted.
	Removed []string
	// Released counts the built instances among them.
	Released int
	// DisposeErrors holds a *DisposeError per failed Dispose call.
	DisposeErrors []error
	// Duration is how long the teardown took.
	Duration time.Duration
}

// Destroy removes every entry regardless of lifetime. The next Get for any
// key creates a new entry and builds a new instance.
//
// A Get already waiting on a factory when Destroy runs does not keep the
// old entry alive: it retries against the emptied registry.
//
// Destroying the Default registry also detaches it from Default, so the
// next Default call returns a new registry.
func (r *Registry) Destroy(ctx context.Context) DestroyResult {
	ctx, span := r.cfg.spans.StartDestroySpan(ctx, r.id)
	done := observability.TimedOperation()

	var result DestroyResult
	var released []releasedInstance
	for name, e := range r.entries.Drain() {
		result.Removed = append(result.Removed, name)
		if v, ok := e.retire(); ok {
			released = append(released, releasedInstance{key: name, lifetime: e.lifetime, value: v})
		}
	}
	slices.Sort(result.Removed)
	result.Released = len(released)

	if r.isDefault {
		defaultEntry.clearIf(r)
	}

	result.DisposeErrors = r.dispose(ctx, released, event.TypeDestroyed)
	result.Duration = done()

	r.cfg.spans.EndSpanWithError(span, errors.Join(result.DisposeErrors...))
	r.cfg.metrics.RecordDestroy(ctx, len(result.Removed), result.Duration)
	observability.LogDestroy(r.logger, len(result.Removed), observability.Milliseconds(result.Duration))

	return result
}

type releasedInstance struct {
	key      string
	lifetime Lifetime
	value    any
}

// dispose publishes one event per released instance and disposes those
// implementing Disposable. It runs with no entry locks held.
func (r *Registry) dispose(ctx context.Context, released []releasedInstance, eventType string) []error {
	var errs []error
	for _, ri := range released {
		r.publish(ctx, eventType, event.WithKey(ri.key, ri.lifetime.String()))

		if !r.cfg.disposeOnClear {
			continue
		}
		d, ok := ri.value.(Disposable)
		if !ok {
			continue
		}
		if err := d.Dispose(); err != nil {
			observability.LogDisposeError(r.logger, ri.key, err)
			errs = append(errs, &DisposeError{Key: ri.key, Err: err})
		}
	}
	return errs
}

// publish sends a lifecycle event if a bus is configured. Bus errors are
// logged and otherwise ignored.
func (r *Registry) publish(ctx context.Context, eventType string, opts ...event.Option) {
	if r.cfg.bus == nil {
		return
	}
	evt := event.New(eventType, r.id, opts...)
	if err := r.cfg.bus.Publish(ctx, evt); err != nil && r.logger != nil {
		r.logger.Warn("singleton event not published",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

// Run sweeps the registry every sweep interval until ctx is done.
// It returns at once if no interval is configured.
//
// Example:
//
//	reg := singleton.New(singleton.WithSweepInterval(time.Minute))
//	go reg.Run(ctx)
func (r *Registry) Run(ctx context.Context) {
	interval := r.cfg.sweepInterval
	if interval <= 0 {
		return
	}

	observability.LogSweeperStart(r.logger, interval)
	ticker := r.cfg.clock.NewTicker(interval)
	defer ticker.Stop()

	sweeps := 0
	for {
		select {
		case <-ctx.Done():
			observability.LogSweeperStop(r.logger, sweeps)
			return
		case <-ticker.C():
			r.Sweep(ctx)
			sweeps++
		}
	}
}

// Len returns the number of registered entries, built or not.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Keys returns the registered key names, sorted.
func (r *Registry) Keys() []string {
	keys := r.entries.Keys()
	slices.Sort(keys)
	return keys
}

// Has reports whether name is registered. A registered key may have no
// built instance, for example after a sweep.
func (r *Registry) Has(name string) bool {
	return r.entries.Has(name)
}

// Built reports whether name currently holds an instance.
func (r *Registry) Built(name string) bool {
	e, ok := r.entries.Load(name)
	if !ok {
		return false
	}
	_, built := e.load()
	return built
}

// Stats returns a snapshot of every entry, sorted by key.
func (r *Registry) Stats() []EntryStats {
	stats := make([]EntryStats, 0, r.entries.Len())
	r.entries.Range(func(_ string, e *entry) bool {
		stats = append(stats, e.stats())
		return true
	})
	slices.SortFunc(stats, func(a, b EntryStats) int {
		return strings.Compare(a.Key, b.Key)
	})
	return stats
}
