/*
Package singleton provides a process-scoped registry of lazily built
singletons with two reclamation classes.

# Overview

A Registry maps keys to entries. Each entry holds a factory and, once
someone asked for it, the instance the factory built. Instances come in two
lifetimes:

  - ShortLived instances are released by Sweep and rebuilt on next access.
  - LongLived instances survive Sweep. Only Destroy removes them.

At most one instance per key is live at a time. Concurrent first callers for
a key wait for a single factory run and all receive its result.

# Basic Usage

Declare keys once and pass the registry to the code that needs it:

	var (
	    configKey = singleton.LongLivedKey[*Config]("app.config")
	    cacheKey  = singleton.ShortLivedKey[*Cache]("app.cache")
	)

	func main() {
	    ctx := context.Background()
	    reg := singleton.New(singleton.WithLogger(slog.Default()))

	    cfg, err := singleton.Get(ctx, reg, configKey, loadConfig)
	    if err != nil {
	        log.Fatal(err)
	    }

	    cache := singleton.MustGet(ctx, reg, cacheKey, func() *Cache {
	        return NewCache(cfg.CacheSize)
	    })

	    reg.Sweep(ctx)   // cache released, config kept
	    reg.Destroy(ctx) // everything released
	}

KeyFor names a key after its type, for code that wants one instance per type:

	key := singleton.KeyFor[*Cache](singleton.ShortLived)
	// key.Name() == "*example.com/app.Cache"

# Failures

A factory error comes back wrapped in *FactoryError and a factory panic as
*PanicError. Nothing is cached in either case, so the next Get runs the
factory again. GetWithRetry uses this to retry transient failures with
backoff:

	db, err := singleton.GetWithRetry(ctx, reg, dbKey, sgerrors.DefaultRetry, openDB)

Registering one key name with two different types or lifetimes returns an
error matching ErrKeyConflict.

# Reclamation

Sweep releases every short-lived instance and keeps the entries, so the
next Get rebuilds with the original factory. Destroy removes every entry.
Released instances implementing Disposable are disposed after the registry
has let go of them; disable this with WithDisposeOnClear(false).

Run sweeps on a timer:

	reg := singleton.New(singleton.WithSweepInterval(5 * time.Minute))
	go reg.Run(ctx)

# Default Registry

Default returns a process-wide registry built on first use. It is stored
the same way as a long-lived singleton: Destroy on it detaches it and the
next Default call builds a fresh one. Prefer passing an explicit *Registry;
tests then get isolated state without calling Destroy.

# Observability

Options enable structured logging (WithLogger), OpenTelemetry metrics
(WithMetrics) and spans (WithTracing), and lifecycle events on an event bus
(WithEventBus). Settings loaded from a YAML or JSON file through the config
package turn into options with OptionsFromSettings.

# Thread Safety

Every Registry method and Get, MustGet and GetWithRetry are safe for
concurrent use. A factory may Get other keys but must not Get its own key:
it runs while holding that key's lock and would deadlock.
*/
package singleton
