// Package observability provides logging, metrics and tracing for singleton
// registries.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Lifetimes are passed as their string form so this package does not depend
// on the registry package.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds the registry ID to a logger.
//
// Example:
//
//	logger := EnrichLogger(slog.Default(), reg.ID())
//	logger.Info("sweeping") // includes registry_id
func EnrichLogger(logger *slog.Logger, registryID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("registry_id", registryID))
}

// LogEntryCreated logs the first registration of a key.
func LogEntryCreated(logger *slog.Logger, key, lifetime string) {
	if logger == nil {
		return
	}
	logger.Debug("singleton entry created",
		slog.String("key", key),
		slog.String("lifetime", lifetime),
	)
}

// LogMaterialized logs a successful factory run.
func LogMaterialized(logger *slog.Logger, key, lifetime string, durationMs float64, builds int64) {
	if logger == nil {
		return
	}
	logger.Debug("singleton materialized",
		slog.String("key", key),
		slog.String("lifetime", lifetime),
		slog.Float64("duration_ms", durationMs),
		slog.Int64("builds", builds),
	)
}

// LogMaterializeError logs a failed factory run. The entry stays unbuilt.
func LogMaterializeError(logger *slog.Logger, key string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("singleton factory failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRetry logs a transient factory failure that will be retried.
func LogRetry(logger *slog.Logger, key string, attempt int, err error, backoff time.Duration) {
	if logger == nil {
		return
	}
	logger.Warn("singleton factory retrying",
		slog.String("key", key),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
		slog.Duration("backoff", backoff),
	)
}

// LogSweep logs the outcome of a sweep.
func LogSweep(logger *slog.Logger, cleared, retained int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("singleton sweep completed",
		slog.Int("cleared", cleared),
		slog.Int("retained", retained),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDestroy logs a full teardown.
func LogDestroy(logger *slog.Logger, removed int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("singleton registry destroyed",
		slog.Int("removed", removed),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogDisposeError logs a failed Dispose call on a released instance (non-fatal).
func LogDisposeError(logger *slog.Logger, key string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("singleton dispose failed",
		slog.String("key", key),
		slog.String("error", err.Error()),
	)
}

// LogSweeperStart logs the start of the periodic sweeper.
func LogSweeperStart(logger *slog.Logger, interval time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("singleton sweeper started",
		slog.Duration("interval", interval),
	)
}

// LogSweeperStop logs the end of the periodic sweeper.
func LogSweeperStop(logger *slog.Logger, sweeps int) {
	if logger == nil {
		return
	}
	logger.Info("singleton sweeper stopped",
		slog.Int("sweeps", sweeps),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts a duration to fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
