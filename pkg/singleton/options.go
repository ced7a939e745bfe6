package singleton

import (
	"io"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/randalmurphal/singleton/pkg/singleton/config"
	"github.com/randalmurphal/singleton/pkg/singleton/event"
	"github.com/randalmurphal/singleton/pkg/singleton/observability"
)

// registryConfig holds the settings a Registry is built with.
type registryConfig struct {
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	bus            event.Bus
	clock          clock.WithTicker
	sweepInterval  time.Duration
	disposeOnClear bool
}

// defaultRegistryConfig returns the configuration used when no options are given.
func defaultRegistryConfig() registryConfig {
	return registryConfig{
		metrics:        observability.NoopMetrics{},
		spans:          observability.NoopSpanManager{},
		clock:          clock.RealClock{},
		disposeOnClear: true,
	}
}

// Option configures a Registry.
type Option func(*registryConfig)

// WithLogger sets the structured logger. The registry ID is added to every
// record. Default: no logging.
//
// Example:
//
//	reg := singleton.New(singleton.WithLogger(slog.Default()))
func WithLogger(logger *slog.Logger) Option {
	return func(c *registryConfig) {
		c.logger = logger
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
// Default: disabled
//
// Instruments are created from the global meter provider when the registry
// is built, so configure the provider first:
//
//	otel.SetMeterProvider(provider)
//	reg := singleton.New(singleton.WithMetrics(true))
func WithMetrics(enabled bool) Option {
	return func(c *registryConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables or disables OpenTelemetry spans for factory runs,
// sweeps and teardowns.
// Default: disabled
func WithTracing(enabled bool) Option {
	return func(c *registryConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithSweepInterval sets the period of the sweeper started by Run.
// Default: 0 (Run returns immediately)
func WithSweepInterval(d time.Duration) Option {
	return func(c *registryConfig) {
		if d >= 0 {
			c.sweepInterval = d
		}
	}
}

// WithDisposeOnClear controls whether released instances implementing
// Disposable are disposed.
// Default: true
func WithDisposeOnClear(enabled bool) Option {
	return func(c *registryConfig) {
		c.disposeOnClear = enabled
	}
}

// WithEventBus publishes lifecycle events to bus. The bus should be
// non-blocking; see the event package. Default: no events.
func WithEventBus(bus event.Bus) Option {
	return func(c *registryConfig) {
		c.bus = bus
	}
}

// WithClock sets the clock used for build timestamps and the sweep ticker.
// Tests pass a fake clock from k8s.io/utils/clock/testing.
func WithClock(clk clock.WithTicker) Option {
	return func(c *registryConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// OptionsFromSettings converts file settings into registry options.
// Logs go to logOut at the configured level; a nil logOut disables logging.
// A non-zero EventBuffer creates a non-blocking bus, returned so the caller
// can subscribe to it and close it.
func OptionsFromSettings(s config.Settings, logOut io.Writer) ([]Option, *event.LocalBus) {
	opts := []Option{
		WithSweepInterval(s.SweepInterval),
		WithDisposeOnClear(s.DisposeOnClear),
		WithMetrics(s.Metrics),
		WithTracing(s.Tracing),
	}
	if logOut != nil {
		opts = append(opts, WithLogger(s.NewLogger(logOut)))
	}

	var bus *event.LocalBus
	if s.EventBuffer > 0 {
		bus = event.NewBus(event.BusConfig{
			BufferSize:  s.EventBuffer,
			NonBlocking: true,
		})
		opts = append(opts, WithEventBus(bus))
	}
	return opts, bus
}
