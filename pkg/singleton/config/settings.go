package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Settings keys.
const (
	KeySweepInterval  = "sweep_interval"
	KeyDisposeOnClear = "dispose_on_clear"
	KeyMetrics        = "metrics"
	KeyTracing        = "tracing"
	KeyLogLevel       = "log_level"
	KeyEventBuffer    = "event_buffer"
)

// Settings is the file-level configuration of a registry.
type Settings struct {
	// SweepInterval is the period of the background sweeper. Zero disables it.
	SweepInterval time.Duration

	// DisposeOnClear calls Dispose on released instances that implement it.
	DisposeOnClear bool

	// Metrics enables OpenTelemetry metrics.
	Metrics bool

	// Tracing enables OpenTelemetry spans.
	Tracing bool

	// LogLevel is the minimum level for loggers built with NewLogger.
	LogLevel slog.Level

	// EventBuffer is the per-subscriber buffer of the lifecycle event bus.
	// Zero disables lifecycle events.
	EventBuffer int
}

// DefaultSettings returns the settings used for keys a file leaves out.
func DefaultSettings() Settings {
	return Settings{
		DisposeOnClear: true,
		LogLevel:       slog.LevelInfo,
	}
}

// SettingsFrom extracts Settings from a Config, validating values.
func SettingsFrom(c Config) (Settings, error) {
	s := DefaultSettings()

	s.SweepInterval = c.Duration(KeySweepInterval, s.SweepInterval)
	if s.SweepInterval < 0 {
		return Settings{}, fmt.Errorf("invalid %s: must not be negative, got %v", KeySweepInterval, s.SweepInterval)
	}

	s.DisposeOnClear = c.Bool(KeyDisposeOnClear, s.DisposeOnClear)
	s.Metrics = c.Bool(KeyMetrics, s.Metrics)
	s.Tracing = c.Bool(KeyTracing, s.Tracing)

	if c.Has(KeyLogLevel) {
		raw := c.String(KeyLogLevel, "")
		if err := s.LogLevel.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
			return Settings{}, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, raw, err)
		}
	}

	s.EventBuffer = c.Int(KeyEventBuffer, s.EventBuffer)
	if s.EventBuffer < 0 {
		return Settings{}, fmt.Errorf("invalid %s: must not be negative, got %d", KeyEventBuffer, s.EventBuffer)
	}

	return s, nil
}

// LoadSettings reads a YAML or JSON file and extracts Settings from it.
func LoadSettings(path string) (Settings, error) {
	c, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	return SettingsFrom(c)
}

// NewLogger returns a JSON logger writing to w at the configured level.
func (s Settings) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: s.LogLevel,
	}))
}
