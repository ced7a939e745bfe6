package event

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle event types.
const (
	TypeMaterialized      = "singleton.materialized"
	TypeMaterializeFailed = "singleton.materialize_failed"
	TypeCleared           = "singleton.cleared"
	TypeDestroyed         = "singleton.destroyed"
	TypeSwept             = "singleton.swept"
)

// Event describes one change to a registry's entries.
// Events are values; handlers receive their own copy.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	RegistryID string    `json:"registry_id"`
	Key        string    `json:"key,omitempty"`
	Lifetime   string    `json:"lifetime,omitempty"`
	Count      int       `json:"count,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Option configures event creation.
type Option func(*Event)

// WithKey sets the entry the event is about.
func WithKey(key, lifetime string) Option {
	return func(e *Event) {
		e.Key = key
		e.Lifetime = lifetime
	}
}

// WithCount sets the number of entries an aggregate event covers.
func WithCount(n int) Option {
	return func(e *Event) {
		e.Count = n
	}
}

// WithError records the failure carried by the event.
func WithError(err error) Option {
	return func(e *Event) {
		if err != nil {
			e.Error = err.Error()
		}
	}
}

// WithTimestamp overrides the event time.
func WithTimestamp(t time.Time) Option {
	return func(e *Event) {
		e.Timestamp = t
	}
}

// New creates an event with a fresh ID, stamped with the current time.
func New(eventType, registryID string, opts ...Option) Event {
	evt := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		RegistryID: registryID,
		Timestamp:  time.Now(),
	}
	for _, opt := range opts {
		opt(&evt)
	}
	return evt
}
