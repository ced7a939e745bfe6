package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/randalmurphal/singleton/pkg/singleton/event"
)

func TestNew(t *testing.T) {
	before := time.Now()
	evt := event.New(event.TypeMaterialized, "reg-1", event.WithKey("db.Pool", "long_lived"))

	if evt.ID == "" {
		t.Error("expected non-empty ID")
	}
	if evt.Type != event.TypeMaterialized {
		t.Errorf("Type = %q, want %q", evt.Type, event.TypeMaterialized)
	}
	if evt.RegistryID != "reg-1" {
		t.Errorf("RegistryID = %q, want reg-1", evt.RegistryID)
	}
	if evt.Key != "db.Pool" || evt.Lifetime != "long_lived" {
		t.Errorf("Key/Lifetime = %q/%q, want db.Pool/long_lived", evt.Key, evt.Lifetime)
	}
	if evt.Timestamp.Before(before) {
		t.Error("timestamp should not predate creation")
	}
}

func TestNewUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := event.New(event.TypeSwept, "reg").ID
		if seen[id] {
			t.Fatalf("duplicate event ID %s", id)
		}
		seen[id] = true
	}
}

func TestOptions(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	evt := event.New(event.TypeMaterializeFailed, "reg",
		event.WithError(errors.New("boom")),
		event.WithCount(3),
		event.WithTimestamp(ts),
	)

	if evt.Error != "boom" {
		t.Errorf("Error = %q, want boom", evt.Error)
	}
	if evt.Count != 3 {
		t.Errorf("Count = %d, want 3", evt.Count)
	}
	if !evt.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", evt.Timestamp, ts)
	}

	if got := event.New(event.TypeCleared, "reg", event.WithError(nil)).Error; got != "" {
		t.Errorf("nil error should leave Error empty, got %q", got)
	}
}

func TestEventError(t *testing.T) {
	evt := event.New(event.TypeCleared, "reg")
	err := &event.EventError{Event: evt, Message: "publish", Err: event.ErrBusClosed}

	if !errors.Is(err, event.ErrBusClosed) {
		t.Error("EventError should unwrap to ErrBusClosed")
	}
	want := "event " + evt.ID + " (singleton.cleared): publish: event bus is closed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &event.EventError{Event: evt, Message: "dropped"}
	if bare.Error() != "event "+evt.ID+" (singleton.cleared): dropped" {
		t.Errorf("unexpected message %q", bare.Error())
	}
}
