// Package event publishes registry lifecycle events.
//
// # Overview
//
// A registry configured with an event bus reports what happens to its
// entries:
//
//   - TypeMaterialized: a factory produced an instance
//   - TypeMaterializeFailed: a factory returned an error or panicked
//   - TypeCleared: a sweep released a short-lived instance
//   - TypeDestroyed: a teardown released an instance
//   - TypeSwept: a sweep finished (one per sweep, no key)
//
// # Bus
//
// LocalBus is an in-memory pub/sub bus with one buffered channel and one
// delivery goroutine per subscription:
//
//	bus := event.NewBus(event.BusConfig{
//	    BufferSize:  256,
//	    NonBlocking: true,
//	    OnDrop: func(evt event.Event, subscriberID string) {
//	        dropped.Add(1)
//	    },
//	})
//	defer bus.Close()
//
//	sub := bus.Subscribe([]string{event.TypeCleared}, event.HandlerFunc(
//	    func(ctx context.Context, evt event.Event) error {
//	        log.Printf("released %s", evt.Key)
//	        return nil
//	    }))
//	defer sub.Unsubscribe()
//
// Registries publish from inside Sweep and Destroy, so the bus handed to a
// registry should be non-blocking. A full subscriber buffer then drops the
// event and reports it through OnDrop instead of stalling the registry.
package event
