// Package store provides the concurrent keyed map that backs a singleton
// registry.
//
// Map is designed for read-heavy workloads using sync.RWMutex. Lookups of an
// existing key only take the read lock; inserting a new key takes the write
// lock and re-checks, so two goroutines racing on the same missing key never
// both insert.
//
// # Insert If Absent
//
//	m := store.New[string, *Holder]()
//
//	h, created := m.LoadOrCreate("db", func() *Holder {
//	    return &Holder{}
//	})
//
// create is called at most once per key while the key is present, even under
// concurrent access. It runs under the write lock and must not touch m.
//
// # Snapshots and Draining
//
// Range iterates over a snapshot, so callbacks may mutate the map. Drain
// removes every entry in one step and hands the removed entries back to the
// caller, which is how a full teardown releases everything atomically:
//
//	for key, h := range m.Drain() {
//	    h.Close()
//	}
package store
