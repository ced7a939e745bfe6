package store

import "sync"

// Map is a thread-safe map of values indexed by key.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		entries: make(map[K]V),
	}
}

// Load returns the value for a key and whether it exists.
func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, ok
}

// LoadOrCreate returns the value for key, inserting the result of create if
// the key is absent. The second return value reports whether this call
// inserted the value.
func (m *Map[K, V]) LoadOrCreate(key K, create func() V) (V, bool) {
	m.mu.RLock()
	v, ok := m.entries[key]
	m.mu.RUnlock()
	if ok {
		return v, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have inserted while we waited for the write lock.
	if v, ok := m.entries[key]; ok {
		return v, false
	}

	v = create()
	m.entries[key] = v
	return v, true
}

// Has returns true if the key exists.
func (m *Map[K, V]) Has(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[key]
	return ok
}

// Delete removes a key and returns the removed value, if any.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
	}
	return v, ok
}

// Keys returns all keys. The order is not guaranteed.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Range calls fn for each entry of a snapshot taken under the read lock.
// If fn returns false, iteration stops. fn may mutate the map.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	m.mu.RLock()
	snapshot := make(map[K]V, len(m.entries))
	for k, v := range m.entries {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	for k, v := range snapshot {
		if !fn(k, v) {
			return
		}
	}
}

// Drain removes every entry and returns them. Lookups that start after Drain
// returns see an empty map.
func (m *Map[K, V]) Drain() map[K]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	drained := m.entries
	m.entries = make(map[K]V)
	return drained
}
