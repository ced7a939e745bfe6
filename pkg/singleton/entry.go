package singleton

import (
	"reflect"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"
)

// instance is the built value of an entry together with its build time.
type instance struct {
	value   any
	builtAt time.Time
}

// entry holds one key's factory and its lazily built instance.
//
// The guard is a mutex plus an atomic cell. Built instances are read from
// the cell without locking. The slow path runs the factory under the mutex,
// so concurrent first callers wait for one factory run and share its result.
// clear takes the same mutex, so it never interleaves with a factory run and
// the next access after it builds exactly once. A failed factory leaves the
// cell empty and the entry retryable.
type entry struct {
	name     string
	typ      reflect.Type
	lifetime Lifetime
	factory  func() (any, error)
	clock    clock.PassiveClock

	mu      sync.Mutex
	cell    atomic.Pointer[instance]
	retired bool // guarded by mu

	builds   atomic.Int64
	failures atomic.Int64
}

func newEntry(name string, typ reflect.Type, lifetime Lifetime, factory func() (any, error), clk clock.PassiveClock) *entry {
	return &entry{
		name:     name,
		typ:      typ,
		lifetime: lifetime,
		factory:  factory,
		clock:    clk,
	}
}

// load returns the built instance without blocking.
func (e *entry) load() (any, bool) {
	if c := e.cell.Load(); c != nil {
		return c.value, true
	}
	return nil, false
}

// materialize returns the instance, running the factory if none is built.
// built reports whether this call ran the factory successfully.
func (e *entry) materialize() (value any, built bool, err error) {
	if v, ok := e.load(); ok {
		return v, false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.retired {
		return nil, false, errRetired
	}
	if v, ok := e.load(); ok {
		return v, false, nil
	}

	v, err := e.run()
	if err != nil {
		e.failures.Add(1)
		return nil, false, err
	}

	e.cell.Store(&instance{value: v, builtAt: e.clock.Now()})
	e.builds.Add(1)
	return v, true, nil
}

// run calls the factory, turning a panic into a *PanicError.
func (e *entry) run() (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Key: e.name, Value: r, Stack: string(debug.Stack())}
		}
	}()
	return e.factory()
}

// clear drops the instance and returns it. The entry can be built again.
func (e *entry) clear() (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.take()
}

// clearIf drops the instance only if it is v. v must be comparable.
func (e *entry) clearIf(v any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if c := e.cell.Load(); c == nil || c.value != v {
		return false
	}
	e.cell.Store(nil)
	return true
}

// retire drops the instance and refuses further builds. Callers still
// holding the entry get errRetired and look the key up again.
func (e *entry) retire() (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.retired = true
	return e.take()
}

// take empties the cell. Caller holds e.mu.
func (e *entry) take() (any, bool) {
	c := e.cell.Swap(nil)
	if c == nil {
		return nil, false
	}
	return c.value, true
}

// EntryStats is a point-in-time view of one registry entry.
type EntryStats struct {
	// Key is the entry's key name.
	Key string
	// Type is the Go type the key was registered with.
	Type string
	// Lifetime is the entry's reclamation class.
	Lifetime Lifetime
	// Built reports whether an instance is currently held.
	Built bool
	// BuiltAt is when the current instance was built. Zero if not built.
	BuiltAt time.Time
	// Builds counts successful factory runs over the entry's life.
	Builds int64
	// Failures counts failed factory runs over the entry's life.
	Failures int64
}

func (e *entry) stats() EntryStats {
	s := EntryStats{
		Key:      e.name,
		Type:     e.typ.String(),
		Lifetime: e.lifetime,
		Builds:   e.builds.Load(),
		Failures: e.failures.Load(),
	}
	if c := e.cell.Load(); c != nil {
		s.Built = true
		s.BuiltAt = c.builtAt
	}
	return s
}
