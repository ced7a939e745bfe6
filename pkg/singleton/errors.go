package singleton

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookups.
var (
	// ErrKeyConflict indicates a key name is already registered with a
	// different type or lifetime.
	ErrKeyConflict = errors.New("singleton key conflict")

	// ErrEmptyKey indicates a zero-value Key or a key with an empty name.
	ErrEmptyKey = errors.New("singleton key has no name")

	// ErrNilFactory indicates Get was called without a factory.
	ErrNilFactory = errors.New("singleton factory is nil")

	// ErrNilRegistry indicates Get was called on a nil registry.
	ErrNilRegistry = errors.New("singleton registry is nil")
)

// errRetired is returned by an entry that a teardown detached from its
// registry. Get looks the key up again when it sees it.
var errRetired = errors.New("singleton entry retired")

// KeyConflictError reports a second registration of a key name that
// disagrees with the first.
type KeyConflictError struct {
	// Name is the conflicting key name.
	Name string
	// Want describes the requested type and lifetime.
	Want string
	// Have describes the registered type and lifetime.
	Have string
}

// Error implements the error interface.
func (e *KeyConflictError) Error() string {
	return fmt.Sprintf("singleton key %q requested as %s but registered as %s", e.Name, e.Want, e.Have)
}

// Unwrap returns ErrKeyConflict for errors.Is support.
func (e *KeyConflictError) Unwrap() error {
	return ErrKeyConflict
}

// FactoryError wraps an error returned by a factory.
// The entry stays unbuilt, so the next Get runs the factory again.
type FactoryError struct {
	// Key is the key whose factory failed.
	Key string
	// Err is the factory's error.
	Err error
}

// Error implements the error interface.
func (e *FactoryError) Error() string {
	return fmt.Sprintf("singleton %s: factory failed: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *FactoryError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic recovered from a factory.
type PanicError struct {
	// Key is the key whose factory panicked.
	Key string
	// Value is the value passed to panic().
	Value any
	// Stack is the stack trace at the point of the panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("singleton %s: factory panicked: %v", e.Key, e.Value)
}

// DisposeError wraps an error returned by Dispose on a released instance.
type DisposeError struct {
	// Key is the key whose instance failed to dispose.
	Key string
	// Err is the error returned by Dispose.
	Err error
}

// Error implements the error interface.
func (e *DisposeError) Error() string {
	return fmt.Sprintf("singleton %s: dispose failed: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DisposeError) Unwrap() error {
	return e.Err
}
