package singleton

import (
	"reflect"
)

// Key identifies a singleton of type T and declares its lifetime.
//
// Keys are plain values; build them once as package-level variables and
// share them between callers:
//
//	var poolKey = singleton.LongLivedKey[*sql.DB]("app.db")
//
// Two keys with the same name must agree on T and on the lifetime, otherwise
// the second one is rejected with ErrKeyConflict.
type Key[T any] struct {
	name     string
	lifetime Lifetime
}

// NewKey returns a key with an explicit lifetime.
func NewKey[T any](name string, lifetime Lifetime) Key[T] {
	return Key[T]{name: name, lifetime: lifetime}
}

// ShortLivedKey returns a key whose instance is released by Sweep.
func ShortLivedKey[T any](name string) Key[T] {
	return NewKey[T](name, ShortLived)
}

// LongLivedKey returns a key whose instance survives Sweep.
func LongLivedKey[T any](name string) Key[T] {
	return NewKey[T](name, LongLived)
}

// KeyFor returns a key named after T's fully qualified type name,
// for example "*github.com/acme/app/cache.Store".
func KeyFor[T any](lifetime Lifetime) Key[T] {
	return NewKey[T](qualifiedName(reflect.TypeFor[T]()), lifetime)
}

// Name returns the registry name of the key.
func (k Key[T]) Name() string {
	return k.name
}

// Lifetime returns the declared lifetime.
func (k Key[T]) Lifetime() Lifetime {
	return k.lifetime
}

// String implements fmt.Stringer.
func (k Key[T]) String() string {
	return k.name + " (" + k.lifetime.String() + ")"
}

func qualifiedName(t reflect.Type) string {
	if t.Kind() == reflect.Pointer && t.Name() == "" {
		return "*" + qualifiedName(t.Elem())
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}
