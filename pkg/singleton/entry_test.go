package singleton

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"
)

func newTestEntry(lifetime Lifetime, factory func() (any, error)) *entry {
	return newEntry("test", reflect.TypeFor[*tagged](), lifetime, factory, testclock.NewFakeClock(time.Unix(1000, 0)))
}

func countingFactory() (func() (any, error), *atomic.Int64) {
	var n atomic.Int64
	return func() (any, error) {
		return &tagged{Tag: n.Add(1)}, nil
	}, &n
}

func TestEntry_MaterializeOnce(t *testing.T) {
	factory, calls := countingFactory()
	e := newTestEntry(ShortLived, factory)

	v1, built, err := e.materialize()
	require.NoError(t, err)
	assert.True(t, built)

	v2, built, err := e.materialize()
	require.NoError(t, err)
	assert.False(t, built)

	assert.Same(t, v1, v2)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEntry_ConcurrentMaterialize(t *testing.T) {
	var calls atomic.Int64
	e := newTestEntry(ShortLived, func() (any, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &tagged{Tag: 1}, nil
	})

	results := make([]any, 64)
	var builders atomic.Int64
	runConcurrently(len(results), func(i int) {
		v, built, err := e.materialize()
		assert.NoError(t, err)
		if built {
			builders.Add(1)
		}
		results[i] = v
	})

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, int64(1), builders.Load())
	for _, v := range results {
		assert.Same(t, results[0], v)
	}
}

func TestEntry_FailureIsNotCached(t *testing.T) {
	attempts := 0
	e := newTestEntry(ShortLived, func() (any, error) {
		attempts++
		if attempts == 1 {
			return nil, errNotReady
		}
		return &tagged{Tag: int64(attempts)}, nil
	})

	_, _, err := e.materialize()
	require.ErrorIs(t, err, errNotReady)
	_, ok := e.load()
	assert.False(t, ok)

	v, built, err := e.materialize()
	require.NoError(t, err)
	assert.True(t, built)
	assert.Equal(t, int64(2), v.(*tagged).Tag)

	stats := e.stats()
	assert.Equal(t, int64(1), stats.Builds)
	assert.Equal(t, int64(1), stats.Failures)
}

func TestEntry_PanicRecovered(t *testing.T) {
	e := newTestEntry(ShortLived, func() (any, error) {
		panic("boom")
	})

	_, _, err := e.materialize()
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "test", pe.Key)
	assert.Equal(t, "boom", pe.Value)
	assert.Contains(t, pe.Stack, "entry.go")

	// The mutex was released and the entry is still usable.
	e.factory = func() (any, error) { return &tagged{Tag: 7}, nil }
	v, _, err := e.materialize()
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.(*tagged).Tag)
}

func TestEntry_ClearResetsGuard(t *testing.T) {
	factory, calls := countingFactory()
	e := newTestEntry(ShortLived, factory)

	v1, _, _ := e.materialize()
	released, ok := e.clear()
	require.True(t, ok)
	assert.Same(t, v1, released)

	_, ok = e.clear()
	assert.False(t, ok, "second clear has nothing to release")

	v2, built, err := e.materialize()
	require.NoError(t, err)
	assert.True(t, built)
	assert.NotSame(t, v1, v2)
	assert.Equal(t, int64(2), calls.Load())
}

func TestEntry_ClearThenConcurrentMaterialize(t *testing.T) {
	factory, calls := countingFactory()
	e := newTestEntry(ShortLived, factory)

	for round := 1; round <= 5; round++ {
		e.clear()
		results := make([]any, 32)
		runConcurrently(len(results), func(i int) {
			results[i], _, _ = e.materialize()
		})
		for _, v := range results {
			assert.Same(t, results[0], v)
		}
		assert.Equal(t, int64(round), calls.Load())
	}
}

func TestEntry_ClearWaitsForFactory(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	e := newTestEntry(ShortLived, func() (any, error) {
		close(started)
		<-release
		return &tagged{Tag: 1}, nil
	})

	go e.materialize()
	<-started

	cleared := make(chan bool)
	go func() {
		_, ok := e.clear()
		cleared <- ok
	}()

	select {
	case <-cleared:
		t.Fatal("clear returned while the factory was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	assert.True(t, <-cleared, "clear should release the instance built before it")
}

func TestEntry_Retire(t *testing.T) {
	factory, _ := countingFactory()
	e := newTestEntry(LongLived, factory)
	v, _, _ := e.materialize()

	released, ok := e.retire()
	require.True(t, ok)
	assert.Same(t, v, released)

	_, _, err := e.materialize()
	assert.ErrorIs(t, err, errRetired)
}

func TestEntry_ClearIf(t *testing.T) {
	factory, _ := countingFactory()
	e := newTestEntry(LongLived, factory)
	v, _, _ := e.materialize()

	assert.False(t, e.clearIf(&tagged{}))
	_, ok := e.load()
	assert.True(t, ok)

	assert.True(t, e.clearIf(v))
	_, ok = e.load()
	assert.False(t, ok)
}

func TestEntry_Stats(t *testing.T) {
	factory, _ := countingFactory()
	e := newTestEntry(LongLived, factory)

	s := e.stats()
	assert.Equal(t, "test", s.Key)
	assert.Equal(t, "*singleton.tagged", s.Type)
	assert.Equal(t, LongLived, s.Lifetime)
	assert.False(t, s.Built)
	assert.True(t, s.BuiltAt.IsZero())

	e.materialize()
	s = e.stats()
	assert.True(t, s.Built)
	assert.Equal(t, time.Unix(1000, 0), s.BuiltAt)
	assert.Equal(t, int64(1), s.Builds)
}

func TestEntry_FactoryErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("dial failed")
	e := newTestEntry(ShortLived, func() (any, error) { return nil, sentinel })

	_, built, err := e.materialize()
	assert.False(t, built)
	assert.Same(t, sentinel, err)
}
