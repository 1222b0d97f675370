package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type engineFactory func(opts Options) ICache

func engines() map[string]engineFactory {
	return map[string]engineFactory{
		"TTLCache": NewTTLCache,
		"BoundedCache": func(opts Options) ICache {
			opts.MaxEntries = 128
			return NewBoundedCache(opts)
		},
	}
}

func runForEngines(t *testing.T, fn func(t *testing.T, c ICache, clock *fakeClock)) {
	for name, factory := range engines() {
		t.Run(name, func(t *testing.T) {
			clock := newFakeClock()
			c := factory(Options{Name: "test-" + name, Now: clock.Now})
			defer c.Close()
			fn(t, c, clock)
		})
	}
}

func TestSetGet(t *testing.T) {
	runForEngines(t, func(t *testing.T, c ICache, _ *fakeClock) {
		_, ok := c.Get("missing")
		assert.False(t, ok)

		c.Set("k", 42, 0)
		v, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, 42, v)

		c.Set("k", "replaced", time.Minute)
		v, ok = c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "replaced", v)
	})
}

func TestExpiryOnRead(t *testing.T) {
	runForEngines(t, func(t *testing.T, c ICache, clock *fakeClock) {
		c.Set("short", 1, time.Second)
		c.Set("default", 2, 0)

		// exactly at the ttl boundary the entry is still served
		clock.Advance(time.Second)
		_, ok := c.Get("short")
		assert.True(t, ok)

		clock.Advance(time.Millisecond)
		_, ok = c.Get("short")
		assert.False(t, ok)
		assert.Equal(t, 1, c.Len(), "expired entry must be evicted on read")

		clock.Advance(DefaultTTL)
		_, ok = c.Get("default")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})
}

func TestInvalidateAndClear(t *testing.T) {
	runForEngines(t, func(t *testing.T, c ICache, _ *fakeClock) {
		c.Set("list:A:exams", 1, 0)
		c.Set("list:A:activities", 2, 0)
		c.Set("list:AB:exams", 3, 0)
		c.Set("all:exams", 4, 0)

		c.Invalidate("all:exams")
		_, ok := c.Get("all:exams")
		assert.False(t, ok)

		c.InvalidatePrefix("list:A:")
		_, ok = c.Get("list:A:exams")
		assert.False(t, ok)
		_, ok = c.Get("list:A:activities")
		assert.False(t, ok)
		_, ok = c.Get("list:AB:exams")
		assert.True(t, ok)

		c.Clear()
		assert.Equal(t, 0, c.Len())
	})
}

func TestGetOrCompute(t *testing.T) {
	runForEngines(t, func(t *testing.T, c ICache, clock *fakeClock) {
		var calls int
		compute := func() ([]string, error) {
			calls++
			return []string{"a"}, nil
		}

		v, err := GetOrCompute(c, "k", time.Minute, compute)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, v)

		_, err = GetOrCompute(c, "k", time.Minute, compute)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		clock.Advance(2 * time.Minute)
		_, err = GetOrCompute(c, "k", time.Minute, compute)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)

		boom := errors.New("boom")
		_, err = GetOrCompute(c, "err", 0, func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
		_, ok := c.Get("err")
		assert.False(t, ok, "failed computations are not cached")
	})
}

func TestGetOrComputeTypeMismatchRecomputes(t *testing.T) {
	c := NewTTLCache(Options{})
	defer c.Close()

	c.Set("k", "a string", 0)
	v, err := GetOrCompute(c, "k", 0, func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestBoundedCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewBoundedCache(Options{MaxEntries: 2})
	defer c.Close()

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	_, _ = c.Get("a")
	c.Set("c", 3, 0)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestSweeperRemovesUnreadEntries(t *testing.T) {
	c := NewTTLCache(Options{SweepInterval: 10 * time.Millisecond})
	defer c.Close()

	c.Set("gone", 1, 20*time.Millisecond)
	c.Set("kept", 2, time.Hour)

	assert.Eventually(t, func() bool { return c.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	_, ok := c.Get("kept")
	assert.True(t, ok)
}

func TestSweepKeepsRefreshedEntries(t *testing.T) {
	clock := newFakeClock()
	// the ticker never fires within the test, sweep is driven by hand
	c := NewTTLCache(Options{Now: clock.Now, SweepInterval: time.Hour}).(*ttlCache)
	defer c.Close()

	c.Set("k", 1, time.Second)
	c.Set("old", 1, time.Second)
	clock.Advance(2 * time.Second)
	c.Set("k", 2, time.Minute)
	c.sweep()

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len(), "the stale entry is swept")
}

func TestConcurrentAccess(t *testing.T) {
	runForEngines(t, func(t *testing.T, c ICache, _ *fakeClock) {
		var wg sync.WaitGroup
		var hits atomic.Int64
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					key := fmt.Sprintf("k%d", i%16)
					c.Set(key, i, 0)
					if _, ok := c.Get(key); ok {
						hits.Add(1)
					}
					if i%50 == 0 {
						c.InvalidatePrefix("k1")
					}
				}
			}(w)
		}
		wg.Wait()
		assert.Positive(t, hits.Load())
	})
}

func TestEnginePanicsAreContained(t *testing.T) {
	// a panicking clock breaks Set and Get of every engine
	for name, factory := range engines() {
		t.Run(name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Name = "panic-" + name
			opts.SweepInterval = 0
			opts.Now = func() time.Time { panic("clock failure") }
			c := factory(opts)
			defer c.Close()

			assert.NotPanics(t, func() { c.Set("k", 1, time.Minute) })
			_, ok := c.Get("k")
			assert.False(t, ok)
		})
	}

	// engines without their storage panic on every access
	broken := map[string]ICache{
		"ttl":     &ttlCache{},
		"bounded": &boundedCache{},
	}
	for name, c := range broken {
		t.Run(name+"/broken", func(t *testing.T) {
			assert.NotPanics(t, func() { c.Invalidate("k") })
			assert.NotPanics(t, func() { c.InvalidatePrefix("doc:") })
			assert.NotPanics(t, func() { c.Clear() })
			assert.NotPanics(t, func() {
				if n := c.Len(); n != 0 {
					t.Errorf("Expected Len of a broken cache to be 0, got %d", n)
				}
			})
		})
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := NewTTLCache(Options{SweepInterval: time.Millisecond})
	c.Close()
	c.Close()

	c.Set("k", 1, 0)
	_, ok := c.Get("k")
	assert.True(t, ok, "cache stays usable after Close")
}

func TestNewSelectsEngine(t *testing.T) {
	assert.IsType(t, &boundedCache{}, New(Options{MaxEntries: 10}))
	c := New(Options{})
	defer c.Close()
	assert.IsType(t, &ttlCache{}, c)
}
