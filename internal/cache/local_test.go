package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, maxSize int) (*LocalCache[int, string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	lc := NewLocalCache[int, string](LocalCacheConfig{
		MaxSize:    maxSize,
		DefaultTTL: time.Minute,
		Now:        clock.Now,
	})
	t.Cleanup(lc.Stop)
	return lc, clock
}

func TestLocalCache(t *testing.T) {
	t.Run("Get returns stored values until they expire", func(t *testing.T) {
		lc, clock := newTestCache(t, 10)

		lc.Set(1, "TKT-1", 0)
		got, ok := lc.Get(1)
		require.True(t, ok)
		assert.Equal(t, "TKT-1", got)

		clock.Advance(61 * time.Second)
		_, ok = lc.Get(1)
		assert.False(t, ok)

		stats := lc.GetStats()
		assert.Equal(t, int64(1), stats.Hits)
		assert.Equal(t, int64(1), stats.Misses)
		assert.Equal(t, int64(1), stats.Evictions)
		assert.Equal(t, int64(0), stats.Size)
	})

	t.Run("Explicit ttl overrides the default", func(t *testing.T) {
		lc, clock := newTestCache(t, 10)

		lc.Set(1, "short", 5*time.Second)
		clock.Advance(6 * time.Second)
		_, ok := lc.Get(1)
		assert.False(t, ok)
	})

	t.Run("Delete and Clear", func(t *testing.T) {
		lc, _ := newTestCache(t, 10)
		lc.Set(1, "a", 0)
		lc.Set(2, "b", 0)

		lc.Delete(1)
		_, ok := lc.Get(1)
		assert.False(t, ok)
		assert.Equal(t, int64(1), lc.GetStats().Deletes)

		lc.Clear()
		_, ok = lc.Get(2)
		assert.False(t, ok)
	})

	t.Run("Evicts the least recently used entry at capacity", func(t *testing.T) {
		lc, clock := newTestCache(t, 2)
		lc.Set(1, "a", 0)
		clock.Advance(time.Second)
		lc.Set(2, "b", 0)
		clock.Advance(time.Second)

		// touch 1 so 2 becomes the oldest
		_, ok := lc.Get(1)
		require.True(t, ok)
		clock.Advance(time.Second)

		lc.Set(3, "c", 0)

		_, ok = lc.Get(2)
		assert.False(t, ok)
		_, ok = lc.Get(1)
		assert.True(t, ok)
		_, ok = lc.Get(3)
		assert.True(t, ok)
	})

	t.Run("Overwriting at capacity does not evict", func(t *testing.T) {
		lc, _ := newTestCache(t, 1)
		lc.Set(1, "a", 0)
		lc.Set(1, "b", 0)

		got, ok := lc.Get(1)
		require.True(t, ok)
		assert.Equal(t, "b", got)
		assert.Equal(t, int64(0), lc.GetStats().Evictions)
	})

	t.Run("Lookup observer sees hits and misses", func(t *testing.T) {
		var hits, misses int
		lc := NewLocalCache[string, int](LocalCacheConfig{
			DefaultTTL: time.Minute,
			OnLookup: func(hit bool) {
				if hit {
					hits++
				} else {
					misses++
				}
			},
		})
		defer lc.Stop()

		lc.Get("x")
		lc.Set("x", 1, 0)
		lc.Get("x")

		assert.Equal(t, 1, hits)
		assert.Equal(t, 1, misses)
	})

	t.Run("Cleanup sweeps expired items", func(t *testing.T) {
		lc, clock := newTestCache(t, 10)
		lc.Set(1, "a", time.Second)
		lc.Set(2, "b", time.Hour)

		clock.Advance(2 * time.Second)
		lc.cleanup()

		assert.Equal(t, int64(1), lc.GetStats().Size)
	})

	t.Run("Background sweep and repeated Stop", func(t *testing.T) {
		lc := NewLocalCache[int, string](LocalCacheConfig{
			DefaultTTL:      time.Millisecond,
			CleanupInterval: 5 * time.Millisecond,
		})
		lc.Set(1, "a", 0)

		assert.Eventually(t, func() bool {
			return lc.GetStats().Size == 0
		}, time.Second, 5*time.Millisecond)

		lc.Stop()
		lc.Stop()
	})
}
