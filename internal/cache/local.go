// Package cache keeps short-lived copies of API resources in memory.
package cache

import (
	"sync"
	"time"
)

// LocalCacheConfig defines local cache settings
type LocalCacheConfig struct {
	MaxSize         int
	DefaultTTL      time.Duration
	CleanupInterval time.Duration
	// OnLookup is called after every Get with whether it hit.
	OnLookup func(hit bool)
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// LocalCache provides an in-memory cache with TTL support
type LocalCache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]*LocalCacheItem[V]
	maxSize  int
	stats    LocalCacheStats
	stopCh   chan struct{}
	stopOnce sync.Once
	config   LocalCacheConfig
}

// LocalCacheItem represents a cached item
type LocalCacheItem[V any] struct {
	Value      V
	ExpiresAt  time.Time
	AccessedAt time.Time
	CreatedAt  time.Time
}

// LocalCacheStats tracks local cache statistics
type LocalCacheStats struct {
	Hits      int64
	Misses    int64
	Sets      int64
	Deletes   int64
	Evictions int64
	Size      int64
}

// NewLocalCache creates a new local cache. A zero CleanupInterval disables the background
// sweep; expired items are then dropped lazily on Get.
func NewLocalCache[K comparable, V any](config LocalCacheConfig) *LocalCache[K, V] {
	if config.Now == nil {
		config.Now = time.Now
	}
	lc := &LocalCache[K, V]{
		items:   make(map[K]*LocalCacheItem[V]),
		maxSize: config.MaxSize,
		stopCh:  make(chan struct{}),
		config:  config,
	}

	// Start cleanup goroutine
	if config.CleanupInterval > 0 {
		go lc.cleanupLoop(config.CleanupInterval)
	}

	return lc
}

// Get retrieves an item from local cache
func (lc *LocalCache[K, V]) Get(key K) (V, bool) {
	value, hit := lc.get(key)
	if lc.config.OnLookup != nil {
		lc.config.OnLookup(hit)
	}
	return value, hit
}

func (lc *LocalCache[K, V]) get(key K) (V, bool) {
	var zero V
	lc.mu.Lock()
	defer lc.mu.Unlock()

	item, exists := lc.items[key]
	if !exists {
		lc.stats.Misses++
		return zero, false
	}

	now := lc.config.Now()
	if now.After(item.ExpiresAt) {
		delete(lc.items, key)
		lc.stats.Evictions++
		lc.stats.Misses++
		return zero, false
	}

	item.AccessedAt = now
	lc.stats.Hits++
	return item.Value, true
}

// Set stores an item in local cache. A zero ttl uses the configured default.
func (lc *LocalCache[K, V]) Set(key K, value V, ttl time.Duration) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	// Evict if at capacity
	if _, exists := lc.items[key]; !exists && lc.maxSize > 0 && len(lc.items) >= lc.maxSize {
		lc.evictLRU()
	}

	if ttl == 0 {
		ttl = lc.config.DefaultTTL
	}
	now := lc.config.Now()

	lc.items[key] = &LocalCacheItem[V]{
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		AccessedAt: now,
		CreatedAt:  now,
	}

	lc.stats.Sets++
}

// Delete removes an item from local cache
func (lc *LocalCache[K, V]) Delete(key K) {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if _, exists := lc.items[key]; exists {
		delete(lc.items, key)
		lc.stats.Deletes++
	}
}

// Clear removes all items from local cache
func (lc *LocalCache[K, V]) Clear() {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	lc.items = make(map[K]*LocalCacheItem[V])
}

// GetStats returns cache statistics
func (lc *LocalCache[K, V]) GetStats() LocalCacheStats {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	stats := lc.stats
	stats.Size = int64(len(lc.items))
	return stats
}

// evictLRU removes the least recently used item
func (lc *LocalCache[K, V]) evictLRU() {
	var oldestKey K
	var oldestTime time.Time
	found := false

	for key, item := range lc.items {
		if !found || item.AccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.AccessedAt
			found = true
		}
	}

	if found {
		delete(lc.items, oldestKey)
		lc.stats.Evictions++
	}
}

// cleanupLoop periodically removes expired items
func (lc *LocalCache[K, V]) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lc.cleanup()
		case <-lc.stopCh:
			return
		}
	}
}

// cleanup removes expired items
func (lc *LocalCache[K, V]) cleanup() {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	now := lc.config.Now()
	for key, item := range lc.items {
		if now.After(item.ExpiresAt) {
			delete(lc.items, key)
			lc.stats.Evictions++
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (lc *LocalCache[K, V]) Stop() {
	lc.stopOnce.Do(func() { close(lc.stopCh) })
}
