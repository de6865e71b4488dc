// Package cache wraps dgraph-io/ristretto as a typed in-process cache.
// Every entry costs 1, so MaxCost is a bound on the number of entries.
package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a bounded TTL cache keyed by K.
type Cache[K ristretto.Key, V any] struct {
	c   *ristretto.Cache[K, V]
	ttl time.Duration
}

// New creates a cache holding at most maxEntries values for ttl each.
func New[K ristretto.Key, V any](maxEntries int64, ttl time.Duration) (*Cache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("cache size must be positive, got %d", maxEntries)
	}
	c, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters:        maxEntries * 10, // ~10x expected items
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Cache[K, V]{c: c, ttl: ttl}, nil
}

// Get retrieves a value from the cache.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	return c.c.Get(key)
}

// Set stores a value and waits until it is visible to Get. Ristretto may
// still drop the entry under admission pressure.
func (c *Cache[K, V]) Set(key K, value V) {
	c.c.SetWithTTL(key, value, 1, c.ttl)
	c.c.Wait()
}

// Delete removes a value from the cache.
func (c *Cache[K, V]) Delete(key K) {
	c.c.Del(key)
}

// Close shuts down the cache and releases resources.
func (c *Cache[K, V]) Close() {
	c.c.Close()
}
