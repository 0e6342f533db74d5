package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a thin, typed wrapper over hashicorp/golang-lru/v2, used for the
// two in-memory cache tiers (query embeddings, translation lookups).
type LRU[V any] struct {
	cache *lru.Cache[string, V]
}

// NewLRU creates an LRU cache of the given capacity.
func NewLRU[V any](capacity int) *LRU[V] {
	c, err := lru.New[string, V](capacity)
	if err != nil {
		// Only returns an error for capacity <= 0; fall back to a sane default
		// rather than propagating a constructor error through every caller.
		c, _ = lru.New[string, V](128)
	}
	return &LRU[V]{cache: c}
}

// Get returns the cached value for key, if present.
func (c *LRU[V]) Get(key string) (V, bool) {
	return c.cache.Get(key)
}

// Put stores value under key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *LRU[V]) Put(key string, value V) {
	c.cache.Add(key, value)
}

// Invalidate removes every key with the given prefix.
func (c *LRU[V]) Invalidate(prefix string) {
	for _, key := range c.cache.Keys() {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			c.cache.Remove(key)
		}
	}
}

// Len reports the number of entries currently cached.
func (c *LRU[V]) Len() int {
	return c.cache.Len()
}
