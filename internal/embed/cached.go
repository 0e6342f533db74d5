package embed

import (
	"context"

	"github.com/sola-scriptura-search-api/internal/cache"
)

// CachedEmbedder wraps an Embedder with the query-embedding LRU tier:
// cache key is hash(normalized_query, embedding_model_id, task_type), read-through
// misses are serialized per key so concurrent requests for the same query
// trigger at most one upstream embedding call.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.LRU[[]float32]
	locks *cache.KeyedLock
}

// NewCachedEmbedder wraps inner with the given LRU tier and per-key lock.
// Both are shared, process-wide instances from cache.Tiers.
func NewCachedEmbedder(inner Embedder, lru *cache.LRU[[]float32], locks *cache.KeyedLock) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: lru, locks: locks}
}

// ModelName implements Embedder, delegating to the wrapped embedder.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) key(text string, taskType TaskType) string {
	return cache.FingerprintKey(text, c.inner.ModelName(), string(taskType))
}

// Embed implements Embedder with read-through caching.
func (c *CachedEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	key := c.key(text, taskType)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	release, leader := c.locks.Do(key)
	defer release()
	if !leader {
		if vec, ok := c.cache.Get(key); ok {
			return vec, nil
		}
		// The leader's compute failed before populating the cache; fall
		// through to computing it ourselves rather than blocking forever.
	}

	vec, err := c.inner.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, vec)
	return vec, nil
}

// EmbedBatch implements Embedder, checking the cache per text and only
// calling the inner embedder for the uncached subset.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	var misses []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.Get(c.key(text, taskType)); ok {
			out[i] = vec
			continue
		}
		misses = append(misses, text)
		missIdx = append(missIdx, i)
	}

	if len(misses) == 0 {
		return out, nil
	}

	computed, err := c.inner.EmbedBatch(ctx, misses, taskType)
	if err != nil {
		return nil, err
	}
	for j, idx := range missIdx {
		out[idx] = computed[j]
		c.cache.Put(c.key(texts[idx], taskType), computed[j])
	}
	return out, nil
}
