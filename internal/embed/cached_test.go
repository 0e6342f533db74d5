package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/cache"
)

type countingEmbedder struct {
	calls int32
}

func (c *countingEmbedder) ModelName() string { return "fake-v1" }

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	atomic.AddInt32(&c.calls, 1)
	return []float32{float32(len(text)), 1, 2}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := c.Embed(ctx, t, taskType)
		out[i] = v
	}
	return out, nil
}

func TestCachedEmbedder_CachesByTextAndModel(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, cache.NewLRU[[]float32](16), cache.NewKeyedLock(4))

	v1, err := c.Embed(context.Background(), "hello", TaskTypeQuery)
	require.NoError(t, err)
	v2, err := c.Embed(context.Background(), "hello", TaskTypeQuery)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))
}

func TestCachedEmbedder_EmbedBatchPartialHit(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, cache.NewLRU[[]float32](16), cache.NewKeyedLock(4))

	_, err := c.Embed(context.Background(), "already cached", TaskTypeDocument)
	require.NoError(t, err)
	atomic.StoreInt32(&inner.calls, 0)

	out, err := c.EmbedBatch(context.Background(), []string{"already cached", "new one"}, TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.calls))
}
