package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHNSWStore_SearchReturnsNearestNeighbor(t *testing.T) {
	s := NewHNSWStore(3)
	require.NoError(t, s.Upsert("quran", "2:255", []float32{1, 0, 0}, []byte(`{"surah_number":2,"ayah_number":255}`)))
	require.NoError(t, s.Upsert("quran", "1:1", []float32{0, 1, 0}, []byte(`{"surah_number":1,"ayah_number":1}`)))

	results, err := s.Search(context.Background(), "quran", SearchRequest{
		Vector: []float32{1, 0, 0}, Limit: 5, ScoreThreshold: 0,
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "2:255", results[0].ID)
}

func TestHNSWStore_ScoreThresholdFiltersResults(t *testing.T) {
	s := NewHNSWStore(2)
	require.NoError(t, s.Upsert("book", "x:1", []float32{1, 0}, nil))
	require.NoError(t, s.Upsert("book", "x:2", []float32{-1, 0}, nil))

	results, err := s.Search(context.Background(), "book", SearchRequest{
		Vector: []float32{1, 0}, Limit: 5, ScoreThreshold: 0.9,
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.9)
	}
}

func TestHNSWStore_UnknownCollectionReturnsEmpty(t *testing.T) {
	s := NewHNSWStore(2)
	results, err := s.Search(context.Background(), "missing", SearchRequest{Vector: []float32{1, 0}, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_DimensionMismatchRejected(t *testing.T) {
	s := NewHNSWStore(3)
	err := s.Upsert("quran", "1:1", []float32{1, 0}, nil)
	assert.Error(t, err)
}
