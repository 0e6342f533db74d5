package semantic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/embed"
	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/normalize"
	"github.com/sola-scriptura-search-api/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) ModelName() string { return "fake" }
func (fakeEmbedder) Embed(ctx context.Context, text string, taskType embed.TaskType) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}
func (fakeEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType embed.TaskType) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	results []vectorstore.Result
	err     error
}

func (f fakeStore) Search(ctx context.Context, collection string, req vectorstore.SearchRequest) ([]vectorstore.Result, error) {
	return f.results, f.err
}

func TestSkip_QuotedPhrase(t *testing.T) {
	q := normalize.BuildQuery(`"والعصر"`)
	assert.True(t, Skip(q))
}

func TestSkip_ShortQuery(t *testing.T) {
	q := normalize.BuildQuery("لا")
	assert.True(t, Skip(q))
}

func TestSkip_NormalQueryNotSkipped(t *testing.T) {
	q := normalize.BuildQuery("patience in hardship")
	assert.False(t, Skip(q))
}

func TestSimilarityFloor_Adaptive(t *testing.T) {
	assert.Equal(t, 0.55, SimilarityFloor(normalize.BuildQuery("ابد"), 0.60))
	assert.Equal(t, 0.60, SimilarityFloor(normalize.BuildQuery("patience in hardship today"), 0.60))
}

func TestSearcher_Search_RanksByScore(t *testing.T) {
	store := fakeStore{results: []vectorstore.Result{
		{ID: "2:255", Score: 0.9, Payload: []byte(`{"surah_number":2,"ayah_number":255}`)},
		{ID: "1:1", Score: 0.7, Payload: []byte(`{"surah_number":1,"ayah_number":1}`)},
	}}
	s := New(fakeEmbedder{}, store)
	q := normalize.BuildQuery("patience in hardship")

	list, ok := s.Search(context.Background(), q, model.CorpusQuran, 10, 0.60)
	require.True(t, ok)
	require.Len(t, list.Hits, 2)
	assert.Equal(t, "2:255", list.Hits[0].DocID)
	assert.Equal(t, 1, *list.Hits[0].SemanticRank)
	require.NotNil(t, list.Hits[0].Payload.Ayah)
	assert.Equal(t, 255, list.Hits[0].Payload.Ayah.AyahNumber)
}

func TestSearcher_Search_StoreFailureDegradesWithNotOK(t *testing.T) {
	store := fakeStore{err: errors.New("503")}
	s := New(fakeEmbedder{}, store)
	q := normalize.BuildQuery("patience in hardship")

	list, ok := s.Search(context.Background(), q, model.CorpusQuran, 10, 0.60)
	assert.False(t, ok)
	assert.Empty(t, list.Hits)
}

func TestSearcher_Search_SkipsOnQuote(t *testing.T) {
	store := fakeStore{results: []vectorstore.Result{{ID: "103:1", Score: 0.9}}}
	s := New(fakeEmbedder{}, store)
	q := normalize.BuildQuery(`"والعصر"`)

	list, ok := s.Search(context.Background(), q, model.CorpusQuran, 10, 0.60)
	assert.True(t, ok)
	assert.Empty(t, list.Hits)
}
