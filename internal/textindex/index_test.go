package textindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/model"
)

func TestIndex_IndexAndSearch_Basic(t *testing.T) {
	idx, err := Open(model.CorpusQuran, "")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	docs := []Document{
		{ID: "2:255", Content: "الله لا اله الا هو الحي القيوم"},
		{ID: "1:1", Content: "بسم الله الرحمن الرحيم"},
	}
	require.NoError(t, idx.Put(context.Background(), docs))

	list, ok := idx.Search(context.Background(), "الله", SearchOptions{Limit: 10})
	require.True(t, ok)
	assert.Equal(t, model.ScoreRawBM25, list.ScoreKind)
	assert.Len(t, list.Hits, 2)
	assert.Greater(t, list.Hits[0].FusedScore, 0.0)
	require.NotNil(t, list.Hits[0].KeywordRank)
	assert.Equal(t, 1, *list.Hits[0].KeywordRank)
}

func TestIndex_Search_FoldsDiacriticsAndAlefVariants(t *testing.T) {
	idx, err := Open(model.CorpusQuran, "")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	docs := []Document{
		{ID: "1:1", Content: "إِنَّ اللَّهَ مَعَ الصَّابِرِينَ"},
	}
	require.NoError(t, idx.Put(context.Background(), docs))

	// Undiacritized, alef-folded query should still match the diacritized,
	// hamza-carrying document.
	list, ok := idx.Search(context.Background(), "ان الله مع الصابرين", SearchOptions{Limit: 10})
	require.True(t, ok)
	require.Len(t, list.Hits, 1)
	assert.Equal(t, "1:1", list.Hits[0].DocID)
}

func TestIndex_Search_DropsArabicStopWords(t *testing.T) {
	idx, err := Open(model.CorpusHadith, "")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	docs := []Document{
		{ID: "bukhari:1", Content: "الاعمال من النيات"},
	}
	require.NoError(t, idx.Put(context.Background(), docs))

	// "من" is a stop word on both sides of the analyzer: the content words
	// around it still match, and a query built only from stop words does not
	// blow up and matches nothing rather than everything.
	list, ok := idx.Search(context.Background(), "الاعمال النيات", SearchOptions{Limit: 10})
	require.True(t, ok)
	require.Len(t, list.Hits, 1)

	list, ok = idx.Search(context.Background(), "من", SearchOptions{Limit: 10})
	require.True(t, ok)
	assert.Empty(t, list.Hits)
}

func TestIndex_Search_HadithCollectionFilter(t *testing.T) {
	idx, err := Open(model.CorpusHadith, "")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	docs := []Document{
		{ID: "bukhari:1", Content: "انما الاعمال بالنيات", CollectionSlug: "bukhari"},
		{ID: "muslim:1", Content: "انما الاعمال بالنيات", CollectionSlug: "muslim"},
	}
	require.NoError(t, idx.Put(context.Background(), docs))

	list, ok := idx.Search(context.Background(), "الاعمال بالنيات", SearchOptions{
		Limit:           10,
		CollectionSlugs: []string{"bukhari"},
	})
	require.True(t, ok)
	require.Len(t, list.Hits, 1)
	assert.Equal(t, "bukhari:1", list.Hits[0].DocID)
}

func TestIndex_Search_EmptyQueryReturnsEmptyList(t *testing.T) {
	idx, err := Open(model.CorpusBook, "")
	require.NoError(t, err)
	defer func() { _ = idx.Close() }()

	list, ok := idx.Search(context.Background(), "", SearchOptions{Limit: 10})
	assert.True(t, ok)
	assert.Empty(t, list.Hits)
}

func TestIndex_Search_ClosedIndexDegradesToEmptyList(t *testing.T) {
	idx, err := Open(model.CorpusBook, "")
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	list, ok := idx.Search(context.Background(), "anything", SearchOptions{Limit: 10})
	assert.False(t, ok)
	assert.Empty(t, list.Hits)
}

func TestOpenSet_ForDispatchesByCorpus(t *testing.T) {
	set, err := OpenSet("")
	require.NoError(t, err)
	defer func() { _ = set.Close() }()

	quran, err := set.For(model.CorpusQuran)
	require.NoError(t, err)
	assert.Same(t, set.Quran, quran)

	_, err = set.For(model.Corpus("unknown"))
	assert.Error(t, err)

	assert.True(t, set.Healthy())
}
