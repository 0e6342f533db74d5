package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/model"
)

func score(v float64) *float64 { return &v }
func rank(v int) *int          { return &v }

func TestStandard_ConfirmedDocumentGetsBoostedAndCapped(t *testing.T) {
	q := model.Query{Normalized: "رحمة", WordCount: 1}

	keyword := model.RankedList{Hits: []model.Hit{
		{DocID: "2:255", KeywordScore: score(540), KeywordRank: rank(1)},
	}}
	semantic := model.RankedList{Hits: []model.Hit{
		{DocID: "2:255", SemanticScore: score(0.99), SemanticRank: rank(1)},
	}}

	fused := Standard(q, model.CorpusQuran, keyword, semantic)
	require.Len(t, fused.Hits, 1)
	assert.Equal(t, model.ScoreFusedWeighted, fused.ScoreKind)
	assert.LessOrEqual(t, fused.Hits[0].FusedScore, 1.0)
	assert.Greater(t, fused.Hits[0].FusedScore, 0.0)
}

func TestStandard_SingleSidedDocumentKeepsItsNormalizedScore(t *testing.T) {
	q := model.Query{WordCount: 2}

	keyword := model.RankedList{Hits: []model.Hit{
		{DocID: "only-keyword", KeywordScore: score(60), KeywordRank: rank(1)},
	}}
	semantic := model.RankedList{}

	fused := Standard(q, model.CorpusHadith, keyword, semantic)
	require.Len(t, fused.Hits, 1)
	// raw_bm25=60, normK=60 -> keyword_norm = 60/120 = 0.5
	assert.InDelta(t, 0.5, fused.Hits[0].FusedScore, 1e-9)
}

func TestStandard_WeightsVaryByQueryShape(t *testing.T) {
	quoted := model.Query{QuotedPhrases: []string{"x"}, WordCount: 1}
	short := model.Query{WordCount: 2}
	long := model.Query{WordCount: 25}
	mid := model.Query{WordCount: 10}

	assert.Equal(t, weights{0.15, 0.85}, weightsFor(quoted))
	assert.Equal(t, weights{0.70, 0.30}, weightsFor(short))
	assert.Equal(t, weights{0.45, 0.55}, weightsFor(long))
	assert.Equal(t, weights{0.40, 0.60}, weightsFor(mid))
}

func TestStandard_SortsDescendingByFusedScore(t *testing.T) {
	q := model.Query{WordCount: 5}
	keyword := model.RankedList{Hits: []model.Hit{
		{DocID: "low", KeywordScore: score(6)},
		{DocID: "high", KeywordScore: score(600)},
	}}
	fused := Standard(q, model.CorpusBook, keyword, model.RankedList{})
	require.Len(t, fused.Hits, 2)
	assert.Equal(t, "high", fused.Hits[0].DocID)
	assert.Equal(t, "low", fused.Hits[1].DocID)
}

func TestRRF_CombinesOriginalAndExpandedLists(t *testing.T) {
	original := model.RankedList{Hits: []model.Hit{
		{DocID: "a"}, {DocID: "b"},
	}}
	expanded := model.RankedList{Hits: []model.Hit{
		{DocID: "b"}, {DocID: "c"},
	}}

	out := RRF(model.CorpusQuran, []WeightedList{
		{Weight: 1.0, List: original},
		{Weight: 1.0, List: expanded},
	})

	require.Len(t, out.Hits, 3)
	assert.Equal(t, model.ScoreRRF, out.ScoreKind)
	// "b" appears in both lists (rank 2 in original, rank 1 in expanded) so
	// it must outscore "a" (rank 1 only in original) and "c" (rank 2 only in
	// expanded).
	assert.Equal(t, "b", out.Hits[0].DocID)
}

func TestRRF_OrderFollowsRankNotDocID(t *testing.T) {
	original := model.RankedList{Hits: []model.Hit{
		{DocID: "zz"}, {DocID: "aa"},
	}}
	out := RRF(model.CorpusHadith, []WeightedList{{Weight: 1.0, List: original}})
	require.Len(t, out.Hits, 2)
	assert.Equal(t, "zz", out.Hits[0].DocID) // rank 1 beats rank 2
}

func TestRRF_ExactTieBreaksByOriginalRank(t *testing.T) {
	// "a" and "b" swap ranks across two equally weighted lists, so their
	// rrf sums are identical; the original query's rank decides.
	original := model.RankedList{Hits: []model.Hit{
		{DocID: "b"}, {DocID: "a"},
	}}
	expanded := model.RankedList{Hits: []model.Hit{
		{DocID: "a"}, {DocID: "b"},
	}}
	out := RRF(model.CorpusQuran, []WeightedList{
		{Weight: 1.0, List: original},
		{Weight: 1.0, List: expanded},
	})
	require.Len(t, out.Hits, 2)
	assert.Equal(t, "b", out.Hits[0].DocID)
}

func TestDedupe_KeepsStrongerFusedScore(t *testing.T) {
	list := model.RankedList{Hits: []model.Hit{
		{DocID: "x", FusedScore: 0.4},
		{DocID: "x", FusedScore: 0.9},
	}}
	out := Dedupe(list)
	require.Len(t, out.Hits, 1)
	assert.InDelta(t, 0.9, out.Hits[0].FusedScore, 1e-9)
}
