package directmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/normalize"
)

func TestLookup_AyatAlKursi(t *testing.T) {
	d := Get()
	q := normalize.Text("الله لا إله إلا هو الحي القيوم")
	hits := d.Lookup(q)
	require.Len(t, hits, 1)
	assert.Equal(t, "2:255", hits[0].DocID)
	assert.Equal(t, model.CorpusQuran, hits[0].Corpus)
	assert.Equal(t, 1.0, hits[0].FusedScore)
	assert.Equal(t, model.ScoreDirect, hits[0].ScoreKind)
}

func TestLookup_Miss(t *testing.T) {
	d := Get()
	assert.Nil(t, d.Lookup("not a known query"))
}

func TestLookup_ReturnsCopy(t *testing.T) {
	d := Get()
	q := normalize.Text("بسم الله")
	hits := d.Lookup(q)
	require.NotEmpty(t, hits)
	hits[0].DocID = "mutated"
	again := d.Lookup(q)
	assert.NotEqual(t, "mutated", again[0].DocID)
}
