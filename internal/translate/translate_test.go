package translate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/cache"
	"github.com/sola-scriptura-search-api/internal/model"
)

func TestAttach_ResolvesFromCacheWithoutStore(t *testing.T) {
	lru := cache.NewLRU[model.Translation](16)
	lru.Put(cache.TranslationKey("quran", "2:255", "eng-hilali"), model.Translation{
		CanonicalID: "2:255",
		Text:        "Allah - there is no deity except Him, the Ever-Living",
		Translator:  "Hilali-Khan",
		EditionCode: "eng-hilali",
	})
	svc := New(nil, lru)

	quranHits := []model.Hit{
		{DocID: "2:255", Corpus: model.CorpusQuran, Payload: model.HitPayload{Ayah: &model.QuranPayload{SurahNumber: 2, AyahNumber: 255}}},
		{DocID: "1:1", Corpus: model.CorpusQuran, Payload: model.HitPayload{Ayah: &model.QuranPayload{SurahNumber: 1, AyahNumber: 1}}},
	}

	authors, ok := svc.Attach(context.Background(), quranHits, nil, "eng-hilali", "eng-hilali")
	assert.True(t, ok)

	assert.Contains(t, quranHits[0].Payload.Ayah.Translation, "Ever-Living")
	// No stored translation for 1:1 in this edition; presented as-stored
	// means absent, not generated.
	assert.Empty(t, quranHits[1].Payload.Ayah.Translation)

	require.Len(t, authors, 1)
	assert.Equal(t, "Hilali-Khan", authors[0].Name)
	assert.Equal(t, "translator", authors[0].Role)
}

func TestAttach_EmptyEditionIsANoOp(t *testing.T) {
	svc := New(nil, cache.NewLRU[model.Translation](16))
	hadithHits := []model.Hit{
		{DocID: "bukhari:1", Corpus: model.CorpusHadith, Payload: model.HitPayload{Hadith: &model.HadithPayload{CollectionSlug: "bukhari", HadithNumber: "1"}}},
	}

	authors, ok := svc.Attach(context.Background(), nil, hadithHits, "", "")
	assert.True(t, ok)
	assert.Empty(t, authors)
	assert.Empty(t, hadithHits[0].Payload.Hadith.Translation)
}
