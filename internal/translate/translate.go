// Package translate attaches stored translations to final search hits: a
// read-through lookup against the relational store's translation tables
// through the in-memory translation LRU tier of the cache layer.
// Translations are presented as-stored; nothing is generated or backfilled
// on the request path.
package translate

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sola-scriptura-search-api/internal/cache"
	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/relational"
)

// Service resolves translations for quran and hadith hits. A nil relational
// store degrades every lookup to cache-only.
type Service struct {
	rel   *relational.Store
	cache *cache.LRU[model.Translation]
}

// New creates a Service over the shared translation LRU tier.
func New(rel *relational.Store, lru *cache.LRU[model.Translation]) *Service {
	return &Service{rel: rel, cache: lru}
}

// Attach fills each hit's payload Translation field in place for the quran
// and hadith corpora, and returns the translator credits for the editions
// actually used. ok is false when the relational store failed mid-lookup;
// hits already resolved from cache keep their translations either way.
func (s *Service) Attach(ctx context.Context, quranHits, hadithHits []model.Hit, quranEdition, hadithEdition string) ([]model.AuthorCredit, bool) {
	var quranFound, hadithFound map[string]model.Translation
	var quranOK, hadithOK bool
	var g errgroup.Group
	g.Go(func() error {
		quranFound, quranOK = s.lookup(ctx, model.CorpusQuran, quranHits, quranEdition)
		return nil
	})
	g.Go(func() error {
		hadithFound, hadithOK = s.lookup(ctx, model.CorpusHadith, hadithHits, hadithEdition)
		return nil
	})
	_ = g.Wait()

	for i := range quranHits {
		if t, ok := quranFound[quranHits[i].DocID]; ok && quranHits[i].Payload.Ayah != nil {
			quranHits[i].Payload.Ayah.Translation = t.Text
		}
	}
	for i := range hadithHits {
		if t, ok := hadithFound[hadithHits[i].DocID]; ok && hadithHits[i].Payload.Hadith != nil {
			hadithHits[i].Payload.Hadith.Translation = t.Text
		}
	}

	return credits(quranFound, hadithFound), quranOK && hadithOK
}

// lookup resolves edition translations for hits' canonical IDs: cache
// first, then one batched relational query for the misses.
func (s *Service) lookup(ctx context.Context, corpus model.Corpus, hits []model.Hit, edition string) (map[string]model.Translation, bool) {
	if len(hits) == 0 || edition == "" {
		return nil, true
	}

	found := make(map[string]model.Translation, len(hits))
	var misses []string
	for _, h := range hits {
		key := cache.TranslationKey(string(corpus), h.DocID, edition)
		if t, ok := s.cache.Get(key); ok {
			found[h.DocID] = t
			continue
		}
		misses = append(misses, h.DocID)
	}
	if len(misses) == 0 || s.rel == nil {
		return found, true
	}

	var fetched map[string]model.Translation
	var err error
	switch corpus {
	case model.CorpusQuran:
		fetched, err = s.rel.QuranTranslations(ctx, edition, misses)
	case model.CorpusHadith:
		fetched, err = s.rel.HadithTranslations(ctx, edition, misses)
	}
	if err != nil {
		return found, false
	}

	for id, t := range fetched {
		found[id] = t
		s.cache.Put(cache.TranslationKey(string(corpus), id, edition), t)
	}
	return found, true
}

// credits deduplicates translator names across both corpora's resolved
// translations, one AuthorCredit per (translator, edition).
func credits(maps ...map[string]model.Translation) []model.AuthorCredit {
	seen := make(map[string]struct{})
	var out []model.AuthorCredit
	for _, m := range maps {
		for _, t := range m {
			if t.Translator == "" {
				continue
			}
			key := t.Translator + "\x00" + t.EditionCode
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, model.AuthorCredit{
				CanonicalID: t.EditionCode,
				Name:        t.Translator,
				Role:        "translator",
			})
		}
	}
	return out
}
