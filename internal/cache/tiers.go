package cache

import (
	"encoding/json"

	"github.com/sola-scriptura-search-api/internal/model"
)

// Tiers bundles the process-wide cache tiers (query embeddings,
// translations, expansions, offline enrichments) plus the single-flight
// lock shared by any read-through tier.
type Tiers struct {
	Embeddings   *LRU[[]float32]
	Translations *LRU[model.Translation]
	Expansions   *Bucket
	Enrichments  *Bucket
	Locks        *KeyedLock
}

// NewTiers wires the in-memory tiers and the two durable tiers against an
// already-open Durable store. Non-positive capacities fall back to the
// documented defaults (10,000 embeddings, 1,000 translations). durable may
// be nil, in which case the expansion and enrichment tiers degrade to
// always-miss (matching the "never block the request on the cache" policy
// for an optional collaborator).
func NewTiers(durable *Durable, embeddingCap, translationCap int) (*Tiers, error) {
	if embeddingCap <= 0 {
		embeddingCap = 10_000
	}
	if translationCap <= 0 {
		translationCap = 1_000
	}
	t := &Tiers{
		Embeddings:   NewLRU[[]float32](embeddingCap),
		Translations: NewLRU[model.Translation](translationCap),
		Locks:        NewKeyedLock(16),
	}
	if durable == nil {
		return t, nil
	}
	var err error
	t.Expansions, err = durable.Bucket("expansions")
	if err != nil {
		return nil, err
	}
	t.Enrichments, err = durable.Bucket("enrichments")
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetExpansions reads a cached expansion array for key, if present.
func (t *Tiers) GetExpansions(key string) ([]model.ExpandedQuery, bool) {
	if t.Expansions == nil {
		return nil, false
	}
	raw, ok := t.Expansions.Get(key)
	if !ok {
		return nil, false
	}
	var out []model.ExpandedQuery
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// PutExpansions durably stores an expansion array under key.
func (t *Tiers) PutExpansions(key string, expansions []model.ExpandedQuery) error {
	if t.Expansions == nil {
		return nil
	}
	raw, err := json.Marshal(expansions)
	if err != nil {
		return err
	}
	return t.Expansions.Put(key, raw)
}

// GetEnrichment reads a raw offline-computed enrichment payload for key.
func (t *Tiers) GetEnrichment(key string) ([]byte, bool) {
	if t.Enrichments == nil {
		return nil, false
	}
	return t.Enrichments.Get(key)
}
