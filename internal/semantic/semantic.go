// Package semantic implements the dense-retrieval side of hybrid search:
// query embedding plus per-corpus ANN search, with a length-adaptive
// similarity floor and a quote/short-query skip gate.
package semantic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sola-scriptura-search-api/internal/embed"
	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/vectorstore"
)

// Searcher runs semantic search against one embedding provider and vector
// store.
type Searcher struct {
	embedder embed.Embedder
	store    vectorstore.Store
}

// New creates a Searcher.
func New(embedder embed.Embedder, store vectorstore.Store) *Searcher {
	return &Searcher{embedder: embedder, store: store}
}

// Skip reports whether semantic search must be bypassed entirely for q:
// a quoted phrase signals exact-string intent, and queries under 4
// non-space characters produce unreliable embeddings.
func Skip(q model.Query) bool {
	return q.HasQuote() || q.CharCount < 4
}

// SimilarityFloor chooses the similarity threshold by query length.
// baseline is the caller-supplied default (0.60 standard, 0.25 refine).
func SimilarityFloor(q model.Query, baseline float64) float64 {
	switch {
	case q.CharCount <= 3:
		return 0.55
	case q.CharCount <= 6 || q.WordCount == 1:
		return 0.45
	case q.WordCount <= 2:
		return 0.35
	default:
		return baseline
	}
}

// Search embeds the query (through the caller's cache, if embedder is a
// embed.CachedEmbedder) and queries collection with the resulting vector.
// Returns an empty RankedList, never an error, on an upstream failure —
// semantic search is an optional per-corpus collaborator — with ok=false
// so the caller can flag the degradation in debug stats.
// An intentional skip (quote gate, short query) is ok=true.
func (s *Searcher) Search(ctx context.Context, q model.Query, corpus model.Corpus, limit int, baseline float64) (model.RankedList, bool) {
	list := model.RankedList{Corpus: corpus, ScoreKind: model.ScoreCosine}
	if Skip(q) {
		return list, true
	}

	vec, err := s.embedder.Embed(ctx, q.Normalized, embed.TaskTypeQuery)
	if err != nil {
		return list, false
	}

	floor := SimilarityFloor(q, baseline)
	results, err := s.store.Search(ctx, string(corpus), vectorstore.SearchRequest{
		Vector:         vec,
		Limit:          limit,
		ScoreThreshold: floor,
	})
	if err != nil {
		return list, false
	}

	hits := make([]model.Hit, 0, len(results))
	for rank, r := range results {
		rank := rank + 1
		score := r.Score
		hit := model.Hit{
			DocID:         r.ID,
			Corpus:        corpus,
			SemanticScore: &score,
			SemanticRank:  &rank,
			FusedScore:    score,
			ScoreKind:     model.ScoreCosine,
		}
		if payload, err := decodePayload(corpus, r.Payload); err == nil {
			hit.Payload = payload
		}
		hits = append(hits, hit)
	}
	list.Hits = hits
	return list, true
}

// decodePayload parses the vector store's raw JSON payload into the tagged
// variant matching corpus; untyped payloads never flow past this function.
func decodePayload(corpus model.Corpus, raw json.RawMessage) (model.HitPayload, error) {
	if len(raw) == 0 {
		return model.HitPayload{}, nil
	}
	switch corpus {
	case model.CorpusQuran:
		var p model.QuranPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return model.HitPayload{}, err
		}
		return model.HitPayload{Ayah: &p}, nil
	case model.CorpusHadith:
		var p model.HadithPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return model.HitPayload{}, err
		}
		return model.HitPayload{Hadith: &p}, nil
	case model.CorpusBook:
		var p model.BookPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return model.HitPayload{}, err
		}
		return model.HitPayload{BookPage: &p}, nil
	default:
		return model.HitPayload{}, fmt.Errorf("unknown corpus %q", corpus)
	}
}
