// Package textindex implements the BM25 keyword searcher: one Bleve
// full-text index per corpus, scored with Bleve's default scoring (this
// package sets no scoring model and no k1/b values), queried through the same Arabic-folding
// analyzer used to build the index so query and document terms always land
// in the same token space.
package textindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sola-scriptura-search-api/internal/model"
)

// Index wraps one Bleve index for a single corpus.
type Index struct {
	mu     sync.RWMutex
	bleve  bleve.Index
	corpus model.Corpus
	closed bool
}

// Open opens (or creates) the on-disk index at path for corpus. An empty
// path creates an in-memory index, used for tests and ephemeral dev runs.
func Open(corpus model.Corpus, path string) (*Index, error) {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("textindex: build mapping for %s: %w", corpus, err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			return nil, fmt.Errorf("textindex: create dir for %s: %w", corpus, mkErr)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("textindex: open index for %s: %w", corpus, err)
	}

	return &Index{bleve: idx, corpus: corpus}, nil
}

// Put indexes or reindexes docs in a single batch.
func (i *Index) Put(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return fmt.Errorf("textindex: %s index is closed", i.corpus)
	}

	batch := i.bleve.NewBatch()
	for _, doc := range docs {
		bd := bleveDocument{
			Content:        doc.Content,
			CollectionSlug: doc.CollectionSlug,
			PayloadJSON:    string(doc.PayloadJSON),
		}
		if err := batch.Index(doc.ID, bd); err != nil {
			return fmt.Errorf("textindex: index document %s: %w", doc.ID, err)
		}
	}
	return i.bleve.Batch(batch)
}

// Delete removes docIDs from the index.
func (i *Index) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return fmt.Errorf("textindex: %s index is closed", i.corpus)
	}

	batch := i.bleve.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}
	return i.bleve.Batch(batch)
}

// Close releases the underlying Bleve index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return nil
	}
	i.closed = true
	return i.bleve.Close()
}

// SearchOptions narrows a Search call. CollectionSlugs is only meaningful
// for the hadith corpus; an empty slice means no filter.
type SearchOptions struct {
	Limit           int
	CollectionSlugs []string
}

// Search runs a BM25 match query over normalized query text and returns a
// RankedList scored in raw_bm25 space (never normalized here — that is the
// fusion engine's job). A query error degrades to an empty list with
// ok=false so the caller can flag the failure in debug stats; a keyword
// failure never fails the overall request.
func (i *Index) Search(ctx context.Context, queryText string, opts SearchOptions) (model.RankedList, bool) {
	list := model.RankedList{Corpus: i.corpus, ScoreKind: model.ScoreRawBM25}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return list, false
	}
	if queryText == "" {
		return list, true
	}

	matchQuery := bleve.NewMatchQuery(queryText)
	matchQuery.SetField("content")

	var q query.Query = matchQuery
	if len(opts.CollectionSlugs) > 0 {
		disjuncts := make([]query.Query, 0, len(opts.CollectionSlugs))
		for _, slug := range opts.CollectionSlugs {
			term := bleve.NewTermQuery(slug)
			term.SetField("collection_slug")
			disjuncts = append(disjuncts, term)
		}
		q = bleve.NewConjunctionQuery(matchQuery, bleve.NewDisjunctionQuery(disjuncts...))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"payload_json"}

	result, err := i.bleve.SearchInContext(ctx, req)
	if err != nil {
		return list, false
	}

	hits := make([]model.Hit, 0, len(result.Hits))
	for rank, h := range result.Hits {
		rank := rank + 1
		score := h.Score
		hit := model.Hit{
			DocID:        h.ID,
			Corpus:       i.corpus,
			KeywordScore: &score,
			KeywordRank:  &rank,
			FusedScore:   score,
			ScoreKind:    model.ScoreRawBM25,
		}
		if raw, ok := h.Fields["payload_json"].(string); ok && raw != "" {
			if payload, err := decodePayload(i.corpus, []byte(raw)); err == nil {
				hit.Payload = payload
			}
		}
		hits = append(hits, hit)
	}
	list.Hits = hits
	return list, true
}

// decodePayload parses the stored payload_json field into the tagged
// variant matching corpus, the same single-parse-boundary shape
// internal/semantic uses for vector store results.
func decodePayload(corpus model.Corpus, raw []byte) (model.HitPayload, error) {
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

// DocCount returns the number of documents currently indexed, used by the
// health check to distinguish an empty-but-reachable index from a
// misconfigured one.
func (i *Index) DocCount() uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return 0
	}
	n, _ := i.bleve.DocCount()
	return n
}
