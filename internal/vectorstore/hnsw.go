package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWStore implements Store with an in-process, pure-Go HNSW index per
// collection. It carries no durable persistence of its own; it exists for
// local development and tests where standing up Postgres/pgvector or
// Vertex AI Vector Search is unnecessary. Vectors are normalized to unit
// length so the graph's cosine distance behaves as true cosine similarity.
type HNSWStore struct {
	mu          sync.RWMutex
	collections map[string]*hnswCollection
	dimensions  int
}

type hnswCollection struct {
	graph    *hnsw.Graph[uint64]
	idMap    map[string]uint64
	keyMap   map[uint64]string
	payloads map[string]json.RawMessage
	nextKey  uint64
}

// NewHNSWStore creates an empty HNSWStore. dimensions validates vectors
// added via Upsert; a mismatched dimension is rejected rather than silently
// truncated or padded.
func NewHNSWStore(dimensions int) *HNSWStore {
	return &HNSWStore{
		collections: make(map[string]*hnswCollection),
		dimensions:  dimensions,
	}
}

func newHNSWCollection() *hnswCollection {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return &hnswCollection{
		graph:    graph,
		idMap:    make(map[string]uint64),
		keyMap:   make(map[uint64]string),
		payloads: make(map[string]json.RawMessage),
	}
}

// Upsert inserts or replaces a document's vector and payload in collection.
// Used by the offline indexer and by tests seeding a local graph; not part
// of the Store contract the request path depends on.
func (s *HNSWStore) Upsert(collection, id string, vector []float32, payload json.RawMessage) error {
	if len(vector) != s.dimensions {
		return fmt.Errorf("hnsw upsert: expected %d dimensions, got %d", s.dimensions, len(vector))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = newHNSWCollection()
		s.collections[collection] = coll
	}

	if existingKey, exists := coll.idMap[id]; exists {
		// Lazy deletion: coder/hnsw has a known issue removing the last
		// node in the graph, so superseded entries are orphaned instead.
		delete(coll.keyMap, existingKey)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	normalizeInPlace(vec)

	key := coll.nextKey
	coll.nextKey++
	coll.graph.Add(hnsw.MakeNode(key, vec))
	coll.idMap[id] = key
	coll.keyMap[key] = id
	coll.payloads[id] = payload
	return nil
}

// Search implements Store.
func (s *HNSWStore) Search(ctx context.Context, collection string, req SearchRequest) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok || coll.graph.Len() == 0 {
		return []Result{}, nil
	}

	query := make([]float32, len(req.Vector))
	copy(query, req.Vector)
	normalizeInPlace(query)

	nodes := coll.graph.Search(query, req.Limit)
	out := make([]Result, 0, len(nodes))
	for _, node := range nodes {
		id, ok := coll.keyMap[node.Key]
		if !ok {
			continue
		}
		// CosineDistance is 1 - cos, so this recovers true cosine similarity.
		distance := coll.graph.Distance(query, node.Value)
		score := 1.0 - float64(distance)
		if score < req.ScoreThreshold {
			continue
		}
		out = append(out, Result{ID: id, Score: score, Payload: coll.payloads[id]})
	}
	return out, nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
