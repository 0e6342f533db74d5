// Package graph ties the graph store's entity search and 1-hop traversal
// (internal/graphstore) to the relational store's batched source
// resolution (internal/relational), owning the single parse boundary for
// the `sources` JSON string carried on graph nodes and edges. Entities are
// held in an index-addressed arena so cyclic relationships never form
// reference cycles.
package graph

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sola-scriptura-search-api/internal/graphstore"
	"github.com/sola-scriptura-search-api/internal/model"
	"github.com/sola-scriptura-search-api/internal/relational"
)

// arena holds a request-scoped set of entities addressed by integer index
// rather than pointer, so a cyclic entity-to-entity relationship never
// produces a reference cycle in Go's memory graph.
type arena struct {
	entities []model.Entity
	byID     map[string]int
}

func newArena() *arena { return &arena{byID: make(map[string]int)} }

// intern returns entity's arena index, adding it on first sight. A hit
// that is already present (the same entity reached through two different
// relationships) is not duplicated.
func (a *arena) intern(e model.Entity) int {
	if idx, ok := a.byID[e.ID]; ok {
		return idx
	}
	idx := len(a.entities)
	a.entities = append(a.entities, e)
	a.byID[e.ID] = idx
	return idx
}

// Resolver is the knowledge-graph augmentation entry point: entity search
// against the graph store, source resolution against the relational
// store.
type Resolver struct {
	store *graphstore.FalkorDBStore
	rel   *relational.Store
}

// New creates a Resolver. Either collaborator may be nil, in which case
// the corresponding method degrades to an empty, non-erroring result.
func New(store *graphstore.FalkorDBStore, rel *relational.Store) *Resolver {
	return &Resolver{store: store, rel: rel}
}

type rawSourceRef struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
}

// parseSources decodes a graph node or edge's raw `sources` JSON string
// into SourceRefs. A malformed array, or an individual entry that fails
// its kind's grammar, is dropped silently — this is the one place untyped
// graph-store JSON is allowed to exist.
func parseSources(raw string) []model.SourceRef {
	if raw == "" {
		return nil
	}
	var entries []rawSourceRef
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	out := make([]model.SourceRef, 0, len(entries))
	for _, e := range entries {
		ref, ok := model.ParseSourceRef(model.SourceKind(e.Kind), e.Ref)
		if !ok {
			continue
		}
		out = append(out, ref)
	}
	return out
}

// entityExpansion is one SearchEntities hit's resolved 1-hop neighborhood.
type entityExpansion struct {
	relationships []model.Relationship
	mentions      []model.Mention
}

// SearchEntities runs a full-text entity lookup, 1-hop expansion per hit
// (concurrently across hits), source parsing, and returns a flattened,
// deduplicated SourceRef list for the caller's subsequent ResolveSources
// batch call. ok is false when the graph store is unconfigured or
// unreachable; the caller treats that as an optional-collaborator
// degradation, never a request failure.
func (r *Resolver) SearchEntities(ctx context.Context, normalizedQuery string) (model.GraphContext, bool) {
	if r.store == nil || !r.store.IsConnected() {
		return model.GraphContext{}, false
	}

	start := time.Now()
	scored, err := r.store.SearchEntities(ctx, normalizedQuery)
	if err != nil {
		return model.GraphContext{}, false
	}
	if len(scored) == 0 {
		return model.GraphContext{TimingMS: float64(time.Since(start).Milliseconds())}, true
	}

	expansions := make([]entityExpansion, len(scored))
	g, gctx := errgroup.WithContext(ctx)
	for i, se := range scored {
		i, se := i, se
		g.Go(func() error {
			rawRels, mentions, err := r.store.RelatedEntities(gctx, se.Entity.ID)
			if err != nil {
				// A single entity's 1-hop traversal failing degrades only
				// that entity's neighborhood, not the overall lookup.
				return nil
			}
			rels := make([]model.Relationship, 0, len(rawRels))
			for _, rr := range rawRels {
				rels = append(rels, model.Relationship{
					SourceEntityID: rr.SourceEntityID,
					TargetEntityID: rr.TargetEntityID,
					Type:           rr.Type,
					Description:    rr.Description,
					Sources:        parseSources(rr.RawSources),
				})
			}
			expansions[i] = entityExpansion{relationships: rels, mentions: mentions}
			return nil
		})
	}
	_ = g.Wait()

	resolvedEntities, allRefs := assemble(scored, expansions)

	return model.GraphContext{
		Entities:      resolvedEntities,
		AllSourceRefs: allRefs,
		TimingMS:      float64(time.Since(start).Milliseconds()),
	}, true
}

// assemble turns the scored hits and their 1-hop neighborhoods into the
// response entities plus the flattened, deduplicated SourceRef list that
// feeds the batched relational resolution.
func assemble(scored []graphstore.ScoredEntity, expansions []entityExpansion) ([]model.ResolvedEntity, []model.SourceRef) {
	a := newArena()
	resolvedEntities := make([]model.ResolvedEntity, 0, len(scored))
	var allRefs []model.SourceRef
	seenRefs := make(map[string]struct{})
	addRefs := func(refs []model.SourceRef) {
		for _, ref := range refs {
			if _, dup := seenRefs[ref.Key()]; dup {
				continue
			}
			seenRefs[ref.Key()] = struct{}{}
			allRefs = append(allRefs, ref)
		}
	}

	for i, se := range scored {
		entity := se.Entity
		if !entity.Type.Valid() {
			// An unrecognized EntityKind from the graph store is rejected
			// at the parse boundary rather than flowing into the response
			// with an unknown type.
			continue
		}
		entity.Sources = parseSources(se.RawSources)
		entity.MatchScore = se.Score
		a.intern(entity)
		addRefs(entity.Sources)

		exp := expansions[i]
		for _, rel := range exp.relationships {
			addRefs(rel.Sources)
		}
		// A mention's ayah group is itself a Quran reference, so it joins
		// the batch-resolution list alongside entity and relationship
		// sources; one that fails the grammar is dropped like any other
		// malformed ref.
		for _, m := range exp.mentions {
			if ref, ok := model.ParseSourceRef(model.SourceQuran, m.AyahGroup); ok {
				addRefs([]model.SourceRef{ref})
			}
		}
		resolvedEntities = append(resolvedEntities, model.ResolvedEntity{
			Entity:        entity,
			Relationships: exp.relationships,
			Mentions:      exp.mentions,
		})
	}

	return resolvedEntities, allRefs
}

// ResolveSources delegates to the relational store's batched, per-kind
// resolution. ok is false when no relational store is configured or the
// store is unreachable; callers then proceed with an empty resolution map
// rather than failing the request.
func (r *Resolver) ResolveSources(ctx context.Context, refs []model.SourceRef) (map[string]relational.ResolvedSource, bool) {
	if r.rel == nil {
		return map[string]relational.ResolvedSource{}, false
	}
	if len(refs) == 0 {
		return map[string]relational.ResolvedSource{}, true
	}
	resolved, err := r.rel.ResolveSources(ctx, refs)
	if err != nil {
		return map[string]relational.ResolvedSource{}, false
	}
	return resolved, true
}
