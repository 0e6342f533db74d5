package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/graphstore"
	"github.com/sola-scriptura-search-api/internal/model"
)

func TestParseSources_DropsMalformedEntries(t *testing.T) {
	raw := `[
		{"kind":"quran","ref":"2:255"},
		{"kind":"quran","ref":"not-a-ref"},
		{"kind":"hadith","ref":"bukhari:1"},
		{"kind":"tafsir","ref":"ibn-kathir:2:255"},
		{"kind":"unknown","ref":"2:255"}
	]`

	refs := parseSources(raw)
	require.Len(t, refs, 3)
	assert.Equal(t, model.SourceRef{Kind: model.SourceQuran, Ref: "2:255"}, refs[0])
	assert.Equal(t, model.SourceRef{Kind: model.SourceHadith, Ref: "bukhari:1"}, refs[1])
	// URL form of the tafsir source is rewritten to the canonical one.
	assert.Equal(t, model.SourceRef{Kind: model.SourceTafsir, Ref: "ibn_kathir:2:255"}, refs[2])
}

func TestParseSources_MalformedJSONYieldsNothing(t *testing.T) {
	assert.Nil(t, parseSources(""))
	assert.Nil(t, parseSources("not json"))
	assert.Nil(t, parseSources(`{"kind":"quran"}`)) // object, not array
}

func TestSearchEntities_NilStoreDegrades(t *testing.T) {
	r := New(nil, nil)
	gctx, ok := r.SearchEntities(context.Background(), "ايه الكرسي")
	assert.False(t, ok)
	assert.Empty(t, gctx.Entities)
}

func TestResolveSources_NilRelationalDegrades(t *testing.T) {
	r := New(nil, nil)
	resolved, ok := r.ResolveSources(context.Background(), []model.SourceRef{
		{Kind: model.SourceQuran, Ref: "2:255"},
	})
	assert.False(t, ok)
	assert.Empty(t, resolved)
}

func TestArena_InternDeduplicatesByID(t *testing.T) {
	a := newArena()
	first := a.intern(model.Entity{ID: "prophet_musa"})
	second := a.intern(model.Entity{ID: "prophet_musa"})
	third := a.intern(model.Entity{ID: "firaun"})

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, third)
	assert.Len(t, a.entities, 2)
}

func TestAssemble_FlattensEntityRelationshipAndMentionSources(t *testing.T) {
	scored := []graphstore.ScoredEntity{
		{
			Entity:     model.Entity{ID: "prophet_musa", Type: model.EntityProphet, NameAr: "موسى"},
			Score:      0.9,
			RawSources: `[{"kind":"quran","ref":"28:7"}]`,
		},
	}
	expansions := []entityExpansion{
		{
			relationships: []model.Relationship{
				{
					SourceEntityID: "prophet_musa",
					TargetEntityID: "firaun",
					Type:           "CONFRONTED",
					Sources:        []model.SourceRef{{Kind: model.SourceQuran, Ref: "20:24"}},
				},
			},
			mentions: []model.Mention{
				{EntityID: "prophet_musa", AyahGroup: "2:49-50", Role: model.RolePrimary},
				{EntityID: "prophet_musa", AyahGroup: "28:7", Role: model.RoleSecondary}, // dup of entity source
				{EntityID: "prophet_musa", AyahGroup: "garbage", Role: model.RoleReferenced},
			},
		},
	}

	entities, refs := assemble(scored, expansions)
	require.Len(t, entities, 1)
	assert.Len(t, entities[0].Mentions, 3)

	keys := make([]string, len(refs))
	for i, r := range refs {
		keys[i] = r.Key()
	}
	// Entity, relationship and mention sources all flow into one
	// deduplicated list; the malformed ayah group is dropped.
	assert.Equal(t, []string{"quran:28:7", "quran:20:24", "quran:2:49-50"}, keys)
}

func TestAssemble_RejectsUnknownEntityKind(t *testing.T) {
	scored := []graphstore.ScoredEntity{
		{Entity: model.Entity{ID: "x", Type: model.EntityKind("Mystery")}},
		{Entity: model.Entity{ID: "y", Type: model.EntityPlace}},
	}
	expansions := make([]entityExpansion, 2)

	entities, _ := assemble(scored, expansions)
	require.Len(t, entities, 1)
	assert.Equal(t, "y", entities[0].Entity.ID)
}
