package graphstore

import (
	"context"
	"fmt"

	"github.com/sola-scriptura-search-api/internal/model"
)

// EntityFullTextIndexName is the FalkorDB/RediSearch full-text index over
// Entity nodes' Arabic and English name fields, queried by SearchEntities
// via the real `db.idx.fulltext.queryNodes` procedure.
const EntityFullTextIndexName = "Entity"

// EnsureFullTextIndex creates the full-text index SearchEntities depends
// on, if it doesn't already exist. Safe to call on every startup.
func (s *FalkorDBStore) EnsureFullTextIndex(ctx context.Context) error {
	cypher := fmt.Sprintf(
		"CALL db.idx.fulltext.createNodeIndex('%s', 'name_ar', 'name_en')",
		EntityFullTextIndexName,
	)
	// FalkorDB returns an error if the index already exists; that is not a
	// failure worth surfacing.
	_, _ = s.query(ctx, cypher)
	return nil
}

// ScoredEntity pairs an Entity with its full-text match score. RawSources
// is the entity node's unparsed `sources` JSON string; graphstore never
// parses it (that single parse boundary belongs to internal/graph per the
// tagged-payload design note), it only carries it through.
type ScoredEntity struct {
	Entity     model.Entity
	Score      float64
	RawSources string
}

// SearchEntities runs a full-text match over node names and returns the
// top 5 results at or above a 0.5 score floor.
func (s *FalkorDBStore) SearchEntities(ctx context.Context, normalizedQuery string) ([]ScoredEntity, error) {
	cypher := fmt.Sprintf(`
		CALL db.idx.fulltext.queryNodes('%s', '%s') YIELD node, score
		RETURN node.id, node.type, node.name_ar, node.name_en, node.description_ar, node.description_en, node.sources, score
		ORDER BY score DESC
		LIMIT 5
	`, EntityFullTextIndexName, sanitizeString(normalizedQuery))

	rows, err := s.query(ctx, cypher)
	if err != nil {
		return nil, err
	}

	const scoreFloor = 0.5
	out := make([]ScoredEntity, 0, len(rows))
	for _, row := range rows {
		cols, ok := row.([]interface{})
		if !ok || len(cols) < 8 {
			continue
		}
		score := asFloat(cols[7])
		if score < scoreFloor {
			continue
		}
		entity := model.Entity{
			ID:            asString(cols[0]),
			Type:          model.EntityKind(asString(cols[1])),
			NameAr:        asString(cols[2]),
			NameEn:        asString(cols[3]),
			DescriptionAr: asString(cols[4]),
			DescriptionEn: asString(cols[5]),
		}
		out = append(out, ScoredEntity{Entity: entity, Score: score, RawSources: asString(cols[6])})
	}
	return out, nil
}

// RawRelationship is a relationship edge with its `sources` field left as
// the graph store's raw JSON string; internal/graph parses it at the
// single source-ref parse boundary.
type RawRelationship struct {
	SourceEntityID string
	TargetEntityID string
	Type           string
	Description    string
	RawSources     string
}

// RelatedEntities returns a hit's 1-hop out-edges: typed relationships to
// other entities, plus ayah-group mentions. Relationship
// rows and MENTIONS rows are both read from the same traversal query and
// split by edge label in Go, since FalkorDB's Cypher has no convenient
// "return two disjoint shapes" syntax.
func (s *FalkorDBStore) RelatedEntities(ctx context.Context, entityID string) ([]RawRelationship, []model.Mention, error) {
	cypher := fmt.Sprintf(`
		MATCH (e {id: '%s'})-[r]->(o)
		RETURN type(r), r.description, r.sources, r.ayah_group, r.role, r.context, e.id, o.id
	`, sanitizeString(entityID))

	rows, err := s.query(ctx, cypher)
	if err != nil {
		return nil, nil, err
	}

	var relationships []RawRelationship
	var mentions []model.Mention
	for _, row := range rows {
		cols, ok := row.([]interface{})
		if !ok || len(cols) < 8 {
			continue
		}
		edgeType := asString(cols[0])
		sourceID := asString(cols[6])
		targetID := asString(cols[7])

		if edgeType == "MENTIONS" {
			mentions = append(mentions, model.Mention{
				EntityID:  sourceID,
				AyahGroup: asString(cols[3]),
				Role:      model.MentionRole(asString(cols[4])),
				Context:   asString(cols[5]),
			})
			continue
		}

		relationships = append(relationships, RawRelationship{
			SourceEntityID: sourceID,
			TargetEntityID: targetID,
			Type:           edgeType,
			Description:    asString(cols[1]),
			RawSources:     asString(cols[2]),
		})
	}
	return relationships, mentions, nil
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return ""
	}
}

func asFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		var f float64
		_, _ = fmt.Sscanf(val, "%f", &f)
		return f
	default:
		return 0
	}
}
