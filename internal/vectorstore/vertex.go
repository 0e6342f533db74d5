package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"github.com/jmoiron/sqlx"
	"google.golang.org/api/option"
)

// VertexConfig configures a VertexStore against one deployed Matching
// Engine index. The core talks to one deployed index per collection, so a
// VertexStore wraps a map from collection name to endpoint configuration.
type VertexConfig struct {
	ProjectID            string
	Location             string
	PublicEndpointDomain string
	Collections          map[string]VertexCollection
}

// VertexCollection names the deployed index serving one corpus.
type VertexCollection struct {
	IndexEndpointID string
	DeployedIndexID string
}

// VertexStore implements Store using Vertex AI Vector Search (Matching
// Engine), one deployed index per corpus. Payload hydration is delegated
// to a Postgres lookup view in a two-step "ANN then batch-fetch" shape.
type VertexStore struct {
	cfg         VertexConfig
	matchClient *aiplatform.MatchClient
	db          *sqlx.DB
}

// NewVertexStore creates a VertexStore.
func NewVertexStore(ctx context.Context, cfg VertexConfig, db *sqlx.DB) (*VertexStore, error) {
	var endpoint string
	if cfg.PublicEndpointDomain != "" {
		endpoint = fmt.Sprintf("%s:443", cfg.PublicEndpointDomain)
	} else {
		endpoint = fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.Location)
	}
	matchClient, err := aiplatform.NewMatchClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create vertex match client: %w", err)
	}
	return &VertexStore{cfg: cfg, matchClient: matchClient, db: db}, nil
}

// Close releases the underlying gRPC connection.
func (s *VertexStore) Close() error {
	if s.matchClient == nil {
		return nil
	}
	return s.matchClient.Close()
}

// Search implements Store.
func (s *VertexStore) Search(ctx context.Context, collection string, req SearchRequest) ([]Result, error) {
	coll, ok := s.cfg.Collections[collection]
	if !ok {
		return nil, fmt.Errorf("vertex store: collection %q not configured", collection)
	}

	indexEndpoint := fmt.Sprintf("projects/%s/locations/%s/indexEndpoints/%s",
		s.cfg.ProjectID, s.cfg.Location, coll.IndexEndpointID)

	resp, err := s.matchClient.FindNeighbors(ctx, &aiplatformpb.FindNeighborsRequest{
		IndexEndpoint:   indexEndpoint,
		DeployedIndexId: coll.DeployedIndexID,
		Queries: []*aiplatformpb.FindNeighborsRequest_Query{
			{
				Datapoint:     &aiplatformpb.IndexDatapoint{FeatureVector: req.Vector},
				NeighborCount: int32(req.Limit),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("vertex find neighbors: %w", err)
	}

	if len(resp.NearestNeighbors) == 0 || len(resp.NearestNeighbors[0].Neighbors) == 0 {
		return []Result{}, nil
	}
	neighbors := resp.NearestNeighbors[0].Neighbors

	ids := make([]string, 0, len(neighbors))
	scores := make(map[string]float64, len(neighbors))
	for _, n := range neighbors {
		id := n.Datapoint.DatapointId
		score := float64(1 - n.Distance)
		if score < req.ScoreThreshold {
			continue
		}
		ids = append(ids, id)
		scores[id] = score
	}
	if len(ids) == 0 {
		return []Result{}, nil
	}

	return s.hydrate(ctx, collection, ids, scores)
}

type vertexPayloadRow struct {
	ID          string `db:"id"`
	PayloadJSON []byte `db:"payload_json"`
}

func (s *VertexStore) hydrate(ctx context.Context, collection string, ids []string, scores map[string]float64) ([]Result, error) {
	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT id, payload_json FROM %s WHERE id IN (?)", searchViewName(collection)),
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("build vertex hydration query: %w", err)
	}
	query = s.db.Rebind(query)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("hydrate vertex results: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]json.RawMessage, len(ids))
	for rows.Next() {
		var r vertexPayloadRow
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("scan vertex hydration row: %w", err)
		}
		byID[r.ID] = r.PayloadJSON
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vertex hydration rows: %w", err)
	}

	// Preserve the ANN response's relevance order, not the SQL result order.
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		payload, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, Result{ID: id, Score: scores[id], Payload: payload})
	}
	return out, nil
}
