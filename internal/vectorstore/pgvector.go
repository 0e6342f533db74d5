package vectorstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
)

// PgvectorStore implements Store over Postgres/pgvector, one materialized
// view per collection. Each view is expected to expose (id, payload_json,
// embedding) columns.
type PgvectorStore struct {
	db *sqlx.DB
}

// NewPgvectorStore creates a pgvector-backed Store.
func NewPgvectorStore(db *sqlx.DB) *PgvectorStore {
	return &PgvectorStore{db: db}
}

type pgvectorRow struct {
	ID          string  `db:"id"`
	PayloadJSON []byte  `db:"payload_json"`
	Score       float64 `db:"score"`
}

// Search implements Store via a cosine-distance ORDER BY against the
// collection's search view.
func (s *PgvectorStore) Search(ctx context.Context, collection string, req SearchRequest) ([]Result, error) {
	vec := pgvector.NewVector(req.Vector)
	view := searchViewName(collection)

	query := fmt.Sprintf(`
		SELECT id, payload_json, 1 - (embedding <=> $1::vector) AS score
		FROM %s
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1::vector) >= $2
		ORDER BY embedding <=> $1::vector
		LIMIT $3
	`, view)

	rows, err := s.db.QueryxContext(ctx, query, vec, req.ScoreThreshold, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector search %s: %w", collection, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r pgvectorRow
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("scan pgvector row: %w", err)
		}
		results = append(results, Result{ID: r.ID, Score: r.Score, Payload: r.PayloadJSON})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pgvector rows: %w", err)
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// searchViewName maps a corpus collection name to its search view, e.g.
// "quran" -> "mv_search_quran".
func searchViewName(collection string) string {
	return "mv_search_" + collection
}
