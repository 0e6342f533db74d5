// Package embed produces dense vector embeddings for queries and corpus
// documents: a pluggable Embedder interface with Vertex AI and Ollama
// backends, and an LRU-caching decorator for the query path.
package embed

import "context"

// TaskType distinguishes embedding a search query from embedding a corpus
// document; providers that support asymmetric embeddings (Vertex AI's
// text-embedding models) use it to pick the right instruction prefix.
type TaskType string

const (
	TaskTypeQuery    TaskType = "RETRIEVAL_QUERY"
	TaskTypeDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// Embedder produces dense vector embeddings for text.
type Embedder interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error)
	// EmbedBatch returns one embedding per input text, in the same order.
	EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error)
	// ModelName identifies the embedding model, used as part of cache keys.
	ModelName() string
}
