package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaConfig configures an OllamaEmbedder.
type OllamaConfig struct {
	Host    string
	Model   string
	Timeout time.Duration
}

// OllamaEmbedder embeds text via a local Ollama instance's /api/embed
// endpoint, used for local development and the test suite in place of a
// cloud embedding provider.
type OllamaEmbedder struct {
	host   string
	model  string
	client *http.Client
}

// NewOllamaEmbedder creates an OllamaEmbedder with sane defaults filled in.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OllamaEmbedder{
		host:   cfg.Host,
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// ModelName implements Embedder.
func (e *OllamaEmbedder) ModelName() string { return "ollama:" + e.model }

type ollamaEmbeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed implements Embedder. Ollama has no asymmetric query/document
// embedding distinction, so taskType is ignored: queries and documents are
// embedded with the same request.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	vecs, err := e.embedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

// EmbedBatch implements Embedder. Ollama's embeddings endpoint accepts one
// input per request; batching is done client-side, sequentially, since the
// corpus-ingestion caller already bounds concurrency with its own worker
// pool upstream of this package.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.embedOne(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed batch item %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *OllamaEmbedder) embedOne(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbeddingRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed error: status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed ollamaEmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if len(parsed.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embedding")
	}
	return parsed.Embeddings[0], nil
}
