package embed

import (
	"context"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// vertexBatchLimit is the maximum number of instances Vertex AI's text
// embedding models accept per Predict call.
const vertexBatchLimit = 250

// VertexConfig configures a VertexEmbedder.
type VertexConfig struct {
	ProjectID string
	Location  string
	Model     string // e.g. "gemini-embedding-001"
}

// VertexEmbedder embeds text with a Google Cloud Vertex AI text-embedding
// model, the "gemini" embeddingModel option named in the search contract.
type VertexEmbedder struct {
	cfg      VertexConfig
	client   *aiplatform.PredictionClient
	endpoint string
}

// NewVertexEmbedder creates a Vertex AI embedder.
func NewVertexEmbedder(ctx context.Context, cfg VertexConfig) (*VertexEmbedder, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("vertex embedder: project id is required")
	}
	clientEndpoint := fmt.Sprintf("%s-aiplatform.googleapis.com:443", cfg.Location)
	client, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(clientEndpoint))
	if err != nil {
		return nil, fmt.Errorf("create vertex ai client: %w", err)
	}
	endpoint := fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s",
		cfg.ProjectID, cfg.Location, cfg.Model)
	return &VertexEmbedder{cfg: cfg, client: client, endpoint: endpoint}, nil
}

// Close releases the underlying gRPC connection.
func (e *VertexEmbedder) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// ModelName implements Embedder.
func (e *VertexEmbedder) ModelName() string { return "gemini:" + e.cfg.Model }

// Embed implements Embedder.
func (e *VertexEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text}, taskType)
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("vertex embedder: no embeddings returned")
	}
	return vecs[0], nil
}

// EmbedBatch implements Embedder, chunking requests over vertexBatchLimit.
func (e *VertexEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) <= vertexBatchLimit {
		return e.embedBatch(ctx, texts, taskType)
	}
	var all [][]float32
	for i := 0; i < len(texts); i += vertexBatchLimit {
		end := min(i+vertexBatchLimit, len(texts))
		batch, err := e.embedBatch(ctx, texts[i:end], taskType)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (e *VertexEmbedder) embedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float32, error) {
	instances := make([]*structpb.Value, len(texts))
	for i, text := range texts {
		instance, err := structpb.NewStruct(map[string]interface{}{
			"content":   text,
			"task_type": string(taskType),
		})
		if err != nil {
			return nil, fmt.Errorf("build vertex instance: %w", err)
		}
		instances[i] = structpb.NewStructValue(instance)
	}

	resp, err := e.client.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:  e.endpoint,
		Instances: instances,
	})
	if err != nil {
		return nil, fmt.Errorf("vertex ai prediction: %w", err)
	}

	out := make([][]float32, len(resp.Predictions))
	for i, prediction := range resp.Predictions {
		values, err := extractEmbeddingValues(prediction)
		if err != nil {
			return nil, fmt.Errorf("prediction %d: %w", i, err)
		}
		vec := make([]float32, len(values))
		for j, v := range values {
			vec[j] = float32(v.GetNumberValue())
		}
		out[i] = vec
	}
	return out, nil
}

func extractEmbeddingValues(prediction *structpb.Value) ([]*structpb.Value, error) {
	predStruct := prediction.GetStructValue()
	if predStruct == nil {
		return nil, fmt.Errorf("unexpected prediction shape")
	}
	embField := predStruct.Fields["embeddings"]
	if embField == nil {
		return nil, fmt.Errorf("missing embeddings field")
	}
	embStruct := embField.GetStructValue()
	if embStruct == nil {
		return nil, fmt.Errorf("unexpected embeddings shape")
	}
	valuesField := embStruct.Fields["values"]
	if valuesField == nil {
		return nil, fmt.Errorf("missing values field")
	}
	list := valuesField.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("unexpected values shape")
	}
	return list.Values, nil
}
