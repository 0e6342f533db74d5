package llm

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/vertexai/genai"
)

// VertexChatProvider implements Provider over Vertex AI's Gemini models
// via cloud.google.com/go/vertexai/genai, alongside the aiplatform client
// used for embeddings and Matching Engine in internal/embed and
// internal/vectorstore.
type VertexChatProvider struct {
	client *genai.Client
	model  string
}

// NewVertexChatProvider creates a VertexChatProvider for the given GCP
// project/location, defaulting to gemini-2.0-flash.
func NewVertexChatProvider(ctx context.Context, projectID, location, model string) (*VertexChatProvider, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("llm: create vertex genai client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &VertexChatProvider{client: client, model: model}, nil
}

// Name implements Provider.
func (p *VertexChatProvider) Name() string { return "vertex" }

// IsAvailable implements Provider with a minimal, cheap generation call;
// Vertex AI has no lightweight ping endpoint analogous to Ollama's
// /api/version.
func (p *VertexChatProvider) IsAvailable(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	gm := p.client.GenerativeModel(p.model)
	gm.SetMaxOutputTokens(1)
	_, err := gm.GenerateContent(pingCtx, genai.Text("ping"))
	return err == nil
}

// Chat implements Provider.
func (p *VertexChatProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	gm := p.client.GenerativeModel(p.model)
	gm.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("llm: vertex generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &ChatResponse{ProcessingTimeMs: time.Since(start).Milliseconds()}, nil
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if s, ok := part.(genai.Text); ok {
			text += string(s)
		}
	}

	tokensUsed := 0
	if resp.UsageMetadata != nil {
		tokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &ChatResponse{
		Text:             text,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		TokensUsed:       tokensUsed,
	}, nil
}

// Close implements Provider.
func (p *VertexChatProvider) Close() error {
	return p.client.Close()
}
