// Package llm provides the chat-completion Provider interface shared by
// the query expander and the reranker, a plain text-in/text-out call since
// both consumers only need free-form completions.
package llm

import (
	"context"
	"errors"
)

// ErrProviderUnavailable is returned (or can be checked with errors.Is)
// when a provider cannot be reached at all (the HTTP call itself fails).
var ErrProviderUnavailable = errors.New("llm: provider unavailable")

// ChatRequest is one prompt turn. Temperature and MaxTokens are advisory —
// a provider that doesn't support one silently ignores it.
type ChatRequest struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ChatResponse is a provider's completion plus basic accounting.
type ChatResponse struct {
	Text             string
	ProcessingTimeMs int64
	TokensUsed       int
}

// Provider is implemented by every chat-completion backend (Ollama local
// models, Vertex AI Gemini).
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Close() error
}
