package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaProvider implements Provider against a local Ollama server: an
// /api/version availability probe and the /api/generate request/response
// shape with an arbitrary caller-supplied prompt.
type OllamaProvider struct {
	host      string
	model     string
	keepAlive string
	client    *http.Client
}

// OllamaConfig configures an OllamaProvider.
type OllamaConfig struct {
	Host      string
	Model     string
	KeepAlive string
	Timeout   time.Duration
}

// NewOllamaProvider creates an OllamaProvider, defaulting the model to
// gpt-oss-120b and the keep-alive window to 30 minutes so repeated
// expand/rerank calls in a request burst don't pay a reload cost each
// time.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-oss-120b"
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = "30m"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &OllamaProvider{
		host:      cfg.Host,
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Name implements Provider.
func (p *OllamaProvider) Name() string { return "ollama" }

// IsAvailable implements Provider.
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/version", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type ollamaGenerateRequest struct {
	Model     string        `json:"model"`
	Prompt    string        `json:"prompt"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateResponse struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration"`

	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

// Chat implements Provider via Ollama's /api/generate endpoint.
func (p *OllamaProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	temperature := req.Temperature
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:     p.model,
		Prompt:    req.Prompt,
		Stream:    false,
		KeepAlive: p.keepAlive,
		Options:   ollamaOptions{Temperature: temperature, NumPredict: maxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("llm: build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("llm: ollama status %d: %s", resp.StatusCode, string(respBody))
	}

	var ollamaResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("llm: decode ollama response: %w", err)
	}

	return &ChatResponse{
		Text:             ollamaResp.Response,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		TokensUsed:       ollamaResp.PromptEvalCount + ollamaResp.EvalCount,
	}, nil
}

// Close implements Provider; the Ollama HTTP client holds no resources that
// need an explicit release.
func (p *OllamaProvider) Close() error { return nil }
