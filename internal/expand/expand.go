// Package expand implements LLM-driven query expansion into 3-5
// paraphrases/keyword variants, best-effort and never failing the request,
// cached durably by query fingerprint.
package expand

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sola-scriptura-search-api/internal/cache"
	"github.com/sola-scriptura-search-api/internal/llm"
	"github.com/sola-scriptura-search-api/internal/model"
)

// DefaultTimeout bounds one expansion call; a slower provider degrades to
// an empty expansion list rather than blocking the request.
const DefaultTimeout = 8 * time.Second

// MinExpansions/MaxExpansions bound the expander's output size.
const (
	MinExpansions = 3
	MaxExpansions = 5
)

// Expander wraps an llm.Provider to produce query paraphrases.
type Expander struct {
	provider      llm.Provider
	cache         *cache.Tiers
	promptVersion string
	timeout       time.Duration
}

// New creates an Expander. promptVersion is folded into the cache key so a
// prompt-template change invalidates stale cached expansions without an
// explicit purge. A non-positive timeout falls back to DefaultTimeout.
func New(provider llm.Provider, tiers *cache.Tiers, promptVersion string, timeout time.Duration) *Expander {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Expander{provider: provider, cache: tiers, promptVersion: promptVersion, timeout: timeout}
}

// Expand returns between MinExpansions and MaxExpansions paraphrases of q,
// or an empty slice (with ok=false) on timeout, parse failure, or an
// unavailable provider — expansion is an optional collaborator and must
// never throw.
func (e *Expander) Expand(ctx context.Context, q model.Query) ([]model.ExpandedQuery, bool) {
	key := cache.FingerprintKey(q.Normalized, e.provider.Name(), e.promptVersion)

	if cached, ok := e.cache.GetExpansions(key); ok {
		return cached, true
	}

	release, leader := e.cache.Locks.Do(key)
	defer release()
	if !leader {
		// A concurrent caller is already computing this fingerprint; by the
		// time we get the lock its result should be cached.
		if cached, ok := e.cache.GetExpansions(key); ok {
			return cached, true
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if !e.provider.IsAvailable(callCtx) {
		return nil, false
	}

	resp, err := e.provider.Chat(callCtx, llm.ChatRequest{
		Prompt:      buildPrompt(q.Normalized),
		Temperature: 0.7,
		MaxTokens:   512,
	})
	if err != nil {
		return nil, false
	}

	expansions, ok := parseExpansions(resp.Text)
	if !ok {
		return nil, false
	}

	_ = e.cache.PutExpansions(key, expansions)
	return expansions, true
}

func buildPrompt(normalizedQuery string) string {
	var b strings.Builder
	b.WriteString("You are a search query expansion assistant for an Arabic-Islamic scripture and literature search engine.\n")
	b.WriteString("Given the user's query, produce 3 to 5 diverse paraphrases and keyword variants that preserve the original meaning, ")
	b.WriteString("covering both literal Arabic phrasing and common alternate wordings.\n")
	b.WriteString("Respond with ONLY a JSON array of strings, no prose, no markdown fences.\n\n")
	fmt.Fprintf(&b, "Query: %s\n", normalizedQuery)
	return b.String()
}

// parseExpansions extracts a JSON string array from the model's raw text,
// tolerating a preamble/fence around the array (LLMs routinely wrap JSON in
// commentary), clamped to MinExpansions..MaxExpansions.
func parseExpansions(raw string) ([]model.ExpandedQuery, bool) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start == -1 || end == -1 || end < start {
		return nil, false
	}

	var subQueries []string
	if err := json.Unmarshal([]byte(raw[start:end+1]), &subQueries); err != nil {
		return nil, false
	}

	deduped := make([]string, 0, len(subQueries))
	seen := make(map[string]struct{}, len(subQueries))
	for _, sq := range subQueries {
		sq = strings.TrimSpace(sq)
		if sq == "" {
			continue
		}
		if _, dup := seen[sq]; dup {
			continue
		}
		seen[sq] = struct{}{}
		deduped = append(deduped, sq)
	}

	if len(deduped) < MinExpansions {
		return nil, false
	}
	if len(deduped) > MaxExpansions {
		deduped = deduped[:MaxExpansions]
	}

	out := make([]model.ExpandedQuery, len(deduped))
	for i, sq := range deduped {
		out[i] = model.ExpandedQuery{SubQuery: sq}
	}
	return out, true
}
