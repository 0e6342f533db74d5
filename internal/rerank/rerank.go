// Package rerank implements the LLM cross-corpus reranker: it emits a
// permutation of its input candidate list and falls back to the identity
// permutation on any failure, sharing internal/llm.Provider with the
// query expander.
package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sola-scriptura-search-api/internal/llm"
	"github.com/sola-scriptura-search-api/internal/model"
)

// DefaultTimeout bounds one rerank call; a slower provider falls back to
// the identity permutation.
const DefaultTimeout = 10 * time.Second

// Candidate is one item offered to the reranker, tagged with its corpus so
// the prompt can prefix it with [QURAN]/[HADITH]/[BOOK].
type Candidate struct {
	Hit         model.Hit
	DisplayText string
}

// Reranker wraps an llm.Provider.
type Reranker struct {
	provider llm.Provider
	timeout  time.Duration
}

// New creates a Reranker.
func New(provider llm.Provider) *Reranker {
	return &Reranker{provider: provider, timeout: DefaultTimeout}
}

// Rerank returns candidates permuted by the model's judgment. On any
// failure (unavailable provider, timeout, non-permutation response) it
// returns candidates unchanged, the identity permutation.
func (r *Reranker) Rerank(ctx context.Context, q model.Query, candidates []Candidate) []Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if !r.provider.IsAvailable(callCtx) {
		return candidates
	}

	resp, err := r.provider.Chat(callCtx, llm.ChatRequest{
		Prompt:      buildPrompt(q.Normalized, candidates),
		Temperature: 0.0,
		MaxTokens:   256,
	})
	if err != nil {
		return candidates
	}

	order, ok := parsePermutation(resp.Text, len(candidates))
	if !ok {
		return candidates
	}

	out := make([]Candidate, len(candidates))
	for newPos, oldPos := range order {
		out[newPos] = candidates[oldPos]
	}
	return out
}

func tagFor(corpus model.Corpus) string {
	switch corpus {
	case model.CorpusQuran:
		return "[QURAN]"
	case model.CorpusHadith:
		return "[HADITH]"
	case model.CorpusBook:
		return "[BOOK]"
	default:
		return "[DOC]"
	}
}

func buildPrompt(normalizedQuery string, candidates []Candidate) string {
	var b strings.Builder
	b.WriteString("You are a relevance reranker for an Arabic-Islamic scripture and literature search engine.\n")
	fmt.Fprintf(&b, "Query: %s\n\n", normalizedQuery)
	b.WriteString("Candidates (0-indexed):\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s %s\n", i, tagFor(c.Hit.Corpus), c.DisplayText)
	}
	b.WriteString("\nRank these by relevance, applying this priority order:\n")
	b.WriteString("1. If the query names a specific verse or hadith, its exact source ranks first.\n")
	b.WriteString("2. Documents that directly answer a question outrank discussions of its topic.\n")
	b.WriteString("3. Primary sources outrank derivative commentary.\n")
	b.WriteString("\nRespond with ONLY a JSON array of the candidate indices in ranked order, e.g. [2,0,1]. ")
	b.WriteString("It must be a permutation of all indices, no omissions, no repeats.\n")
	return b.String()
}

// parsePermutation extracts a JSON array of indices from raw and validates
// it is a true permutation of 0..n-1 (no adds, no drops, no repeats).
func parsePermutation(raw string, n int) ([]int, bool) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start == -1 || end == -1 || end < start {
		return nil, false
	}

	var order []int
	if err := json.Unmarshal([]byte(raw[start:end+1]), &order); err != nil {
		return nil, false
	}

	if len(order) != n {
		return nil, false
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n || seen[idx] {
			return nil, false
		}
		seen[idx] = true
	}
	return order, true
}
