package llm

import "context"

// limitedProvider bounds the number of in-flight Chat calls across every
// caller sharing the wrapped provider, so the expander and reranker
// together never exceed the LLM endpoint's concurrency budget. A caller
// whose context expires while waiting for a slot gets the context error
// back instead of queueing indefinitely.
type limitedProvider struct {
	Provider
	slots chan struct{}
}

// Limit wraps provider with a combined in-flight cap of n. n <= 0 returns
// the provider unwrapped.
func Limit(provider Provider, n int) Provider {
	if provider == nil || n <= 0 {
		return provider
	}
	return &limitedProvider{
		Provider: provider,
		slots:    make(chan struct{}, n),
	}
}

// Chat implements Provider, blocking for a slot before delegating.
func (p *limitedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-p.slots }()
	return p.Provider.Chat(ctx, req)
}
