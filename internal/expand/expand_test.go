package expand

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sola-scriptura-search-api/internal/cache"
	"github.com/sola-scriptura-search-api/internal/llm"
	"github.com/sola-scriptura-search-api/internal/model"
)

type fakeProvider struct {
	name      string
	available bool
	response  string
	err       error
	calls     int
}

func (f *fakeProvider) Name() string                         { return f.name }
func (f *fakeProvider) IsAvailable(ctx context.Context) bool { return f.available }
func (f *fakeProvider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Text: f.response}, nil
}
func (f *fakeProvider) Close() error { return nil }

func newTestTiers(t *testing.T) *cache.Tiers {
	t.Helper()
	tiers, err := cache.NewTiers(nil, 0, 0)
	require.NoError(t, err)
	return tiers
}

func TestExpander_ParsesJSONArrayResponse(t *testing.T) {
	provider := &fakeProvider{name: "fake", available: true, response: `Sure, here you go:
["رحمة الله", "رحمة الرحمن", "آيات الرحمة"]`}
	e := New(provider, newTestTiers(t), "v1", 0)

	out, ok := e.Expand(context.Background(), model.Query{Normalized: "رحمة"})
	require.True(t, ok)
	assert.Len(t, out, 3)
	assert.Equal(t, "رحمة الله", out[0].SubQuery)
}

func TestExpander_TooFewVariantsFails(t *testing.T) {
	provider := &fakeProvider{name: "fake", available: true, response: `["only one"]`}
	e := New(provider, newTestTiers(t), "v1", 0)

	_, ok := e.Expand(context.Background(), model.Query{Normalized: "x"})
	assert.False(t, ok)
}

func TestExpander_UnavailableProviderDegrades(t *testing.T) {
	provider := &fakeProvider{name: "fake", available: false}
	e := New(provider, newTestTiers(t), "v1", 0)

	out, ok := e.Expand(context.Background(), model.Query{Normalized: "x"})
	assert.False(t, ok)
	assert.Nil(t, out)
	assert.Zero(t, provider.calls)
}

func TestExpander_MalformedJSONDegrades(t *testing.T) {
	provider := &fakeProvider{name: "fake", available: true, response: "not json at all"}
	e := New(provider, newTestTiers(t), "v1", 0)

	_, ok := e.Expand(context.Background(), model.Query{Normalized: "x"})
	assert.False(t, ok)
}

func TestExpander_ClampsToMaxExpansions(t *testing.T) {
	provider := &fakeProvider{name: "fake", available: true,
		response: `["a", "b", "c", "d", "e", "f", "g"]`}
	e := New(provider, newTestTiers(t), "v1", 0)

	out, ok := e.Expand(context.Background(), model.Query{Normalized: "x"})
	require.True(t, ok)
	assert.Len(t, out, MaxExpansions)
}
