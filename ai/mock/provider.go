package mock

import (
	"github.com/poiesic/weave/ai"
)

// MockProvider is a test double for ai.Provider backed by MockEmbedder.
type MockProvider struct {
	embedder *MockEmbedder
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a provider with a default deterministic embedder.
func NewMockProvider() *MockProvider {
	return &MockProvider{embedder: NewMockEmbedder()}
}

// NewMockProviderWithDimension creates a provider whose embedder produces
// vectors of the given dimension.
func NewMockProviderWithDimension(dim int) *MockProvider {
	return &MockProvider{embedder: NewMockEmbedderWithDimension(dim)}
}

// Embedder returns the mock embedding service.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// GetMockEmbedder returns the concrete embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// Model returns the mock model identifier.
func (p *MockProvider) Model() string { return "mock-embedder" }

// Name returns the provider identifier.
func (p *MockProvider) Name() string { return "mock" }

// Close is a no-op.
func (p *MockProvider) Close() error { return nil }
