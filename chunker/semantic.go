package chunker

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/core"
)

// SemanticStrategy places boundaries where topical coherence between
// adjacent sentence windows drops below the similarity threshold. It calls
// the embedder synchronously during chunking; retry policy belongs to the
// caller, not here.
type SemanticStrategy struct {
	embedder ai.Embedder
}

var _ Strategy = (*SemanticStrategy)(nil)

// NewSemanticStrategy creates the semantic-boundary strategy.
func NewSemanticStrategy(embedder ai.Embedder) (*SemanticStrategy, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	return &SemanticStrategy{embedder: embedder}, nil
}

func (s *SemanticStrategy) Name() string { return "semantic" }

func (s *SemanticStrategy) Boundary() core.BoundaryType { return core.BoundarySemantic }

func (s *SemanticStrategy) DetectBoundaries(ctx context.Context, sentences []string, cfg *Config) ([]Boundary, []string, error) {
	window := cfg.SlidingWindowSize
	if len(sentences) <= window {
		return nil, nil, nil
	}

	// One window per sentence: the window ending at that sentence.
	windows := make([]string, len(sentences))
	for i := range sentences {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		windows[i] = strings.Join(sentences[lo:i+1], " ")
	}

	vectors, err := s.embedder.EmbedTexts(ctx, windows)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding windows: %w", err)
	}
	if len(vectors) != len(windows) {
		return nil, nil, fmt.Errorf("embedding result mismatch: expected %d, received %d", len(windows), len(vectors))
	}

	var boundaries []Boundary
	var warnings []string
	for i := 1; i < len(sentences); i++ {
		sim := cosineSimilarity(vectors[i-1], vectors[i])
		if sim < cfg.SimilarityThreshold {
			boundaries = append(boundaries, Boundary{Sentence: i})
		}
	}
	if len(boundaries) == 0 {
		warnings = append(warnings, "no semantic boundaries detected, falling through to size-based splitting")
	}
	return boundaries, warnings, nil
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// clamped to [0,1]. Mismatched or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
