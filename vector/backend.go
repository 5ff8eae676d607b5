package vector

import (
	"context"
	"math"
	"slices"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

// Backend performs similarity search over stored vectors. Implementations
// range from exact scans to approximate indexes; the store treats them
// uniformly and handles caching and degraded mode itself.
type Backend interface {
	// Name identifies the backend in logs and stats.
	Name() string

	// Search returns the chunks most similar to the query vector,
	// descending by similarity in [0,1], at most limit results, all at or
	// above minSimilarity.
	Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]*core.SimilarityMatch, error)
}

// ExactBackend scans every stored vector and scores it with cosine
// similarity. Correct and dependency-free; fine up to corpora of a few
// hundred thousand vectors.
type ExactBackend struct {
	repo storage.VectorRepository
}

var _ Backend = (*ExactBackend)(nil)

// NewExactBackend creates an exact-scan backend over a vector repository.
func NewExactBackend(repo storage.VectorRepository) *ExactBackend {
	return &ExactBackend{repo: repo}
}

// Name implements Backend.
func (b *ExactBackend) Name() string { return "exact" }

// Search implements Backend.
func (b *ExactBackend) Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]*core.SimilarityMatch, error) {
	var matches []*core.SimilarityMatch
	err := b.repo.IterateVectors(ctx, func(rec *core.VectorRecord) error {
		if len(rec.Vector) != len(query) {
			return nil
		}
		sim := cosineSimilarity(query, rec.Vector)
		if sim < minSimilarity {
			return nil
		}
		matches = append(matches, &core.SimilarityMatch{
			ChunkID:    rec.ChunkID,
			Similarity: sim,
			Model:      rec.Model,
			Provider:   rec.Provider,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b *core.SimilarityMatch) int {
		if a.Similarity != b.Similarity {
			if a.Similarity > b.Similarity {
				return -1
			}
			return 1
		}
		if a.ChunkID < b.ChunkID {
			return -1
		}
		if a.ChunkID > b.ChunkID {
			return 1
		}
		return 0
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// cosineSimilarity computes cosine similarity clamped to [0,1].
func cosineSimilarity(a, b []float32) float64 {
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
