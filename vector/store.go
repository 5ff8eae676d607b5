package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

const (
	// DefaultVectorWeight is the semantic share of a hybrid score.
	DefaultVectorWeight = 0.6
	// DefaultTextWeight is the keyword share of a hybrid score.
	DefaultTextWeight = 0.4
	// DefaultHybridLimit caps hybrid results when the caller doesn't.
	DefaultHybridLimit = 10
)

// TextSearcher is the keyword-search capability HybridSearch needs.
// storage.ChunkRepository satisfies it.
type TextSearcher interface {
	SearchText(ctx context.Context, query string, limit int) ([]*core.SearchResult, error)
}

// Store is the embedding store: durable vectors plus similarity search
// with a bounded result cache. Vectors are written for a single
// (model, provider) pair fixed at construction; the repository enforces
// the pair's dimension from the first write onward.
type Store struct {
	repo     storage.VectorRepository
	backend  Backend
	text     TextSearcher
	cache    *resultCache
	model    string
	provider string
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBackend sets the similarity search backend. Without one the store
// still persists vectors but Search reports ErrSemanticUnavailable.
func WithBackend(backend Backend) Option {
	return func(s *Store) { s.backend = backend }
}

// WithTextSearcher enables HybridSearch's keyword side.
func WithTextSearcher(text TextSearcher) Option {
	return func(s *Store) { s.text = text }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithCacheSize bounds the result cache entry count.
func WithCacheSize(size int) Option {
	return func(s *Store) { s.cache = newResultCache(size) }
}

// New creates a Store over a vector repository for one model pair.
func New(repo storage.VectorRepository, model, provider string, opts ...Option) *Store {
	s := &Store{
		repo:     repo,
		cache:    newResultCache(DefaultCacheSize),
		model:    model,
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upsert stores or replaces the vector for a chunk and invalidates the
// result cache before returning.
func (s *Store) Upsert(ctx context.Context, chunkID core.ID, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: chunk %s", ErrEmptyVector, chunkID)
	}
	rec := &core.VectorRecord{
		ChunkID:    chunkID,
		Vector:     vec,
		Model:      s.model,
		Provider:   s.provider,
		Dimensions: len(vec),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.PutVector(ctx, rec); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

// UpsertBatch stores vectors for multiple chunks, stopping at the first
// failure. The cache is invalidated once, after the writes.
func (s *Store) UpsertBatch(ctx context.Context, vecs map[core.ID][]float32) error {
	for chunkID, vec := range vecs {
		if len(vec) == 0 {
			return fmt.Errorf("%w: chunk %s", ErrEmptyVector, chunkID)
		}
		rec := &core.VectorRecord{
			ChunkID:    chunkID,
			Vector:     vec,
			Model:      s.model,
			Provider:   s.provider,
			Dimensions: len(vec),
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.repo.PutVector(ctx, rec); err != nil {
			s.cache.invalidate()
			return err
		}
	}
	s.cache.invalidate()
	return nil
}

// Search returns the most similar chunks to the query vector, descending
// by similarity. Without a configured backend it returns
// ErrSemanticUnavailable so callers can degrade to keyword search.
func (s *Store) Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]*core.SimilarityMatch, error) {
	if s.backend == nil {
		return nil, ErrSemanticUnavailable
	}
	if len(query) == 0 {
		return nil, ErrEmptyVector
	}

	sig := querySignature(query, limit, minSimilarity)
	if matches, ok := s.cache.get(sig); ok {
		return matches, nil
	}

	gen := s.cache.generation()
	matches, err := s.backend.Search(ctx, query, limit, minSimilarity)
	if err != nil {
		return nil, err
	}
	s.cache.put(sig, matches, gen)
	return matches, nil
}

// Delete removes a chunk's vector and invalidates the result cache.
// Deleting a missing vector is a no-op.
func (s *Store) Delete(ctx context.Context, chunkID core.ID) error {
	if err := s.repo.DeleteVector(ctx, chunkID); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

// HybridOptions controls HybridSearch scoring.
type HybridOptions struct {
	Limit int
	// MinSimilarity pre-filters the semantic side before fusion.
	MinSimilarity float64
	// MinScore drops entries whose combined score falls below it.
	MinScore     float64
	VectorWeight float64
	TextWeight   float64
}

// HybridResult is a hybrid hit with its score breakdown.
type HybridResult struct {
	ChunkID     core.ID
	Score       float64
	VectorScore float64
	TextScore   float64
}

// HybridSearch fuses similarity and keyword scores:
// score = vectorWeight*similarity + textWeight*normalizedTextScore.
// Keyword scores are min-max normalized per query; similarities are
// already in [0,1]. When the semantic side is unavailable the keyword
// side alone scores the results.
func (s *Store) HybridSearch(ctx context.Context, queryText string, queryVec []float32, opts HybridOptions) ([]*HybridResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultHybridLimit
	}
	if opts.VectorWeight == 0 && opts.TextWeight == 0 {
		opts.VectorWeight = DefaultVectorWeight
		opts.TextWeight = DefaultTextWeight
	}

	merged := make(map[core.ID]*HybridResult)

	matches, err := s.Search(ctx, queryVec, opts.Limit*2, opts.MinSimilarity)
	if err != nil {
		if !errors.Is(err, ErrSemanticUnavailable) {
			return nil, err
		}
		s.logger.Warn("semantic search unavailable, scoring by keywords only")
	}
	for _, match := range matches {
		merged[match.ChunkID] = &HybridResult{
			ChunkID:     match.ChunkID,
			VectorScore: match.Similarity,
		}
	}

	if s.text != nil && queryText != "" {
		textResults, err := s.text.SearchText(ctx, queryText, opts.Limit*2)
		if err != nil {
			return nil, err
		}
		for _, result := range textResults {
			hit, ok := merged[result.Chunk.Id]
			if !ok {
				hit = &HybridResult{ChunkID: result.Chunk.Id}
				merged[result.Chunk.Id] = hit
			}
			hit.TextScore = result.Score
		}
		normalizeTextScores(merged)
	}

	results := make([]*HybridResult, 0, len(merged))
	for _, hit := range merged {
		hit.Score = opts.VectorWeight*hit.VectorScore + opts.TextWeight*hit.TextScore
		if hit.Score < opts.MinScore {
			continue
		}
		results = append(results, hit)
	}
	slices.SortFunc(results, func(a, b *HybridResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
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
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// normalizeTextScores rescales raw TF-IDF scores to [0,1] by min-max.
// A single distinct score maps to 1.
func normalizeTextScores(merged map[core.ID]*HybridResult) {
	minScore := math.Inf(1)
	maxScore := math.Inf(-1)
	any := false
	for _, hit := range merged {
		if hit.TextScore == 0 {
			continue
		}
		any = true
		if hit.TextScore < minScore {
			minScore = hit.TextScore
		}
		if hit.TextScore > maxScore {
			maxScore = hit.TextScore
		}
	}
	if !any {
		return
	}
	span := maxScore - minScore
	for _, hit := range merged {
		if hit.TextScore == 0 {
			continue
		}
		if span == 0 {
			hit.TextScore = 1
		} else {
			hit.TextScore = (hit.TextScore - minScore) / span
		}
	}
}

// Stats summarizes the store.
type Stats struct {
	TotalVectors int
	IndexSize    int64
	CacheHitRate float64
	Backend      string
}

// Stats reports vector count, serialized index size, and cache hit rate.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	count, size, err := s.repo.VectorStats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		TotalVectors: count,
		IndexSize:    size,
		CacheHitRate: s.cache.hitRate(),
	}
	if s.backend != nil {
		stats.Backend = s.backend.Name()
	}
	return stats, nil
}
