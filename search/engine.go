package search

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/vector"
)

// Mode restricts which retrieval paths a query exercises.
type Mode int

const (
	// ModeHybrid fuses keyword and semantic scores (the default).
	ModeHybrid Mode = iota
	// ModeKeyword searches the inverted text index only; the query is
	// never embedded.
	ModeKeyword
	// ModeVector searches the embedding store only; the text index is
	// never consulted.
	ModeVector
)

const (
	// DefaultLimit caps results when the caller doesn't.
	DefaultLimit = 10
	// DefaultSimilarityThreshold filters weak semantic matches.
	DefaultSimilarityThreshold = 0.60
	// DefaultVectorWeight is the semantic share of a hybrid score.
	DefaultVectorWeight = 0.6
	// DefaultTextWeight is the keyword share of a hybrid score.
	DefaultTextWeight = 0.4

	// candidateMultiplier over-fetches each side before fusion so a hit
	// ranked just past the limit on one side can still win overall.
	candidateMultiplier = 2
)

// Options controls a single query.
type Options struct {
	// Limit is the maximum number of results (DefaultLimit when <= 0).
	Limit int
	// Mode restricts the retrieval paths.
	Mode Mode
	// SimilarityThreshold filters semantic matches
	// (DefaultSimilarityThreshold when 0).
	SimilarityThreshold float64
	// VectorWeight and TextWeight scale the two score contributions.
	// When both are zero the defaults apply.
	VectorWeight float64
	TextWeight   float64
}

// Engine runs hybrid queries over the chunk store and the embedding store.
// It holds no per-query state; a single Engine is safe for concurrent use.
type Engine struct {
	chunks   storage.ChunkRepository
	vectors  *vector.Store
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a new search engine.
func NewEngine(
	chunks storage.ChunkRepository,
	vectors *vector.Store,
	provider ai.Provider,
	opts ...Option,
) (*Engine, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorStoreRequired
	}
	if provider == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Engine{
		chunks:   chunks,
		vectors:  vectors,
		embedder: provider.Embedder(),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Query runs a search and returns ranked results.
func (e *Engine) Query(ctx context.Context, query string, opts Options) ([]*core.SearchResult, error) {
	return e.QueryWithMonitor(ctx, query, opts, nil)
}

// QueryWithMonitor runs a search with stage callbacks.
//
// Keyword and semantic sub-searches run concurrently; they touch disjoint
// indexes. Keyword scores are min-max normalized per query, similarities
// are already in [0,1], and the final score is
// vectorWeight*similarity + textWeight*normalizedTextScore. A semantic
// side that reports vector.ErrSemanticUnavailable degrades a hybrid query
// to keyword-only scoring rather than failing it.
func (e *Engine) QueryWithMonitor(ctx context.Context, query string, opts Options, monitor Monitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.SimilarityThreshold == 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.VectorWeight == 0 && opts.TextWeight == 0 {
		opts.VectorWeight = DefaultVectorWeight
		opts.TextWeight = DefaultTextWeight
	}
	if opts.VectorWeight < 0 || opts.TextWeight < 0 {
		return nil, ErrInvalidWeights
	}

	monitor.Start(query)
	candidates := opts.Limit * candidateMultiplier

	var (
		textResults []*core.SearchResult
		matches     []*core.SimilarityMatch
		degraded    bool
	)

	group, gctx := errgroup.WithContext(ctx)
	if opts.Mode != ModeVector {
		group.Go(func() error {
			var err error
			textResults, err = e.chunks.SearchText(gctx, query, candidates)
			return err
		})
	}
	if opts.Mode != ModeKeyword {
		group.Go(func() error {
			embedding, err := e.embedder.EmbedText(gctx, query)
			if err != nil {
				return err
			}
			found, err := e.vectors.Search(gctx, embedding, candidates, opts.SimilarityThreshold)
			if err != nil {
				if errors.Is(err, vector.ErrSemanticUnavailable) && opts.Mode == ModeHybrid {
					degraded = true
					return nil
				}
				return err
			}
			matches = found
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if degraded {
		e.logger.Warn("semantic search unavailable, falling back to keyword scoring", "query", query)
		monitor.SemanticDegraded()
	}

	keywordIds := make([]core.ID, 0, len(textResults))
	for _, result := range textResults {
		keywordIds = append(keywordIds, result.Chunk.Id)
	}
	monitor.AfterKeywordSearch(keywordIds)

	vectorIds := make([]core.ID, 0, len(matches))
	for _, match := range matches {
		vectorIds = append(vectorIds, match.ChunkID)
	}
	monitor.AfterVectorSearch(vectorIds)

	results, err := e.fuse(ctx, textResults, matches, opts, monitor)
	if err != nil {
		return nil, err
	}
	monitor.Finish(results)
	return results, nil
}

// fuse merges the two candidate sets by chunk ID, summing weighted
// contributions, and resolves chunks the keyword side didn't return.
func (e *Engine) fuse(ctx context.Context, textResults []*core.SearchResult, matches []*core.SimilarityMatch, opts Options, monitor Monitor) ([]*core.SearchResult, error) {
	scores := make(map[core.ID]float64)
	chunks := make(map[core.ID]*core.Chunk)

	for id, norm := range normalizeScores(textResults) {
		scores[id] = opts.TextWeight * norm
	}
	for _, result := range textResults {
		chunks[result.Chunk.Id] = result.Chunk
	}

	var missing []core.ID
	for _, match := range matches {
		scores[match.ChunkID] += opts.VectorWeight * match.Similarity
		if _, ok := chunks[match.ChunkID]; !ok {
			missing = append(missing, match.ChunkID)
		}
	}

	if len(missing) > 0 {
		fetched, err := e.chunks.GetChunks(ctx, missing...)
		if err != nil {
			return nil, err
		}
		monitor.AfterChunkRetrieval(fetched)
		for _, chunk := range fetched {
			chunks[chunk.Id] = chunk
		}
	}

	results := make([]*core.SearchResult, 0, len(scores))
	for id, score := range scores {
		chunk, ok := chunks[id]
		if !ok {
			// A vector hit whose chunk vanished between the sub-search
			// and resolution; skip rather than return a hollow result.
			e.logger.Debug("dropping match without a backing chunk", "chunkID", id)
			continue
		}
		results = append(results, &core.SearchResult{Chunk: chunk, Score: score})
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Chunk.Seq < b.Chunk.Seq {
			return -1
		}
		if a.Chunk.Seq > b.Chunk.Seq {
			return 1
		}
		return 0
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results, nil
}

// normalizeScores min-max rescales keyword scores to [0,1].
// A single distinct score maps to 1 so a lone strong match isn't zeroed.
func normalizeScores(results []*core.SearchResult) map[core.ID]float64 {
	if len(results) == 0 {
		return nil
	}
	minScore := results[0].Score
	maxScore := results[0].Score
	for _, result := range results[1:] {
		if result.Score < minScore {
			minScore = result.Score
		}
		if result.Score > maxScore {
			maxScore = result.Score
		}
	}

	normalized := make(map[core.ID]float64, len(results))
	span := maxScore - minScore
	for _, result := range results {
		if span == 0 {
			normalized[result.Chunk.Id] = 1
		} else {
			normalized[result.Chunk.Id] = (result.Score - minScore) / span
		}
	}
	return normalized
}
