package chunker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/token"
)

// Boundary marks the start of a new region at a sentence index.
type Boundary struct {
	Sentence int    // index of the first sentence of the region
	Sub      bool   // region is subordinate to the preceding top-level region
	Note     string // optional annotation carried into chunk concepts
}

// Strategy detects chunk boundaries in a stream of sentences under a policy.
// Strategies only decide WHERE regions begin; budget enforcement, merging,
// overlap, and metadata assembly are the chunker's job.
type Strategy interface {
	// Name identifies the strategy in chunk metadata.
	Name() string

	// Boundary is the boundary type recorded on produced chunks.
	Boundary() core.BoundaryType

	// DetectBoundaries returns region starts in ascending order. Index 0 is
	// implied and need not be returned. Warnings report non-fatal anomalies.
	DetectBoundaries(ctx context.Context, sentences []string, cfg *Config) ([]Boundary, []string, error)
}

// Stats summarizes a chunking run.
type Stats struct {
	ChunkCount  int
	TotalTokens int
	MinTokens   int
	MaxTokens   int
	Oversized   int // chunks whose single sentence exceeded the budget
	Merged      int // regions folded into a neighbor for being under minChunkSize
}

// Result is the output of a chunking run.
type Result struct {
	Chunks   []*core.Chunk
	Stats    Stats
	Warnings []string
}

// Chunker dispatches documents to boundary strategies by content type and
// assembles their regions into chunks.
type Chunker struct {
	tokenizer  token.Tokenizer
	strategies map[core.ContentType]Strategy
	fallback   Strategy
	logger     *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// WithStrategy registers a strategy for a content type.
func WithStrategy(contentType core.ContentType, strategy Strategy) Option {
	return func(c *Chunker) error {
		if strategy == nil {
			return fmt.Errorf("%w: nil strategy for %s", ErrNoStrategy, contentType)
		}
		c.strategies[contentType] = strategy
		return nil
	}
}

// New creates a Chunker. The fixed strategy is always present as the
// fallback; other strategies are registered per content type.
func New(tokenizer token.Tokenizer, opts ...Option) (*Chunker, error) {
	if tokenizer == nil {
		return nil, ErrTokenizerRequired
	}

	c := &Chunker{
		tokenizer:  tokenizer,
		strategies: make(map[core.ContentType]Strategy),
		fallback:   NewFixedStrategy(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// StrategyFor resolves the strategy that claims a content type.
// Unclaimed types fall through to the fixed strategy.
func (c *Chunker) StrategyFor(contentType core.ContentType) Strategy {
	if s, ok := c.strategies[contentType]; ok {
		return s
	}
	return c.fallback
}

// Chunk turns a document into an ordered sequence of chunks.
//
// The config is validated first and an invalid config fails the call
// outright. An empty document yields an empty result, not an error.
// For identical (document, config) pairs the chunk boundaries and IDs are
// reproducible.
func (c *Chunker) Chunk(ctx context.Context, document string, cfg *Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	validation := cfg.Validate()
	if err := validation.Err(); err != nil {
		return nil, err
	}

	result := &Result{Warnings: validation.Warnings}

	sentences := token.SplitSentences(document)
	if len(sentences) == 0 {
		return result, nil
	}

	strategy := c.StrategyFor(cfg.ContentType)
	c.logger.Debug("chunking document",
		"doc", cfg.DocID, "strategy", strategy.Name(), "sentences", len(sentences))

	boundaries, warnings, err := strategy.DetectBoundaries(ctx, sentences, cfg)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warnings...)

	chunks, stats, warnings := c.assemble(sentences, boundaries, strategy, cfg)
	result.Chunks = chunks
	result.Stats = stats
	result.Warnings = append(result.Warnings, warnings...)

	c.logger.Debug("chunking complete",
		"doc", cfg.DocID, "chunks", stats.ChunkCount, "warnings", len(result.Warnings))

	return result, nil
}
