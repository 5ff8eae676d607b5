package ingestion

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/chunker"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/vector"
)

// Pipeline orchestrates document ingestion: chunking, transactional
// storage, relationship wiring, and asynchronous embedding.
type Pipeline struct {
	chunkRepository        storage.ChunkRepository
	relationshipRepository storage.RelationshipRepository
	chunker                *chunker.Chunker
	embeddingPool          *ants.Pool
	embeddingProc          processor
	syncEmbedding          bool
	logger                 *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.embeddingPool != nil {
			p.embeddingPool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.embeddingPool = pool
		return nil
	}
}

// WithSynchronousEmbedding makes Ingest embed before returning instead of
// handing the work to the pool. Useful for one-shot commands and tests.
func WithSynchronousEmbedding() Option {
	return func(p *Pipeline) error {
		p.syncEmbedding = true
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	chunkRepository storage.ChunkRepository,
	relationshipRepository storage.RelationshipRepository,
	store *vector.Store,
	chunkerInst *chunker.Chunker,
	provider ai.Provider,
	opts ...Option,
) (*Pipeline, error) {
	if chunkRepository == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if relationshipRepository == nil {
		return nil, ErrRelationshipRepositoryRequired
	}
	if store == nil {
		return nil, ErrVectorStoreRequired
	}
	if chunkerInst == nil {
		return nil, ErrChunkerRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		chunkRepository:        chunkRepository,
		relationshipRepository: relationshipRepository,
		chunker:                chunkerInst,
		embeddingPool:          pool,
		logger:                 slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	proc, err := newEmbeddingProcessor(chunkRepository, store, provider.Embedder(), p.logger)
	if err != nil {
		p.Release()
		return nil, err
	}
	p.embeddingProc = proc

	return p, nil
}

// Result summarizes an ingestion run.
type Result struct {
	DocID    string
	ChunkIDs []core.ID
	Stats    chunker.Stats
	Warnings []string
}

// Ingest chunks a document, stores the chunks as one atomic batch, wires
// up their relationships, and schedules embedding. Embedding errors are
// logged, not returned; the chunks remain retrievable by keyword until
// their vectors arrive.
//
// Re-ingesting an unchanged document fails with storage.ErrDuplicateKey
// since chunk IDs are content-derived; use Reingest to replace.
func (p *Pipeline) Ingest(ctx context.Context, document string, cfg *chunker.Config) (*Result, error) {
	chunked, err := p.chunker.Chunk(ctx, document, cfg)
	if err != nil {
		return nil, err
	}

	result := &Result{
		DocID:    cfg.DocID,
		Stats:    chunked.Stats,
		Warnings: chunked.Warnings,
	}
	if len(chunked.Chunks) == 0 {
		return result, nil
	}

	if err := p.chunkRepository.StoreChunks(ctx, chunked.Chunks...); err != nil {
		return nil, err
	}

	if err := p.storeRelationships(ctx, chunked.Chunks); err != nil {
		return nil, err
	}

	ids := make([]core.ID, len(chunked.Chunks))
	for i, chunk := range chunked.Chunks {
		ids[i] = chunk.Id
	}
	result.ChunkIDs = ids

	if p.syncEmbedding {
		if err := p.embeddingProc.process(ctx, ids...); err != nil {
			p.logger.Error("error processing embeddings", "doc", cfg.DocID, "err", err)
		}
		return result, nil
	}

	err = p.embeddingPool.Submit(func() {
		if err := p.embeddingProc.process(context.Background(), ids...); err != nil {
			p.logger.Error("error processing embeddings", "doc", cfg.DocID, "err", err)
		}
	})
	if err != nil {
		p.logger.Error("error scheduling embeddings", "doc", cfg.DocID, "err", err)
	}

	return result, nil
}

// Reingest deletes any stored chunks for the document, then ingests it.
func (p *Pipeline) Reingest(ctx context.Context, document string, cfg *chunker.Config) (*Result, error) {
	if _, err := p.chunkRepository.DeleteChunksByDoc(ctx, cfg.DocID); err != nil {
		return nil, err
	}
	return p.Ingest(ctx, document, cfg)
}

// storeRelationships persists the edges implied by chunk metadata:
// sequence links, parent/child structure, and related references.
func (p *Pipeline) storeRelationships(ctx context.Context, chunks []*core.Chunk) error {
	for _, chunk := range chunks {
		md := chunk.Metadata

		if md.NextChunk != 0 {
			if err := p.storeEdge(ctx, chunk.Id, md.NextChunk, core.RelationNext); err != nil {
				return err
			}
		}
		if md.PreviousChunk != 0 {
			if err := p.storeEdge(ctx, chunk.Id, md.PreviousChunk, core.RelationPrevious); err != nil {
				return err
			}
		}
		if md.ParentChunk != 0 {
			if err := p.storeEdge(ctx, chunk.Id, md.ParentChunk, core.RelationParent); err != nil {
				return err
			}
		}
		for _, child := range md.ChildChunks {
			if err := p.storeEdge(ctx, chunk.Id, child, core.RelationChild); err != nil {
				return err
			}
		}
		for _, related := range md.RelatedChunks {
			if err := p.storeEdge(ctx, chunk.Id, related, core.RelationRelated); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) storeEdge(ctx context.Context, source, target core.ID, relType core.RelationshipType) error {
	return p.relationshipRepository.StoreRelationship(ctx, &core.Relationship{
		SourceChunkID: source,
		TargetChunkID: target,
		Type:          relType,
		Strength:      1.0,
	})
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}
