package storage

import (
	"context"

	"github.com/poiesic/weave/core"
)

// StoreStats summarizes the contents of a chunk store.
type StoreStats struct {
	ChunkCount        int
	DocCount          int
	RelationshipCount int
	StorageSize       int64
}

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkRepository provides durable CRUD for chunks plus the inverted text
// index. Index maintenance is the repository's responsibility: every insert
// and delete updates the index within the same transaction as the record.
type ChunkRepository interface {
	Repository

	// StoreChunk persists a single chunk and indexes its content.
	// Returns ErrDuplicateKey if a chunk with the same ID already exists.
	StoreChunk(ctx context.Context, chunk *core.Chunk) error

	// StoreChunks persists a batch of chunks atomically: either every chunk
	// in the batch persists, or none do. Any invariant violation fails the
	// whole batch.
	StoreChunks(ctx context.Context, chunks ...*core.Chunk) error

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by their IDs.
	// Returns only the chunks that exist (no error for missing chunks).
	GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error)

	// GetChunksByDoc retrieves a document's chunks in stable position order.
	GetChunksByDoc(ctx context.Context, docID string) ([]*core.Chunk, error)

	// SearchText runs a keyword query over the inverted index.
	// Results are ordered by descending relevance, ties broken by insertion
	// order. An empty result is not an error.
	SearchText(ctx context.Context, query string, limit int) ([]*core.SearchResult, error)

	// IterateChunks calls fn for every stored chunk, in no particular
	// order. Iteration stops on the first error from fn.
	IterateChunks(ctx context.Context, fn func(*core.Chunk) error) error

	// DeleteChunksByDoc removes a document's chunks, their index entries,
	// their vector records, and every relationship touching them.
	// Returns the number of chunks removed.
	DeleteChunksByDoc(ctx context.Context, docID string) (int, error)

	// Stats reports chunk, document, and relationship counts plus an
	// estimate of on-disk size.
	Stats(ctx context.Context) (*StoreStats, error)
}

// RelationshipRepository manages typed, directed edges between chunks.
type RelationshipRepository interface {
	Repository

	// StoreRelationship persists an edge. Both endpoints must exist;
	// a missing endpoint fails with ErrDanglingReference.
	StoreRelationship(ctx context.Context, rel *core.Relationship) error

	// GetRelationships returns edges whose source is the given chunk,
	// optionally filtered to the given types.
	GetRelationships(ctx context.Context, id core.ID, types ...core.RelationshipType) ([]*core.Relationship, error)
}

// VectorRepository persists embedding vectors keyed by chunk ID.
// Dimension enforcement happens at write time per (model, provider) pair.
type VectorRepository interface {
	Repository

	// PutVector stores or replaces the vector record for a chunk.
	PutVector(ctx context.Context, rec *core.VectorRecord) error

	// GetVector retrieves the vector record for a chunk.
	// Returns ErrNotFound if no vector is stored.
	GetVector(ctx context.Context, id core.ID) (*core.VectorRecord, error)

	// DeleteVector removes the vector record for a chunk.
	// Deleting a missing vector is a no-op.
	DeleteVector(ctx context.Context, id core.ID) error

	// IterateVectors calls fn for every stored vector record.
	// Iteration stops on the first error from fn.
	IterateVectors(ctx context.Context, fn func(*core.VectorRecord) error) error

	// Dimension returns the registered dimension for a (model, provider)
	// pair, or 0 when the pair has no vectors yet.
	Dimension(ctx context.Context, model, provider string) (int, error)

	// VectorStats returns the number of stored vectors and their
	// approximate serialized size in bytes.
	VectorStats(ctx context.Context) (count int, bytes int64, err error)
}
