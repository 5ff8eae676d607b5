package search

import "errors"

var (
	// ErrChunkRepositoryRequired indicates a nil chunk repository.
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrVectorStoreRequired indicates a nil vector store.
	ErrVectorStoreRequired = errors.New("vector store is required")

	// ErrEmbedderRequired indicates a nil embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmptyQuery indicates a blank query string.
	ErrEmptyQuery = errors.New("query must not be empty")

	// ErrInvalidWeights indicates negative or all-zero score weights.
	ErrInvalidWeights = errors.New("score weights must be non-negative and not all zero")
)
