// Package ingestion provides pipeline orchestration for turning documents
// into stored, linked, and embedded chunks.
//
// The Pipeline type manages the ingestion workflow:
//   - Chunking the document with the configured strategy
//   - Storing the chunk batch atomically
//   - Persisting sequence, hierarchy, and related-chunk edges
//   - Generating embeddings asynchronously on a worker pool
//
// Embedding failures are logged but do not fail the ingestion; the chunks
// stay searchable through the text index until their vectors arrive.
package ingestion
