// Package reembed re-embeds the stored chunk corpus against a new or
// updated embedding model.
//
// The stores themselves never retry; all retry policy lives here, at the
// orchestration layer, as exponential backoff around the embedding calls.
// The package supports batch processing, progress reporting, and vector
// normalization so replaced embeddings stay compatible with cosine
// similarity search.
package reembed
