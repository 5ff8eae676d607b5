// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/vector"
)

// BatchProcessor embeds batches of chunks and writes the resulting
// vectors to a vector store. Transient embedding failures are retried
// with exponential backoff; the store itself never retries.
type BatchProcessor struct {
	embedder       ai.Embedder
	store          *vector.Store
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a batch processor.
func NewBatchProcessor(store *vector.Store, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		embedder:       embedder,
		store:          store,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the given chunks and upserts their vectors in a single
// batch. Embeddings are normalized to unit length before storage.
func (b *BatchProcessor) Process(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var embeddings [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var embedErr error
		embeddings, embedErr = b.embedder.EmbedTexts(ctx, texts)
		return embedErr
	}, b.maxRetries, b.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to embed batch of %d chunks: %w", len(chunks), err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	vecs := make(map[core.ID][]float32, len(chunks))
	for i, chunk := range chunks {
		vecs[chunk.Id] = NormalizeVector(embeddings[i])
	}

	if err := b.store.UpsertBatch(ctx, vecs); err != nil {
		return fmt.Errorf("failed to store batch of %d vectors: %w", len(vecs), err)
	}

	return nil
}
