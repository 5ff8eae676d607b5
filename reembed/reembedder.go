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
	"io"
	"time"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/vector"
)

// Config controls batch sizing and retry behavior for a full
// reembedding run.
type Config struct {
	// BatchSize is the number of chunks embedded per provider call.
	BatchSize int

	// ReportInterval controls how often progress is printed, in chunks.
	ReportInterval int

	// MaxRetries is the number of retry attempts per failed batch.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns a config suitable for most providers.
func DefaultConfig() Config {
	return Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Reembedder regenerates embeddings for every chunk in a store. It is
// used after switching embedding models or providers, when existing
// vectors no longer match the active model's output space.
type Reembedder struct {
	chunkRepo storage.ChunkRepository
	embedder  ai.Embedder
	store     *vector.Store
	config    Config
	progress  io.Writer
}

// NewReembedder creates a reembedder. Progress is written to the given
// writer; pass io.Discard to silence it.
func NewReembedder(chunkRepo storage.ChunkRepository, store *vector.Store, embedder ai.Embedder, config Config, progress io.Writer) *Reembedder {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.ReportInterval <= 0 {
		config.ReportInterval = 100
	}
	return &Reembedder{
		chunkRepo: chunkRepo,
		embedder:  embedder,
		store:     store,
		config:    config,
		progress:  progress,
	}
}

// Run reembeds every chunk in the store, batch by batch. It returns the
// number of chunks processed.
func (r *Reembedder) Run(ctx context.Context) (int, error) {
	stats, err := r.chunkRepo.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read store stats: %w", err)
	}

	tracker := NewProgressTracker(r.progress, stats.ChunkCount, r.config.ReportInterval)
	tracker.Start()

	processor := NewBatchProcessor(r.store, r.embedder, r.config.MaxRetries, r.config.RetryDelay)
	iterator := NewChunkIterator(r.chunkRepo, r.config.BatchSize)

	processed := 0
	err = iterator.ForEach(ctx, func(batch []*core.Chunk) error {
		if err := processor.Process(ctx, batch); err != nil {
			return err
		}
		processed += len(batch)
		tracker.Increment(len(batch))
		return nil
	})
	if err != nil {
		return processed, err
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Reembedded %d chunks in %s\n", processed, tracker.Elapsed().Round(time.Millisecond))
	return processed, nil
}
