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


package weave

import (
	"io"
	"log/slog"

	"github.com/poiesic/weave/ai"
	"github.com/poiesic/weave/ai/openai"
	"github.com/poiesic/weave/chunker"
	"github.com/poiesic/weave/ingestion"
	"github.com/poiesic/weave/reembed"
	"github.com/poiesic/weave/search"
	"github.com/poiesic/weave/storage"
	"github.com/poiesic/weave/storage/badger"
	"github.com/poiesic/weave/token"
	"github.com/poiesic/weave/vector"
)

// Store bundles the chunk store, the embedding store, and the embedding
// provider behind one handle. It is the usual entry point for embedding
// applications; the subpackages remain usable on their own.
type Store struct {
	backend          *badger.Backend
	chunkRepo        storage.ChunkRepository
	relationshipRepo storage.RelationshipRepository
	vectorRepo       storage.VectorRepository
	vectors          *vector.Store
	provider         ai.Provider
	chunker          *chunker.Chunker
	logger           *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	aiConfig  *ai.Config
	provider  ai.Provider
	tokenizer token.Tokenizer
	inMemory  bool
}

// WithAIConfig sets the embedding provider configuration. Ignored when
// WithProvider is also given.
func WithAIConfig(config *ai.Config) StoreOption {
	return func(o *storeOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects an embedding provider, replacing the default
// OpenAI-compatible one.
func WithProvider(provider ai.Provider) StoreOption {
	return func(o *storeOptions) {
		o.provider = provider
	}
}

// WithTokenizer sets the tokenizer used for chunking.
// Default is the heuristic tokenizer.
func WithTokenizer(tokenizer token.Tokenizer) StoreOption {
	return func(o *storeOptions) {
		o.tokenizer = tokenizer
	}
}

// WithInMemory opens the backend without on-disk persistence.
// Data is lost when the store is closed.
func WithInMemory() StoreOption {
	return func(o *storeOptions) {
		o.inMemory = true
	}
}

// Open opens (creating if necessary) a store at the given path.
func Open(filePath string, opts ...StoreOption) (*Store, error) {
	options := &storeOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	chunkRepo, err := badger.NewChunkRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	relationshipRepo := badger.NewRelationshipRepository(backend)
	vectorRepo := badger.NewVectorRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			chunkRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	tokenizer := options.tokenizer
	if tokenizer == nil {
		tokenizer = token.NewHeuristic()
	}
	chunkerInst, err := chunker.New(tokenizer)
	if err != nil {
		provider.Close()
		chunkRepo.Close()
		backend.Close()
		return nil, err
	}

	vectors := vector.New(vectorRepo, provider.Model(), provider.Name(),
		vector.WithBackend(vector.NewExactBackend(vectorRepo)),
		vector.WithTextSearcher(chunkRepo),
	)

	return &Store{
		backend:          backend,
		chunkRepo:        chunkRepo,
		relationshipRepo: relationshipRepo,
		vectorRepo:       vectorRepo,
		vectors:          vectors,
		provider:         provider,
		chunker:          chunkerInst,
		logger:           slog.Default(),
	}, nil
}

// Close releases the provider and the storage backend.
func (s *Store) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing embedding provider", "err", err)
	}

	if err := s.chunkRepo.Close(); err != nil {
		s.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// ChunkRepository returns the underlying chunk repository.
func (s *Store) ChunkRepository() storage.ChunkRepository {
	return s.chunkRepo
}

// RelationshipRepository returns the underlying relationship repository.
func (s *Store) RelationshipRepository() storage.RelationshipRepository {
	return s.relationshipRepo
}

// VectorStore returns the embedding store.
func (s *Store) VectorStore() *vector.Store {
	return s.vectors
}

// Chunker returns the configured chunker.
func (s *Store) Chunker() *chunker.Chunker {
	return s.chunker
}

// NewIngestionPipeline creates a pipeline that chunks, stores, links,
// and embeds documents into this store.
func (s *Store) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(s.chunkRepo, s.relationshipRepo, s.vectors, s.chunker, s.provider, opts...)
}

// NewSearchEngine creates a hybrid search engine over this store.
func (s *Store) NewSearchEngine(opts ...search.Option) (*search.Engine, error) {
	return search.NewEngine(s.chunkRepo, s.vectors, s.provider, opts...)
}

// NewReembedder creates a reembedder that regenerates every chunk's
// embedding with the active provider, writing progress to the given
// writer.
func (s *Store) NewReembedder(config reembed.Config, progress io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(s.chunkRepo, s.vectors, s.provider.Embedder(), config, progress)
}
