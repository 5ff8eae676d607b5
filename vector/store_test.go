package vector

import (
	"context"
	"sync"
	"testing"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
	badgerstore "github.com/poiesic/weave/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, storage.ChunkRepository) {
	t.Helper()
	chunkRepo, _, vecRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunkRepo.Close()
		backend.Close()
	})

	opts = append([]Option{WithBackend(NewExactBackend(vecRepo))}, opts...)
	return New(vecRepo, "test-model", "test", opts...), chunkRepo
}

func TestUpsertAndSearch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.ID(1), []float32{1, 0, 0}))
	require.NoError(t, store.Upsert(ctx, core.ID(2), []float32{0.9, 0.1, 0}))
	require.NoError(t, store.Upsert(ctx, core.ID(3), []float32{0, 0, 1}))

	matches, err := store.Search(ctx, []float32{1, 0, 0}, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Descending similarity, exact match first.
	assert.Equal(t, core.ID(1), matches[0].ChunkID)
	assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
	assert.Equal(t, core.ID(2), matches[1].ChunkID)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)

	// Orthogonal vector filtered by the threshold.
	for _, match := range matches {
		assert.NotEqual(t, core.ID(3), match.ChunkID)
	}
}

func TestSearchLimit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, store.Upsert(ctx, core.ID(i), []float32{1, float32(i) * 0.01}))
	}

	matches, err := store.Search(ctx, []float32{1, 0}, 3, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
}

func TestUpsertDimensionMismatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.ID(1), []float32{1, 0, 0}))

	// A second vector with a different dimension is refused, not padded.
	err := store.Upsert(ctx, core.ID(2), []float32{1, 0, 0, 0})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	// The first vector is still served.
	matches, err := store.Search(ctx, []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, core.ID(1), matches[0].ChunkID)
}

func TestSemanticUnavailable(t *testing.T) {
	chunkRepo, _, vecRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { chunkRepo.Close(); backend.Close() })

	// No backend configured: persistence works, search degrades loudly.
	store := New(vecRepo, "test-model", "test")
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.ID(1), []float32{1, 0}))

	_, err = store.Search(ctx, []float32{1, 0}, 10, 0)
	assert.ErrorIs(t, err, ErrSemanticUnavailable)
}

func TestCacheInvalidationOnWrite(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.ID(1), []float32{1, 0}))

	query := []float32{1, 0}
	first, err := store.Search(ctx, query, 10, 0)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Repeat query hits the cache.
	_, err = store.Search(ctx, query, 10, 0)
	require.NoError(t, err)
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Greater(t, stats.CacheHitRate, 0.0)

	// A write invalidates; the next search observes the new vector.
	require.NoError(t, store.Upsert(ctx, core.ID(2), []float32{1, 0}))
	second, err := store.Search(ctx, query, 10, 0)
	require.NoError(t, err)
	assert.Len(t, second, 2)

	// Deletes invalidate too.
	require.NoError(t, store.Delete(ctx, core.ID(2)))
	third, err := store.Search(ctx, query, 10, 0)
	require.NoError(t, err)
	assert.Len(t, third, 1)
}

func TestUpsertBatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.UpsertBatch(ctx, map[core.ID][]float32{
		core.ID(1): {1, 0},
		core.ID(2): {0, 1},
	})
	require.NoError(t, err)

	matches, err := store.Search(ctx, []float32{1, 0}, 10, 0.9)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, core.ID(1), matches[0].ChunkID)

	err = store.UpsertBatch(ctx, map[core.ID][]float32{core.ID(3): {}})
	assert.ErrorIs(t, err, ErrEmptyVector)
}

func TestHybridSearch(t *testing.T) {
	store, chunkRepo := newTestStore(t)
	ctx := context.Background()
	store.text = chunkRepo

	chunks := []*core.Chunk{
		{Id: 0, DocID: "doc-h", Index: 0, Content: "Kubernetes cluster upgrade notes."},
		{Id: 0, DocID: "doc-h", Index: 1, Content: "Grocery list for the weekend."},
	}
	chunks[0].Id = core.ChunkID(chunks[0].DocID, 0, chunks[0].Content)
	chunks[1].Id = core.ChunkID(chunks[1].DocID, 1, chunks[1].Content)
	require.NoError(t, chunkRepo.StoreChunks(ctx, chunks...))

	require.NoError(t, store.Upsert(ctx, chunks[0].Id, []float32{1, 0}))
	require.NoError(t, store.Upsert(ctx, chunks[1].Id, []float32{0, 1}))

	results, err := store.HybridSearch(ctx, "kubernetes", []float32{1, 0}, HybridOptions{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	// The chunk matching both signals wins.
	assert.Equal(t, chunks[0].Id, results[0].ChunkID)
	assert.InDelta(t, DefaultVectorWeight*1.0+DefaultTextWeight*1.0, results[0].Score, 1e-6)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestHybridSearchMinScore(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.ID(1), []float32{1, 0}))
	require.NoError(t, store.Upsert(ctx, core.ID(2), []float32{0.8, 0.6}))

	// Default weights: scores 0.6*1.0 and 0.6*0.8.
	results, err := store.HybridSearch(ctx, "", []float32{1, 0}, HybridOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)

	results, err = store.HybridSearch(ctx, "", []float32{1, 0}, HybridOptions{Limit: 10, MinScore: 0.5})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID(1), results[0].ChunkID)
	assert.GreaterOrEqual(t, results[0].Score, 0.5)
}

// gateBackend computes its result, then blocks until released. It models a
// query whose backend scan finished just before a concurrent write landed.
type gateBackend struct {
	inner   Backend
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateBackend) Name() string { return g.inner.Name() }

func (g *gateBackend) Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]*core.SimilarityMatch, error) {
	matches, err := g.inner.Search(ctx, query, limit, minSimilarity)
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return matches, err
}

func TestSearchInFlightAcrossWriteNotCached(t *testing.T) {
	chunkRepo, _, vecRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunkRepo.Close()
		backend.Close()
	})

	gate := &gateBackend{
		inner:   NewExactBackend(vecRepo),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	store := New(vecRepo, "test-model", "test", WithBackend(gate))
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, core.ID(1), []float32{1, 0}))

	type outcome struct {
		matches []*core.SimilarityMatch
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		matches, err := store.Search(ctx, []float32{1, 0}, 10, 0)
		done <- outcome{matches, err}
	}()

	// The query is holding its pre-write result set; land a write, whose
	// invalidation must outlive the query's cache insert.
	<-gate.entered
	require.NoError(t, store.Upsert(ctx, core.ID(2), []float32{1, 0}))
	close(gate.release)

	first := <-done
	require.NoError(t, first.err)
	require.Len(t, first.matches, 1, "in-flight query saw the pre-write snapshot")

	matches, err := store.Search(ctx, []float32{1, 0}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, matches, 2, "post-write query must not be served the stale set")
}

func TestQuerySignatureQuantization(t *testing.T) {
	base := []float32{0.123456, 0.654321}
	near := []float32{0.1234999, 0.6543001}
	far := []float32{0.2, 0.6}

	assert.Equal(t, querySignature(base, 10, 0.5), querySignature(near, 10, 0.5))
	assert.NotEqual(t, querySignature(base, 10, 0.5), querySignature(far, 10, 0.5))
	assert.NotEqual(t, querySignature(base, 10, 0.5), querySignature(base, 20, 0.5))
	assert.NotEqual(t, querySignature(base, 10, 0.5), querySignature(base, 10, 0.6))
}
