package search

import (
	"context"
	"testing"

	"github.com/poiesic/weave/ai/mock"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
	badgerstore "github.com/poiesic/weave/storage/badger"
	"github.com/poiesic/weave/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	engine    *Engine
	chunkRepo storage.ChunkRepository
	store     *vector.Store
	provider  *mock.MockProvider
}

func newTestFixture(t *testing.T, withBackend bool) *testFixture {
	t.Helper()
	chunkRepo, _, vecRepo, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chunkRepo.Close()
		backend.Close()
	})

	provider := mock.NewMockProviderWithDimension(8)
	var storeOpts []vector.Option
	if withBackend {
		storeOpts = append(storeOpts, vector.WithBackend(vector.NewExactBackend(vecRepo)))
	}
	store := vector.New(vecRepo, provider.Model(), provider.Name(), storeOpts...)

	engine, err := NewEngine(chunkRepo, store, provider)
	require.NoError(t, err)

	return &testFixture{
		engine:    engine,
		chunkRepo: chunkRepo,
		store:     store,
		provider:  provider,
	}
}

// seed stores chunks and embeds them with the mock embedder, so a query
// for a chunk's exact content is a perfect semantic match.
func (f *testFixture) seed(t *testing.T, docID string, contents ...string) []*core.Chunk {
	t.Helper()
	ctx := context.Background()

	chunks := make([]*core.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = &core.Chunk{
			Id:      core.ChunkID(docID, i, content),
			DocID:   docID,
			Index:   i,
			Content: content,
		}
	}
	require.NoError(t, f.chunkRepo.StoreChunks(context.Background(), chunks...))

	embedder := f.provider.GetMockEmbedder()
	for _, chunk := range chunks {
		vec, err := embedder.EmbedText(ctx, chunk.Content)
		require.NoError(t, err)
		require.NoError(t, f.store.Upsert(ctx, chunk.Id, vec))
	}
	return chunks
}

func TestQueryValidation(t *testing.T) {
	f := newTestFixture(t, true)
	ctx := context.Background()

	_, err := f.engine.Query(ctx, "   ", Options{})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = f.engine.Query(ctx, "ok", Options{VectorWeight: -1, TextWeight: 0.5})
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestNewEngineValidation(t *testing.T) {
	f := newTestFixture(t, true)

	_, err := NewEngine(nil, f.store, f.provider)
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewEngine(f.chunkRepo, nil, f.provider)
	assert.ErrorIs(t, err, ErrVectorStoreRequired)

	_, err = NewEngine(f.chunkRepo, f.store, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestHybridQuery(t *testing.T) {
	f := newTestFixture(t, true)
	ctx := context.Background()

	chunks := f.seed(t, "doc-1",
		"The deployment pipeline broke on Tuesday.",
		"Vacation planning for the summer trip.",
		"Pipeline retries were added after the incident.",
	)

	// Querying with a seeded chunk's exact text yields similarity 1 for it.
	results, err := f.engine.Query(ctx, chunks[0].Content, Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, chunks[0].Id, results[0].Chunk.Id)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestKeywordOnlyMode(t *testing.T) {
	f := newTestFixture(t, true)
	ctx := context.Background()

	f.seed(t, "doc-1",
		"Kubernetes upgrade checklist.",
		"Unrelated cooking notes.",
	)

	callsBefore := f.provider.GetMockEmbedder().CallCount()
	results, err := f.engine.Query(ctx, "kubernetes", Options{Mode: ModeKeyword, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Keyword-only scoring is textWeight * normalized score; a single
	// match normalizes to 1.
	assert.InDelta(t, DefaultTextWeight, results[0].Score, 1e-9)

	// The query must never be embedded in keyword mode.
	assert.Equal(t, callsBefore, f.provider.GetMockEmbedder().CallCount())
}

func TestVectorOnlyMode(t *testing.T) {
	f := newTestFixture(t, true)
	ctx := context.Background()

	chunks := f.seed(t, "doc-1",
		"Database backup policies.",
		"Office plant watering schedule.",
	)

	results, err := f.engine.Query(ctx, chunks[0].Content, Options{Mode: ModeVector, Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, chunks[0].Id, results[0].Chunk.Id)

	// Vector-only scoring is vectorWeight * similarity; the exact-content
	// query has similarity 1.
	assert.InDelta(t, DefaultVectorWeight, results[0].Score, 1e-6)
}

func TestHybridDegradesWithoutBackend(t *testing.T) {
	f := newTestFixture(t, false)
	ctx := context.Background()

	f.seed(t, "doc-1", "Incident postmortem for the outage.")

	monitor := &recordingMonitor{}
	results, err := f.engine.QueryWithMonitor(ctx, "postmortem outage", Options{Limit: 10}, monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, monitor.degraded)

	// Degraded hybrid scores exactly like keyword-only.
	assert.InDelta(t, DefaultTextWeight, results[0].Score, 1e-9)

	// Vector-only mode surfaces the capability error instead.
	_, err = f.engine.Query(ctx, "postmortem", Options{Mode: ModeVector})
	assert.ErrorIs(t, err, vector.ErrSemanticUnavailable)
}

func TestQueryDeterministicOrdering(t *testing.T) {
	f := newTestFixture(t, true)
	ctx := context.Background()

	f.seed(t, "doc-1",
		"Budget review meeting notes.",
		"Budget review followup actions.",
	)

	first, err := f.engine.Query(ctx, "budget review", Options{Limit: 10})
	require.NoError(t, err)
	second, err := f.engine.Query(ctx, "budget review", Options{Limit: 10})
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Chunk.Id, second[i].Chunk.Id)
	}
}

func TestCustomWeights(t *testing.T) {
	f := newTestFixture(t, true)
	ctx := context.Background()

	f.seed(t, "doc-1", "Release notes for version two.")

	results, err := f.engine.Query(ctx, "release notes", Options{
		Mode:       ModeKeyword,
		TextWeight: 1.0,
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
}

// recordingMonitor captures stage callbacks for assertions.
type recordingMonitor struct {
	noopMonitor
	degraded bool
	finished bool
}

func (m *recordingMonitor) SemanticDegraded()                  { m.degraded = true }
func (m *recordingMonitor) Finish(_ []*core.SearchResult)      { m.finished = true }
