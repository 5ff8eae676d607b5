package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

func testChunk(docID string, index int, content string) *core.Chunk {
	return &core.Chunk{
		Id:      core.ChunkID(docID, index, content),
		DocID:   docID,
		Index:   index,
		Content: content,
	}
}

func TestChunkBasics(t *testing.T) {
	chunkRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	chunk := testChunk("doc-1", 0, "Deployment finished without incident.")
	if err := chunkRepo.StoreChunk(ctx, chunk); err != nil {
		t.Fatalf("Failed to store chunk: %v", err)
	}
	if chunk.Seq == 0 {
		t.Fatal("Expected non-zero insertion sequence")
	}
	if chunk.InsertedAt.IsZero() {
		t.Fatal("Expected InsertedAt to be set")
	}

	retrieved, err := chunkRepo.GetChunk(ctx, chunk.Id)
	if err != nil {
		t.Fatalf("Failed to get chunk: %v", err)
	}
	if retrieved.Content != chunk.Content {
		t.Fatalf("Expected %q, got %q", chunk.Content, retrieved.Content)
	}

	// Storing the same ID again must fail rather than overwrite.
	dup := testChunk("doc-1", 0, "Deployment finished without incident.")
	err = chunkRepo.StoreChunk(ctx, dup)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	if _, err := chunkRepo.GetChunk(ctx, core.ID(12345)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing chunk, got %v", err)
	}
}

func TestStoreChunksAtomic(t *testing.T) {
	chunkRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	good := testChunk("doc-1", 0, "A valid chunk of text.")
	bad := &core.Chunk{DocID: "doc-1", Index: 1} // empty content fails validation

	err = chunkRepo.StoreChunks(ctx, good, bad)
	if err == nil {
		t.Fatal("Expected batch with invalid chunk to fail")
	}

	// The valid chunk must not have been persisted.
	if _, err := chunkRepo.GetChunk(ctx, good.Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected failed batch to persist nothing, got %v", err)
	}
}

func TestGetChunksByDocOrder(t *testing.T) {
	chunkRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	// Store out of position order; retrieval must come back in order.
	for _, idx := range []int{2, 0, 3, 1} {
		chunk := testChunk("doc-ordered", idx, fmt.Sprintf("Chunk number %d content.", idx))
		if err := chunkRepo.StoreChunk(ctx, chunk); err != nil {
			t.Fatalf("Failed to store chunk %d: %v", idx, err)
		}
	}

	// A doc whose ID shares a prefix must not leak into the scan.
	other := testChunk("doc-ordered-extra", 0, "Unrelated document content.")
	if err := chunkRepo.StoreChunk(ctx, other); err != nil {
		t.Fatalf("Failed to store chunk: %v", err)
	}

	chunks, err := chunkRepo.GetChunksByDoc(ctx, "doc-ordered")
	if err != nil {
		t.Fatalf("Failed to get chunks by doc: %v", err)
	}
	if len(chunks) != 4 {
		t.Fatalf("Expected 4 chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Fatalf("Expected position %d at slot %d, got %d", i, i, chunk.Index)
		}
	}
}

func TestDocIDWithSeparator(t *testing.T) {
	chunkRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	// "a" must not scan into "a:b" even though "a:b" starts with "a:".
	short := testChunk("a", 0, "Content of the short document.")
	long0 := testChunk("a:b", 0, "First chunk of the colon document.")
	long1 := testChunk("a:b", 1, "Second chunk of the colon document.")
	if err := chunkRepo.StoreChunks(ctx, short, long0, long1); err != nil {
		t.Fatalf("Failed to store chunks: %v", err)
	}

	chunks, err := chunkRepo.GetChunksByDoc(ctx, "a")
	if err != nil {
		t.Fatalf("Failed to get chunks by doc: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk for doc %q, got %d", "a", len(chunks))
	}
	if chunks[0].Id != short.Id {
		t.Fatalf("Expected chunk %d, got %d", short.Id, chunks[0].Id)
	}

	removed, err := chunkRepo.DeleteChunksByDoc(ctx, "a")
	if err != nil {
		t.Fatalf("Failed to delete chunks: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 chunk removed, got %d", removed)
	}

	survivors, err := chunkRepo.GetChunksByDoc(ctx, "a:b")
	if err != nil {
		t.Fatalf("Failed to get chunks by doc: %v", err)
	}
	if len(survivors) != 2 {
		t.Fatalf("Expected doc %q untouched with 2 chunks, got %d", "a:b", len(survivors))
	}

	stats, err := chunkRepo.Stats(ctx)
	if err != nil {
		t.Fatalf("Failed to get stats: %v", err)
	}
	if stats.DocCount != 1 {
		t.Fatalf("Expected 1 remaining document, got %d", stats.DocCount)
	}
}

func TestSearchText(t *testing.T) {
	chunkRepo, _, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	contents := []string{
		"We migrated the cluster to kubernetes last quarter.",
		"The database migration ran overnight.",
		"Kubernetes pods were rescheduled after the node failure.",
		"Lunch options near the office are limited.",
		"The retro covered sprint velocity.",
		"Rolling restarts on kubernetes avoided downtime.",
		"Billing disputes are handled by finance.",
		"The new hire completed onboarding.",
		"Cache invalidation caused stale reads.",
		"The postmortem assigned three action items.",
		"Network latency spiked during the backup window.",
		"Design review for the ingestion service went well.",
		"Quarterly planning starts next week.",
	}
	for i, content := range contents {
		if err := chunkRepo.StoreChunk(ctx, testChunk("doc-search", i, content)); err != nil {
			t.Fatalf("Failed to store chunk %d: %v", i, err)
		}
	}

	results, err := chunkRepo.SearchText(ctx, "kubernetes", 10)
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 matches, got %d", len(results))
	}
	for _, result := range results {
		if result.Score <= 0 {
			t.Fatalf("Expected positive score, got %f", result.Score)
		}
	}
	// Equal scores fall back to insertion order.
	for i := 1; i < len(results); i++ {
		if results[i-1].Score == results[i].Score && results[i-1].Chunk.Seq > results[i].Chunk.Seq {
			t.Fatal("Expected ties to be ordered by insertion sequence")
		}
	}

	results, err = chunkRepo.SearchText(ctx, "nonexistentterm", 10)
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no matches, got %d", len(results))
	}

	// Queries that reduce to stop words match nothing.
	results, err = chunkRepo.SearchText(ctx, "the and of", 10)
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected no matches for stop-word query, got %d", len(results))
	}

	// Limit caps results.
	results, err = chunkRepo.SearchText(ctx, "kubernetes", 2)
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results with limit, got %d", len(results))
	}
}

func TestDeleteChunksByDocCascade(t *testing.T) {
	chunkRepo, relRepo, vecRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	doomed := []*core.Chunk{
		testChunk("doc-doomed", 0, "First doomed chunk about caching."),
		testChunk("doc-doomed", 1, "Second doomed chunk about caching."),
	}
	survivor := testChunk("doc-kept", 0, "Surviving chunk about caching.")

	if err := chunkRepo.StoreChunks(ctx, doomed[0], doomed[1]); err != nil {
		t.Fatalf("Failed to store doomed chunks: %v", err)
	}
	if err := chunkRepo.StoreChunk(ctx, survivor); err != nil {
		t.Fatalf("Failed to store survivor: %v", err)
	}

	// Edges inside the doomed doc and crossing into the survivor.
	edges := []*core.Relationship{
		{SourceChunkID: doomed[0].Id, TargetChunkID: doomed[1].Id, Type: core.RelationNext},
		{SourceChunkID: survivor.Id, TargetChunkID: doomed[0].Id, Type: core.RelationRelated},
		{SourceChunkID: doomed[1].Id, TargetChunkID: survivor.Id, Type: core.RelationRelated},
	}
	for _, edge := range edges {
		if err := relRepo.StoreRelationship(ctx, edge); err != nil {
			t.Fatalf("Failed to store relationship: %v", err)
		}
	}

	for _, chunk := range append(doomed, survivor) {
		rec := &core.VectorRecord{
			ChunkID:  chunk.Id,
			Vector:   []float32{1, 0, 0},
			Model:    "test-model",
			Provider: "test",
		}
		if err := vecRepo.PutVector(ctx, rec); err != nil {
			t.Fatalf("Failed to store vector: %v", err)
		}
	}

	count, err := chunkRepo.DeleteChunksByDoc(ctx, "doc-doomed")
	if err != nil {
		t.Fatalf("DeleteChunksByDoc failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 deleted chunks, got %d", count)
	}

	// Doomed chunks, their vectors, and every edge touching them are gone.
	for _, chunk := range doomed {
		if _, err := chunkRepo.GetChunk(ctx, chunk.Id); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Expected chunk %s to be deleted, got %v", chunk.Id, err)
		}
		if _, err := vecRepo.GetVector(ctx, chunk.Id); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("Expected vector for %s to be deleted, got %v", chunk.Id, err)
		}
	}
	rels, err := relRepo.GetRelationships(ctx, survivor.Id)
	if err != nil {
		t.Fatalf("GetRelationships failed: %v", err)
	}
	if len(rels) != 0 {
		t.Fatalf("Expected survivor's edge into deleted doc to be removed, got %d edges", len(rels))
	}

	// The doomed content no longer matches text search.
	results, err := chunkRepo.SearchText(ctx, "caching", 10)
	if err != nil {
		t.Fatalf("SearchText failed: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Id != survivor.Id {
		t.Fatalf("Expected only the survivor to match, got %d results", len(results))
	}

	// Survivor and its vector are intact.
	if _, err := chunkRepo.GetChunk(ctx, survivor.Id); err != nil {
		t.Fatalf("Expected survivor to remain: %v", err)
	}
	if _, err := vecRepo.GetVector(ctx, survivor.Id); err != nil {
		t.Fatalf("Expected survivor's vector to remain: %v", err)
	}

	// Deleting an unknown doc removes nothing.
	count, err = chunkRepo.DeleteChunksByDoc(ctx, "doc-unknown")
	if err != nil {
		t.Fatalf("DeleteChunksByDoc failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("Expected 0 deletions for unknown doc, got %d", count)
	}
}

func TestStats(t *testing.T) {
	chunkRepo, relRepo, _, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { chunkRepo.Close(); backend.Close() }()

	ctx := context.Background()

	a := testChunk("doc-a", 0, "Alpha content here.")
	b := testChunk("doc-a", 1, "Beta content here.")
	c := testChunk("doc-b", 0, "Gamma content here.")
	if err := chunkRepo.StoreChunks(ctx, a, b, c); err != nil {
		t.Fatalf("Failed to store chunks: %v", err)
	}
	edge := &core.Relationship{SourceChunkID: a.Id, TargetChunkID: b.Id, Type: core.RelationNext}
	if err := relRepo.StoreRelationship(ctx, edge); err != nil {
		t.Fatalf("Failed to store relationship: %v", err)
	}

	stats, err := chunkRepo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.ChunkCount != 3 {
		t.Fatalf("Expected 3 chunks, got %d", stats.ChunkCount)
	}
	if stats.DocCount != 2 {
		t.Fatalf("Expected 2 docs, got %d", stats.DocCount)
	}
	if stats.RelationshipCount != 1 {
		t.Fatalf("Expected 1 relationship, got %d", stats.RelationshipCount)
	}
}
