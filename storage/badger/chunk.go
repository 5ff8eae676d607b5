package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	seq, err := backend.GetSequence(chunkSeqName)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the insertion-order sequence.
func (r *ChunkRepository) Close() error {
	return r.seq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChunkRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// StoreChunk persists a single chunk and indexes its content.
func (r *ChunkRepository) StoreChunk(ctx context.Context, chunk *core.Chunk) error {
	return r.StoreChunks(ctx, chunk)
}

// StoreChunks persists a batch of chunks atomically. The transaction is
// discarded on the first failure, so a bad chunk anywhere in the batch
// leaves the store untouched.
func (r *ChunkRepository) StoreChunks(ctx context.Context, chunks ...*core.Chunk) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, chunk := range chunks {
			if err := core.ValidateChunk(chunk); err != nil {
				return err
			}
			if chunk.Id == 0 {
				chunk.Id = core.ChunkID(chunk.DocID, chunk.Index, chunk.Content)
			}

			key := makeChunkKey(chunk.Id)
			if _, err := tx.Get(key); err == nil {
				return fmt.Errorf("%w: chunk %s", storage.ErrDuplicateKey, chunk.Id)
			} else if err != badger.ErrKeyNotFound {
				return err
			}

			next, err := r.seq.Next()
			if err != nil {
				return err
			}
			// BadgerDB sequences can return 0 on first call, so we skip it
			if next == 0 {
				next, err = r.seq.Next()
				if err != nil {
					return err
				}
			}
			chunk.Seq = next

			chunk.InsertedAt = time.Now().UTC()
			chunk.UpdatedAt = chunk.InsertedAt

			if err := tx.Set(key, storage.MarshalChunk(chunk)); err != nil {
				return err
			}

			// Document position index
			docKey := makeDocIndexKey(chunk.DocID, chunk.Index)
			if err := tx.Set(docKey, storage.MarshalID(chunk.Id)); err != nil {
				return err
			}

			// Inverted text index
			for term, freq := range termFrequencies(chunk.Content) {
				textKey := makeTextIndexKey(term, chunk.Id)
				if err := tx.Set(textKey, storage.MarshalInt(freq)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("%w: chunk %s", storage.ErrNotFound, id)
		}
		return nil
	}, false)
	return result, err
}

// GetChunks retrieves multiple chunks by their IDs. Missing IDs are skipped.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetChunksByDoc retrieves a document's chunks in position order.
// The index keys encode position BigEndian, so iteration order is
// document order.
func (r *ChunkRepository) GetChunksByDoc(ctx context.Context, docID string) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocIndexPrefix(docID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			chunk, err := readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, chunk)
			}
		}
		return nil
	}, false)
	return results, err
}

// SearchText runs a keyword query over the inverted index, scoring hits by
// TF-IDF. Results are ordered by descending score; ties fall back to
// insertion order so repeated queries are stable.
func (r *ChunkRepository) SearchText(ctx context.Context, query string, limit int) ([]*core.SearchResult, error) {
	terms := tokenizeAndFilter(query)
	if len(terms) == 0 || limit == 0 {
		return nil, nil
	}

	var results []*core.SearchResult
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		total := countKeys(tx, []byte(chunkRecordPrefix+":"))
		if total == 0 {
			return nil
		}

		scores := make(map[core.ID]float64)
		for _, term := range terms {
			postings, err := readPostings(tx, term)
			if err != nil {
				return err
			}
			if len(postings) == 0 {
				continue
			}
			idf := math.Log(1 + float64(total)/float64(len(postings)))
			for id, freq := range postings {
				scores[id] += float64(freq) * idf
			}
		}

		for id, score := range scores {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				results = append(results, &core.SearchResult{Chunk: chunk, Score: score})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.SearchResult) int {
		if a.Score != b.Score {
			if a.Score > b.Score {
				return -1
			}
			return 1
		}
		if a.Chunk.Seq < b.Chunk.Seq {
			return -1
		}
		if a.Chunk.Seq > b.Chunk.Seq {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// IterateChunks calls fn for every stored chunk.
func (r *ChunkRepository) IterateChunks(ctx context.Context, fn func(*core.Chunk) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			if err := fn(chunk); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// DeleteChunksByDoc removes a document's chunks along with their index
// entries, vector records, and every relationship touching them.
func (r *ChunkRepository) DeleteChunksByDoc(ctx context.Context, docID string) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Collect the doc's chunk IDs and index keys before mutating.
		var chunkIDs []core.ID
		var docKeys [][]byte

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeDocIndexPrefix(docID)
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			docKeys = append(docKeys, item.KeyCopy(nil))

			var chunkID core.ID
			if err := item.Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			chunkIDs = append(chunkIDs, chunkID)
		}
		iter.Close()

		for i, id := range chunkIDs {
			key := makeChunkKey(id)
			chunk, err := readChunk(tx, key)
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}

			for term := range termFrequencies(chunk.Content) {
				if err := tx.Delete(makeTextIndexKey(term, id)); err != nil {
					return err
				}
			}
			if err := deleteRelationshipsTouching(tx, id); err != nil {
				return err
			}
			if err := tx.Delete(makeVectorKey(id)); err != nil {
				return err
			}
			if err := tx.Delete(docKeys[i]); err != nil {
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			count++
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Stats reports chunk, document, and relationship counts plus an estimate
// of on-disk size.
func (r *ChunkRepository) Stats(ctx context.Context) (*storage.StoreStats, error) {
	stats := &storage.StoreStats{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		stats.ChunkCount = countKeys(tx, []byte(chunkRecordPrefix+":"))
		stats.RelationshipCount = countKeys(tx, []byte(relationPrefix+":"))

		// Distinct doc IDs from the position index.
		docs := make(map[string]bool)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkDocPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		prefixLen := len(chunkDocPrefix) + 1
		for iter.Rewind(); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < prefixLen+9 {
				continue
			}
			docs[string(key[prefixLen:len(key)-9])] = true
		}
		stats.DocCount = len(docs)
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	stats.StorageSize = r.backend.Size()
	return stats, nil
}

// Helper methods

// readChunk reads a chunk record from the transaction, nil when missing.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}

// readPostings collects the posting list for a term as chunkID -> term freq.
func readPostings(tx *badger.Txn, term string) (map[core.ID]int, error) {
	postings := make(map[core.ID]int)
	prefix := makeTextIndexPrefix(term)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		key := item.Key()
		if len(key) != len(prefix)+8 {
			continue
		}
		id := core.ID(binary.BigEndian.Uint64(key[len(prefix):]))

		var freq int
		if err := item.Value(func(val []byte) error {
			var err error
			freq, err = storage.UnmarshalInt(val)
			return err
		}); err != nil {
			return nil, err
		}
		postings[id] = freq
	}
	return postings, nil
}

// countKeys counts keys under a prefix without fetching values.
func countKeys(tx *badger.Txn, prefix []byte) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	count := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		count++
	}
	return count
}

