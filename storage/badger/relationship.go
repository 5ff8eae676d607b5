package badger

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

// RelationshipRepository implements storage.RelationshipRepository for BadgerDB.
// Every edge is stored twice: forward under the source for traversal, and a
// reverse entry under the target so deleting a chunk can find inbound edges.
type RelationshipRepository struct {
	backend *Backend
}

var _ storage.RelationshipRepository = (*RelationshipRepository)(nil)

// NewRelationshipRepository creates a new RelationshipRepository.
func NewRelationshipRepository(backend *Backend) *RelationshipRepository {
	return &RelationshipRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *RelationshipRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *RelationshipRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// StoreRelationship persists an edge. Both endpoints must already be
// stored chunks; writing an edge to a missing chunk fails the whole call.
func (r *RelationshipRepository) StoreRelationship(ctx context.Context, rel *core.Relationship) error {
	if err := core.ValidateRelationship(rel); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range []core.ID{rel.SourceChunkID, rel.TargetChunkID} {
			if _, err := tx.Get(makeChunkKey(id)); err != nil {
				if err == badger.ErrKeyNotFound {
					return fmt.Errorf("%w: chunk %s", storage.ErrDanglingReference, id)
				}
				return err
			}
		}

		if rel.CreatedAt.IsZero() {
			rel.CreatedAt = time.Now().UTC()
		}

		key := makeRelationKey(rel.SourceChunkID, rel.Type, rel.TargetChunkID)
		if err := tx.Set(key, storage.MarshalRelationship(rel)); err != nil {
			return err
		}
		revKey := makeRelationRevKey(rel.SourceChunkID, rel.Type, rel.TargetChunkID)
		if err := tx.Set(revKey, nil); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetRelationships returns edges whose source is the given chunk,
// optionally filtered to the given types.
func (r *RelationshipRepository) GetRelationships(ctx context.Context, id core.ID, types ...core.RelationshipType) ([]*core.Relationship, error) {
	var results []*core.Relationship
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeRelationSourcePrefix(id)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rel *core.Relationship
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				rel, err = storage.UnmarshalRelationship(val)
				return err
			}); err != nil {
				return err
			}
			if len(types) > 0 && !slices.Contains(types, rel.Type) {
				continue
			}
			results = append(results, rel)
		}
		return nil
	}, false)
	return results, err
}

// deleteRelationshipsTouching removes every edge whose source or target is
// the given chunk, including the paired forward or reverse entries. Runs
// inside the caller's transaction so chunk deletion stays atomic.
func deleteRelationshipsTouching(tx *badger.Txn, id core.ID) error {
	var doomed [][]byte

	// Outbound edges: forward keys under the source prefix.
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeRelationSourcePrefix(id)
	iter := tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var rel *core.Relationship
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			rel, err = storage.UnmarshalRelationship(val)
			return err
		}); err != nil {
			iter.Close()
			return err
		}
		doomed = append(doomed,
			iter.Item().KeyCopy(nil),
			makeRelationRevKey(rel.SourceChunkID, rel.Type, rel.TargetChunkID))
	}
	iter.Close()

	// Inbound edges: reverse keys under the target prefix.
	opts = badger.DefaultIteratorOptions
	opts.Prefix = makeRelationRevPrefix(id)
	opts.PrefetchValues = false
	iter = tx.NewIterator(opts)
	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().KeyCopy(nil)
		source, relType, ok := parseRelationRevKey(key)
		if !ok {
			continue
		}
		doomed = append(doomed, key, makeRelationKey(source, relType, id))
	}
	iter.Close()

	for _, key := range doomed {
		if err := tx.Delete(key); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
	}
	return nil
}
