package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/weave/core"
	"github.com/poiesic/weave/storage"
)

// VectorRepository implements storage.VectorRepository for BadgerDB.
// The first vector written for a (model, provider) pair registers that
// pair's dimension; later writes must match it.
type VectorRepository struct {
	backend *Backend
}

var _ storage.VectorRepository = (*VectorRepository)(nil)

// NewVectorRepository creates a new VectorRepository.
func NewVectorRepository(backend *Backend) *VectorRepository {
	return &VectorRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *VectorRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *VectorRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutVector stores or replaces the vector record for a chunk.
func (r *VectorRepository) PutVector(ctx context.Context, rec *core.VectorRecord) error {
	if len(rec.Vector) == 0 {
		return fmt.Errorf("%w: empty vector for chunk %s", storage.ErrInvalidQuery, rec.ChunkID)
	}
	if rec.Dimensions == 0 {
		rec.Dimensions = len(rec.Vector)
	}
	if rec.Dimensions != len(rec.Vector) {
		return fmt.Errorf("%w: record declares %d dimensions but vector has %d",
			storage.ErrDimensionMismatch, rec.Dimensions, len(rec.Vector))
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		dimKey := makeVectorDimKey(rec.Model, rec.Provider)
		registered, err := readDimension(tx, dimKey)
		if err != nil {
			return err
		}
		if registered == 0 {
			if err := tx.Set(dimKey, storage.MarshalInt(rec.Dimensions)); err != nil {
				return err
			}
		} else if registered != rec.Dimensions {
			return fmt.Errorf("%w: %s/%s expects %d dimensions, got %d",
				storage.ErrDimensionMismatch, rec.Model, rec.Provider, registered, rec.Dimensions)
		}

		if err := tx.Set(makeVectorKey(rec.ChunkID), storage.MarshalVectorRecord(rec)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetVector retrieves the vector record for a chunk.
func (r *VectorRepository) GetVector(ctx context.Context, id core.ID) (*core.VectorRecord, error) {
	var result *core.VectorRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVectorKey(id))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return fmt.Errorf("%w: vector for chunk %s", storage.ErrNotFound, id)
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalVectorRecord(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// DeleteVector removes the vector record for a chunk.
// Deleting a missing vector is a no-op.
func (r *VectorRepository) DeleteVector(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeVectorKey(id)); err != nil && err != badger.ErrKeyNotFound {
			return err
		}
		return tx.Commit()
	}, true)
}

// IterateVectors calls fn for every stored vector record.
func (r *VectorRepository) IterateVectors(ctx context.Context, fn func(*core.VectorRecord) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rec *core.VectorRecord
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				rec, err = storage.UnmarshalVectorRecord(val)
				return err
			}); err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Dimension returns the registered dimension for a (model, provider) pair,
// or 0 when the pair has no vectors yet.
func (r *VectorRepository) Dimension(ctx context.Context, model, provider string) (int, error) {
	var dim int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		dim, err = readDimension(tx, makeVectorDimKey(model, provider))
		return err
	}, false)
	return dim, err
}

// VectorStats returns the number of stored vectors and their approximate
// serialized size in bytes.
func (r *VectorRepository) VectorStats(ctx context.Context) (int, int64, error) {
	var count int
	var bytes int64
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
			bytes += iter.Item().ValueSize()
		}
		return nil
	}, false)
	return count, bytes, err
}

// readDimension reads a dimension registry entry, 0 when unregistered.
func readDimension(tx *badger.Txn, key []byte) (int, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var dim int
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		dim, unmarshalErr = storage.UnmarshalInt(val)
		return unmarshalErr
	})
	return dim, err
}
