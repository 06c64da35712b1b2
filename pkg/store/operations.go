package store

import (
	"context"
	"fmt"
	"time"

	"github.com/StratumDB/stratum/pkg/codec"
	"github.com/StratumDB/stratum/pkg/kv"
	"github.com/StratumDB/stratum/pkg/stats"
)

// Database is what batch operations need from the enclosing database: a way
// to run a unit of work in a transaction (joining the ambient one when the
// context carries it), the record codec, and the statistics collector.
type Database interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(kv.Tx) error) error
	// Update runs fn in a read-write transaction, atomically.
	Update(ctx context.Context, fn func(kv.Tx) error) error
	// Codec returns the record codec.
	Codec() *codec.Codec
	// Stats returns the statistics collector.
	Stats() stats.Collector
}

// PutOption configures a Put operation.
type PutOption func(*putOptions)

type putOptions struct {
	merge bool
}

// WithMerge makes Put merge each value into the existing record instead of
// replacing it.
func WithMerge() PutOption {
	return func(o *putOptions) {
		o.merge = true
	}
}

func track(db Database, op stats.OperationType, start time.Time, err error) {
	db.Stats().TrackOperationWithLatency(op, uint64(time.Since(start).Nanoseconds()))
	if err != nil {
		db.Stats().TrackError(string(op) + "_error")
	}
}

// GetSnapshots reads a snapshot per key, in key order. Absent records yield
// nil elements, never an error.
func (r RecordsRef[K, V]) GetSnapshots(ctx context.Context, db Database) ([]*Snapshot[K, V], error) {
	if r.Len() == 0 {
		return []*Snapshot[K, V]{}, nil
	}

	start := time.Now()
	out, err := r.snapshots(ctx, db)
	track(db, stats.OpSnapshot, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get reads a value per key, in key order: the projection of GetSnapshots
// onto values. Absent records yield nil elements.
func (r RecordsRef[K, V]) Get(ctx context.Context, db Database) ([]*V, error) {
	if r.Len() == 0 {
		return []*V{}, nil
	}

	start := time.Now()
	snapshots, err := r.snapshots(ctx, db)
	track(db, stats.OpGet, start, err)
	if err != nil {
		return nil, err
	}
	out := make([]*V, len(snapshots))
	for i, s := range snapshots {
		if s == nil {
			continue
		}
		v := s.value
		out[i] = &v
	}
	return out, nil
}

func (r RecordsRef[K, V]) snapshots(ctx context.Context, db Database) ([]*Snapshot[K, V], error) {
	var out []*Snapshot[K, V]
	err := db.View(ctx, func(tx kv.Tx) error {
		acc, err := NewAccessor(tx, r.store, db.Codec(), db.Stats())
		if err != nil {
			return err
		}
		out, err = acc.Snapshots(r.keys)
		return err
	})
	return out, err
}

// Delete removes the record at every key atomically. The result holds the
// key where a record was removed, nil where none existed.
func (r RecordsRef[K, V]) Delete(ctx context.Context, db Database) ([]*K, error) {
	if r.Len() == 0 {
		return []*K{}, nil
	}

	start := time.Now()
	var out []*K
	err := db.Update(ctx, func(tx kv.Tx) error {
		acc, err := NewAccessor(tx, r.store, db.Codec(), db.Stats())
		if err != nil {
			return err
		}
		out, err = acc.DeleteAll(r.keys)
		return err
	})
	track(db, stats.OpDelete, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Add creates a record per key, only where none exists, atomically. The
// result holds the key where a record was created, nil where one already
// existed (no overwrite, no error). A length mismatch between values and
// keys fails with ErrLengthMismatch before any transaction is opened.
func (r RecordsRef[K, V]) Add(ctx context.Context, db Database, values []V) ([]*K, error) {
	if err := r.checkValues(values); err != nil {
		return nil, err
	}
	if r.Len() == 0 {
		return []*K{}, nil
	}

	start := time.Now()
	var out []*K
	err := db.Update(ctx, func(tx kv.Tx) error {
		acc, err := NewAccessor(tx, r.store, db.Codec(), db.Stats())
		if err != nil {
			return err
		}
		out, err = acc.AddAllIfAbsent(r.keys, values)
		return err
	})
	track(db, stats.OpAdd, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put writes a value per key atomically, replacing existing records, or
// merging into them with WithMerge. The result holds the value actually
// stored at every position (merged or replaced); it has no nil slots.
func (r RecordsRef[K, V]) Put(ctx context.Context, db Database, values []V, opts ...PutOption) ([]V, error) {
	if err := r.checkValues(values); err != nil {
		return nil, err
	}
	if r.Len() == 0 {
		return []V{}, nil
	}

	var options putOptions
	for _, opt := range opts {
		opt(&options)
	}

	start := time.Now()
	var out []V
	err := db.Update(ctx, func(tx kv.Tx) error {
		acc, err := NewAccessor(tx, r.store, db.Codec(), db.Stats())
		if err != nil {
			return err
		}
		out, err = acc.PutAll(r.keys, values, options.merge)
		return err
	})
	track(db, stats.OpPut, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update merges a value per key into the existing record, only where one
// exists, atomically. The result holds the merged value where the record
// existed, nil where it did not; no record is created.
func (r RecordsRef[K, V]) Update(ctx context.Context, db Database, values []V) ([]*V, error) {
	if err := r.checkValues(values); err != nil {
		return nil, err
	}
	if r.Len() == 0 {
		return []*V{}, nil
	}

	start := time.Now()
	var out []*V
	err := db.Update(ctx, func(tx kv.Tx) error {
		acc, err := NewAccessor(tx, r.store, db.Codec(), db.Stats())
		if err != nil {
			return err
		}
		out, err = acc.UpdateAllIfPresent(r.keys, values)
		return err
	})
	track(db, stats.OpUpdate, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkValues validates the positional alignment precondition. This is a
// caller programming error, detected before any transaction opens.
func (r RecordsRef[K, V]) checkValues(values []V) error {
	if len(values) != r.Len() {
		return fmt.Errorf("%w: %d values for %d keys", ErrLengthMismatch, len(values), r.Len())
	}
	return nil
}
