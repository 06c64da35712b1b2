package store

import (
	"errors"

	"github.com/StratumDB/stratum/pkg/codec"
	"github.com/StratumDB/stratum/pkg/document"
	"github.com/StratumDB/stratum/pkg/kv"
	"github.com/StratumDB/stratum/pkg/stats"
)

// Accessor exposes the per-batch primitives of one store inside one
// transaction. Every method walks its keys in order and returns a result
// sequence positionally aligned to them; a nil element means the key had no
// record, which is never an error. Accessors are bound to the transaction
// they were opened in and must not outlive it.
type Accessor[K Key, V any] struct {
	store  StoreRef[K, V]
	bucket kv.Bucket
	codec  *codec.Codec
	stats  stats.Collector
}

// NewAccessor binds an accessor to a store inside the given transaction.
func NewAccessor[K Key, V any](tx kv.Tx, store StoreRef[K, V], c *codec.Codec, collector stats.Collector) (*Accessor[K, V], error) {
	bucket, err := tx.Bucket([]byte(store.name))
	if err != nil {
		return nil, err
	}
	return &Accessor[K, V]{store: store, bucket: bucket, codec: c, stats: collector}, nil
}

// load reads and decodes the record at key. It reports absence via the
// second return value instead of an error.
func (a *Accessor[K, V]) load(kb []byte) (revision uint64, doc []byte, exists bool, err error) {
	frame, err := a.bucket.Get(kb)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	a.stats.TrackBytes(false, uint64(len(frame)))
	revision, doc, err = a.codec.Decode(frame)
	if err != nil {
		return 0, nil, false, err
	}
	return revision, doc, true, nil
}

func (a *Accessor[K, V]) save(kb []byte, revision uint64, doc []byte) error {
	frame, err := a.codec.Encode(revision, doc)
	if err != nil {
		return err
	}
	a.stats.TrackBytes(true, uint64(len(frame)))
	return a.bucket.Put(kb, frame)
}

// Snapshots materializes the records at the given keys.
func (a *Accessor[K, V]) Snapshots(keys []K) ([]*Snapshot[K, V], error) {
	out := make([]*Snapshot[K, V], len(keys))
	for i, k := range keys {
		revision, doc, exists, err := a.load(encodeKey(k))
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}
		var value V
		if err := document.Decode(doc, &value); err != nil {
			return nil, err
		}
		out[i] = &Snapshot[K, V]{ref: a.store.Record(k), value: value, revision: revision}
	}
	return out, nil
}

// DeleteAll removes the records at the given keys. The result holds the key
// where a record existed and was removed, nil where it did not.
func (a *Accessor[K, V]) DeleteAll(keys []K) ([]*K, error) {
	out := make([]*K, len(keys))
	for i, k := range keys {
		kb := encodeKey(k)
		frame, err := a.bucket.Get(kb)
		if errors.Is(err, kv.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		a.stats.TrackBytes(false, uint64(len(frame)))
		if err := a.bucket.Delete(kb); err != nil {
			return nil, err
		}
		key := k
		out[i] = &key
	}
	return out, nil
}

// AddAllIfAbsent creates a record per key only where none exists. The result
// holds the key where a record was created, nil where one was already
// present; an existing record is left untouched and is not an error.
func (a *Accessor[K, V]) AddAllIfAbsent(keys []K, values []V) ([]*K, error) {
	out := make([]*K, len(keys))
	for i, k := range keys {
		kb := encodeKey(k)
		frame, err := a.bucket.Get(kb)
		if err == nil {
			a.stats.TrackBytes(false, uint64(len(frame)))
			continue
		}
		if !errors.Is(err, kv.ErrKeyNotFound) {
			return nil, err
		}
		doc, err := document.Encode(values[i])
		if err != nil {
			return nil, err
		}
		if err := a.save(kb, 1, doc); err != nil {
			return nil, err
		}
		key := k
		out[i] = &key
	}
	return out, nil
}

// PutAll writes a value per key, replacing any existing record, or merging
// into it when merge is set. The result holds the value actually stored at
// each position.
func (a *Accessor[K, V]) PutAll(keys []K, values []V, merge bool) ([]V, error) {
	out := make([]V, len(keys))
	for i, k := range keys {
		kb := encodeKey(k)
		revision, existingDoc, exists, err := a.load(kb)
		if err != nil {
			return nil, err
		}

		var doc []byte
		if merge {
			incoming, err := document.Normalize(values[i])
			if err != nil {
				return nil, err
			}
			// Merge only applies against an existing record; on an absent
			// one the value is stored as given, minus any delete markers.
			merged := document.StripDeletes(incoming)
			if exists {
				var existing any
				if err := document.Decode(existingDoc, &existing); err != nil {
					return nil, err
				}
				merged = document.Merge(existing, incoming)
			}
			doc, err = document.Encode(merged)
			if err != nil {
				return nil, err
			}
		} else {
			doc, err = document.Encode(values[i])
			if err != nil {
				return nil, err
			}
		}

		if err := a.save(kb, revision+1, doc); err != nil {
			return nil, err
		}
		var final V
		if err := document.Decode(doc, &final); err != nil {
			return nil, err
		}
		out[i] = final
	}
	return out, nil
}

// UpdateAllIfPresent merges a value per key into the existing record only
// where one exists. The result holds the merged value where the record
// existed, nil where it did not; no record is ever created.
func (a *Accessor[K, V]) UpdateAllIfPresent(keys []K, values []V) ([]*V, error) {
	out := make([]*V, len(keys))
	for i, k := range keys {
		kb := encodeKey(k)
		revision, existingDoc, exists, err := a.load(kb)
		if err != nil {
			return nil, err
		}
		if !exists {
			continue
		}

		var existing any
		if err := document.Decode(existingDoc, &existing); err != nil {
			return nil, err
		}
		incoming, err := document.Normalize(values[i])
		if err != nil {
			return nil, err
		}
		doc, err := document.Encode(document.Merge(existing, incoming))
		if err != nil {
			return nil, err
		}
		if err := a.save(kb, revision+1, doc); err != nil {
			return nil, err
		}
		var final V
		if err := document.Decode(doc, &final); err != nil {
			return nil, err
		}
		out[i] = &final
	}
	return out, nil
}
