package store

import (
	"fmt"
	"strings"
)

// StoreRef identifies a store: a named namespace of records with a declared
// key type K and value type V. References are cheap value descriptors; they
// carry no storage-side resources and are safe to copy and reuse across
// transactions.
type StoreRef[K Key, V any] struct {
	name string
}

// NewStore declares a reference to the store with the given name.
func NewStore[K Key, V any](name string) StoreRef[K, V] {
	return StoreRef[K, V]{name: name}
}

// Name returns the store name.
func (s StoreRef[K, V]) Name() string {
	return s.name
}

// Record returns a reference to the single record at key.
func (s StoreRef[K, V]) Record(key K) RecordRef[K, V] {
	return RecordRef[K, V]{store: s, key: key}
}

// Records returns a batch reference over the given keys. The key sequence is
// copied; its order is significant and preserved in every result sequence.
// Duplicate keys are legal, each occurrence owning its positional slot.
func (s StoreRef[K, V]) Records(keys []K) RecordsRef[K, V] {
	cp := make([]K, len(keys))
	copy(cp, keys)
	return RecordsRef[K, V]{store: s, keySequence: keySequence[K]{keys: cp}}
}

func (s StoreRef[K, V]) String() string {
	return s.name
}

// RecordRef identifies exactly one record: a store plus a single key. Two
// references are equal iff their store and key are equal.
type RecordRef[K Key, V any] struct {
	store StoreRef[K, V]
	key   K
}

// Store returns the store the record belongs to.
func (r RecordRef[K, V]) Store() StoreRef[K, V] {
	return r.store
}

// Key returns the record key.
func (r RecordRef[K, V]) Key() K {
	return r.key
}

func (r RecordRef[K, V]) String() string {
	return fmt.Sprintf("%s:%v", r.store.name, r.key)
}

// keySequence is the indexing behavior shared by batch references: a
// fixed-length, order-preserving key sequence.
type keySequence[K Key] struct {
	keys []K
}

// Len returns the number of keys in the sequence.
func (s keySequence[K]) Len() int {
	return len(s.keys)
}

func (s keySequence[K]) at(i int) (K, error) {
	if i < 0 || i >= len(s.keys) {
		var zero K
		return zero, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, i, len(s.keys))
	}
	return s.keys[i], nil
}

// RecordsRef is an ordered, fixed set of keys bound to one store, the unit
// of every bulk operation. The sequence is immutable once constructed;
// operations needing a different key set build a new reference.
type RecordsRef[K Key, V any] struct {
	store StoreRef[K, V]
	keySequence[K]
}

// Store returns the store the batch is bound to.
func (r RecordsRef[K, V]) Store() StoreRef[K, V] {
	return r.store
}

// Keys returns a copy of the key sequence.
func (r RecordsRef[K, V]) Keys() []K {
	cp := make([]K, len(r.keys))
	copy(cp, r.keys)
	return cp
}

// At returns the record reference at position i.
func (r RecordsRef[K, V]) At(i int) (RecordRef[K, V], error) {
	k, err := r.at(i)
	if err != nil {
		return RecordRef[K, V]{}, err
	}
	return r.store.Record(k), nil
}

// String renders the store name and key sequence, for diagnostics only.
func (r RecordsRef[K, V]) String() string {
	var sb strings.Builder
	sb.WriteString(r.store.name)
	sb.WriteString(" [")
	for i, k := range r.keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%v", k)
	}
	sb.WriteString("]")
	return sb.String()
}

// Retype rebinds a batch reference to different key and value type
// parameters without copying record data. Each key must convert losslessly
// to K2 (see Key); an impossible conversion fails with ErrCast before any
// storage access. Value compatibility is not checked here: reads through an
// incompatible V2 surface as decode errors.
func Retype[K2 Key, V2 any, K Key, V any](r RecordsRef[K, V]) (RecordsRef[K2, V2], error) {
	keys := make([]K2, len(r.keys))
	for i, k := range r.keys {
		ck, err := convertKey[K2](any(k))
		if err != nil {
			return RecordsRef[K2, V2]{}, err
		}
		keys[i] = ck
	}
	return RecordsRef[K2, V2]{
		store:       StoreRef[K2, V2]{name: r.store.name},
		keySequence: keySequence[K2]{keys: keys},
	}, nil
}
