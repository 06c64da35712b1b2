package store

import "fmt"

// Snapshot is an immutable view of a record as observed inside a
// transaction. Snapshots are transaction-scoped: once the transaction that
// produced one ends, the underlying record may change and the snapshot goes
// stale.
type Snapshot[K Key, V any] struct {
	ref      RecordRef[K, V]
	value    V
	revision uint64
}

// Ref returns the record reference the snapshot was taken from.
func (s *Snapshot[K, V]) Ref() RecordRef[K, V] {
	return s.ref
}

// Key returns the record key.
func (s *Snapshot[K, V]) Key() K {
	return s.ref.key
}

// Value returns the record value at the time of observation.
func (s *Snapshot[K, V]) Value() V {
	return s.value
}

// Revision returns the record's write revision, starting at 1 on creation
// and incremented by every put or update.
func (s *Snapshot[K, V]) Revision() uint64 {
	return s.revision
}

func (s *Snapshot[K, V]) String() string {
	return fmt.Sprintf("%s@%d", s.ref, s.revision)
}
