// Package kv defines the narrow boundary between the record layer and the
// underlying transactional key/value engine. It is modeled after the boltdb
// transaction shape: closures over a Tx, buckets as namespaces.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound is returned when the requested key has no record
	ErrKeyNotFound = errors.New("key not found")
	// ErrTxNotWritable is returned when a mutating operation is called inside
	// a read-only transaction
	ErrTxNotWritable = errors.New("transaction is not writable")
	// ErrStoreClosed is returned when operations are performed on a closed store
	ErrStoreClosed = errors.New("store is closed")
)

// Store is a transactional key/value store. View transactions must not
// mutate data; Update transactions apply all of their effects atomically
// or none of them.
type Store interface {
	// View opens a read-only transaction and runs fn inside it.
	View(ctx context.Context, fn func(Tx) error) error

	// Update opens a read-write transaction and runs fn inside it. If fn
	// returns an error the transaction is rolled back and the error is
	// returned unchanged.
	Update(ctx context.Context, fn func(Tx) error) error

	// Close releases the store's resources.
	Close() error
}

// Tx is a transaction in the store.
type Tx interface {
	// Bucket returns the bucket with the given name. Writable transactions
	// create the bucket if it does not exist yet.
	Bucket(name []byte) (Bucket, error)

	// Writable reports whether the transaction accepts mutations.
	Writable() bool

	// Context returns the context the transaction was opened with.
	Context() context.Context
}

// Bucket is a namespace of keys inside a transaction.
type Bucket interface {
	// Get returns the value stored at key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Put stores value at key. Returns ErrTxNotWritable inside a read-only
	// transaction.
	Put(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	// Returns ErrTxNotWritable inside a read-only transaction.
	Delete(key []byte) error

	// Cursor returns a cursor positioned before the first key.
	Cursor() (Cursor, error)
}

// Cursor iterates the keys of a bucket in lexicographic order. All methods
// return nil, nil once the cursor is exhausted.
type Cursor interface {
	First() (key, value []byte)
	Next() (key, value []byte)
	Seek(prefix []byte) (key, value []byte)
}
