// Package bolt implements kv.Store on top of a boltdb file. Bolt's single
// writer and serializable snapshots supply the atomicity and isolation the
// record layer delegates downward.
package bolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/StratumDB/stratum/pkg/common/log"
	"github.com/StratumDB/stratum/pkg/kv"
)

// Store is a kv.Store backed by a boltdb file.
type Store struct {
	path   string
	db     *bolt.DB
	logger log.Logger
	closed atomic.Bool
}

// Option configures a Store before it is opened.
type Option func(*Store)

// WithLogger sets the logger used by the store.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open creates the boltdb file if it doesn't exist and opens it otherwise.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithField("component", "bolt")

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt file: %w", err)
	}
	s.db = db

	s.logger.Info("opened %s", path)
	return s, nil
}

// Path returns the bolt file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying bolt database.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

// View opens a read-only transaction against the store.
func (s *Store) View(ctx context.Context, fn func(kv.Tx) error) error {
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx, ctx: ctx})
	})
}

// Update opens a read-write transaction against the store. The closure's
// error rolls the transaction back and is returned unchanged.
func (s *Store) Update(ctx context.Context, fn func(kv.Tx) error) error {
	if s.closed.Load() {
		return kv.ErrStoreClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&Tx{tx: tx, ctx: ctx})
	})
}

// Tx is a light wrapper around a boltdb transaction. It implements kv.Tx.
type Tx struct {
	tx  *bolt.Tx
	ctx context.Context
}

// Bucket returns the named bucket, creating it in writable transactions. In
// a read-only transaction a missing bucket reads as empty.
func (tx *Tx) Bucket(name []byte) (kv.Bucket, error) {
	if tx.tx.Writable() {
		bkt, err := tx.tx.CreateBucketIfNotExists(name)
		if err != nil {
			return nil, err
		}
		return &Bucket{bucket: bkt}, nil
	}

	bkt := tx.tx.Bucket(name)
	if bkt == nil {
		return emptyBucket{}, nil
	}
	return &Bucket{bucket: bkt}, nil
}

// Writable reports whether the transaction accepts mutations.
func (tx *Tx) Writable() bool {
	return tx.tx.Writable()
}

// Context returns the context the transaction was opened with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Bucket implements kv.Bucket over a boltdb bucket.
type Bucket struct {
	bucket *bolt.Bucket
}

// Get retrieves the value at key. Bolt value slices are only valid for the
// life of the transaction, which matches the accessor's usage.
func (b *Bucket) Get(key []byte) ([]byte, error) {
	val := b.bucket.Get(key)
	if len(val) == 0 {
		return nil, kv.ErrKeyNotFound
	}
	return val, nil
}

// Put sets the value at key.
func (b *Bucket) Put(key, value []byte) error {
	err := b.bucket.Put(key, value)
	if errors.Is(err, bolt.ErrTxNotWritable) {
		return kv.ErrTxNotWritable
	}
	return err
}

// Delete removes key.
func (b *Bucket) Delete(key []byte) error {
	err := b.bucket.Delete(key)
	if errors.Is(err, bolt.ErrTxNotWritable) {
		return kv.ErrTxNotWritable
	}
	return err
}

// Cursor returns a cursor over the bucket's keys.
func (b *Bucket) Cursor() (kv.Cursor, error) {
	return &Cursor{cursor: b.bucket.Cursor()}, nil
}

// Cursor implements kv.Cursor over a boltdb cursor.
type Cursor struct {
	cursor *bolt.Cursor
}

// First positions the cursor at the first key.
func (c *Cursor) First() ([]byte, []byte) {
	return clamp(c.cursor.First())
}

// Next advances the cursor.
func (c *Cursor) Next() ([]byte, []byte) {
	return clamp(c.cursor.Next())
}

// Seek positions the cursor at the first key at or after prefix.
func (c *Cursor) Seek(prefix []byte) ([]byte, []byte) {
	return clamp(c.cursor.Seek(prefix))
}

func clamp(k, v []byte) ([]byte, []byte) {
	if len(k) == 0 && len(v) == 0 {
		return nil, nil
	}
	return k, v
}

// emptyBucket reads as an empty namespace inside read-only transactions
// whose bucket was never created.
type emptyBucket struct{}

func (emptyBucket) Get(key []byte) ([]byte, error) {
	return nil, kv.ErrKeyNotFound
}

func (emptyBucket) Put(key, value []byte) error {
	return kv.ErrTxNotWritable
}

func (emptyBucket) Delete(key []byte) error {
	return kv.ErrTxNotWritable
}

func (emptyBucket) Cursor() (kv.Cursor, error) {
	return emptyCursor{}, nil
}

type emptyCursor struct{}

func (emptyCursor) First() ([]byte, []byte) { return nil, nil }

func (emptyCursor) Next() ([]byte, []byte) { return nil, nil }

func (emptyCursor) Seek(prefix []byte) ([]byte, []byte) { return nil, nil }
