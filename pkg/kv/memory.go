package kv

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Store used by tests and tooling. Update
// transactions stage their changes against a copy of the affected buckets
// and publish the copy only when the closure succeeds, which gives the same
// all-or-nothing behavior as the durable backends.
type Memory struct {
	mu      sync.RWMutex
	closed  bool
	buckets map[string]map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		buckets: make(map[string]map[string][]byte),
	}
}

// View runs fn inside a read-only transaction.
func (m *Memory) View(ctx context.Context, fn func(Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrStoreClosed
	}

	tx := &memTx{ctx: ctx, buckets: m.buckets}
	return fn(tx)
}

// Update runs fn inside a read-write transaction. The staged buckets replace
// the live ones only if fn returns nil.
func (m *Memory) Update(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	staged := cloneBuckets(m.buckets)
	tx := &memTx{ctx: ctx, buckets: staged, writable: true}
	if err := fn(tx); err != nil {
		return err
	}

	m.buckets = staged
	return nil
}

// Close marks the store closed. Further transactions fail with ErrStoreClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneBuckets(src map[string]map[string][]byte) map[string]map[string][]byte {
	dst := make(map[string]map[string][]byte, len(src))
	for name, b := range src {
		nb := make(map[string][]byte, len(b))
		for k, v := range b {
			nb[k] = v
		}
		dst[name] = nb
	}
	return dst
}

type memTx struct {
	ctx      context.Context
	buckets  map[string]map[string][]byte
	writable bool
}

func (tx *memTx) Bucket(name []byte) (Bucket, error) {
	b, ok := tx.buckets[string(name)]
	if !ok {
		if !tx.writable {
			// A missing bucket in a view transaction reads as empty.
			return &memBucket{tx: tx}, nil
		}
		b = make(map[string][]byte)
		tx.buckets[string(name)] = b
	}
	return &memBucket{tx: tx, data: b}, nil
}

func (tx *memTx) Writable() bool {
	return tx.writable
}

func (tx *memTx) Context() context.Context {
	return tx.ctx
}

type memBucket struct {
	tx   *memTx
	data map[string][]byte
}

func (b *memBucket) Get(key []byte) ([]byte, error) {
	v, ok := b.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

func (b *memBucket) Put(key, value []byte) error {
	if !b.tx.writable {
		return ErrTxNotWritable
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	b.data[string(key)] = cp
	return nil
}

func (b *memBucket) Delete(key []byte) error {
	if !b.tx.writable {
		return ErrTxNotWritable
	}
	delete(b.data, string(key))
	return nil
}

func (b *memBucket) Cursor() (Cursor, error) {
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &memCursor{bucket: b, keys: keys, pos: -1}, nil
}

type memCursor struct {
	bucket *memBucket
	keys   []string
	pos    int
}

func (c *memCursor) First() ([]byte, []byte) {
	c.pos = 0
	return c.current()
}

func (c *memCursor) Next() ([]byte, []byte) {
	c.pos++
	return c.current()
}

func (c *memCursor) Seek(prefix []byte) ([]byte, []byte) {
	c.pos = sort.SearchStrings(c.keys, string(prefix))
	return c.current()
}

func (c *memCursor) current() ([]byte, []byte) {
	if c.pos < 0 || c.pos >= len(c.keys) {
		return nil, nil
	}
	k := c.keys[c.pos]
	return []byte(k), c.bucket.data[k]
}
