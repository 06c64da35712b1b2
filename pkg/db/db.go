// Package db assembles the record access layer: a bolt-backed kv store, the
// transaction manager, the record codec and the statistics collector behind
// one open/close facade.
package db

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/StratumDB/stratum/pkg/bolt"
	"github.com/StratumDB/stratum/pkg/codec"
	"github.com/StratumDB/stratum/pkg/common/log"
	"github.com/StratumDB/stratum/pkg/kv"
	"github.com/StratumDB/stratum/pkg/stats"
	"github.com/StratumDB/stratum/pkg/store"
	"github.com/StratumDB/stratum/pkg/transaction"
)

// ErrDBClosed is returned when operations are performed on a closed database
var ErrDBClosed = errors.New("database is closed")

// Ensure DB satisfies what batch operations need
var _ store.Database = (*DB)(nil)

// DB is the top-level handle. It implements store.Database, so batch
// references operate against it directly.
type DB struct {
	cfg    *Config
	logger log.Logger

	kvstore   *bolt.Store
	runner    *transaction.Manager
	codec     *codec.Codec
	collector *stats.AtomicCollector

	closed atomic.Bool
}

// Open opens (creating if necessary) the database described by cfg.
func Open(cfg *Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithField("component", "db")

	c, err := codec.New(cfg.Compression)
	if err != nil {
		return nil, err
	}

	kvstore, err := bolt.Open(cfg.Path, bolt.WithLogger(logger))
	if err != nil {
		c.Close()
		return nil, err
	}

	return &DB{
		cfg:       cfg,
		logger:    logger,
		kvstore:   kvstore,
		runner:    transaction.NewManager(kvstore, logger),
		codec:     c,
		collector: stats.NewAtomicCollector(),
	}, nil
}

// Close closes the database. Further operations fail with ErrDBClosed.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return nil
	}
	db.logger.Info("closing %s", db.cfg.Path)

	err := db.kvstore.Close()
	if cerr := db.codec.Close(); err == nil {
		err = cerr
	}
	return err
}

// View runs fn in a read-only transaction, joining the ambient one if ctx
// carries it.
func (db *DB) View(ctx context.Context, fn func(kv.Tx) error) error {
	if db.closed.Load() {
		return ErrDBClosed
	}
	return db.runner.View(ctx, fn)
}

// Update runs fn in a read-write transaction, joining the ambient one if
// ctx carries it.
func (db *DB) Update(ctx context.Context, fn func(kv.Tx) error) error {
	if db.closed.Load() {
		return ErrDBClosed
	}
	return db.runner.Update(ctx, fn)
}

// WithTransaction runs a unit of work atomically. Every batch operation
// performed with the context handed to work joins the same transaction, so
// multi-batch compositions commit or roll back together.
func (db *DB) WithTransaction(ctx context.Context, work func(ctx context.Context) error) error {
	if db.closed.Load() {
		return ErrDBClosed
	}

	// Joining an outer unit of work is not a new transaction.
	if _, ok := transaction.FromContext(ctx); ok {
		return work(ctx)
	}

	db.collector.TrackOperation(stats.OpTxBegin)
	err := db.runner.Run(ctx, work)
	if err != nil {
		db.collector.TrackOperation(stats.OpTxRollback)
		return err
	}
	db.collector.TrackOperation(stats.OpTxCommit)
	return nil
}

// Codec returns the record codec.
func (db *DB) Codec() *codec.Codec {
	return db.codec
}

// Stats returns the statistics collector.
func (db *DB) Stats() stats.Collector {
	return db.collector
}

// GetStats returns the combined statistics of all components.
func (db *DB) GetStats() map[string]interface{} {
	s := db.collector.GetStats()
	for k, v := range db.runner.Stats() {
		s[k] = v
	}
	s["path"] = db.cfg.Path
	s["closed"] = db.closed.Load()
	return s
}
