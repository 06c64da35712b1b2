// Package transaction runs units of work atomically against a kv.Store.
//
// The ambient transaction is carried explicitly in a context.Context rather
// than in hidden global state: a unit of work started with Run sees every
// nested View/Update join its transaction instead of opening a new one,
// which is what makes multi-batch compositions atomic.
package transaction

import (
	"context"
	"sync/atomic"

	"github.com/StratumDB/stratum/pkg/common/log"
	"github.com/StratumDB/stratum/pkg/kv"
)

type txContextKey struct{}

// NewContext returns a context carrying tx as the ambient transaction.
func NewContext(ctx context.Context, tx kv.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// FromContext returns the ambient transaction carried by ctx, if any.
func FromContext(ctx context.Context) (kv.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(kv.Tx)
	return tx, ok
}

// Manager executes units of work against a store, joining the ambient
// transaction when the context carries one and opening exactly one
// otherwise. It holds no locks of its own; isolation and conflict handling
// belong to the store.
type Manager struct {
	store  kv.Store
	logger log.Logger

	txStarted   atomic.Uint64
	txCompleted atomic.Uint64
	txAborted   atomic.Uint64
}

// NewManager creates a transaction manager over the given store.
func NewManager(store kv.Store, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		store:  store,
		logger: logger.WithField("component", "transaction"),
	}
}

// View runs fn in a read-only transaction. An ambient transaction of either
// mode is joined as-is; reads inside a joined write transaction observe its
// pending writes.
func (m *Manager) View(ctx context.Context, fn func(kv.Tx) error) error {
	if tx, ok := FromContext(ctx); ok {
		return fn(tx)
	}
	return m.store.View(ctx, fn)
}

// Update runs fn in a read-write transaction. Joining a read-only ambient
// transaction fails with kv.ErrTxNotWritable before fn runs.
func (m *Manager) Update(ctx context.Context, fn func(kv.Tx) error) error {
	if tx, ok := FromContext(ctx); ok {
		if !tx.Writable() {
			return kv.ErrTxNotWritable
		}
		return fn(tx)
	}

	m.txStarted.Add(1)
	err := m.store.Update(ctx, fn)
	if err != nil {
		m.txAborted.Add(1)
		m.logger.Debug("transaction aborted: %v", err)
		return err
	}
	m.txCompleted.Add(1)
	return nil
}

// Run executes a unit of work atomically. The work function receives a
// context carrying the opened transaction, so every operation inside it
// joins that transaction; either all of the work's effects become visible
// together, or none on error. If ctx already carries a transaction the work
// simply runs inside it, and commit remains with the outer owner.
func (m *Manager) Run(ctx context.Context, work func(ctx context.Context) error) error {
	if _, ok := FromContext(ctx); ok {
		return work(ctx)
	}

	m.txStarted.Add(1)
	err := m.store.Update(ctx, func(tx kv.Tx) error {
		return work(NewContext(ctx, tx))
	})
	if err != nil {
		m.txAborted.Add(1)
		m.logger.Debug("unit of work aborted: %v", err)
		return err
	}
	m.txCompleted.Add(1)
	return nil
}

// Stats returns transaction counters.
func (m *Manager) Stats() map[string]interface{} {
	started := m.txStarted.Load()
	completed := m.txCompleted.Load()
	aborted := m.txAborted.Load()

	return map[string]interface{}{
		"tx_started":   started,
		"tx_completed": completed,
		"tx_aborted":   aborted,
		"tx_active":    started - completed - aborted,
	}
}
