package store

import (
	"testing"

	"github.com/StratumDB/stratum/pkg/codec"
	"github.com/StratumDB/stratum/pkg/kv"
	"github.com/StratumDB/stratum/pkg/stats"
	"github.com/StratumDB/stratum/pkg/transaction"
)

// testDB is an in-memory Database for exercising batch operations.
type testDB struct {
	*transaction.Manager
	codec     *codec.Codec
	collector *stats.AtomicCollector
}

func newTestDB(t *testing.T) *testDB {
	t.Helper()

	c, err := codec.New(codec.NoCompression)
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	return &testDB{
		Manager:   transaction.NewManager(kv.NewMemory(), nil),
		codec:     c,
		collector: stats.NewAtomicCollector(),
	}
}

func (d *testDB) Codec() *codec.Codec {
	return d.codec
}

func (d *testDB) Stats() stats.Collector {
	return d.collector
}
