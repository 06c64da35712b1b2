package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/StratumDB/stratum/pkg/codec"
	"github.com/StratumDB/stratum/pkg/document"
	"github.com/StratumDB/stratum/pkg/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

func TestOpenInvalidConfig(t *testing.T) {
	if _, err := Open(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for nil config, got: %v", err)
	}

	if _, err := Open(&Config{Path: ""}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for empty path, got: %v", err)
	}

	cfg := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	cfg.Compression = codec.Compression(42)
	if _, err := Open(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown compression, got: %v", err)
	}
}

func TestBatchOperationsEndToEnd(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	users := store.NewStore[int, document.Document]("users")
	records := users.Records([]int{1, 2, 3})

	added, err := records.Add(ctx, database, []document.Document{
		{"name": "alice"},
		{"name": "bob"},
		{"name": "carol"},
	})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	for i, k := range added {
		if k == nil {
			t.Errorf("expected key %d to be reported as added", i+1)
		}
	}

	values, err := records.Get(ctx, database)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("expected 3 values, got %d", len(values))
	}
	if values[1] == nil || (*values[1])["name"] != "bob" {
		t.Errorf("unexpected value for key 2: %v", values[1])
	}

	deleted, err := users.Records([]int{2, 4}).Delete(ctx, database)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted[0] == nil || deleted[1] != nil {
		t.Errorf("expected exactly key 2 to be deleted, got %v", deleted)
	}

	values, err = records.Get(ctx, database)
	if err != nil {
		t.Fatalf("get after delete failed: %v", err)
	}
	if values[1] != nil {
		t.Errorf("expected key 2 to be absent after delete")
	}
}

func TestWithTransactionAtomicity(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	users := store.NewStore[string, document.Document]("users")
	boom := errors.New("boom")

	err := database.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := users.Records([]string{"a"}).Add(ctx, database, []document.Document{{"n": 1}}); err != nil {
			return err
		}
		if _, err := users.Records([]string{"b"}).Add(ctx, database, []document.Document{{"n": 2}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}

	values, err := users.Records([]string{"a", "b"}).Get(ctx, database)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if values[0] != nil || values[1] != nil {
		t.Errorf("expected rolled back adds to be invisible, got %v", values)
	}

	err = database.WithTransaction(ctx, func(ctx context.Context) error {
		_, err := users.Records([]string{"a", "b"}).Add(ctx, database, []document.Document{{"n": 1}, {"n": 2}})
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	values, err = users.Records([]string{"a", "b"}).Get(ctx, database)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if values[0] == nil || values[1] == nil {
		t.Errorf("expected committed adds to be visible, got %v", values)
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()
	users := store.NewStore[int64, document.Document]("users")

	database, err := Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := users.Records([]int64{7}).Add(ctx, database, []document.Document{{"name": "dave"}}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	database, err = Open(DefaultConfig(path))
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer database.Close()

	snaps, err := users.Records([]int64{7}).GetSnapshots(ctx, database)
	if err != nil {
		t.Fatalf("get snapshots failed: %v", err)
	}
	if snaps[0] == nil {
		t.Fatal("expected record to survive reopen")
	}
	if snaps[0].Revision() != 1 {
		t.Errorf("expected revision 1, got %d", snaps[0].Revision())
	}
	if snaps[0].Value()["name"] != "dave" {
		t.Errorf("unexpected value: %v", snaps[0].Value())
	}
}

func TestClosedDB(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	if err := database.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := database.Close(); err != nil {
		t.Errorf("double close should be a no-op, got: %v", err)
	}

	users := store.NewStore[string, document.Document]("users")
	if _, err := users.Records([]string{"a"}).Get(ctx, database); !errors.Is(err, ErrDBClosed) {
		t.Errorf("expected ErrDBClosed from get, got: %v", err)
	}
	err := database.WithTransaction(ctx, func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrDBClosed) {
		t.Errorf("expected ErrDBClosed from transaction, got: %v", err)
	}
}

func TestGetStats(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()

	users := store.NewStore[string, document.Document]("users")
	if _, err := users.Records([]string{"a"}).Add(ctx, database, []document.Document{{"n": 1}}); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := users.Records([]string{"a"}).Get(ctx, database); err != nil {
		t.Fatalf("get failed: %v", err)
	}

	s := database.GetStats()
	if s["closed"] != false {
		t.Errorf("expected closed=false, got %v", s["closed"])
	}
	if _, ok := s["tx_started"]; !ok {
		t.Error("expected tx_started in stats")
	}
	ops, ok := s["add_ops"].(uint64)
	if !ok || ops != 1 {
		t.Errorf("expected add_ops=1, got %v", s["add_ops"])
	}
}
