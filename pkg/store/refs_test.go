package store

import (
	"errors"
	"testing"

	"github.com/StratumDB/stratum/pkg/document"
)

func TestRecordsRefIndexing(t *testing.T) {
	st := NewStore[string, document.Document]("users")
	records := st.Records([]string{"a", "b", "c"})

	if records.Len() != 3 {
		t.Fatalf("Expected length 3, got %d", records.Len())
	}

	ref, err := records.At(1)
	if err != nil {
		t.Fatalf("Unexpected error from At: %v", err)
	}
	if ref.Key() != "b" {
		t.Errorf("Expected key 'b', got %q", ref.Key())
	}
	if ref.Store().Name() != "users" {
		t.Errorf("Expected store 'users', got %q", ref.Store().Name())
	}

	// Equality is (store, key) equality.
	if ref != st.Record("b") {
		t.Error("Expected references to the same record to be equal")
	}

	for _, i := range []int{-1, 3} {
		if _, err := records.At(i); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Expected ErrIndexOutOfRange for index %d, got %v", i, err)
		}
	}
}

func TestRecordsRefDefensiveCopy(t *testing.T) {
	st := NewStore[string, document.Document]("users")
	keys := []string{"a", "b"}
	records := st.Records(keys)

	keys[0] = "mutated"
	got := records.Keys()
	if got[0] != "a" {
		t.Errorf("Expected construction to copy keys, got %v", got)
	}

	// Keys() hands out a copy too.
	got[1] = "mutated"
	if again := records.Keys(); again[1] != "b" {
		t.Errorf("Expected Keys to return a copy, got %v", again)
	}
}

func TestRecordsRefDuplicateKeys(t *testing.T) {
	st := NewStore[int, document.Document]("counters")
	records := st.Records([]int{7, 7, 8})

	if records.Len() != 3 {
		t.Errorf("Expected duplicates to keep their positional slots, got length %d", records.Len())
	}
}

func TestRecordsRefString(t *testing.T) {
	st := NewStore[int, document.Document]("counters")
	records := st.Records([]int{1, 2})

	if got := records.String(); got != "counters [1, 2]" {
		t.Errorf("Unexpected string rendering: %q", got)
	}
	if got := st.Record(1).String(); got != "counters:1" {
		t.Errorf("Unexpected record rendering: %q", got)
	}
}

func TestRetypeIntWidths(t *testing.T) {
	st := NewStore[int, document.Document]("counters")
	records := st.Records([]int{1, 2, 3})

	retyped, err := Retype[int64, map[string]any](records)
	if err != nil {
		t.Fatalf("Unexpected error from retype: %v", err)
	}
	if retyped.Store().Name() != "counters" {
		t.Errorf("Expected same store, got %q", retyped.Store().Name())
	}
	keys := retyped.Keys()
	if len(keys) != 3 || keys[0] != int64(1) || keys[2] != int64(3) {
		t.Errorf("Unexpected retyped keys: %v", keys)
	}
}

func TestRetypeIncompatibleKeyType(t *testing.T) {
	st := NewStore[int, document.Document]("counters")
	records := st.Records([]int{1})

	if _, err := Retype[string, document.Document](records); !errors.Is(err, ErrCast) {
		t.Errorf("Expected ErrCast for int to string retype, got %v", err)
	}
}

func TestRetypeValueTypeOnly(t *testing.T) {
	type account struct {
		Balance int `json:"balance"`
	}

	st := NewStore[string, document.Document]("accounts")
	records := st.Records([]string{"x"})

	retyped, err := Retype[string, account](records)
	if err != nil {
		t.Fatalf("Unexpected error from retype: %v", err)
	}
	if retyped.Len() != 1 || retyped.Keys()[0] != "x" {
		t.Errorf("Unexpected retyped reference: %v", retyped)
	}
}
