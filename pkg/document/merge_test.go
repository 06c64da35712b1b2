package document

import (
	"reflect"
	"testing"
)

func TestMergeTopLevel(t *testing.T) {
	existing := Document{"x": 1, "y": "keep"}
	incoming := Document{"x": 2, "z": true}

	got := Merge(existing, incoming)
	want := Document{"x": 2, "y": "keep", "z": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge = %v, want %v", got, want)
	}

	// Inputs must not be mutated.
	if existing["x"] != 1 {
		t.Errorf("Merge mutated existing value: %v", existing)
	}
}

func TestMergeDottedPath(t *testing.T) {
	existing := Document{"address": Document{"city": "here", "zip": "12345"}}
	incoming := Document{"address.city": "there", "meta.created": "today"}

	got, ok := Merge(existing, incoming).(Document)
	if !ok {
		t.Fatalf("Expected document result, got %T", got)
	}

	address, _ := got["address"].(Document)
	if address["city"] != "there" {
		t.Errorf("Expected nested city overwrite, got %v", address)
	}
	if address["zip"] != "12345" {
		t.Errorf("Expected sibling field preserved, got %v", address)
	}
	meta, _ := got["meta"].(Document)
	if meta == nil || meta["created"] != "today" {
		t.Errorf("Expected intermediate map creation, got %v", got["meta"])
	}
}

func TestMergeEscapedKey(t *testing.T) {
	existing := Document{}
	incoming := Document{EscapeKey("a.b"): 1}

	got := Merge(existing, incoming).(Document)
	if got["a.b"] != 1 {
		t.Errorf("Expected literal dotted key, got %v", got)
	}
	if _, ok := got["a"]; ok {
		t.Errorf("Escaped key must not create a nested path: %v", got)
	}
}

func TestMergeSubmapReplacesWholesale(t *testing.T) {
	existing := Document{"address": Document{"city": "here", "zip": "12345"}}
	incoming := Document{"address": Document{"city": "there"}}

	got := Merge(existing, incoming).(Document)
	address, _ := got["address"].(Document)
	if _, ok := address["zip"]; ok {
		t.Errorf("Expected submap to replace wholesale, got %v", address)
	}
	if address["city"] != "there" {
		t.Errorf("Expected replaced city, got %v", address)
	}
}

func TestMergeFieldDelete(t *testing.T) {
	existing := Document{"a": 1, "nested": Document{"b": 2, "c": 3}}
	incoming := Document{"a": FieldDelete, "nested.b": FieldDelete, "missing.x": FieldDelete}

	got := Merge(existing, incoming).(Document)
	if _, ok := got["a"]; ok {
		t.Errorf("Expected field 'a' deleted, got %v", got)
	}
	nested, _ := got["nested"].(Document)
	if _, ok := nested["b"]; ok {
		t.Errorf("Expected nested field 'b' deleted, got %v", nested)
	}
	if nested["c"] != 3 {
		t.Errorf("Expected nested sibling preserved, got %v", nested)
	}
	if _, ok := got["missing"]; ok {
		t.Errorf("Delete below a missing branch must be a no-op, got %v", got)
	}
}

func TestMergeNonDocumentValues(t *testing.T) {
	// Non-document incoming replaces wholesale.
	if got := Merge(Document{"a": 1}, "scalar"); got != "scalar" {
		t.Errorf("Expected wholesale replacement, got %v", got)
	}

	// Non-document existing is treated as empty.
	got := Merge(42, Document{"a.b": 1}).(Document)
	sub, _ := got["a"].(Document)
	if sub == nil || sub["b"] != 1 {
		t.Errorf("Expected merge into empty document, got %v", got)
	}
}

func TestNormalizeTypedValue(t *testing.T) {
	type person struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	got, err := Normalize(person{Name: "ada", Age: 36})
	if err != nil {
		t.Fatalf("Unexpected error from normalize: %v", err)
	}
	doc, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("Expected map result, got %T", got)
	}
	if doc["name"] != "ada" || doc["age"] != float64(36) {
		t.Errorf("Unexpected normalized document: %v", doc)
	}
}

func TestNormalizePreservesFieldDelete(t *testing.T) {
	got, err := Normalize(Document{"gone": FieldDelete, "kept": 1})
	if err != nil {
		t.Fatalf("Unexpected error from normalize: %v", err)
	}
	doc := got.(Document)
	if !isDelete(doc["gone"]) {
		t.Errorf("Expected FieldDelete to survive normalize, got %v", doc["gone"])
	}
}

func TestCloneIsDeep(t *testing.T) {
	src := Document{"nested": Document{"a": 1}, "list": []any{Document{"b": 2}}}
	cp := Clone(src).(Document)

	cp["nested"].(Document)["a"] = 99
	cp["list"].([]any)[0].(Document)["b"] = 99

	if src["nested"].(Document)["a"] != 1 {
		t.Error("Clone shares nested map storage")
	}
	if src["list"].([]any)[0].(Document)["b"] != 2 {
		t.Error("Clone shares slice element storage")
	}
}
