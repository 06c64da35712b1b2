// Package document implements the value model of the record layer: JSON
// documents and the structural merge applied by put-with-merge and update.
package document

import (
	"encoding/json"
	"strings"
)

// Document is a string-keyed structured value, the natural record shape for
// this layer. Any JSON-serializable value can be stored; merge semantics
// only apply between documents.
type Document map[string]any

type deleteMarker struct{}

// FieldDelete removes the addressed field when used as a value in a merge.
var FieldDelete any = deleteMarker{}

// Encode serializes a value to its persisted document representation.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode deserializes persisted document bytes into out.
func Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// Normalize converts an arbitrary value into the generic document form
// (Document, []any, primitives). Documents are deep-cloned rather than
// round-tripped so that FieldDelete markers survive.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil:
		return nil, nil
	case Document, map[string]any:
		return Clone(v), nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns a deep copy of a document-shaped value. Maps and slices are
// copied; everything else is returned as-is.
func Clone(v any) any {
	switch t := v.(type) {
	case Document:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case map[string]any:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = Clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	}
	return v
}

// EscapeKey quotes a field key so that merge treats it as a literal key
// rather than a dotted path.
func EscapeKey(key string) string {
	return "`" + key + "`"
}

func asDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	}
	return nil, false
}

func isDelete(v any) bool {
	_, ok := v.(deleteMarker)
	return ok
}

// parseFieldKey splits a field key into path segments. A dot separates
// segments unless the whole key is backtick-escaped.
func parseFieldKey(key string) []string {
	if len(key) >= 2 && strings.HasPrefix(key, "`") && strings.HasSuffix(key, "`") {
		return []string{key[1 : len(key)-1]}
	}
	return strings.Split(key, ".")
}
