package document

// Merge combines an incoming value into an existing one and returns the
// result. Neither input is mutated.
//
// When the incoming value is a document, each of its top-level keys
// addresses a field of the existing value: dotted keys descend into nested
// documents (creating them as needed), backtick-escaped keys are literal,
// and FieldDelete values remove the addressed field. A non-document incoming
// value replaces the existing one wholesale. A non-document existing value
// is treated as an empty document.
func Merge(existing, incoming any) any {
	inDoc, ok := asDocument(incoming)
	if !ok {
		return stripDeletes(Clone(incoming))
	}

	out, ok := asDocument(Clone(existing))
	if !ok {
		out = Document{}
	}
	for key, value := range inDoc {
		applyField(out, parseFieldKey(key), value)
	}
	return out
}

func applyField(doc Document, path []string, value any) {
	last := len(path) - 1
	cur := doc
	for _, seg := range path[:last] {
		next, ok := asDocument(cur[seg])
		if !ok {
			// Deleting below a missing branch is a no-op.
			if isDelete(value) {
				return
			}
			next = Document{}
			cur[seg] = next
		}
		cur = next
	}

	if isDelete(value) {
		delete(cur, path[last])
		return
	}
	cur[path[last]] = stripDeletes(Clone(value))
}

// StripDeletes returns a copy of v with FieldDelete markers removed. A value
// stored outside a merge must never carry markers as data.
func StripDeletes(v any) any {
	return stripDeletes(Clone(v))
}

// stripDeletes removes FieldDelete markers from a value that is being stored
// verbatim. The value must already be a private copy.
func stripDeletes(v any) any {
	switch t := v.(type) {
	case Document:
		for k, val := range t {
			if isDelete(val) {
				delete(t, k)
				continue
			}
			t[k] = stripDeletes(val)
		}
		return t
	case map[string]any:
		return stripDeletes(Document(t))
	case []any:
		for i, e := range t {
			t[i] = stripDeletes(e)
		}
		return t
	}
	return v
}
