package document

// --------------------------------------------------------------------------
// Document Type
// --------------------------------------------------------------------------

// Document is the in-memory representation of one store's model. It carries
// JSON object semantics: values are nested Documents (or map[string]any),
// []any slices, strings, float64 numbers, bools or nil.
type Document map[string]any

// Clone returns a deep copy of the document. The copy shares no mutable
// state with the original; mutating one never affects the other.
func Clone(d Document) Document {
	if d == nil {
		return nil
	}
	return cloneMap(d)
}

// cloneValue deep-copies a single document value
func cloneValue(v any) any {
	switch val := v.(type) {
	case Document:
		return cloneMap(val)
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		// scalars (string, float64, int, bool, nil) are immutable
		return v
	}
}

func cloneMap(m map[string]any) Document {
	out := make(Document, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

// --------------------------------------------------------------------------
// Path Access
// --------------------------------------------------------------------------

// Get resolves a nested value addressed by explicit path segments. Each
// segment is a literal key; segments containing dots are safe. With no
// segments the document itself is returned. The second return value reports
// whether the full path exists.
func Get(d Document, path ...string) (any, bool) {
	if len(path) == 0 {
		return d, d != nil
	}
	var cur any = d
	for _, seg := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes a value at the given path, creating intermediate objects as
// needed. An intermediate that exists but is not an object is replaced by a
// fresh object. With no segments the call is a no-op. The document is
// modified in place.
func Set(d Document, value any, path ...string) {
	if d == nil || len(path) == 0 {
		return
	}
	cur := d
	for _, seg := range path[:len(path)-1] {
		next, ok := asMap(cur[seg])
		if !ok {
			next = Document{}
			cur[seg] = next
		}
		cur = next
	}
	cur[path[len(path)-1]] = value
}

// Delete removes the value at the given path. Missing intermediates make the
// call a no-op, as does an empty path.
func Delete(d Document, path ...string) {
	if d == nil || len(path) == 0 {
		return
	}
	cur := d
	for _, seg := range path[:len(path)-1] {
		next, ok := asMap(cur[seg])
		if !ok {
			return
		}
		cur = next
	}
	delete(cur, path[len(path)-1])
}

// AsMap unifies the two map representations a document value may carry
// (Document for code-built models, map[string]any for JSON-decoded ones).
// The returned Document aliases the input, it is not a copy.
func AsMap(v any) (Document, bool) {
	return asMap(v)
}

func asMap(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return m, true
	default:
		return nil, false
	}
}
