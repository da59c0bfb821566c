package document

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
)

// --------------------------------------------------------------------------
// Equality Modes
// --------------------------------------------------------------------------

// EqualityMode selects how a store compares two models when deciding
// whether a mutation, flush or snapshot changed anything.
type EqualityMode uint8

const (
	// EqualityStructural is the default: deep value comparison, key order
	// ignored, a key holding nil is indistinguishable from an absent key.
	EqualityStructural EqualityMode = iota

	// EqualityStrict also compares deeply but keeps nil-valued keys
	// distinct from absent keys.
	EqualityStrict
)

// Equal compares two documents under the mode m.
func (m EqualityMode) Equal(a, b Document) bool {
	if m == EqualityStrict {
		return EqualStrict(a, b)
	}
	return Equal(a, b)
}

// String returns the mode name (used in config pretty-printing)
func (m EqualityMode) String() string {
	if m == EqualityStrict {
		return "strict"
	}
	return "structural"
}

// --------------------------------------------------------------------------
// Comparison
// --------------------------------------------------------------------------

// Equal reports deep structural equality of two documents. Key order is
// irrelevant, numeric values compare by value regardless of Go type, and a
// key holding nil counts as absent. This is the comparison the engine uses
// at its two suppression chokepoints: skipping a flush whose document equals
// the last flushed one, and skipping reconciliation of a snapshot that
// equals the replica's current model.
func Equal(a, b Document) bool {
	return cmp.Equal(normalize(a, true), normalize(b, true))
}

// EqualStrict is Equal without the nil-equals-absent rule.
func EqualStrict(a, b Document) bool {
	return cmp.Equal(normalize(a, false), normalize(b, false))
}

// normalize rewrites a document value into a canonical form so that go-cmp
// sees through representation differences: Document vs map[string]any, Go
// numeric types vs the float64 produced by JSON decoding. With pruneNil set,
// nil-valued object keys are dropped entirely.
func normalize(v any, pruneNil bool) any {
	switch val := v.(type) {
	case Document:
		return normalizeMap(val, pruneNil)
	case map[string]any:
		return normalizeMap(val, pruneNil)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			// nil inside arrays is kept, [null] and [] are different values
			out[i] = normalize(e, pruneNil)
		}
		return out
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int8:
		return float64(val)
	case int16:
		return float64(val)
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return float64(val)
	case uint16:
		return float64(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

func normalizeMap(m map[string]any, pruneNil bool) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if v == nil && pruneNil {
			continue
		}
		out[k] = normalize(v, pruneNil)
	}
	return out
}
