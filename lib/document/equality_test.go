package document

import (
	"encoding/json"
	"testing"
)

// TestEqual tests structural comparison across representation differences
func TestEqual(t *testing.T) {
	testCases := []struct {
		name     string
		a        Document
		b        Document
		expected bool
	}{
		{
			name:     "Identical documents",
			a:        Document{"theme": "dark"},
			b:        Document{"theme": "dark"},
			expected: true,
		},
		{
			name:     "Different values",
			a:        Document{"theme": "dark"},
			b:        Document{"theme": "light"},
			expected: false,
		},
		{
			name:     "Int equals float64",
			a:        Document{"count": 3},
			b:        Document{"count": float64(3)},
			expected: true,
		},
		{
			name:     "Document equals map",
			a:        Document{"nested": Document{"a": float64(1)}},
			b:        Document{"nested": map[string]any{"a": float64(1)}},
			expected: true,
		},
		{
			name:     "Nil value equals absent key",
			a:        Document{"theme": "dark", "legacy": nil},
			b:        Document{"theme": "dark"},
			expected: true,
		},
		{
			name:     "Nil inside array is significant",
			a:        Document{"items": []any{nil}},
			b:        Document{"items": []any{}},
			expected: false,
		},
		{
			name:     "Different array order",
			a:        Document{"items": []any{"a", "b"}},
			b:        Document{"items": []any{"b", "a"}},
			expected: false,
		},
		{
			name:     "Deeply nested difference",
			a:        Document{"a": Document{"b": Document{"c": float64(1)}}},
			b:        Document{"a": Document{"b": Document{"c": float64(2)}}},
			expected: false,
		},
		{
			name:     "Both nil",
			a:        nil,
			b:        nil,
			expected: true,
		},
		{
			name:     "Nil equals empty",
			a:        nil,
			b:        Document{},
			expected: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.expected {
				t.Errorf("Expected Equal=%v, got %v", tc.expected, got)
			}
			// Symmetry
			if got := Equal(tc.b, tc.a); got != tc.expected {
				t.Errorf("Expected Equal=%v for swapped arguments, got %v", tc.expected, got)
			}
		})
	}
}

// TestEqualReflexive tests that every document equals itself and its clone
func TestEqualReflexive(t *testing.T) {
	docs := []Document{
		nil,
		{},
		{"hotbars": []any{Document{"name": "default", "items": []any{}}}},
		{"a": float64(1), "b": []any{"x", nil, Document{"y": true}}},
	}

	for i, d := range docs {
		if !Equal(d, d) {
			t.Errorf("Document %d is not equal to itself", i)
		}
		if !Equal(d, Clone(d)) {
			t.Errorf("Document %d is not equal to its clone", i)
		}
	}
}

// TestEqualJSONRoundTrip tests that a document equals its own JSON round trip.
// This is the property replica reconciliation depends on: a model decoded
// from the wire must compare equal to the code-built model it was made from.
func TestEqualJSONRoundTrip(t *testing.T) {
	original := Document{
		"hotbars": []any{
			Document{"name": "default", "items": []any{"a", "b"}},
		},
		"fontSize": 14,
		"enabled":  true,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded Document
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}

	if !Equal(original, decoded) {
		t.Errorf("Document doesn't equal its JSON round trip:\nOriginal: %+v\nDecoded: %+v",
			original, decoded)
	}
}

// TestEqualStrict tests the strict mode where nil and absent differ
func TestEqualStrict(t *testing.T) {
	a := Document{"theme": "dark", "legacy": nil}
	b := Document{"theme": "dark"}

	if EqualStrict(a, b) {
		t.Errorf("Expected strict comparison to distinguish nil value from absent key")
	}
	if !EqualStrict(a, Clone(a)) {
		t.Errorf("Expected document to strictly equal its clone")
	}

	// Numeric normalization still applies in strict mode
	if !EqualStrict(Document{"n": 1}, Document{"n": float64(1)}) {
		t.Errorf("Expected strict comparison to treat int and float64 as equal values")
	}
}

// TestEqualityModeDispatch tests the mode selector used by store descriptors
func TestEqualityModeDispatch(t *testing.T) {
	a := Document{"legacy": nil}
	b := Document{}

	if !EqualityStructural.Equal(a, b) {
		t.Errorf("Expected structural mode to equate nil value and absent key")
	}
	if EqualityStrict.Equal(a, b) {
		t.Errorf("Expected strict mode to distinguish nil value and absent key")
	}

	if EqualityStructural.String() != "structural" || EqualityStrict.String() != "strict" {
		t.Errorf("Unexpected mode names: %s, %s", EqualityStructural.String(), EqualityStrict.String())
	}
}
