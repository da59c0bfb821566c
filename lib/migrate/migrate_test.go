package migrate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/google/go-cmp/cmp"
)

// renameItems is the canonical upgrade used throughout these tests: it
// renames the top level key "items" to "entries"
func renameItems(doc document.Document) (document.Document, error) {
	if items, ok := doc["items"]; ok {
		doc["entries"] = items
		delete(doc, "items")
	}
	return doc, nil
}

// TestApplyRename tests the single-step upgrade from 1.0.0 to 1.1.0
func TestApplyRename(t *testing.T) {
	table := NewTable("1.1.0", NewMigration("1.1.0", renameItems))

	upgraded, err := table.Apply("1.0.0", document.Document{"items": []any{}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	expected := document.Document{"entries": []any{}}
	if !document.Equal(upgraded, expected) {
		t.Errorf("Unexpected result (-want +got):\n%s", cmp.Diff(expected, upgraded))
	}
}

// TestApplyOrderAndExactlyOnce tests that transforms run ascending and once each
func TestApplyOrderAndExactlyOnce(t *testing.T) {
	var order []string
	step := func(v string) Transform {
		return func(doc document.Document) (document.Document, error) {
			order = append(order, v)
			doc[v] = true
			return doc, nil
		}
	}

	// Deliberately registered out of order
	table := NewTable("3.0.0",
		NewMigration("3.0.0", step("3.0.0")),
		NewMigration("1.1.0", step("1.1.0")),
		NewMigration("2.0.0", step("2.0.0")),
	)

	upgraded, err := table.Apply("1.0.0", document.Document{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	expectedOrder := []string{"1.1.0", "2.0.0", "3.0.0"}
	if len(order) != len(expectedOrder) {
		t.Fatalf("Expected %d transforms to run, got %d (%v)", len(expectedOrder), len(order), order)
	}
	for i, v := range expectedOrder {
		if order[i] != v {
			t.Errorf("Expected transform %d to be %s, got %s", i, v, order[i])
		}
	}
	for _, v := range expectedOrder {
		if upgraded[v] != true {
			t.Errorf("Expected marker for %s in upgraded document", v)
		}
	}
}

// TestApplyPartialUpgrade tests that only transforms newer than stored run
func TestApplyPartialUpgrade(t *testing.T) {
	invoked := 0
	count := func(doc document.Document) (document.Document, error) {
		invoked++
		return doc, nil
	}

	table := NewTable("2.0.0",
		NewMigration("1.1.0", count),
		NewMigration("2.0.0", count),
	)

	if _, err := table.Apply("1.1.0", document.Document{}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if invoked != 1 {
		t.Errorf("Expected exactly 1 transform invocation, got %d", invoked)
	}
}

// TestApplyCurrentIsNoop tests idempotence: a current document passes through
// untouched and no transform runs
func TestApplyCurrentIsNoop(t *testing.T) {
	invoked := 0
	table := NewTable("1.1.0", NewMigration("1.1.0", func(doc document.Document) (document.Document, error) {
		invoked++
		return doc, nil
	}))

	original := document.Document{"entries": []any{"a"}}
	upgraded, err := table.Apply("1.1.0", original)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if invoked != 0 {
		t.Errorf("Expected no transform invocation, got %d", invoked)
	}
	if !document.Equal(original, upgraded) {
		t.Errorf("Expected document to pass through unchanged, got %v", upgraded)
	}
}

// TestApplyDeterministic tests that the same input yields the same output
func TestApplyDeterministic(t *testing.T) {
	table := NewTable("1.1.0", NewMigration("1.1.0", renameItems))
	input := document.Document{"items": []any{"x", "y"}}

	first, err := table.Apply("1.0.0", input)
	if err != nil {
		t.Fatalf("First apply failed: %v", err)
	}
	second, err := table.Apply("1.0.0", input)
	if err != nil {
		t.Fatalf("Second apply failed: %v", err)
	}
	if !document.Equal(first, second) {
		t.Errorf("Apply is not deterministic (-first +second):\n%s", cmp.Diff(first, second))
	}
}

// TestApplyDoesNotMutateInput tests that the caller's document stays intact
func TestApplyDoesNotMutateInput(t *testing.T) {
	table := NewTable("1.1.0", NewMigration("1.1.0", renameItems))
	input := document.Document{"items": []any{"x"}}

	if _, err := table.Apply("1.0.0", input); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, ok := input["items"]; !ok {
		t.Errorf("Apply mutated the input document: %v", input)
	}
	if _, ok := input["entries"]; ok {
		t.Errorf("Apply leaked the upgraded shape into the input: %v", input)
	}
}

// TestApplySchemaTooNew tests the future-version guard
func TestApplySchemaTooNew(t *testing.T) {
	table := NewTable("1.1.0", NewMigration("1.1.0", renameItems))

	doc, err := table.Apply("2.0.0", document.Document{"unknown": "data"})
	if doc != nil {
		t.Errorf("Expected nil document for a future version, got %v", doc)
	}

	var tooNew *SchemaTooNewError
	if !errors.As(err, &tooNew) {
		t.Fatalf("Expected SchemaTooNewError, got %v", err)
	}
	if tooNew.Stored != "2.0.0" || tooNew.Current != "1.1.0" {
		t.Errorf("Expected stored=2.0.0 current=1.1.0, got stored=%s current=%s",
			tooNew.Stored, tooNew.Current)
	}
}

// TestApplyTransformError tests that a failing transform is reported with its version
func TestApplyTransformError(t *testing.T) {
	boom := fmt.Errorf("unexpected shape")
	table := NewTable("1.1.0", NewMigration("1.1.0", func(doc document.Document) (document.Document, error) {
		return nil, boom
	}))

	doc, err := table.Apply("1.0.0", document.Document{})
	if doc != nil {
		t.Errorf("Expected nil document on transform error, got %v", doc)
	}

	var mErr *MigrationError
	if !errors.As(err, &mErr) {
		t.Fatalf("Expected MigrationError, got %v", err)
	}
	if mErr.Version != "1.1.0" {
		t.Errorf("Expected offending version 1.1.0, got %s", mErr.Version)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Expected wrapped transform error, got %v", mErr.Err)
	}
}

// TestApplyTransformPanic tests that a panicking transform is contained
func TestApplyTransformPanic(t *testing.T) {
	table := NewTable("1.1.0", NewMigration("1.1.0", func(doc document.Document) (document.Document, error) {
		panic("nil map access")
	}))

	doc, err := table.Apply("1.0.0", document.Document{})
	if doc != nil {
		t.Errorf("Expected nil document on transform panic, got %v", doc)
	}

	var mErr *MigrationError
	if !errors.As(err, &mErr) {
		t.Fatalf("Expected MigrationError, got %v", err)
	}
	if mErr.Version != "1.1.0" {
		t.Errorf("Expected offending version 1.1.0, got %s", mErr.Version)
	}
}

// TestApplyUnparsableStoredVersion tests the corrupt-version-tag case
func TestApplyUnparsableStoredVersion(t *testing.T) {
	table := NewTable("1.1.0", NewMigration("1.1.0", renameItems))

	doc, err := table.Apply("not-a-version", document.Document{})
	if doc != nil {
		t.Errorf("Expected nil document for an unparsable version, got %v", doc)
	}

	var mErr *MigrationError
	if !errors.As(err, &mErr) {
		t.Fatalf("Expected MigrationError, got %v", err)
	}
}

// TestApplyInPlaceTransform tests that a transform returning nil keeps its
// in-place modifications
func TestApplyInPlaceTransform(t *testing.T) {
	table := NewTable("1.1.0", NewMigration("1.1.0", func(doc document.Document) (document.Document, error) {
		doc["migrated"] = true
		return nil, nil
	}))

	upgraded, err := table.Apply("1.0.0", document.Document{})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if upgraded["migrated"] != true {
		t.Errorf("Expected in-place modification to survive, got %v", upgraded)
	}
}

// TestNewTablePanics tests the configuration fault guards
func TestNewTablePanics(t *testing.T) {
	testCases := []struct {
		name string
		fn   func()
	}{
		{
			name: "Invalid current version",
			fn:   func() { NewTable("not-a-version") },
		},
		{
			name: "Invalid migration version",
			fn:   func() { NewMigration("garbage", renameItems) },
		},
		{
			name: "Duplicate migration version",
			fn: func() {
				NewTable("1.1.0",
					NewMigration("1.1.0", renameItems),
					NewMigration("1.1.0", renameItems),
				)
			},
		},
		{
			name: "Migration newer than current",
			fn: func() {
				NewTable("1.0.0", NewMigration("2.0.0", renameItems))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Expected panic but got none")
				}
			}()
			tc.fn()
		})
	}
}
