package rstore

import (
	"testing"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/store"
	storetesting "github.com/ValentinKolb/sVS/lib/store/testing"
)

func testDescriptor(name string) store.Descriptor {
	return store.Descriptor{
		Name:       name,
		Initial:    document.Document{"theme": "dark", "volume": 0.5},
		Migrations: migrate.NewTable("1.0.0"),
	}
}

// TestReplicaImplementation runs the generic store contract suite against a
// replica without a sync channel.
func TestReplicaImplementation(t *testing.T) {
	storetesting.RunStoreTests(t, "rstore", func(_ testing.TB, desc store.Descriptor) store.IStore {
		return New(desc, nil)
	})
}

// TestMutateSendsIntent tests that every accepted mutation forwards the
// whole resulting document in mutation order
func TestMutateSendsIntent(t *testing.T) {
	var sent []document.Document
	s := New(testDescriptor("prefs"), func(doc document.Document) {
		sent = append(sent, doc)
	})

	for i := 1; i <= 3; i++ {
		v := float64(i)
		if err := s.Mutate(func(doc document.Document) document.Document {
			document.Set(doc, v, "volume")
			return nil
		}); err != nil {
			t.Fatalf("Mutate failed: %v", err)
		}
	}

	if len(sent) != 3 {
		t.Fatalf("Expected 3 intents, got %d", len(sent))
	}
	for i, doc := range sent {
		if got, _ := document.Get(doc, "volume"); got != float64(i+1) {
			t.Errorf("Expected intent %d to carry volume=%d, got %v", i, i+1, got)
		}
		if got, _ := document.Get(doc, "theme"); got != "dark" {
			t.Errorf("Expected the intent to carry the whole document, got theme=%v", got)
		}
	}
	if !document.Equal(sent[2], s.Get()) {
		t.Errorf("Expected the last intent to equal the local model")
	}
}

// TestIdentityMutationSendsNothing tests suppression before the channel
func TestIdentityMutationSendsNothing(t *testing.T) {
	sent := 0
	s := New(testDescriptor("prefs"), func(document.Document) { sent++ })

	if err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, "dark", "theme")
		return doc
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if sent != 0 {
		t.Errorf("Expected no intent for an identity mutation, got %d", sent)
	}
}

// TestApplySnapshotReconciles tests the overwrite-wholesale semantics
func TestApplySnapshotReconciles(t *testing.T) {
	s := New(testDescriptor("prefs"), nil)

	var seen []document.Document
	defer s.Subscribe(func(doc document.Document) { seen = append(seen, doc) })()

	authority := document.Document{"theme": "light", "volume": 1.0, "extra": true}
	s.ApplySnapshot(authority, 1)

	if !document.Equal(s.Get(), authority) {
		t.Errorf("Expected the authority model after reconciliation, got %v", s.Get())
	}
	if len(seen) != 1 {
		t.Errorf("Expected exactly 1 listener call, got %d", len(seen))
	}
}

// TestIdempotentSnapshotReapply tests that re-delivering the current state
// is invisible to observers
func TestIdempotentSnapshotReapply(t *testing.T) {
	s := New(testDescriptor("prefs"), nil)

	authority := document.Document{"theme": "light", "volume": 1.0}
	s.ApplySnapshot(authority, 1)

	calls := 0
	defer s.Subscribe(func(document.Document) { calls++ })()

	// Same model again, next sequence number
	s.ApplySnapshot(document.Clone(authority), 2)

	if calls != 0 {
		t.Errorf("Expected no listener call for an equal snapshot, got %d", calls)
	}
	if !document.Equal(s.Get(), authority) {
		t.Errorf("Expected the model to be unchanged, got %v", s.Get())
	}

	// The sequence number must have advanced nevertheless
	s.ApplySnapshot(document.Document{"theme": "stale"}, 2)
	if got, _ := document.Get(s.Get(), "theme"); got != "light" {
		t.Errorf("Expected the duplicate sequence number to be dropped, got theme=%v", got)
	}
}

// TestStaleSnapshotDropped tests sequence based deduplication
func TestStaleSnapshotDropped(t *testing.T) {
	s := New(testDescriptor("prefs"), nil)

	s.ApplySnapshot(document.Document{"theme": "light"}, 5)
	s.ApplySnapshot(document.Document{"theme": "ancient"}, 3)

	if got, _ := document.Get(s.Get(), "theme"); got != "light" {
		t.Errorf("Expected the stale snapshot to be dropped, got theme=%v", got)
	}
}

// TestReseedAcceptsRestartedAuthority tests that an attach snapshot resets
// the sequence numbering
func TestReseedAcceptsRestartedAuthority(t *testing.T) {
	s := New(testDescriptor("prefs"), nil)

	s.ApplySnapshot(document.Document{"theme": "light"}, 42)

	// The authority restarted: its numbering begins at zero again
	restarted := document.Document{"theme": "reborn"}
	s.Reseed(restarted, 0)

	if !document.Equal(s.Get(), restarted) {
		t.Fatalf("Expected the reseed snapshot to be applied, got %v", s.Get())
	}

	// Pushes with the new numbering must get through now
	s.ApplySnapshot(document.Document{"theme": "fresh"}, 1)
	if got, _ := document.Get(s.Get(), "theme"); got != "fresh" {
		t.Errorf("Expected pushes after the reseed to apply, got theme=%v", got)
	}
}

// TestOptimisticMutationThenCorrection tests the lost-race path: the local
// optimistic state is overwritten by the authority's answer
func TestOptimisticMutationThenCorrection(t *testing.T) {
	s := New(testDescriptor("prefs"), nil)
	s.Reseed(document.Document{"theme": "dark", "volume": 0.5}, 0)

	var themes []any
	defer s.Subscribe(func(doc document.Document) {
		theme, _ := document.Get(doc, "theme")
		themes = append(themes, theme)
	})()

	// Local optimistic change
	if err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, "light", "theme")
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	// Another replica won the race, the authority broadcasts its state
	s.ApplySnapshot(document.Document{"theme": "solarized", "volume": 0.5}, 1)

	if len(themes) != 2 || themes[0] != "light" || themes[1] != "solarized" {
		t.Errorf("Expected the optimistic state followed by the correction, got %v", themes)
	}
	if got, _ := document.Get(s.Get(), "theme"); got != "solarized" {
		t.Errorf("Expected the authority to win, got theme=%v", got)
	}
}

// TestSnapshotAfterClose tests that a closed replica ignores late deliveries
func TestSnapshotAfterClose(t *testing.T) {
	s := New(testDescriptor("prefs"), nil)
	before := s.Get()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	s.ApplySnapshot(document.Document{"theme": "late"}, 1)

	if !document.Equal(s.Get(), before) {
		t.Errorf("Expected a closed replica to ignore snapshots")
	}
}
