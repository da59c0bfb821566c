package testing

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/store"
)

// StoreFactory creates a fresh store instance for one subtest. The factory
// decides the role and its wiring (backend, sync channel) and is responsible
// for cleanup via t.Cleanup.
type StoreFactory func(tb testing.TB, desc store.Descriptor) store.IStore

// RunStoreTests runs the contract test suite both store roles must pass.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("InitialModel", func(t *testing.T) {
			testInitialModel(t, factory)
		})

		t.Run("GetReturnsCopy", func(t *testing.T) {
			testGetReturnsCopy(t, factory)
		})

		t.Run("MutateApplies", func(t *testing.T) {
			testMutateApplies(t, factory)
		})

		t.Run("MutateInPlace", func(t *testing.T) {
			testMutateInPlace(t, factory)
		})

		t.Run("IdentityMutation", func(t *testing.T) {
			testIdentityMutation(t, factory)
		})

		t.Run("ListenerNotified", func(t *testing.T) {
			testListenerNotified(t, factory)
		})

		t.Run("ListenerReceivesCopy", func(t *testing.T) {
			testListenerReceivesCopy(t, factory)
		})

		t.Run("Unsubscribe", func(t *testing.T) {
			testUnsubscribe(t, factory)
		})

		t.Run("Reset", func(t *testing.T) {
			testReset(t, factory)
		})

		t.Run("ClosedStore", func(t *testing.T) {
			testClosedStore(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// testDescriptor builds the canonical test store: preferences at schema
// 1.0.0 with a theme and a volume.
func testDescriptor(name string) store.Descriptor {
	return store.Descriptor{
		Name: name,
		Initial: document.Document{
			"theme":  "dark",
			"volume": 0.5,
		},
		Migrations: migrate.NewTable("1.0.0"),
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testInitialModel(t *testing.T, factory StoreFactory) {
	desc := testDescriptor("initial")
	s := factory(t, desc)

	if s.Name() != "initial" {
		t.Errorf("Expected name %q, got %q", "initial", s.Name())
	}
	if r := s.Role(); r != store.RoleAuthority && r != store.RoleReplica {
		t.Errorf("Expected a defined role, got %v", r)
	}
	if v := s.Version(); v != "1.0.0" {
		t.Errorf("Expected schema version 1.0.0, got %q", v)
	}
	if !document.Equal(s.Get(), desc.Initial) {
		t.Errorf("Expected the initial model, got %v", s.Get())
	}
}

func testGetReturnsCopy(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("copy"))

	doc := s.Get()
	document.Set(doc, "light", "theme")

	if got, _ := document.Get(s.Get(), "theme"); got != "dark" {
		t.Errorf("Expected the store to be unaffected by mutations of the returned copy, got theme=%v", got)
	}
}

func testMutateApplies(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("mutate"))

	err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, "light", "theme")
		return doc
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if got, _ := document.Get(s.Get(), "theme"); got != "light" {
		t.Errorf("Expected theme=light after mutation, got %v", got)
	}
	if got, _ := document.Get(s.Get(), "volume"); got != 0.5 {
		t.Errorf("Expected untouched keys to survive, got volume=%v", got)
	}
}

func testMutateInPlace(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("inplace"))

	// Returning nil keeps the in-place mutated working copy
	err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, 0.8, "volume")
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if got, _ := document.Get(s.Get(), "volume"); got != 0.8 {
		t.Errorf("Expected volume=0.8 after in-place mutation, got %v", got)
	}
}

func testIdentityMutation(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("identity"))

	calls := 0
	defer s.Subscribe(func(document.Document) { calls++ })()

	// Writing the value that is already there changes nothing
	err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, "dark", "theme")
		return doc
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if calls != 0 {
		t.Errorf("Expected no listener call for an identity mutation, got %d", calls)
	}
}

func testListenerNotified(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("notify"))

	var seen []document.Document
	defer s.Subscribe(func(doc document.Document) { seen = append(seen, doc) })()

	if err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, "light", "theme")
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("Expected exactly 1 listener call, got %d", len(seen))
	}
	if got, _ := document.Get(seen[0], "theme"); got != "light" {
		t.Errorf("Expected the listener to see the new state, got theme=%v", got)
	}
}

func testListenerReceivesCopy(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("listenercopy"))

	defer s.Subscribe(func(doc document.Document) {
		document.Set(doc, "tampered", "theme")
	})()

	if err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, 1.0, "volume")
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if got, _ := document.Get(s.Get(), "theme"); got != "dark" {
		t.Errorf("Expected the store to be unaffected by listener-side mutations, got theme=%v", got)
	}
}

func testUnsubscribe(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("unsubscribe"))

	calls := 0
	unsubscribe := s.Subscribe(func(document.Document) { calls++ })

	if err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, 0.1, "volume")
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	unsubscribe()
	if err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, 0.2, "volume")
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if calls != 1 {
		t.Errorf("Expected 1 listener call before unsubscribe, got %d", calls)
	}
}

func testReset(t *testing.T, factory StoreFactory) {
	desc := testDescriptor("reset")
	s := factory(t, desc)

	if err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, "light", "theme")
		return nil
	}); err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if !document.Equal(s.Get(), desc.Initial) {
		t.Errorf("Expected the initial model after reset, got %v", s.Get())
	}

	// Resetting an already pristine store is an identity mutation
	calls := 0
	defer s.Subscribe(func(document.Document) { calls++ })()
	if err := s.Reset(); err != nil {
		t.Fatalf("Second reset failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("Expected no listener call for a reset of pristine state, got %d", calls)
	}
}

func testClosedStore(t *testing.T, factory StoreFactory) {
	s := factory(t, testDescriptor("closed"))

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err := s.Mutate(func(doc document.Document) document.Document {
		document.Set(doc, "light", "theme")
		return nil
	})

	var storeErr *store.Error
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected a *store.Error on a closed store, got %v", err)
	}
	if storeErr.Code != store.RetCStoreClosed {
		t.Errorf("Expected code RetCStoreClosed, got %v", storeErr.Code)
	}
}
