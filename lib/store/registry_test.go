package store

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
)

// stubStore implements IStore with counters instead of behavior
type stubStore struct {
	name     string
	flushes  atomic.Int64
	closes   atomic.Int64
	flushErr error
}

func (s *stubStore) Name() string              { return s.name }
func (s *stubStore) Role() Role                { return RoleAuthority }
func (s *stubStore) Version() string           { return "1.0.0" }
func (s *stubStore) Get() document.Document    { return document.Document{} }
func (s *stubStore) Mutate(Mutator) error      { return nil }
func (s *stubStore) Reset() error              { return nil }
func (s *stubStore) Subscribe(Listener) func() { return func() {} }
func (s *stubStore) Flush() error              { s.flushes.Add(1); return s.flushErr }
func (s *stubStore) Close() error              { s.closes.Add(1); return nil }

func stubFactory(created *atomic.Int64) StoreFactory {
	return func(desc Descriptor) (IStore, error) {
		if created != nil {
			created.Add(1)
		}
		return &stubStore{name: desc.Name}, nil
	}
}

func testDescriptor(name string) Descriptor {
	return Descriptor{
		Name:       name,
		Initial:    document.Document{"theme": "dark"},
		Migrations: migrate.NewTable("1.0.0"),
	}
}

// TestGetOrCreateReturnsSameInstance tests the one-instance-per-name rule
// under concurrency
func TestGetOrCreateReturnsSameInstance(t *testing.T) {
	var created atomic.Int64
	r := NewRegistry(stubFactory(&created))

	const callers = 16
	stores := make([]IStore, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			s, err := r.GetOrCreate(testDescriptor("prefs"))
			if err != nil {
				t.Errorf("GetOrCreate failed: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	if created.Load() != 1 {
		t.Errorf("Expected exactly 1 factory invocation, got %d", created.Load())
	}
	for i := 1; i < callers; i++ {
		if stores[i] != stores[0] {
			t.Fatalf("Expected all callers to observe the same instance")
		}
	}
}

// TestDescriptorConflictRejected tests that a second, different descriptor
// for an existing name fails instead of silently forking the store
func TestDescriptorConflictRejected(t *testing.T) {
	r := NewRegistry(stubFactory(nil))

	if _, err := r.GetOrCreate(testDescriptor("prefs")); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	conflicts := []Descriptor{
		{
			Name:       "prefs",
			Initial:    document.Document{"theme": "light"},
			Migrations: migrate.NewTable("1.0.0"),
		},
		{
			Name:       "prefs",
			Initial:    document.Document{"theme": "dark"},
			Migrations: migrate.NewTable("2.0.0"),
		},
		{
			Name:       "prefs",
			Initial:    document.Document{"theme": "dark"},
			Migrations: migrate.NewTable("1.0.0"),
			Equality:   document.EqualityStrict,
		},
	}

	for i, desc := range conflicts {
		_, err := r.GetOrCreate(desc)
		var storeErr *Error
		if !errors.As(err, &storeErr) || storeErr.Code != RetCDescriptorConflict {
			t.Errorf("Expected a descriptor conflict for variant %d, got %v", i, err)
		}
	}

	// The identical descriptor is of course fine
	if _, err := r.GetOrCreate(testDescriptor("prefs")); err != nil {
		t.Errorf("Expected the identical descriptor to be accepted, got %v", err)
	}
}

// TestInvalidDescriptorRejected tests validation before construction
func TestInvalidDescriptorRejected(t *testing.T) {
	r := NewRegistry(stubFactory(nil))

	for _, name := range []string{"", "no/slashes", "no spaces", "../escape"} {
		desc := testDescriptor("valid")
		desc.Name = name
		_, err := r.GetOrCreate(desc)
		var storeErr *Error
		if !errors.As(err, &storeErr) || storeErr.Code != RetCInvalidDescriptor {
			t.Errorf("Expected an invalid descriptor error for name %q, got %v", name, err)
		}
	}
}

// TestFlushAll tests that every store flushes and errors aggregate
func TestFlushAll(t *testing.T) {
	r := NewRegistry(stubFactory(nil))

	names := []string{"prefs", "hotbars", "tabs"}
	stubs := make([]*stubStore, 0, len(names))
	for _, name := range names {
		s, err := r.GetOrCreate(testDescriptor(name))
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		stubs = append(stubs, s.(*stubStore))
	}

	if err := r.FlushAll(); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}
	for _, s := range stubs {
		if s.flushes.Load() != 1 {
			t.Errorf("Expected store %q to be flushed once, got %d", s.name, s.flushes.Load())
		}
	}

	stubs[1].flushErr = fmt.Errorf("disk on fire")
	if err := r.FlushAll(); err == nil {
		t.Errorf("Expected FlushAll to surface flush errors")
	}
}

// TestNamesSorted tests the deterministic listing
func TestNamesSorted(t *testing.T) {
	r := NewRegistry(stubFactory(nil))

	for _, name := range []string{"tabs", "prefs", "hotbars"} {
		if _, err := r.GetOrCreate(testDescriptor(name)); err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
	}

	names := r.Names()
	expected := []string{"hotbars", "prefs", "tabs"}
	if len(names) != len(expected) {
		t.Fatalf("Expected %d names, got %d", len(expected), len(names))
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Errorf("Expected names[%d]=%q, got %q", i, expected[i], names[i])
		}
	}
}

// TestGetWithoutCreate tests the lookup path
func TestGetWithoutCreate(t *testing.T) {
	r := NewRegistry(stubFactory(nil))

	if _, ok := r.Get("prefs"); ok {
		t.Errorf("Expected no instance before GetOrCreate")
	}
	created, err := r.GetOrCreate(testDescriptor("prefs"))
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	found, ok := r.Get("prefs")
	if !ok || found != created {
		t.Errorf("Expected Get to return the created instance")
	}
}

// TestClose tests shutdown semantics
func TestClose(t *testing.T) {
	r := NewRegistry(stubFactory(nil))

	s, err := r.GetOrCreate(testDescriptor("prefs"))
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if s.(*stubStore).closes.Load() != 1 {
		t.Errorf("Expected the store to be closed once")
	}

	_, err = r.GetOrCreate(testDescriptor("other"))
	var storeErr *Error
	if !errors.As(err, &storeErr) || storeErr.Code != RetCStoreClosed {
		t.Errorf("Expected a closed registry error, got %v", err)
	}

	// Closing twice is harmless
	if err := r.Close(); err != nil {
		t.Errorf("Expected a second Close to be a no-op, got %v", err)
	}
}
