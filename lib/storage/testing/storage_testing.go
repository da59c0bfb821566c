package testing

import (
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/storage"
)

// BackendFactory creates a fresh backend instance for one subtest. The
// factory is responsible for cleanup (t.Cleanup) and must configure a
// quiescence window of at most 200ms so the debounce tests resolve quickly.
type BackendFactory func(tb testing.TB) storage.IBackend

// RunBackendTests runs the contract test suite every storage engine must
// pass.
func RunBackendTests(t *testing.T, name string, factory BackendFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("FreshStart", func(t *testing.T) {
			testFreshStart(t, factory(t))
		})

		t.Run("FlushAndReload", func(t *testing.T) {
			testFlushAndReload(t, factory(t))
		})

		t.Run("Migration", func(t *testing.T) {
			testMigration(t, factory(t))
		})

		t.Run("SchemaTooNew", func(t *testing.T) {
			testSchemaTooNew(t, factory(t))
		})

		t.Run("CorruptVersionTag", func(t *testing.T) {
			testCorruptVersionTag(t, factory(t))
		})

		t.Run("FlushCoalescing", func(t *testing.T) {
			testFlushCoalescing(t, factory(t))
		})

		t.Run("EqualitySuppression", func(t *testing.T) {
			testEqualitySuppression(t, factory(t))
		})

		t.Run("DebouncedFlushFires", func(t *testing.T) {
			testDebouncedFlushFires(t, factory(t))
		})

		t.Run("FlushNowWithoutPending", func(t *testing.T) {
			testFlushNowWithoutPending(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// testSpec builds the canonical test store: hotbars with a single default
// group, one migration renaming "items" to "entries". The counter pointer
// reports how often the transform ran.
func testSpec(name string, transformCount *int) storage.LoadSpec {
	return storage.LoadSpec{
		Name: name,
		Initial: document.Document{
			"hotbars": []any{
				document.Document{"name": "default", "items": []any{}},
			},
		},
		Migrations: migrate.NewTable("1.1.0",
			migrate.NewMigration("1.1.0", func(doc document.Document) (document.Document, error) {
				if transformCount != nil {
					*transformCount++
				}
				if items, ok := doc["items"]; ok {
					doc["entries"] = items
					delete(doc, "items")
				}
				return doc, nil
			}),
		),
	}
}

// waitFor polls cond until it holds or the timeout expires
func waitFor(t testing.TB, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testFreshStart(t *testing.T, backend storage.IBackend) {
	invoked := 0
	spec := testSpec("fresh", &invoked)

	doc, err := backend.Load(spec)
	if err != nil {
		t.Fatalf("Load of a missing store must not fail: %v", err)
	}

	if doc.Version != "1.1.0" {
		t.Errorf("Expected version 1.1.0, got %s", doc.Version)
	}
	if !document.Equal(doc.Data, spec.Initial) {
		t.Errorf("Expected initial model, got %v", doc.Data)
	}
	if invoked != 0 {
		t.Errorf("Expected no transform invocation on fresh start, got %d", invoked)
	}
}

func testFlushAndReload(t *testing.T, backend storage.IBackend) {
	spec := testSpec("reload", nil)

	if _, err := backend.Load(spec); err != nil {
		t.Fatalf("Initial load failed: %v", err)
	}

	modified := storage.PersistedDocument{
		Version: "1.1.0",
		Data:    document.Document{"hotbars": []any{}, "theme": "dark"},
	}
	backend.ScheduleFlush(spec.Name, modified)
	if err := backend.FlushNow(spec.Name); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}

	reloaded, err := backend.Load(spec)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if !document.Equal(reloaded.Data, modified.Data) {
		t.Errorf("Expected flushed document after reload, got %v", reloaded.Data)
	}
	if reloaded.Version != "1.1.0" {
		t.Errorf("Expected version 1.1.0 after reload, got %s", reloaded.Version)
	}
}

func testMigration(t *testing.T, backend storage.IBackend) {
	invoked := 0
	spec := testSpec("migrating", &invoked)

	// Persist a document in the old 1.0.0 shape
	backend.ScheduleFlush(spec.Name, storage.PersistedDocument{
		Version: "1.0.0",
		Data:    document.Document{"items": []any{}},
	})
	if err := backend.FlushNow(spec.Name); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}

	doc, err := backend.Load(spec)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.Version != "1.1.0" {
		t.Errorf("Expected upgraded version 1.1.0, got %s", doc.Version)
	}
	expected := document.Document{"entries": []any{}}
	if !document.Equal(doc.Data, expected) {
		t.Errorf("Expected %v after migration, got %v", expected, doc.Data)
	}
	if invoked != 1 {
		t.Errorf("Expected exactly 1 transform invocation, got %d", invoked)
	}

	// The upgraded shape must be persisted again (debounced write-back)
	waitFor(t, 3*time.Second, func() bool { return !backend.Pending(spec.Name) })

	invoked = 0
	again, err := backend.Load(spec)
	if err != nil {
		t.Fatalf("Second load failed: %v", err)
	}
	if invoked != 0 {
		t.Errorf("Expected no transform on an already migrated document, got %d invocations", invoked)
	}
	if !document.Equal(again.Data, expected) {
		t.Errorf("Expected persisted upgraded document, got %v", again.Data)
	}
}

func testSchemaTooNew(t *testing.T, backend storage.IBackend) {
	spec := testSpec("futuristic", nil)

	backend.ScheduleFlush(spec.Name, storage.PersistedDocument{
		Version: "9.9.9",
		Data:    document.Document{"unknown": "shape"},
	})
	if err := backend.FlushNow(spec.Name); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}

	doc, err := backend.Load(spec)

	var tooNew *migrate.SchemaTooNewError
	if !errors.As(err, &tooNew) {
		t.Fatalf("Expected SchemaTooNewError, got %v", err)
	}
	if doc.Version != "1.1.0" {
		t.Errorf("Expected fallback at current version 1.1.0, got %s", doc.Version)
	}
	if !document.Equal(doc.Data, spec.Initial) {
		t.Errorf("Expected fallback to the initial model, got %v", doc.Data)
	}
}

func testCorruptVersionTag(t *testing.T, backend storage.IBackend) {
	spec := testSpec("corrupt", nil)

	backend.ScheduleFlush(spec.Name, storage.PersistedDocument{
		Version: "",
		Data:    document.Document{"some": "data"},
	})
	if err := backend.FlushNow(spec.Name); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}

	doc, err := backend.Load(spec)

	var corrupt *storage.CorruptDocumentError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Expected CorruptDocumentError, got %v", err)
	}
	if !document.Equal(doc.Data, spec.Initial) {
		t.Errorf("Expected fallback to the initial model, got %v", doc.Data)
	}
}

func testFlushCoalescing(t *testing.T, backend storage.IBackend) {
	spec := testSpec("coalescing", nil)

	if _, err := backend.Load(spec); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var last storage.PersistedDocument
	for i := 0; i < 5; i++ {
		last = storage.PersistedDocument{
			Version: "1.1.0",
			Data:    document.Document{"counter": float64(i)},
		}
		backend.ScheduleFlush(spec.Name, last)
	}
	if err := backend.FlushNow(spec.Name); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}

	reloaded, err := backend.Load(spec)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if !document.Equal(reloaded.Data, last.Data) {
		t.Errorf("Expected the last scheduled document, got %v", reloaded.Data)
	}
}

func testEqualitySuppression(t *testing.T, backend storage.IBackend) {
	spec := testSpec("suppression", nil)

	if _, err := backend.Load(spec); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	doc := storage.PersistedDocument{
		Version: "1.1.0",
		Data:    document.Document{"theme": "dark"},
	}
	backend.ScheduleFlush(spec.Name, doc)
	if err := backend.FlushNow(spec.Name); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}

	// Structurally identical document: nothing to write
	backend.ScheduleFlush(spec.Name, storage.PersistedDocument{
		Version: "1.1.0",
		Data:    document.Document{"theme": "dark"},
	})
	if backend.Pending(spec.Name) {
		t.Errorf("Expected no pending flush for a structurally unchanged document")
	}
}

func testDebouncedFlushFires(t *testing.T, backend storage.IBackend) {
	spec := testSpec("debounced", nil)

	if _, err := backend.Load(spec); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	changed := storage.PersistedDocument{
		Version: "1.1.0",
		Data:    document.Document{"changed": true},
	}
	backend.ScheduleFlush(spec.Name, changed)

	if !backend.Pending(spec.Name) {
		t.Fatalf("Expected a pending flush right after scheduling")
	}

	// The trailing edge flush must fire without any further call
	waitFor(t, 3*time.Second, func() bool { return !backend.Pending(spec.Name) })

	reloaded, err := backend.Load(spec)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if !document.Equal(reloaded.Data, changed.Data) {
		t.Errorf("Expected the debounced document to be durable, got %v", reloaded.Data)
	}
}

func testFlushNowWithoutPending(t *testing.T, backend storage.IBackend) {
	spec := testSpec("idle", nil)

	if _, err := backend.Load(spec); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := backend.FlushNow(spec.Name); err != nil {
		t.Errorf("FlushNow without pending work must return nil, got %v", err)
	}
}
