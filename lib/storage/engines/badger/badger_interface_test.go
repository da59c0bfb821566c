package badger

import (
	"testing"
	"time"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/storage"
	storagetesting "github.com/ValentinKolb/sVS/lib/storage/testing"
)

// newTestBackend creates an in-memory badger backend with fast debounce windows
func newTestBackend(tb testing.TB) storage.IBackend {
	backend, err := New(Config{
		InMemory:   true,
		Quiescence: 50 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
	})
	if err != nil {
		tb.Fatalf("Failed to create badger backend: %v", err)
	}
	tb.Cleanup(func() { _ = backend.Close() })
	return backend
}

// TestBadgerImplementation runs the backend contract suite
func TestBadgerImplementation(t *testing.T) {
	storagetesting.RunBackendTests(t, "Badger", newTestBackend)
}

// TestPersistenceAcrossReopen tests that documents survive a close and reopen
func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	spec := storage.LoadSpec{
		Name:       "prefs",
		Initial:    document.Document{},
		Migrations: migrate.NewTable("1.0.0"),
	}

	first, err := New(Config{Dir: dir, Quiescence: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to open badger backend: %v", err)
	}
	if _, err := first.Load(spec); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	first.ScheduleFlush("prefs", storage.PersistedDocument{
		Version: "1.0.0",
		Data:    document.Document{"theme": "dark"},
	})
	if err := first.FlushNow("prefs"); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := New(Config{Dir: dir, Quiescence: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to reopen badger backend: %v", err)
	}
	defer second.Close()

	doc, err := second.Load(spec)
	if err != nil {
		t.Fatalf("Load after reopen failed: %v", err)
	}
	if got, _ := document.Get(doc.Data, "theme"); got != "dark" {
		t.Errorf("Expected persisted theme=dark after reopen, got %v", got)
	}
}
