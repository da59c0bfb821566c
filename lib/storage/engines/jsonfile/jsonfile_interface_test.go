package jsonfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/storage"
	storagetesting "github.com/ValentinKolb/sVS/lib/storage/testing"
)

// newTestBackend creates a backend in a temp dir with fast debounce windows
func newTestBackend(tb testing.TB) storage.IBackend {
	backend, err := New(Config{
		Dir:        tb.TempDir(),
		Quiescence: 50 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
	})
	if err != nil {
		tb.Fatalf("Failed to create jsonfile backend: %v", err)
	}
	tb.Cleanup(func() { _ = backend.Close() })
	return backend
}

// TestJSONFileImplementation runs the backend contract suite
func TestJSONFileImplementation(t *testing.T) {
	storagetesting.RunBackendTests(t, "JSONFile", newTestBackend)
}

// TestAtomicWrite tests that a flush leaves exactly the target file behind
func TestAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	backend, err := New(Config{Dir: dir, Quiescence: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	defer backend.Close()

	spec := storage.LoadSpec{
		Name:       "prefs",
		Initial:    document.Document{},
		Migrations: migrate.NewTable("1.0.0"),
	}
	if _, err := backend.Load(spec); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	backend.ScheduleFlush("prefs", storage.PersistedDocument{
		Version: "1.0.0",
		Data:    document.Document{"theme": "dark"},
	})
	if err := backend.FlushNow("prefs"); err != nil {
		t.Fatalf("FlushNow failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "prefs.json")); err != nil {
		t.Errorf("Expected prefs.json to exist: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "prefs.json.tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected no temp file to remain, got %v", err)
	}

	// The file must be well formed JSON with the version envelope
	raw, err := os.ReadFile(filepath.Join(dir, "prefs.json"))
	if err != nil {
		t.Fatalf("Failed to read flushed file: %v", err)
	}
	var persisted storage.PersistedDocument
	if err := json.Unmarshal(raw, &persisted); err != nil {
		t.Fatalf("Flushed file is not valid JSON: %v", err)
	}
	if persisted.Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0 in file, got %s", persisted.Version)
	}
}

// TestLoadGarbageFile tests the hand-edited-beyond-repair case
func TestLoadGarbageFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write garbage file: %v", err)
	}

	backend, err := New(Config{Dir: dir, Quiescence: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}
	defer backend.Close()

	spec := storage.LoadSpec{
		Name:       "broken",
		Initial:    document.Document{"fresh": true},
		Migrations: migrate.NewTable("1.0.0"),
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

// TestInvalidStoreName tests that path-unsafe names are rejected
func TestInvalidStoreName(t *testing.T) {
	backend := newTestBackend(t)

	spec := storage.LoadSpec{
		Name:       "../escape",
		Initial:    document.Document{},
		Migrations: migrate.NewTable("1.0.0"),
	}

	doc, err := backend.Load(spec)
	if err == nil {
		t.Fatalf("Expected an error for a path-unsafe store name")
	}
	if doc.Data == nil {
		t.Errorf("Expected a usable fallback document even for an invalid name")
	}
}
