package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/sVS/lib/storage"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config holds the settings for a jsonfile backend
type Config struct {
	// Dir is the base directory; every store lives in one <name>.json file
	// below it. Created if missing.
	Dir string

	// Quiescence and MaxDelay tune the flush debounce. Zero values fall
	// back to the storage defaults.
	Quiescence time.Duration
	MaxDelay   time.Duration
}

// --------------------------------------------------------------------------
// Backend
// --------------------------------------------------------------------------

type backend struct {
	dir     string
	flusher *storage.Flusher
	loaded  *xsync.MapOf[string, struct{}]
}

// New creates a jsonfile backend rooted at config.Dir.
func New(config Config) (storage.IBackend, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("jsonfile: dir must not be empty")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: failed to create dir %q: %w", config.Dir, err)
	}

	b := &backend{
		dir:    config.Dir,
		loaded: xsync.NewMapOf[string, struct{}](),
	}
	b.flusher = storage.NewFlusher(b.writeDocument, config.Quiescence, config.MaxDelay)
	return b, nil
}

// path returns the file a store is persisted in
func (b *backend) path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage/interface.go)
// --------------------------------------------------------------------------

func (b *backend) Load(spec storage.LoadSpec) (storage.PersistedDocument, error) {
	if err := storage.ValidateName(spec.Name); err != nil {
		return storage.Fallback(spec), err
	}
	b.loaded.Store(spec.Name, struct{}{})

	raw, err := os.ReadFile(b.path(spec.Name))
	if errors.Is(err, fs.ErrNotExist) {
		doc, _, _ := storage.Materialize(spec, nil, false)
		return doc, nil
	}
	if err != nil {
		return storage.Fallback(spec), &storage.StorageUnavailableError{Op: "load", Name: spec.Name, Err: err}
	}

	doc, migrated, err := storage.Materialize(spec, raw, true)
	if err == nil {
		if migrated {
			// persist the upgraded shape, debounced like any other write
			b.flusher.Schedule(spec.Name, doc)
		} else {
			b.flusher.SeedLastFlushed(spec.Name, doc)
		}
	}
	return doc, err
}

func (b *backend) ScheduleFlush(name string, doc storage.PersistedDocument) {
	b.flusher.Schedule(name, doc)
}

func (b *backend) FlushNow(name string) error {
	return b.flusher.FlushNow(name)
}

func (b *backend) Pending(name string) bool {
	return b.flusher.Pending(name)
}

func (b *backend) Info() storage.BackendInfo {
	return storage.BackendInfo{
		Engine: storage.ImplJSONFile,
		Dir:    b.dir,
		Stores: b.loaded.Size(),
	}
}

func (b *backend) Close() error {
	return b.flusher.Close()
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// writeDocument persists one document atomically: marshal, write to a temp
// file next to the target, rename over it. A crash between the two steps
// leaves either the old file or the complete new one, never a torn write.
func (b *backend) writeDocument(name string, doc storage.PersistedDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &storage.StorageUnavailableError{Op: "flush", Name: name, Err: err}
	}

	path := b.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &storage.StorageUnavailableError{Op: "flush", Name: name, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &storage.StorageUnavailableError{Op: "flush", Name: name, Err: err}
	}
	return nil
}
