package badger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/ValentinKolb/sVS/lib/logging"
	"github.com/ValentinKolb/sVS/lib/storage"
)

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// Config holds the settings for a badger backend
type Config struct {
	// Dir is the BadgerDB directory. Ignored when InMemory is set.
	Dir string

	// InMemory runs BadgerDB without any files (tests, ephemeral use).
	InMemory bool

	// SyncWrites forces an fsync per write. Slower, but the debounce layer
	// already keeps write frequency low.
	SyncWrites bool

	// Quiescence and MaxDelay tune the flush debounce. Zero values fall
	// back to the storage defaults.
	Quiescence time.Duration
	MaxDelay   time.Duration
}

// --------------------------------------------------------------------------
// Backend
// --------------------------------------------------------------------------

type backend struct {
	db      *badgerdb.DB
	dir     string
	flusher *storage.Flusher
	loaded  *xsync.MapOf[string, struct{}]
}

// New opens a BadgerDB at config.Dir and wraps it as a storage backend.
// Every store occupies one key; values are the serialized documents.
func New(config Config) (storage.IBackend, error) {
	if config.Dir == "" && !config.InMemory {
		return nil, fmt.Errorf("badger: dir must not be empty")
	}

	opts := badgerdb.DefaultOptions(config.Dir).
		WithInMemory(config.InMemory).
		WithSyncWrites(config.SyncWrites).
		WithLogger(logging.GetLogger("badger"))

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: failed to open %q: %w", config.Dir, err)
	}

	b := &backend{
		db:     db,
		dir:    config.Dir,
		loaded: xsync.NewMapOf[string, struct{}](),
	}
	b.flusher = storage.NewFlusher(b.writeDocument, config.Quiescence, config.MaxDelay)
	return b, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see storage/interface.go)
// --------------------------------------------------------------------------

func (b *backend) Load(spec storage.LoadSpec) (storage.PersistedDocument, error) {
	if err := storage.ValidateName(spec.Name); err != nil {
		return storage.Fallback(spec), err
	}
	b.loaded.Store(spec.Name, struct{}{})

	var raw []byte
	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(spec.Name))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		doc, _, _ := storage.Materialize(spec, nil, false)
		return doc, nil
	}
	if err != nil {
		return storage.Fallback(spec), &storage.StorageUnavailableError{Op: "load", Name: spec.Name, Err: err}
	}

	doc, migrated, err := storage.Materialize(spec, raw, true)
	if err == nil {
		if migrated {
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
	lsm, vlog := b.db.Size()
	return storage.BackendInfo{
		Engine: storage.ImplBadger,
		Dir:    b.dir,
		Stores: b.loaded.Size(),
		Metadata: map[string]any{
			"lsm_bytes":  lsm,
			"vlog_bytes": vlog,
		},
	}
}

func (b *backend) Close() error {
	flushErr := b.flusher.Close()
	closeErr := b.db.Close()
	return errors.Join(flushErr, closeErr)
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// writeDocument persists one document in a single transaction. BadgerDB's
// WAL makes the write atomic on its own, no temp-and-rename dance needed.
func (b *backend) writeDocument(name string, doc storage.PersistedDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return &storage.StorageUnavailableError{Op: "flush", Name: name, Err: err}
	}

	err = b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(name), data)
	})
	if err != nil {
		return &storage.StorageUnavailableError{Op: "flush", Name: name, Err: err}
	}
	return nil
}
