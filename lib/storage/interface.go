package storage

import (
	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplJSONFile Implementation = "jsonfile"
	ImplMemory   Implementation = "memory"
	ImplBadger   Implementation = "badger"
)

// PersistedDocument is the durable representation of one store: the model
// itself plus the schema version tag that decides which migrations still
// have to run on load.
//
// Invariant: after a successful Load the Version equals the current schema
// version of the running build; it never regresses.
type PersistedDocument struct {
	Version string            `json:"version"`
	Data    document.Document `json:"data"`
}

// LoadSpec carries everything a backend needs to materialize one store from
// durable storage: the store name (also the storage key / file name), the
// model used when nothing is persisted yet, and the migration table applied
// to older documents.
type LoadSpec struct {
	Name       string
	Initial    document.Document
	Migrations migrate.Table
}

// BackendInfo describes a backend instance (used by the serve command and
// for diagnostics).
type BackendInfo struct {
	Engine   Implementation `json:"engine"`
	Dir      string         `json:"dir,omitempty"`
	Stores   int            `json:"stores"`
	Metadata interface{}    `json:"metadata,omitempty"`
}

// BackendFactory abstracts the creation of a backend instance. It is used
// for dependency injection into registries and by the conformance test
// suite.
type BackendFactory func() (IBackend, error)

// --------------------------------------------------------------------------
// Backend Interface
// --------------------------------------------------------------------------

// IBackend defines the durable persistence layer beneath authority stores.
// One backend instance serves all stores of a process; documents are
// addressed by store name.
//
// All implementations share the same flush discipline: writes are debounced
// (coalesced within a quiescence window, bounded by a maximum delay),
// suppressed entirely when the document structurally equals the last flushed
// one, and performed atomically. Flush failures are logged and retried on
// the next cycle, they are never surfaced to the mutation path.
type IBackend interface {

	// --------------------------------------------------------------------------
	// Load Operations
	// --------------------------------------------------------------------------

	// Load reads, parses and migrates the persisted document for spec.Name.
	// The returned document is ALWAYS usable: a missing file yields the
	// initial model at the current version (nil error), while a corrupt
	// file, a failed migration, a too-new schema or an unreachable file
	// system yield the initial model at the current version together with a
	// typed error (*CorruptDocumentError, *migrate.MigrationError,
	// *migrate.SchemaTooNewError, *StorageUnavailableError) the caller is
	// expected to log and otherwise ignore.
	Load(spec LoadSpec) (doc PersistedDocument, err error)

	// --------------------------------------------------------------------------
	// Flush Operations
	// --------------------------------------------------------------------------

	// ScheduleFlush records doc as the pending durable state for the named
	// store and arms the debounce timer. Repeated calls within the window
	// coalesce into a single write of the latest document.
	//
	// Thread-safety: safe for concurrent use; the backend has exactly one
	// writer per store file by construction.
	ScheduleFlush(name string, doc PersistedDocument)

	// FlushNow cancels any pending debounce for the named store and writes
	// synchronously. Used by the shutdown path.
	FlushNow(name string) error

	// Pending reports whether a flush is currently scheduled for the named
	// store.
	Pending(name string) bool

	// --------------------------------------------------------------------------
	// Lifecycle
	// --------------------------------------------------------------------------

	// Info returns metadata about the backend.
	Info() BackendInfo

	// Close flushes everything still pending synchronously and releases all
	// resources. The backend must not be used afterwards.
	Close() error
}
