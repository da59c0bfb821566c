// Package storage provides the durable persistence layer beneath authority
// stores. It defines the versioned on-disk representation (PersistedDocument),
// the backend contract (IBackend) and the write discipline every engine
// shares.
//
// The package focuses on:
//   - A unified interface (IBackend) for document persistence across
//     different engines
//   - Load-time schema migration: persisted documents are upgraded to the
//     current schema version through the migrate package, with every failure
//     mode degrading to the initial model instead of an unusable state
//   - Write amplification control: flushes are debounced within a
//     quiescence window, bounded by a maximum delay, coalesced per store and
//     suppressed entirely when nothing changed structurally
//
// Key Components:
//
//   - IBackend Interface: Load, ScheduleFlush, FlushNow, Pending, Close.
//     One backend instance serves every store of a process; documents are
//     addressed by store name.
//
//   - Flusher: the debounce daemon shared by all engines. A single
//     goroutine drains a deadline heap, giving each engine exactly one
//     writer for all of its documents. Flush failures are logged and
//     retried on the next cycle, never raised into the mutation path.
//
//   - Error System: StorageUnavailableError for unreachable storage,
//     CorruptDocumentError for unparsable persisted state. Both accompany a
//     usable fallback document rather than replacing it.
//
// Engines:
//
//	Three implementations of IBackend exist under engines/:
//
//	- jsonfile: one pretty-printed JSON file per store in a base directory,
//	  written atomically via a temp file and rename. The production engine.
//	- memory: a sharded in-memory engine without durability, used by tests
//	  and ephemeral deployments.
//	- badger: documents in a BadgerDB key-value store, for deployments that
//	  prefer a single crash-safe storage directory over loose files.
//
// The backend deliberately does not watch for concurrent external file
// modification: it loads once and owns the document from then on.
package storage
