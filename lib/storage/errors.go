package storage

import "fmt"

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// StorageUnavailableError indicates that the underlying storage could not be
// reached (I/O error, permissions, closed engine). Loads fall back to the
// initial model; flushes are retried on the next debounce cycle.
type StorageUnavailableError struct {
	Op   string
	Name string
	Err  error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable during %s of store %q: %v", e.Op, e.Name, e.Err)
}

func (e *StorageUnavailableError) Unwrap() error {
	return e.Err
}

// CorruptDocumentError indicates that a persisted document exists but could
// not be parsed (hand-edited file, truncated write by a foreign process).
// The document is treated as absent and the initial model takes its place.
type CorruptDocumentError struct {
	Name string
	Err  error
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("persisted document for store %q is corrupt: %v", e.Name, e.Err)
}

func (e *CorruptDocumentError) Unwrap() error {
	return e.Err
}
