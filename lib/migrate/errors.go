package migrate

import "fmt"

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// SchemaTooNewError is returned when a persisted document carries a schema
// version newer than the highest version this build knows. This happens when
// a file written by a newer release is opened by an older one; the caller
// falls back to the initial model instead of touching unknown data.
type SchemaTooNewError struct {
	Stored  string
	Current string
}

func (e *SchemaTooNewError) Error() string {
	return fmt.Sprintf("stored schema version %s is newer than the current version %s", e.Stored, e.Current)
}

// MigrationError is returned when a single upgrade transform fails (error
// return, panic) or when the stored version string cannot be parsed. The
// caller falls back to the initial model; a broken migration must never take
// the process down.
type MigrationError struct {
	Version string
	Err     error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration failed at version %s: %v", e.Version, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}
