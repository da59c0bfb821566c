package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/sVS/lib/document"
)

// --------------------------------------------------------------------------
// Shared Load Pipeline
// --------------------------------------------------------------------------

// Fallback returns the document a store starts from when nothing usable is
// persisted: the initial model at the current schema version.
func Fallback(spec LoadSpec) PersistedDocument {
	return PersistedDocument{
		Version: spec.Migrations.Current().String(),
		Data:    document.Clone(spec.Initial),
	}
}

// Materialize turns raw persisted bytes into the runtime document. It is the
// common decode-and-migrate pipeline behind every engine's Load.
//
// Outcomes:
//   - found=false: fresh start, the initial model at the current version,
//     no error, no transform invoked
//   - parse failure or missing version tag: fallback plus
//     *CorruptDocumentError
//   - migration failure or future schema: fallback plus the migrate error
//   - success: the upgraded document; migrated reports whether any
//     transform ran (the caller persists the upgraded form again)
//
// The returned document is always usable regardless of the error value.
func Materialize(spec LoadSpec, raw []byte, found bool) (doc PersistedDocument, migrated bool, err error) {
	if !found {
		return Fallback(spec), false, nil
	}

	var persisted PersistedDocument
	if err := json.Unmarshal(raw, &persisted); err != nil {
		return Fallback(spec), false, &CorruptDocumentError{Name: spec.Name, Err: err}
	}
	if persisted.Version == "" {
		return Fallback(spec), false, &CorruptDocumentError{Name: spec.Name, Err: errors.New("missing version tag")}
	}

	upgraded, err := spec.Migrations.Apply(persisted.Version, persisted.Data)
	if err != nil {
		return Fallback(spec), false, err
	}

	current := spec.Migrations.Current().String()
	return PersistedDocument{
		Version: current,
		Data:    upgraded,
	}, persisted.Version != current, nil
}

// ValidateName rejects store names that cannot serve as storage keys or
// file names. Valid names consist of letters, digits, '.', '_' and '-'.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("store name must not be empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return fmt.Errorf("store name %q contains invalid character %q", name, r)
		}
	}
	return nil
}
