package migrate

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/sVS/lib/document"
	version "github.com/hashicorp/go-version"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Transform upgrades a document from the shape of the immediately preceding
// schema version to the shape of its own version. It must be pure: no I/O,
// no shared state, no assumptions about any shape other than its direct
// predecessor. The input may be mutated in place; returning nil keeps the
// (possibly modified) input, returning a non-nil document replaces it.
type Transform func(doc document.Document) (document.Document, error)

// Migration pairs a target schema version with the transform that produces it.
type Migration struct {
	Version *version.Version
	Upgrade Transform
}

// NewMigration builds a Migration from a version string. It panics on an
// unparsable version since migration tables are static configuration.
func NewMigration(v string, upgrade Transform) Migration {
	ver, err := version.NewVersion(v)
	if err != nil {
		panic(fmt.Sprintf("invalid migration version %q: %v", v, err))
	}
	return Migration{Version: ver, Upgrade: upgrade}
}

// --------------------------------------------------------------------------
// Migration Table
// --------------------------------------------------------------------------

// Table is an ordered set of migrations up to a current schema version.
// A Table is immutable after construction and safe for concurrent use.
type Table struct {
	current    *version.Version
	migrations []Migration
}

// NewTable builds a migration table. The current version is the schema
// version of this build; every persisted document is upgraded to it on load.
// Migrations are sorted ascending by version. The function panics on an
// unparsable current version, a duplicate migration version, or a migration
// newer than current, since all three are configuration faults.
func NewTable(current string, migrations ...Migration) Table {
	cur, err := version.NewVersion(current)
	if err != nil {
		panic(fmt.Sprintf("invalid current schema version %q: %v", current, err))
	}

	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version.LessThan(sorted[j].Version)
	})

	for i, m := range sorted {
		if i > 0 && m.Version.Equal(sorted[i-1].Version) {
			panic(fmt.Sprintf("duplicate migration version %s", m.Version))
		}
		if m.Version.GreaterThan(cur) {
			panic(fmt.Sprintf("migration version %s is newer than current schema version %s", m.Version, cur))
		}
	}

	return Table{current: cur, migrations: sorted}
}

// Current returns the schema version documents are upgraded to.
func (t Table) Current() *version.Version {
	return t.current
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Apply upgrades a document from its stored version to the current version
// by running every migration with a version greater than stored, in
// ascending order, exactly once each. The input document is never modified;
// transforms operate on a clone.
//
// A stored version newer than current yields a *SchemaTooNewError. An
// unparsable stored version, a transform error or a transform panic yields a
// *MigrationError. In all error cases the returned document is nil and the
// caller is expected to fall back to its initial model.
//
// Applying a document that is already at the current version returns a clone
// unchanged without invoking any transform, so re-running a load is a no-op.
func (t Table) Apply(stored string, doc document.Document) (document.Document, error) {
	from, err := version.NewVersion(stored)
	if err != nil {
		return nil, &MigrationError{Version: stored, Err: fmt.Errorf("unparsable stored version: %w", err)}
	}

	if from.GreaterThan(t.current) {
		return nil, &SchemaTooNewError{Stored: from.String(), Current: t.current.String()}
	}

	work := document.Clone(doc)
	if work == nil {
		work = document.Document{}
	}

	for _, m := range t.migrations {
		if !m.Version.GreaterThan(from) {
			continue
		}
		next, err := runTransform(m, work)
		if err != nil {
			return nil, &MigrationError{Version: m.Version.String(), Err: err}
		}
		work = next
	}

	return work, nil
}

// runTransform executes one transform with panic containment
func runTransform(m Migration, doc document.Document) (out document.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()

	next, err := m.Upgrade(doc)
	if err != nil {
		return nil, err
	}
	if next == nil {
		// transform mutated the document in place
		return doc, nil
	}
	return next, nil
}
