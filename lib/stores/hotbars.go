package stores

import (
	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/store"
)

const (
	// HotbarsName is the registry name of the shortcut group store.
	HotbarsName = "hotbars"
	// HotbarSlots is the fixed number of slots per group.
	HotbarSlots = 10
)

// --------------------------------------------------------------------------
// Typed View
// --------------------------------------------------------------------------

// Hotbar is one named shortcut group. Entries is slot-indexed, empty slots
// hold nil.
type Hotbar struct {
	Name    string    `mapstructure:"name" json:"name"`
	Entries []*string `mapstructure:"entries" json:"entries"`
}

// HotbarsModel is the typed view of the hotbars document.
type HotbarsModel struct {
	Hotbars []Hotbar `mapstructure:"hotbars" json:"hotbars"`
}

// HotbarsView decodes a hotbars document into the typed model.
func HotbarsView(doc document.Document) (HotbarsModel, error) {
	var m HotbarsModel
	err := decode(doc, &m)
	return m, err
}

// --------------------------------------------------------------------------
// Descriptor
// --------------------------------------------------------------------------

// HotbarsDescriptor returns the store configuration for shortcut groups,
// schema 1.1.0 (1.0.0 named the slot array "items").
func HotbarsDescriptor() store.Descriptor {
	return store.Descriptor{
		Name: HotbarsName,
		Initial: document.Document{
			"hotbars": []any{
				document.Document{"name": "default", "entries": []any{}},
			},
		},
		Migrations: migrate.NewTable("1.1.0",
			migrate.NewMigration("1.1.0", renameHotbarItems),
		),
	}
}

// renameHotbarItems renames each group's pre-1.1.0 "items" array to
// "entries".
func renameHotbarItems(doc document.Document) (document.Document, error) {
	groups, ok := doc["hotbars"].([]any)
	if !ok {
		return nil, nil
	}
	for _, g := range groups {
		if m, ok := document.AsMap(g); ok {
			if items, found := m["items"]; found {
				m["entries"] = items
				delete(m, "items")
			}
		}
	}
	return nil, nil
}

// --------------------------------------------------------------------------
// Mutation Helpers
// --------------------------------------------------------------------------

// AddHotbar appends a new empty group. Adding an existing name is a no-op.
func AddHotbar(name string) store.Mutator {
	return func(doc document.Document) document.Document {
		if _, ok := findHotbar(doc, name); ok {
			return nil
		}
		groups, _ := doc["hotbars"].([]any)
		doc["hotbars"] = append(groups, document.Document{
			"name":    name,
			"entries": []any{},
		})
		return nil
	}
}

// RemoveHotbar drops a group by name.
func RemoveHotbar(name string) store.Mutator {
	return func(doc document.Document) document.Document {
		groups, ok := doc["hotbars"].([]any)
		if !ok {
			return nil
		}
		kept := make([]any, 0, len(groups))
		for _, g := range groups {
			if m, ok := document.AsMap(g); ok && m["name"] == name {
				continue
			}
			kept = append(kept, g)
		}
		doc["hotbars"] = kept
		return nil
	}
}

// AssignSlot places ref into the group's slot (0-based). Unknown groups and
// slots outside [0, HotbarSlots) are ignored; gaps up to the slot fill with
// nil.
func AssignSlot(group string, slot int, ref string) store.Mutator {
	return func(doc document.Document) document.Document {
		if slot < 0 || slot >= HotbarSlots {
			return nil
		}
		g, ok := findHotbar(doc, group)
		if !ok {
			return nil
		}
		entries, _ := g["entries"].([]any)
		for len(entries) <= slot {
			entries = append(entries, nil)
		}
		entries[slot] = ref
		g["entries"] = entries
		return nil
	}
}

// ClearSlot empties the group's slot.
func ClearSlot(group string, slot int) store.Mutator {
	return func(doc document.Document) document.Document {
		g, ok := findHotbar(doc, group)
		if !ok {
			return nil
		}
		entries, _ := g["entries"].([]any)
		if slot < 0 || slot >= len(entries) {
			return nil
		}
		entries[slot] = nil
		return nil
	}
}

// findHotbar returns the group object with the given name.
func findHotbar(doc document.Document, name string) (document.Document, bool) {
	groups, ok := doc["hotbars"].([]any)
	if !ok {
		return nil, false
	}
	for _, g := range groups {
		if m, ok := document.AsMap(g); ok && m["name"] == name {
			return m, true
		}
	}
	return nil, false
}
