package stores

import (
	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/store"
)

// LayoutsName is the registry name of the saved UI layout store.
const LayoutsName = "layouts"

// --------------------------------------------------------------------------
// Typed View
// --------------------------------------------------------------------------

// SavedLayout is one named arrangement of UI panes. Panes is free-form, the
// presentation layer owns its shape.
type SavedLayout struct {
	Name  string         `mapstructure:"name" json:"name"`
	Panes map[string]any `mapstructure:"panes" json:"panes"`
}

// LayoutsModel is the typed view of the layouts document.
type LayoutsModel struct {
	Layouts []SavedLayout `mapstructure:"layouts" json:"layouts"`
	Active  string        `mapstructure:"active" json:"active"`
}

// LayoutsView decodes a layouts document into the typed model.
func LayoutsView(doc document.Document) (LayoutsModel, error) {
	var m LayoutsModel
	err := decode(doc, &m)
	return m, err
}

// --------------------------------------------------------------------------
// Descriptor
// --------------------------------------------------------------------------

// LayoutsDescriptor returns the store configuration for saved UI layouts,
// schema 1.0.0.
func LayoutsDescriptor() store.Descriptor {
	return store.Descriptor{
		Name: LayoutsName,
		Initial: document.Document{
			"layouts": []any{},
			"active":  "",
		},
		Migrations: migrate.NewTable("1.0.0"),
	}
}

// --------------------------------------------------------------------------
// Mutation Helpers
// --------------------------------------------------------------------------

// SaveLayout upserts a named layout.
func SaveLayout(name string, panes map[string]any) store.Mutator {
	return func(doc document.Document) document.Document {
		entry := document.Document{
			"name":  name,
			"panes": document.Clone(panes),
		}
		layouts, _ := doc["layouts"].([]any)
		for i, l := range layouts {
			if m, ok := document.AsMap(l); ok && m["name"] == name {
				layouts[i] = entry
				return nil
			}
		}
		doc["layouts"] = append(layouts, entry)
		return nil
	}
}

// DeleteLayout removes a layout. If it was active, the selection clears.
func DeleteLayout(name string) store.Mutator {
	return func(doc document.Document) document.Document {
		layouts, ok := doc["layouts"].([]any)
		if !ok {
			return nil
		}
		kept := make([]any, 0, len(layouts))
		for _, l := range layouts {
			if m, ok := document.AsMap(l); ok && m["name"] == name {
				continue
			}
			kept = append(kept, l)
		}
		if len(kept) == len(layouts) {
			return nil
		}
		doc["layouts"] = kept
		if doc["active"] == name {
			doc["active"] = ""
		}
		return nil
	}
}

// ActivateLayout selects a saved layout. Unknown names are ignored.
func ActivateLayout(name string) store.Mutator {
	return func(doc document.Document) document.Document {
		layouts, _ := doc["layouts"].([]any)
		for _, l := range layouts {
			if m, ok := document.AsMap(l); ok && m["name"] == name {
				doc["active"] = name
				return nil
			}
		}
		return nil
	}
}
