package stores

import (
	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/store"
)

// TabsName is the registry name of the open-tab metadata store.
const TabsName = "tabs"

// --------------------------------------------------------------------------
// Typed View
// --------------------------------------------------------------------------

// TabArea holds the open tabs of one feature area.
type TabArea struct {
	Open   []string `mapstructure:"open" json:"open"`
	Active string   `mapstructure:"active" json:"active"`
}

// TabsModel is the typed view of the tabs document, keyed by feature area.
type TabsModel struct {
	Areas map[string]TabArea `mapstructure:"areas" json:"areas"`
}

// TabsView decodes a tabs document into the typed model.
func TabsView(doc document.Document) (TabsModel, error) {
	var m TabsModel
	err := decode(doc, &m)
	return m, err
}

// --------------------------------------------------------------------------
// Descriptor
// --------------------------------------------------------------------------

// TabsDescriptor returns the store configuration for per-area open-tab
// metadata, schema 1.0.0.
func TabsDescriptor() store.Descriptor {
	return store.Descriptor{
		Name: TabsName,
		Initial: document.Document{
			"areas": document.Document{},
		},
		Migrations: migrate.NewTable("1.0.0"),
	}
}

// --------------------------------------------------------------------------
// Mutation Helpers
// --------------------------------------------------------------------------

// OpenTab records id as open in the area and makes it the active tab. The
// area is created on first use.
func OpenTab(area, id string) store.Mutator {
	return func(doc document.Document) document.Document {
		open := openTabs(doc, area)
		if !contains(open, id) {
			open = append(open, id)
		}
		document.Set(doc, open, "areas", area, "open")
		document.Set(doc, id, "areas", area, "active")
		return nil
	}
}

// CloseTab removes id from the area. If it was active, the last remaining
// tab becomes active (empty when none is left).
func CloseTab(area, id string) store.Mutator {
	return func(doc document.Document) document.Document {
		open := openTabs(doc, area)
		kept := make([]any, 0, len(open))
		for _, t := range open {
			if t != id {
				kept = append(kept, t)
			}
		}
		if len(kept) == len(open) {
			return nil
		}
		document.Set(doc, kept, "areas", area, "open")

		if active, _ := document.Get(doc, "areas", area, "active"); active == id {
			next := ""
			if len(kept) > 0 {
				next, _ = kept[len(kept)-1].(string)
			}
			document.Set(doc, next, "areas", area, "active")
		}
		return nil
	}
}

// ActivateTab marks an already open tab active. Unknown tabs are ignored.
func ActivateTab(area, id string) store.Mutator {
	return func(doc document.Document) document.Document {
		if !contains(openTabs(doc, area), id) {
			return nil
		}
		document.Set(doc, id, "areas", area, "active")
		return nil
	}
}

// openTabs returns the open list of an area in its raw []any form.
func openTabs(doc document.Document, area string) []any {
	raw, ok := document.Get(doc, "areas", area, "open")
	if !ok {
		return nil
	}
	open, _ := raw.([]any)
	return open
}

func contains(open []any, id string) bool {
	for _, t := range open {
		if t == id {
			return true
		}
	}
	return false
}
