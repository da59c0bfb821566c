package stores

import (
	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/store"
)

// PreferencesName is the registry name of the user preferences store.
const PreferencesName = "preferences"

// --------------------------------------------------------------------------
// Typed View
// --------------------------------------------------------------------------

// PreferencesModel is the typed view of the preferences document.
type PreferencesModel struct {
	Theme      string         `mapstructure:"theme" json:"theme"`
	Language   string         `mapstructure:"language" json:"language"`
	Timestamps TimestampPrefs `mapstructure:"timestamps" json:"timestamps"`
	Editor     EditorPrefs    `mapstructure:"editor" json:"editor"`
}

// TimestampPrefs controls how times are rendered.
type TimestampPrefs struct {
	Mode string `mapstructure:"mode" json:"mode"` // "relative" or "absolute"
}

// EditorPrefs holds the text editor options.
type EditorPrefs struct {
	FontSize int  `mapstructure:"fontSize" json:"fontSize"`
	WordWrap bool `mapstructure:"wordWrap" json:"wordWrap"`
}

// PreferencesView decodes a preferences document into the typed model.
func PreferencesView(doc document.Document) (PreferencesModel, error) {
	var m PreferencesModel
	err := decode(doc, &m)
	return m, err
}

// --------------------------------------------------------------------------
// Descriptor
// --------------------------------------------------------------------------

// PreferencesDescriptor returns the store configuration for user
// preferences, schema 1.1.0.
func PreferencesDescriptor() store.Descriptor {
	return store.Descriptor{
		Name: PreferencesName,
		Initial: document.Document{
			"theme":      "system",
			"language":   "en",
			"timestamps": document.Document{"mode": "relative"},
			"editor":     document.Document{"fontSize": 14, "wordWrap": true},
		},
		Migrations: migrate.NewTable("1.1.0",
			migrate.NewMigration("1.1.0", moveTimestampMode),
		),
	}
}

// moveTimestampMode lifts the pre-1.1.0 top-level "timestampMode" key into
// the timestamps object.
func moveTimestampMode(doc document.Document) (document.Document, error) {
	if mode, ok := doc["timestampMode"]; ok {
		document.Set(doc, mode, "timestamps", "mode")
		delete(doc, "timestampMode")
	}
	return nil, nil
}

// --------------------------------------------------------------------------
// Mutation Helpers
// --------------------------------------------------------------------------

// SetTheme switches the color theme.
func SetTheme(theme string) store.Mutator {
	return func(doc document.Document) document.Document {
		document.Set(doc, theme, "theme")
		return nil
	}
}

// SetLanguage switches the UI language.
func SetLanguage(lang string) store.Mutator {
	return func(doc document.Document) document.Document {
		document.Set(doc, lang, "language")
		return nil
	}
}

// SetTimestampMode switches between relative and absolute time rendering.
func SetTimestampMode(mode string) store.Mutator {
	return func(doc document.Document) document.Document {
		document.Set(doc, mode, "timestamps", "mode")
		return nil
	}
}

// SetEditorOption sets one editor option by name.
func SetEditorOption(name string, value any) store.Mutator {
	return func(doc document.Document) document.Document {
		document.Set(doc, value, "editor", name)
		return nil
	}
}
