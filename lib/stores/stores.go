package stores

import (
	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/go-viper/mapstructure/v2"
)

// All returns the descriptors of every built-in store. The serve command
// registers these eagerly so replicas can attach to them by name.
func All() []store.Descriptor {
	return []store.Descriptor{
		PreferencesDescriptor(),
		HotbarsDescriptor(),
		TabsDescriptor(),
		LayoutsDescriptor(),
	}
}

// DescriptorFor returns the built-in descriptor with the given name
func DescriptorFor(name string) (store.Descriptor, bool) {
	for _, desc := range All() {
		if desc.Name == name {
			return desc, true
		}
	}
	return store.Descriptor{}, false
}

// decode maps a document onto a typed view struct. Weak typing absorbs the
// numeric widening JSON round trips introduce (ints decoded as float64).
func decode(doc document.Document, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(doc))
}
