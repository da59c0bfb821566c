package stores

import (
	"testing"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/ValentinKolb/sVS/lib/store/rstore"
)

// newTestStore builds a channel-less replica: the cheapest live store to
// drive mutation helpers through the real accept/discard pipeline.
func newTestStore(desc store.Descriptor) store.IStore {
	return rstore.New(desc, nil)
}

// countChanges subscribes a counting listener.
func countChanges(s store.IStore, n *int) func() {
	return s.Subscribe(func(document.Document) { *n++ })
}

// TestAllDescriptorsValid tests that every built-in store is registrable
func TestAllDescriptorsValid(t *testing.T) {
	seen := map[string]bool{}
	for _, desc := range All() {
		if err := desc.Validate(); err != nil {
			t.Errorf("Descriptor %q failed validation: %v", desc.Name, err)
		}
		if seen[desc.Name] {
			t.Errorf("Duplicate store name %q", desc.Name)
		}
		seen[desc.Name] = true
	}
	if len(seen) != 4 {
		t.Errorf("Expected 4 built-in stores, got %d", len(seen))
	}
}
