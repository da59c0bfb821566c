package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/storage"
	storagetesting "github.com/ValentinKolb/sVS/lib/storage/testing"
)

// newTestBackend creates a memory backend with fast debounce windows
func newTestBackend(tb testing.TB) storage.IBackend {
	backend, err := New(&Options{
		Quiescence: 50 * time.Millisecond,
		MaxDelay:   250 * time.Millisecond,
	})
	if err != nil {
		tb.Fatalf("Failed to create memory backend: %v", err)
	}
	tb.Cleanup(func() { _ = backend.Close() })
	return backend
}

// TestMemoryImplementation runs the backend contract suite
func TestMemoryImplementation(t *testing.T) {
	storagetesting.RunBackendTests(t, "Memory", newTestBackend)
}

// TestConcurrentStores tests parallel load and flush across many stores
func TestConcurrentStores(t *testing.T) {
	backend := newTestBackend(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("store-%d", i)
			spec := storage.LoadSpec{
				Name:       name,
				Initial:    document.Document{},
				Migrations: migrate.NewTable("1.0.0"),
			}
			if _, err := backend.Load(spec); err != nil {
				t.Errorf("Load of %s failed: %v", name, err)
				return
			}
			backend.ScheduleFlush(name, storage.PersistedDocument{
				Version: "1.0.0",
				Data:    document.Document{"idx": float64(i)},
			})
			if err := backend.FlushNow(name); err != nil {
				t.Errorf("FlushNow of %s failed: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	// Every store must hold its own document
	for i := 0; i < 32; i++ {
		name := fmt.Sprintf("store-%d", i)
		spec := storage.LoadSpec{
			Name:       name,
			Initial:    document.Document{},
			Migrations: migrate.NewTable("1.0.0"),
		}
		doc, err := backend.Load(spec)
		if err != nil {
			t.Fatalf("Reload of %s failed: %v", name, err)
		}
		if got, _ := document.Get(doc.Data, "idx"); got != float64(i) {
			t.Errorf("Expected idx=%d in %s, got %v", i, name, got)
		}
	}

	if info := backend.Info(); info.Stores != 32 {
		t.Errorf("Expected 32 stores in info, got %d", info.Stores)
	}
}
