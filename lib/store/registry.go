package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/logging"
)

var log = logging.GetLogger("store")

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry manages the store instances of one process. It guarantees at most
// one instance per store name: concurrent GetOrCreate calls for the same name
// observe the same instance, and a second descriptor that disagrees with the
// one a store was created with is rejected.
//
// The registry is an explicit object, there is no process-global instance.
// Whoever wires the process (the serve command, the CLI, a test) creates one
// and injects it where needed.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	factory StoreFactory
	mu      sync.RWMutex
	entries map[string]regEntry
	closed  bool
}

type regEntry struct {
	store IStore
	desc  Descriptor
}

// NewRegistry creates a registry whose stores are built by factory. The
// factory decides the role of the process: an authority factory wires stores
// to a persistence backend, a replica factory wires them to a sync channel.
func NewRegistry(factory StoreFactory) *Registry {
	if factory == nil {
		panic("store: registry requires a factory")
	}
	return &Registry{
		factory: factory,
		entries: make(map[string]regEntry),
	}
}

// GetOrCreate returns the instance for desc.Name, creating it on first use.
// A descriptor that differs from the one the existing instance was created
// with (initial model, schema version or equality mode) yields a *Error with
// code RetCDescriptorConflict.
func (r *Registry) GetOrCreate(desc Descriptor) (IStore, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	entry, ok := r.entries[desc.Name]
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return nil, NewError(RetCStoreClosed, "registry is closed")
	}
	if ok {
		return checkedEntry(entry, desc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, NewError(RetCStoreClosed, "registry is closed")
	}
	if entry, ok := r.entries[desc.Name]; ok {
		return checkedEntry(entry, desc)
	}

	s, err := r.factory(desc)
	if err != nil {
		return nil, err
	}
	r.entries[desc.Name] = regEntry{store: s, desc: desc}
	log.Debugf("created store %q (role %s, schema %s)", desc.Name, s.Role(), desc.Migrations.Current())
	return s, nil
}

// Get returns the instance for name if it was created before.
func (r *Registry) Get(name string) (IStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return entry.store, true
}

// Names returns the names of all created stores in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Range calls fn for every created store until fn returns false.
func (r *Registry) Range(fn func(s IStore) bool) {
	for _, s := range r.snapshot() {
		if !fn(s) {
			return
		}
	}
}

// FlushAll flushes every store synchronously and returns the joined errors.
// It blocks until every instance has written its pending state. Used by the
// shutdown path.
func (r *Registry) FlushAll() error {
	var errs []error
	for _, s := range r.snapshot() {
		if err := s.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush of store %q failed: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every store and marks the registry unusable.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stores := make([]IStore, 0, len(r.entries))
	for _, entry := range r.entries {
		stores = append(stores, entry.store)
	}
	r.entries = make(map[string]regEntry)
	r.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// snapshot returns the current stores without holding the lock during
// iteration, so Flush and Close calls never run under the registry lock.
func (r *Registry) snapshot() []IStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stores := make([]IStore, 0, len(r.entries))
	for _, entry := range r.entries {
		stores = append(stores, entry.store)
	}
	return stores
}

// checkedEntry guards against two call sites configuring the same store name
// differently, which would silently split one logical store into two schemas.
func checkedEntry(entry regEntry, desc Descriptor) (IStore, error) {
	if !descriptorsCompatible(entry.desc, desc) {
		return nil, NewError(RetCDescriptorConflict,
			fmt.Sprintf("store %q already exists with a different descriptor", desc.Name))
	}
	return entry.store, nil
}

func descriptorsCompatible(a, b Descriptor) bool {
	if a.Equality != b.Equality {
		return false
	}
	if !a.Migrations.Current().Equal(b.Migrations.Current()) {
		return false
	}
	return document.EqualStrict(a.Initial, b.Initial)
}
