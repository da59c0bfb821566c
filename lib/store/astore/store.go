package astore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/logging"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/storage"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/VictoriaMetrics/metrics"
)

var log = logging.GetLogger("astore")

// watcher is one registered observer. Watchers see every accepted mutation
// in sequence order.
type watcher struct {
	id uint64
	fn func(doc document.Document, seq uint64)
}

type storeImpl struct {
	desc    store.Descriptor
	backend storage.IBackend
	version string

	mu       sync.RWMutex
	model    document.Document
	seq      uint64
	watchers []watcher
	nextID   uint64
	closed   bool

	mutations *metrics.Counter
	discarded *metrics.Counter
}

// New creates the authority instance for desc, seeded from the backend. The
// authority owns the durable copy: it is the only writer of the persisted
// document and the source of all snapshots replicas see.
//
// Construction never fails: a degraded load (corrupt file, too-new schema,
// unreachable storage) is logged and the store starts from the initial
// model. An invalid descriptor panics since it is a programming error.
func New(desc store.Descriptor, backend storage.IBackend) store.IAuthorityStore {
	if err := desc.Validate(); err != nil {
		panic(err.Error())
	}

	persisted, err := backend.Load(desc.LoadSpec())
	if err != nil {
		var tooNew *migrate.SchemaTooNewError
		if errors.As(err, &tooNew) {
			log.Warningf("store %q was written by a newer build (%v), starting from initial model", desc.Name, err)
		} else {
			log.Errorf("load of store %q degraded to initial model: %v", desc.Name, err)
		}
	}
	model := persisted.Data
	if model == nil {
		model = document.Document{}
	}

	return &storeImpl{
		desc:      desc,
		backend:   backend,
		version:   desc.Migrations.Current().String(),
		model:     model,
		mutations: metrics.GetOrCreateCounter(fmt.Sprintf(`svs_mutations_total{store=%q}`, desc.Name)),
		discarded: metrics.GetOrCreateCounter(fmt.Sprintf(`svs_mutations_discarded_total{store=%q}`, desc.Name)),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Name() string {
	return s.desc.Name
}

func (s *storeImpl) Role() store.Role {
	return store.RoleAuthority
}

func (s *storeImpl) Version() string {
	return s.version
}

func (s *storeImpl) Get() document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return document.Clone(s.model)
}

func (s *storeImpl) Mutate(fn store.Mutator) error {
	if fn == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.NewError(store.RetCStoreClosed, fmt.Sprintf("store %q is closed", s.desc.Name))
	}

	work := document.Clone(s.model)
	next := fn(work)
	if next == nil {
		next = work
	}

	if s.desc.Equality.Equal(s.model, next) {
		s.discarded.Inc()
		return nil
	}

	s.model = next
	s.seq++
	s.mutations.Inc()

	// The flusher holds a reference to next. Future mutations replace
	// s.model instead of modifying it, so the reference stays stable.
	s.backend.ScheduleFlush(s.desc.Name, storage.PersistedDocument{
		Version: s.version,
		Data:    next,
	})

	s.notifyLocked()
	return nil
}

func (s *storeImpl) Reset() error {
	return s.Mutate(func(document.Document) document.Document {
		initial := document.Clone(s.desc.Initial)
		if initial == nil {
			initial = document.Document{}
		}
		return initial
	})
}

func (s *storeImpl) Subscribe(fn store.Listener) func() {
	if fn == nil {
		return func() {}
	}
	return s.Attach(nil, func(doc document.Document, _ uint64) {
		fn(doc)
	})
}

func (s *storeImpl) Flush() error {
	return s.backend.FlushNow(s.desc.Name)
}

func (s *storeImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.watchers = nil
	s.mu.Unlock()

	// The backend is shared by all stores of the process, so closing one
	// store only drains its own pending flush.
	return s.backend.FlushNow(s.desc.Name)
}

// --------------------------------------------------------------------------
// Authority Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Snapshot() (document.Document, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return document.Clone(s.model), s.seq
}

func (s *storeImpl) Attach(register, watch func(doc document.Document, seq uint64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	if register != nil {
		register(document.Clone(s.model), s.seq)
	}
	if watch == nil {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.watchers = append(s.watchers, watcher{id: id, fn: watch})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, w := range s.watchers {
			if w.id == id {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// notifyLocked invokes all watchers with a fresh copy each. Must be called
// with s.mu held, which is what makes the delivery order equal the mutation
// order.
func (s *storeImpl) notifyLocked() {
	for _, w := range s.watchers {
		w.fn(document.Clone(s.model), s.seq)
	}
}
