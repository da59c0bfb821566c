package rstore

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/VictoriaMetrics/metrics"
)

// SendFunc forwards an intent (the whole desired document) to the authority.
// It is invoked on the mutating goroutine with the store mutex held, so the
// call order equals the mutation order. Implementations must only enqueue
// and must not block.
type SendFunc func(doc document.Document)

type listener struct {
	id uint64
	fn store.Listener
}

type storeImpl struct {
	desc    store.Descriptor
	send    SendFunc
	version string

	mu        sync.RWMutex
	model     document.Document
	lastSeq   uint64
	seeded    bool
	listeners []listener
	nextID    uint64
	closed    bool

	applied   *metrics.Counter
	droppedC  *metrics.Counter
	intentsC  *metrics.Counter
	discarded *metrics.Counter
}

// New creates a replica instance for desc. The store starts from the initial
// model and becomes a mirror of the authority once the first snapshot is fed
// in via Reseed. A nil send detaches the replica from any authority, it then
// simply holds local state.
//
// An invalid descriptor panics since it is a programming error.
func New(desc store.Descriptor, send SendFunc) store.IReplicaStore {
	if err := desc.Validate(); err != nil {
		panic(err.Error())
	}

	model := document.Clone(desc.Initial)
	if model == nil {
		model = document.Document{}
	}

	return &storeImpl{
		desc:      desc,
		send:      send,
		version:   desc.Migrations.Current().String(),
		model:     model,
		applied:   metrics.GetOrCreateCounter(fmt.Sprintf(`svs_snapshots_applied_total{store=%q}`, desc.Name)),
		droppedC:  metrics.GetOrCreateCounter(fmt.Sprintf(`svs_snapshots_dropped_total{store=%q}`, desc.Name)),
		intentsC:  metrics.GetOrCreateCounter(fmt.Sprintf(`svs_intents_sent_total{store=%q}`, desc.Name)),
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
	return store.RoleReplica
}

func (s *storeImpl) Version() string {
	return s.version
}

func (s *storeImpl) Get() document.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return document.Clone(s.model)
}

// Mutate applies fn optimistically: the local model changes and listeners
// fire immediately, then the resulting document is forwarded to the
// authority as an intent. The authority's answering snapshot reconciles any
// divergence later.
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
	s.notifyLocked()

	if s.send != nil {
		s.intentsC.Inc()
		s.send(document.Clone(next))
	}
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Flush is a no-op: durability is the authority's concern.
func (s *storeImpl) Flush() error {
	return nil
}

func (s *storeImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.listeners = nil
	return nil
}

// --------------------------------------------------------------------------
// Replica Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) ApplySnapshot(doc document.Document, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.seeded && seq <= s.lastSeq {
		s.droppedC.Inc()
		return
	}
	s.applyLocked(doc, seq)
}

func (s *storeImpl) Reseed(doc document.Document, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.applyLocked(doc, seq)
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// applyLocked reconciles an incoming snapshot. A snapshot equal to the local
// model only advances the sequence number: reapplying it is idempotent and
// observers never see a spurious notification.
func (s *storeImpl) applyLocked(doc document.Document, seq uint64) {
	s.lastSeq = seq
	s.seeded = true
	s.applied.Inc()

	incoming := document.Clone(doc)
	if incoming == nil {
		incoming = document.Document{}
	}
	if s.desc.Equality.Equal(s.model, incoming) {
		return
	}

	s.model = incoming
	s.notifyLocked()
}

// notifyLocked invokes all listeners with a fresh copy each. Must be called
// with s.mu held.
func (s *storeImpl) notifyLocked() {
	for _, l := range s.listeners {
		l.fn(document.Clone(s.model))
	}
}
