package server

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/serializer"
	"github.com/ValentinKolb/sVS/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// NewSyncServerAdapter creates the adapter that exposes the authority stores
// of a registry over the sync channel. The serializer is needed because the
// adapter emits snapshot pushes on its own, outside the request/response
// cycle of the server.
func NewSyncServerAdapter(registry *store.Registry, serializer serializer.IRPCSerializer) IRPCServerAdapter {
	adapter := &syncServerAdapterImpl{
		registry:   registry,
		serializer: serializer,
		sessions:   xsync.NewMapOf[string, *sessionSubs](),
	}
	metrics.GetOrCreateGauge(`svs_sync_sessions_active`, func() float64 {
		return float64(adapter.sessions.Size())
	})
	return adapter
}

// sessionSubs tracks the subscriptions of one session (store name -> detach)
type sessionSubs struct {
	mu       sync.Mutex
	detaches map[string]func()
	closed   bool
}

type syncServerAdapterImpl struct {
	registry   *store.Registry
	serializer serializer.IRPCSerializer
	sessions   *xsync.MapOf[string, *sessionSubs]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see server/interface.go)
// --------------------------------------------------------------------------

func (a *syncServerAdapterImpl) Handle(session transport.ISession, req *common.Message, respond func(resp *common.Message)) {
	switch req.MsgType {
	case common.MsgTAttach:
		a.handleAttach(session, req, respond)
	case common.MsgTDetach:
		a.handleDetach(session, req, respond)
	case common.MsgTIntent:
		a.handleIntent(req, respond)
	case common.MsgTList:
		respond(common.NewListResponse(a.registry.Names(), nil))
	case common.MsgTFlush:
		a.handleFlush(req, respond)
	default:
		respond(common.NewErrorResponse(
			fmt.Sprintf("sync adapter: unsupported message type: %s", req.MsgType),
		))
	}
}

func (a *syncServerAdapterImpl) SessionClosed(session transport.ISession) {
	subs, ok := a.sessions.LoadAndDelete(session.ID())
	if !ok {
		return
	}

	subs.mu.Lock()
	defer subs.mu.Unlock()
	subs.closed = true
	for name, detach := range subs.detaches {
		detach()
		delete(subs.detaches, name)
	}
}

// --------------------------------------------------------------------------
// Request Handlers
// --------------------------------------------------------------------------

// handleAttach subscribes the session to a store. The seeding snapshot is
// enqueued inside the store's register callback, which runs under the same
// lock that serializes mutations: no snapshot can slip between the seed and
// the first watch push, and all of them enter the session queue in sequence
// order. The acknowledging response is enqueued afterwards, so the client
// observes seed, response, then live snapshots.
func (a *syncServerAdapterImpl) handleAttach(session transport.ISession, req *common.Message, respond func(resp *common.Message)) {
	st, err := a.authority(req.Store)
	if err != nil {
		respond(common.NewAttachResponse(req.Store, err))
		return
	}

	push := func(doc document.Document, seq uint64) {
		a.pushSnapshot(session, st, doc, seq)
	}

	subs := a.subs(session)
	subs.mu.Lock()
	defer subs.mu.Unlock()
	if subs.closed {
		respond(common.NewAttachResponse(req.Store, fmt.Errorf("session is closed")))
		return
	}

	// A second attach for the same store replaces the previous subscription
	// (fresh seed, no double pushes)
	if detach, ok := subs.detaches[st.Name()]; ok {
		detach()
		delete(subs.detaches, st.Name())
	}

	subs.detaches[st.Name()] = st.Attach(push, push)
	metrics.GetOrCreateCounter(fmt.Sprintf(`svs_sync_attaches_total{store=%q}`, st.Name())).Inc()

	respond(common.NewAttachResponse(st.Name(), nil))
}

// handleDetach removes the session's subscription for a store. Detaching a
// store that is not attached is a no-op success.
func (a *syncServerAdapterImpl) handleDetach(session transport.ISession, req *common.Message, respond func(resp *common.Message)) {
	subs := a.subs(session)
	subs.mu.Lock()
	if detach, ok := subs.detaches[req.Store]; ok {
		detach()
		delete(subs.detaches, req.Store)
	}
	subs.mu.Unlock()

	respond(common.NewDetachResponse(nil))
}

// handleIntent applies a whole-document supersede to the authority. The
// answering snapshot reaches this session (and every other subscriber)
// through the watch push, not through the response.
func (a *syncServerAdapterImpl) handleIntent(req *common.Message, respond func(resp *common.Message)) {
	st, err := a.authority(req.Store)
	if err != nil {
		respond(common.NewIntentResponse(err))
		return
	}

	// An intent from a build with a different schema would supersede
	// newer-shaped state wholesale, so it is rejected instead
	if req.Version != "" && req.Version != st.Version() {
		respond(common.NewIntentResponse(
			fmt.Errorf("schema version mismatch: intent %s, authority %s", req.Version, st.Version()),
		))
		return
	}

	doc, err := common.DecodeModel(req.Model)
	if err != nil {
		respond(common.NewIntentResponse(err))
		return
	}

	metrics.GetOrCreateCounter(fmt.Sprintf(`svs_sync_intents_total{store=%q}`, st.Name())).Inc()

	err = st.Mutate(func(document.Document) document.Document {
		return doc
	})
	respond(common.NewIntentResponse(err))
}

// handleFlush flushes one store, or every store if no name is given
func (a *syncServerAdapterImpl) handleFlush(req *common.Message, respond func(resp *common.Message)) {
	if req.Store == "" {
		respond(common.NewFlushResponse(a.registry.FlushAll()))
		return
	}

	st, ok := a.registry.Get(req.Store)
	if !ok {
		respond(common.NewFlushResponse(fmt.Errorf("store %q not found", req.Store)))
		return
	}
	respond(common.NewFlushResponse(st.Flush()))
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// authority resolves a store name to its authority instance
func (a *syncServerAdapterImpl) authority(name string) (store.IAuthorityStore, error) {
	if name == "" {
		return nil, fmt.Errorf("no store name given")
	}
	s, ok := a.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("store %q not found", name)
	}
	authority, ok := s.(store.IAuthorityStore)
	if !ok {
		return nil, fmt.Errorf("store %q is not an authority", name)
	}
	return authority, nil
}

// pushSnapshot serializes a snapshot and enqueues it on the session.
// Push returning false means the session is gone, the pending detach via
// SessionClosed will stop further pushes.
func (a *syncServerAdapterImpl) pushSnapshot(session transport.ISession, st store.IAuthorityStore, doc document.Document, seq uint64) {
	model, err := common.EncodeModel(doc)
	if err != nil {
		Logger.Errorf("Failed to encode snapshot of store %q: %v", st.Name(), err)
		return
	}

	data, err := a.serializer.Serialize(*common.NewSnapshotPush(st.Name(), st.Version(), model, seq))
	if err != nil {
		Logger.Errorf("Failed to serialize snapshot of store %q: %v", st.Name(), err)
		return
	}

	if session.Push(data) {
		metrics.GetOrCreateCounter(fmt.Sprintf(`svs_sync_pushes_total{store=%q}`, st.Name())).Inc()
	}
}

// subs returns the subscription table of a session, creating it on first use
func (a *syncServerAdapterImpl) subs(session transport.ISession) *sessionSubs {
	s, _ := a.sessions.LoadOrCompute(session.ID(), func() *sessionSubs {
		return &sessionSubs{detaches: make(map[string]func())}
	})
	return s
}
