package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/queue"
	"github.com/ValentinKolb/sVS/lib/store"
	"github.com/ValentinKolb/sVS/lib/store/rstore"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/serializer"
	"github.com/ValentinKolb/sVS/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Bindings
// --------------------------------------------------------------------------

// binding connects one replica store to the push stream of the sync channel.
//
// The awaitingSeed flag decides how the next snapshot for this store is
// applied: the first snapshot after an attach re-seeds the replica
// unconditionally (the authority may have restarted and reset its sequence
// numbering), every later one goes through the staleness check of
// ApplySnapshot. The flag is set before the attach request is sent, so the
// seeding push is classified correctly even when it arrives while the attach
// response is still in flight.
type binding struct {
	store store.IReplicaStore

	// seededCh is closed once the replica applied its first snapshot
	seedOnce sync.Once
	seededCh chan struct{}

	mu           sync.Mutex
	awaitingSeed bool
}

func (b *binding) expectSeed() {
	b.mu.Lock()
	b.awaitingSeed = true
	b.mu.Unlock()
}

// deliver applies an incoming snapshot to the replica. Called sequentially on
// the push dispatch goroutine, so snapshots are applied in wire order.
func (b *binding) deliver(doc document.Document, seq uint64) {
	b.mu.Lock()
	seeding := b.awaitingSeed
	b.awaitingSeed = false
	b.mu.Unlock()

	if seeding {
		b.store.Reseed(doc, seq)
	} else {
		b.store.ApplySnapshot(doc, seq)
	}

	b.seedOnce.Do(func() { close(b.seededCh) })
}

// intentEnvelope is one queued intent on its way to the authority
type intentEnvelope struct {
	store   string
	version string
	model   []byte
}

// fetchWaiter collects the seeding snapshot of a one-shot Fetch
type fetchWaiter struct {
	once sync.Once
	ch   chan fetchResult
}

type fetchResult struct {
	doc document.Document
	seq uint64
}

// --------------------------------------------------------------------------
// Sync Client
// --------------------------------------------------------------------------

// SyncClient mirrors authority stores into local replica stores over a sync
// channel. Each replica created via NewStore is attached to the authority:
// it is seeded with the current state, receives every subsequent snapshot as
// a push and forwards its own mutations as intents.
//
// The client survives connection loss: replicas keep serving (and accepting
// mutations on) their local state, and after a reconnect every binding is
// re-attached and re-seeded so the authority state wins again.
//
// Thread-safety: all methods are safe for concurrent use.
type SyncClient struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer

	// Store name -> binding of all attached replicas
	bindings *xsync.MapOf[string, *binding]

	// Store name -> waiter of all Fetch calls in flight
	waiters *xsync.MapOf[string, *fetchWaiter]

	// Intents travel through a queue drained by a single goroutine so that
	// they reach the authority in mutation order
	intents       *queue.MPSC[intentEnvelope]
	forwarderDone chan struct{}

	closed atomic.Bool
}

// NewSyncClient connects the given transport and returns a client ready to
// attach stores. The transport must not be connected yet: the client
// registers its push and reconnect handlers first.
func NewSyncClient(config common.ClientConfig, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*SyncClient, error) {
	c := &SyncClient{
		config:        config,
		transport:     transport,
		serializer:    serializer,
		bindings:      xsync.NewMapOf[string, *binding](),
		waiters:       xsync.NewMapOf[string, *fetchWaiter](),
		intents:       queue.NewMPSC[intentEnvelope](),
		forwarderDone: make(chan struct{}),
	}

	transport.OnPush(c.dispatchPush)
	transport.OnReconnect(c.reattachAll)

	if err := transport.Connect(config); err != nil {
		c.intents.Close()
		return nil, err
	}

	go c.forwardIntents()

	return c, nil
}

// NewStore creates a replica store for desc and attaches it to the
// authority. The replica is usable immediately: it starts from the initial
// model and is re-seeded as soon as the seeding snapshot arrives.
//
// A failed attach does not fail the call: the replica then serves local
// state until the next reconnect re-attaches it. Asking twice for the same
// store name returns the already bound replica, the descriptor of the first
// call wins.
//
// Closing the returned store detaches it from the authority and removes the
// binding.
func (c *SyncClient) NewStore(desc store.Descriptor) (store.IReplicaStore, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("sync client is closed")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	version := desc.Migrations.Current().String()

	created := false
	b, _ := c.bindings.LoadOrCompute(desc.Name, func() *binding {
		send := func(doc document.Document) {
			c.enqueueIntent(desc.Name, version, doc)
		}
		created = true
		return &binding{store: rstore.New(desc, send), seededCh: make(chan struct{})}
	})

	if created {
		// Mark the binding before the attach request goes out: the seeding
		// push precedes the attach response on the wire
		b.expectSeed()
		if err := c.attach(desc.Name); err != nil {
			Logger.Warningf("Attach of store %q failed, replica starts detached: %v", desc.Name, err)
		}
	}

	return &syncedStore{IReplicaStore: b.store, client: c, name: desc.Name}, nil
}

// AwaitSeeded blocks until the replica bound to name has applied its first
// snapshot from the authority. Until then the replica serves the initial
// model, so callers that want to read or modify the authority state should
// wait here after NewStore. The configured request timeout applies (docu see
// common.ClientConfig), a timeout of 0 waits indefinitely.
func (c *SyncClient) AwaitSeeded(name string) error {
	b, ok := c.bindings.Load(name)
	if !ok {
		return fmt.Errorf("no replica bound for store %q", name)
	}

	var timeoutCh <-chan time.Time
	if c.config.TimeoutSecond > 0 {
		timer := time.NewTimer(time.Duration(c.config.TimeoutSecond) * time.Second)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-b.seededCh:
		return nil
	case <-timeoutCh:
		return fmt.Errorf("timed out waiting for the seed of store %q", name)
	}
}

// Fetch attaches to a store just long enough to read its current state and
// returns the model with its sequence number. No replica store is created.
func (c *SyncClient) Fetch(name string) (document.Document, uint64, error) {
	if c.closed.Load() {
		return nil, 0, fmt.Errorf("sync client is closed")
	}

	w := &fetchWaiter{ch: make(chan fetchResult, 1)}
	if _, loaded := c.waiters.LoadOrStore(name, w); loaded {
		return nil, 0, fmt.Errorf("fetch of store %q already in flight", name)
	}
	defer c.waiters.Delete(name)

	if _, err := invokeRPCRequest(common.NewAttachRequest(name), c.transport, c.serializer); err != nil {
		return nil, 0, err
	}

	// The seeding push precedes the attach response on the wire, so it is
	// usually already dispatched at this point
	var timeoutCh <-chan time.Time
	if c.config.TimeoutSecond > 0 {
		timer := time.NewTimer(time.Duration(c.config.TimeoutSecond) * time.Second)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case res := <-w.ch:
		// Keep the subscription if a live binding still needs it, the
		// re-attach above only refreshed its seed
		if _, bound := c.bindings.Load(name); !bound {
			if _, err := invokeRPCRequest(common.NewDetachRequest(name), c.transport, c.serializer); err != nil {
				Logger.Debugf("Detach after fetch of store %q failed: %v", name, err)
			}
		}
		return res.doc, res.seq, nil
	case <-timeoutCh:
		return nil, 0, fmt.Errorf("timed out waiting for snapshot of store %q", name)
	}
}

// List returns the names of the stores the authority serves
func (c *SyncClient) List() ([]string, error) {
	resp, err := invokeRPCRequest(common.NewListRequest(), c.transport, c.serializer)
	if err != nil {
		return nil, err
	}
	return resp.Stores, nil
}

// Flush asks the authority to persist a store durably and synchronously. An
// empty name flushes every store the authority owns.
func (c *SyncClient) Flush(name string) error {
	_, err := invokeRPCRequest(common.NewFlushRequest(name), c.transport, c.serializer)
	return err
}

// Close drains the queued intents, detaches all bound stores and closes the
// transport. The replica stores are closed and must not be used afterwards.
func (c *SyncClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	// Flush queued intents to the authority before detaching
	c.intents.Close()
	<-c.forwarderDone

	c.bindings.Range(func(name string, b *binding) bool {
		c.bindings.Delete(name)
		if _, err := invokeRPCRequest(common.NewDetachRequest(name), c.transport, c.serializer); err != nil {
			Logger.Debugf("Detach of store %q failed on close: %v", name, err)
		}
		if err := b.store.Close(); err != nil {
			Logger.Warningf("Failed to close replica store %q: %v", name, err)
		}
		return true
	})

	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// dispatchPush routes one server push. The transport invokes it sequentially
// in wire arrival order, which is what keeps snapshot application ordered.
func (c *SyncClient) dispatchPush(data []byte) {
	msg := &common.Message{}
	if err := c.serializer.Deserialize(data, msg); err != nil {
		Logger.Errorf("Failed to deserialize push: %v", err)
		return
	}
	if msg.MsgType != common.MsgTSnapshot {
		Logger.Warningf("Ignoring push of unexpected type %s", msg.MsgType)
		return
	}

	doc, err := common.DecodeModel(msg.Model)
	if err != nil {
		Logger.Errorf("Failed to decode snapshot of store %q: %v", msg.Store, err)
		return
	}

	// One-shot fetches take the raw snapshot, whatever its schema version
	if w, ok := c.waiters.Load(msg.Store); ok {
		w.once.Do(func() {
			w.ch <- fetchResult{doc: doc, seq: msg.Seq}
		})
	}

	b, ok := c.bindings.Load(msg.Store)
	if !ok {
		Logger.Debugf("No binding for pushed snapshot of store %q", msg.Store)
		return
	}

	// A replica built against a different schema version must not take over
	// the authority's model shape, it keeps serving local state instead
	if v := b.store.Version(); msg.Version != "" && msg.Version != v {
		Logger.Warningf("Dropping snapshot of store %q: schema version %s, replica has %s", msg.Store, msg.Version, v)
		return
	}

	b.deliver(doc, msg.Seq)
}

// reattachAll re-establishes every subscription after a reconnect. Runs on
// the transport's reconnect goroutine.
func (c *SyncClient) reattachAll() {
	Logger.Infof("Reconnected to %s, re-attaching %d store(s)", c.transport.Endpoint(), c.bindings.Size())
	c.bindings.Range(func(name string, b *binding) bool {
		b.expectSeed()
		if err := c.attach(name); err != nil {
			Logger.Errorf("Failed to re-attach store %q: %v", name, err)
		}
		return true
	})
}

func (c *SyncClient) attach(name string) error {
	_, err := invokeRPCRequest(common.NewAttachRequest(name), c.transport, c.serializer)
	return err
}

// enqueueIntent is the send hook of the bound replicas. It runs on the
// mutating goroutine with the store mutex held, so it only encodes and
// enqueues.
func (c *SyncClient) enqueueIntent(name, version string, doc document.Document) {
	model, err := common.EncodeModel(doc)
	if err != nil {
		Logger.Errorf("Failed to encode intent of store %q: %v", name, err)
		return
	}
	c.intents.Push(&intentEnvelope{store: name, version: version, model: model})
}

// forwardIntents drains the intent queue sequentially so intents reach the
// authority in mutation order. A failed send is logged and dropped: the
// local model keeps the change, and the authority reconciles the replica
// again with the seed of the next re-attach.
func (c *SyncClient) forwardIntents() {
	defer close(c.forwarderDone)

	for env := range c.intents.Recv() {
		req := common.NewIntentRequest(env.store, env.version, env.model)
		if _, err := invokeRPCRequest(req, c.transport, c.serializer); err != nil {
			Logger.Warningf("Intent of store %q dropped: %v", env.store, err)
		}
	}
}

// unbind removes a binding and releases the server side subscription. Only
// the first caller for a name does the detach.
func (c *SyncClient) unbind(name string) {
	if _, ok := c.bindings.LoadAndDelete(name); !ok {
		return
	}
	if c.closed.Load() {
		return
	}
	if _, err := invokeRPCRequest(common.NewDetachRequest(name), c.transport, c.serializer); err != nil {
		Logger.Debugf("Detach of store %q failed: %v", name, err)
	}
}

// --------------------------------------------------------------------------
// Synced Store Wrapper
// --------------------------------------------------------------------------

// syncedStore decorates a bound replica so that closing it also detaches it
// from the authority and removes the binding.
type syncedStore struct {
	store.IReplicaStore
	client *SyncClient
	name   string
}

func (s *syncedStore) Close() error {
	s.client.unbind(s.name)
	return s.IReplicaStore.Close()
}
