package transport

import (
	"github.com/ValentinKolb/sVS/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ISession represents one client connection as seen by the server.
// A session lives from accept to disconnect and owns a single ordered
// outbound queue: responses and pushes enqueued on the same session are
// written to the wire in enqueue order.
type ISession interface {
	// ID returns the unique id of the session
	ID() string
	// RemoteAddr returns a human readable description of the peer
	RemoteAddr() string
	// Push enqueues an unsolicited frame for this session. It returns false
	// if the session is closed and the frame was discarded.
	//
	// Thread-safety: safe for concurrent use. Two calls ordered by a
	// happens-before relation (e.g. made under a shared lock) reach the
	// wire in that order.
	Push(data []byte) bool
}

// ServerHandleFunc is a function type that handles incoming requests.
// The transport layer calls it once per request frame of a session, in
// arrival order. The handler must invoke respond exactly once before
// returning; respond enqueues the response on the session's outbound
// queue. Calling respond early (e.g. from within a store callback) lets
// the handler order the response relative to pushes of the same session.
// The req slice is only valid for the duration of the call.
type ServerHandleFunc func(session ISession, req []byte, respond func(resp []byte))

// SessionCloseFunc is a function type that is called after a session's
// connection is gone (client disconnect or transport error). It is the
// place to release per-session resources such as subscriptions.
type SessionCloseFunc func(session ISession)

// IRPCServerTransport is the interface for the server side transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the request handler for the transport layer.
	// Must be called before Listen.
	RegisterHandler(handler ServerHandleFunc)
	// RegisterCloseHandler registers the session cleanup handler.
	// Must be called before Listen.
	RegisterCloseHandler(handler SessionCloseFunc)
	// Listen starts the transport layer and serves incoming connections
	// until the listener is closed
	Listen(config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// PushHandler is a function type that handles unsolicited server frames.
// The transport invokes it sequentially on a single goroutine, in wire
// arrival order. The data slice may be retained by the handler.
type PushHandler func(data []byte)

// IRPCClientTransport is the interface for the client side transport layer.
//
// A client transport maintains exactly one connection at a time. The
// configured endpoints are a failover list, not a pool: requests, responses
// and pushes of a session all travel over the same connection so that their
// relative order is preserved. On connection loss the transport reconnects
// (endpoints tried in order, exponential backoff) and then invokes the
// reconnect handler so the application can re-establish its subscriptions.
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration and
	// establishes the connection to the first reachable endpoint
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response.
	//
	// Thread-safety: safe for concurrent use, responses are correlated by
	// an internal request id.
	Send(req []byte) (resp []byte, err error)
	// OnPush registers the handler for unsolicited server frames.
	// Must be called before Connect.
	OnPush(handler PushHandler)
	// OnReconnect registers a handler that is invoked after the transport
	// re-established a lost connection. Must be called before Connect.
	OnReconnect(handler func())
	// Endpoint returns the endpoint of the current (or last) connection
	Endpoint() string
	// Close closes the transport connection
	Close() error
}
