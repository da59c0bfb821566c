package base

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/sVS/lib/queue"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/transport"
	"github.com/google/uuid"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// outFrame is one frame waiting in a session's outbound queue
type outFrame struct {
	messageID uint64
	data      []byte
}

// session implements transport.ISession for stream connections.
//
// All outbound frames (responses and pushes) are enqueued on the out queue
// and written by a single writer goroutine, which serializes them into one
// FIFO stream per connection.
type session struct {
	id     string
	conn   net.Conn
	remote string
	out    *queue.MPSC[outFrame]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ISession)
// --------------------------------------------------------------------------

func (s *session) ID() string {
	return s.id
}

func (s *session) RemoteAddr() string {
	return s.remote
}

func (s *session) Push(data []byte) bool {
	return s.out.Push(&outFrame{messageID: pushMessageID, data: data})
}

// -----------------------------------------------------------
// Base Server Transport
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector    IServerConnector
	handler      transport.ServerHandleFunc
	closeHandler transport.SessionCloseFunc
	config       common.ServerConfig
	listener     net.Listener
	bufferPool   *sync.Pool
	bufferSize   int
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport
func NewBaseServerTransport(connector IServerConnector, bufferSize int) transport.IRPCServerTransport {
	return &serverTransport{
		connector:  connector,
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return make([]byte, bufferSize)
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) RegisterCloseHandler(handler transport.SessionCloseFunc) {
	t.closeHandler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	t.listener = listener

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), config.Endpoint)

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		// Handle the connection in a goroutine
		go t.handleConnection(conn)
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection owns one session from accept to disconnect
func (t *serverTransport) handleConnection(conn net.Conn) {
	// Apply protocol-specific settings (socket options etc.)
	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		Logger.Errorf("Failed to upgrade connection: %v", err)
		conn.Close()
		return
	}

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		remote: fmt.Sprintf("%s(%s)", t.connector.GetName(), conn.RemoteAddr()),
		out:    queue.NewMPSC[outFrame](),
	}

	Logger.Debugf("Session %s connected (%s)", sess.id, sess.remote)

	// Writer goroutine: the sole writer of this connection. Consuming the
	// session queue turns responses and pushes into one ordered stream.
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for frame := range sess.out.Recv() {
			if timeout > 0 {
				if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
					Logger.Errorf("Failed to set write deadline for session %s: %v", sess.id, err)
					return
				}
			}
			if err := writeFrame(conn, frame.messageID, frame.data); err != nil {
				Logger.Errorf("Failed to write frame to session %s: %v", sess.id, err)
				return
			}
		}
	}()

	// Read loop: requests of one session are handled sequentially in arrival
	// order, so the effects of two requests on the same store never race.
	for {
		err := t.handleRequest(sess)

		// Case EOF: Connection closed by client
		if err == io.EOF {
			Logger.Debugf("Session %s closed by client", sess.id)
			break
		}

		// Case error: log and close connection
		if err != nil {
			Logger.Errorf("Session %s: error handling request: %v", sess.id, err)
			break
		}
	}

	// Release subscriptions before tearing down the pipe, no new pushes
	// are enqueued afterwards
	if t.closeHandler != nil {
		t.closeHandler(sess)
	}

	// Let the writer drain what is already queued, then discard the rest
	// (the writer may have exited early on a write error)
	sess.out.Close()
	<-writerDone
	for range sess.out.Recv() {
	}

	if err := conn.Close(); err != nil {
		Logger.Debugf("Session %s: error closing connection: %v", sess.id, err)
	}
}

// handleRequest reads one frame and dispatches it to the registered handler.
// The respond closure enqueues the response with the request's message id,
// which lets the handler decide when the response is ordered relative to
// pushes of the same session.
func (t *serverTransport) handleRequest(sess *session) error {
	// Get a buffer from the pool
	buf := t.bufferPool.Get().([]byte)
	defer t.bufferPool.Put(buf)

	// Sessions idle between requests (a subscriber may send nothing for
	// hours), so reads carry no deadline. Dead peers surface as read
	// errors via keep-alive or on the next write.
	messageID, data, err := readFrame(sess.conn, buf)
	if err != nil {
		return err
	}

	respond := func(resp []byte) {
		sess.out.Push(&outFrame{messageID: messageID, data: resp})
	}

	t.handler(sess, data, respond)
	return nil
}
