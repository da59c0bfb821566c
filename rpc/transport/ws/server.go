package ws

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ValentinKolb/sVS/lib/logging"
	"github.com/ValentinKolb/sVS/lib/queue"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/transport"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var Logger = logging.GetLogger("transport/ws")

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// outFrame is one frame waiting in a session's outbound queue
type outFrame struct {
	messageID uint64
	data      []byte
}

// wsSession implements transport.ISession for websocket connections.
//
// Gorilla websocket connections support at most one concurrent writer, so
// all outbound frames are funneled through the session queue and written
// by a single writer goroutine. This doubles as the ordering guarantee:
// responses and pushes reach the client in enqueue order.
type wsSession struct {
	id     string
	conn   *websocket.Conn
	remote string
	out    *queue.MPSC[outFrame]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.ISession)
// --------------------------------------------------------------------------

func (s *wsSession) ID() string {
	return s.id
}

func (s *wsSession) RemoteAddr() string {
	return s.remote
}

func (s *wsSession) Push(data []byte) bool {
	return s.out.Push(&outFrame{messageID: pushMessageID, data: data})
}

// -----------------------------------------------------------
// Server Transport
// -----------------------------------------------------------

// serverTransport implements transport.IRPCServerTransport over websockets
type serverTransport struct {
	handler      transport.ServerHandleFunc
	closeHandler transport.SessionCloseFunc
	config       common.ServerConfig
	upgrader     websocket.Upgrader
}

// NewWSServerTransport creates a new websocket server transport
func NewWSServerTransport() transport.IRPCServerTransport {
	return &serverTransport{}
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

	t.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.Transport.ReadBufferSize,
		WriteBufferSize: config.Transport.WriteBufferSize,
		// The sync channel carries no cookies or ambient credentials, so
		// cross-origin browser clients are allowed to connect
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", t.handleUpgrade)

	server := &http.Server{
		Addr:    config.Endpoint,
		Handler: mux,
	}

	Logger.Infof("Starting ws server on %s", config.Endpoint)
	return server.ListenAndServe()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleUpgrade upgrades an incoming HTTP request and runs the session
func (t *serverTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}

	t.handleConnection(conn, r.RemoteAddr)
}

// handleConnection owns one session from upgrade to disconnect
func (t *serverTransport) handleConnection(conn *websocket.Conn, remoteAddr string) {
	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	sess := &wsSession{
		id:     uuid.NewString(),
		conn:   conn,
		remote: fmt.Sprintf("ws(%s)", remoteAddr),
		out:    queue.NewMPSC[outFrame](),
	}

	Logger.Debugf("Session %s connected (%s)", sess.id, sess.remote)

	// Writer goroutine: the sole writer of this connection (gorilla allows
	// no concurrent writers). Consuming the session queue turns responses
	// and pushes into one ordered stream.
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
			if err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(frame.messageID, frame.data)); err != nil {
				Logger.Errorf("Failed to write frame to session %s: %v", sess.id, err)
				return
			}
		}
	}()

	// Read loop: requests of one session are handled sequentially in
	// arrival order. Sessions idle between requests, so reads carry no
	// deadline.
	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				Logger.Debugf("Session %s closed by client", sess.id)
			} else {
				Logger.Errorf("Session %s read error: %v", sess.id, err)
			}
			break
		}

		if msgType != websocket.BinaryMessage {
			continue
		}

		messageID, data, err := decodeFrame(frame)
		if err != nil {
			Logger.Errorf("Session %s: malformed frame: %v", sess.id, err)
			break
		}

		respond := func(resp []byte) {
			sess.out.Push(&outFrame{messageID: messageID, data: resp})
		}

		t.handler(sess, data, respond)
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
