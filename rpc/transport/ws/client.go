package ws

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/transport"
	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"
)

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientTransport implements transport.IRPCClientTransport over websockets.
//
// Like the stream-based client transports, it maintains exactly one
// connection at a time and treats the configured endpoints as a failover
// list, preserving the frame order of the session.
type clientTransport struct {
	config common.ClientConfig

	connMu   sync.Mutex // Protects conn and endpoint
	conn     *websocket.Conn
	endpoint string

	writeMu sync.Mutex // Serializes writes (gorilla allows one writer)

	requestChans  *xsync.MapOf[uint64, chan responseResult]
	nextRequestID uint64 // Atomic counter, 0 is reserved for pushes

	pushHandler      transport.PushHandler
	reconnectHandler func()

	stopping atomic.Bool
	stopCh   chan struct{}
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewWSClientTransport creates a new websocket client transport
func NewWSClientTransport() transport.IRPCClientTransport {
	return &clientTransport{
		requestChans: xsync.NewMapOf[uint64, chan responseResult](),
		stopCh:       make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints provided")
	}

	// Store the config
	t.config = config

	// Establish the initial connection
	if err := t.dial(); err != nil {
		return err
	}

	// Start the single reader goroutine (correlates responses, dispatches pushes)
	go t.readLoop()

	return nil
}

func (t *clientTransport) Send(req []byte) (resp []byte, err error) {
	// Define the send function to be used in retries
	send := func() ([]byte, error) {
		t.connMu.Lock()
		conn := t.conn
		t.connMu.Unlock()

		// Test if connection is still valid
		if conn == nil {
			return nil, fmt.Errorf("connection is closed")
		}

		// Generate a unique request ID (0 is reserved for pushes)
		requestID := atomic.AddUint64(&t.nextRequestID, 1)

		// Create a channel for the response
		respCh := make(chan responseResult, 1)

		// Register the request
		t.requestChans.Store(requestID, respCh)

		// Ensure we clean up when done
		defer t.requestChans.Delete(requestID)

		// Lock the connection only for writing
		t.writeMu.Lock()
		if t.config.TimeoutSecond > 0 {
			timeout := time.Duration(t.config.TimeoutSecond) * time.Second
			conn.SetWriteDeadline(time.Now().Add(timeout))
		}
		err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(requestID, req))
		t.writeMu.Unlock()

		if err != nil {
			return nil, err
		}

		// Wait for response or timeout
		var timeoutCh <-chan time.Time
		if t.config.TimeoutSecond > 0 {
			timeout := time.Duration(t.config.TimeoutSecond) * time.Second
			timeoutCh = time.After(timeout)
		} else {
			timeoutCh = make(chan time.Time) // Never triggers
		}

		select {
		case result := <-respCh:
			return result.data, result.err
		case <-timeoutCh:
			return nil, fmt.Errorf("request timed out")
		case <-t.stopCh:
			return nil, fmt.Errorf("transport closed")
		}
	}

	// Retry logic with exponential backoff
	var lastErr error

	// We always try at least once, and up to maxRetries times
	maxRetries := t.config.RetryCount
	if maxRetries < 1 {
		maxRetries = 1
	}

	// Initial backoff duration in milliseconds
	backoffMs := 50

	for i := 0; i < maxRetries; i++ {
		data, err := send()
		if err == nil {
			return data, nil
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			backoffDuration := time.Duration(jitter) * time.Millisecond
			time.Sleep(backoffDuration)
			backoffMs *= 2
		}
	}

	// All attempts failed
	return nil, fmt.Errorf("failed to send request after %d attempts: %v", maxRetries, lastErr)
}

func (t *clientTransport) OnPush(handler transport.PushHandler) {
	t.pushHandler = handler
}

func (t *clientTransport) OnReconnect(handler func()) {
	t.reconnectHandler = handler
}

func (t *clientTransport) Endpoint() string {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.endpoint
}

func (t *clientTransport) Close() error {
	if t.stopping.Swap(true) {
		return nil
	}
	close(t.stopCh)
	t.closeConn()
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// endpointURL normalizes an endpoint to a websocket URL. Plain host:port
// endpoints get the ws scheme prepended.
func endpointURL(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "ws://" + endpoint
}

// dial connects to the first reachable endpoint of the failover list
func (t *clientTransport) dial() error {
	dialer := websocket.Dialer{}
	if t.config.TimeoutSecond > 0 {
		dialer.HandshakeTimeout = time.Duration(t.config.TimeoutSecond) * time.Second
	}
	if t.config.Transport.ReadBufferSize > 0 {
		dialer.ReadBufferSize = t.config.Transport.ReadBufferSize
	}
	if t.config.Transport.WriteBufferSize > 0 {
		dialer.WriteBufferSize = t.config.Transport.WriteBufferSize
	}

	var lastErr error
	for _, endpoint := range t.config.Endpoints {
		conn, _, err := dialer.Dial(endpointURL(endpoint), nil)
		if err != nil {
			lastErr = err
			Logger.Warningf("Failed to connect to %s: %v", endpoint, err)
			continue
		}

		t.connMu.Lock()
		t.conn = conn
		t.endpoint = endpoint
		t.connMu.Unlock()

		Logger.Infof("Connected to %s using ws transport", endpoint)
		return nil
	}
	return fmt.Errorf("failed to connect to any endpoint: %v", lastErr)
}

// closeConn closes the current connection if there is one
func (t *clientTransport) closeConn() {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// readLoop reads frames in a loop. Response frames are distributed to the
// waiting requests, push frames (message id 0) are handed to the push
// handler sequentially in wire arrival order.
func (t *clientTransport) readLoop() {
	for {
		// Check if we should stop
		select {
		case <-t.stopCh:
			return
		default:
			// Continue
		}

		t.connMu.Lock()
		conn := t.conn
		t.connMu.Unlock()

		if conn == nil {
			if !t.reconnect() {
				return
			}
			continue
		}

		// Read the next message. No read deadline: the connection idles
		// between pushes.
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			if t.stopping.Load() {
				return
			}
			Logger.Errorf("Connection to %s lost: %v", t.Endpoint(), err)

			// Unblock in-flight requests, they would otherwise wait for
			// their full timeout
			t.failPending(fmt.Errorf("connection lost: %v", err))

			if !t.reconnect() {
				return
			}
			continue
		}

		if msgType != websocket.BinaryMessage {
			continue
		}

		messageID, data, err := decodeFrame(frame)
		if err != nil {
			Logger.Errorf("Malformed frame from %s: %v", t.Endpoint(), err)
			continue
		}

		// Message id 0 marks an unsolicited server push
		if messageID == pushMessageID {
			if t.pushHandler != nil {
				t.pushHandler(data)
			}
			continue
		}

		// Find the corresponding request channel
		if respCh, found := t.requestChans.Load(messageID); found {
			respCh <- responseResult{data, nil}
		} else {
			// The request most likely timed out before the response arrived
			Logger.Warningf("Received response for unknown request ID %d", messageID)
		}
	}
}

// failPending unblocks all in-flight requests with the given error
func (t *clientTransport) failPending(err error) {
	t.requestChans.Range(func(id uint64, ch chan responseResult) bool {
		select {
		case ch <- responseResult{nil, err}:
		default:
		}
		return true
	})
}

// reconnect re-establishes a lost connection. The endpoints are tried in
// order with exponential backoff between full passes. Returns false when
// the transport is shutting down.
func (t *clientTransport) reconnect() bool {
	t.closeConn()

	minMs := t.config.ReconnectMinBackoffMs
	if minMs <= 0 {
		minMs = 50
	}
	maxMs := t.config.ReconnectMaxBackoffMs
	if maxMs <= 0 {
		maxMs = 30_000
	}
	if maxMs < minMs {
		maxMs = minMs
	}

	backoffMs := minMs
	for {
		if t.stopping.Load() {
			return false
		}

		if err := t.dial(); err == nil {
			// Notify the application so it can re-establish its
			// subscriptions. Runs on its own goroutine because the
			// handler will issue requests that need this read loop.
			if t.reconnectHandler != nil {
				go t.reconnectHandler()
			}
			return true
		}

		// Exponential backoff with a small random jitter (+-10%)
		jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
		select {
		case <-time.After(time.Duration(jitter) * time.Millisecond):
		case <-t.stopCh:
			return false
		}

		backoffMs *= 2
		if backoffMs > maxMs {
			backoffMs = maxMs
		}
	}
}
