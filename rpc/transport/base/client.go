package base

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/sVS/lib/logging"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/ValentinKolb/sVS/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logging.GetLogger("transport/sync")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the given endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// responseResult contains the result of a request
type responseResult struct {
	data []byte
	err  error
}

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (unix, tcp, etc.)
//
// The transport holds exactly one connection at a time. The configured
// endpoints act as a failover list: on connection loss the endpoints are
// tried in order until one accepts, so all frames of the session keep
// flowing through a single ordered pipe.
type clientTransport struct {
	connector IClientConnector
	config    common.ClientConfig

	connMu   sync.Mutex // Protects conn and endpoint
	conn     net.Conn
	endpoint string

	writeMu sync.Mutex // Serializes frame writes

	requestChans  *xsync.MapOf[uint64, chan responseResult]
	nextRequestID uint64 // Atomic counter, 0 is reserved for pushes

	pushHandler      transport.PushHandler
	reconnectHandler func()

	stopping atomic.Bool
	stopCh   chan struct{}
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector:    connector,
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
		err := writeFrame(conn, requestID, req)
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

// dial connects to the first reachable endpoint of the failover list
func (t *clientTransport) dial() error {
	var lastErr error
	for _, endpoint := range t.config.Endpoints {
		conn, err := t.connector.Connect(endpoint)
		if err != nil {
			lastErr = err
			Logger.Warningf("Failed to connect to %s: %v", endpoint, err)
			continue
		}

		// Upgrade the connection with protocol-specific settings
		if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
			conn.Close()
			lastErr = err
			Logger.Warningf("Failed to upgrade connection to %s: %v", endpoint, err)
			continue
		}

		t.connMu.Lock()
		t.conn = conn
		t.endpoint = endpoint
		t.connMu.Unlock()

		Logger.Infof("Connected to %s using %s transport", endpoint, t.connector.GetName())
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

		// Read the next frame. No read deadline: the connection idles
		// between pushes.
		messageID, data, err := readFrame(conn, nil)
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
