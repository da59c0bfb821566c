package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Socket tuning (shared by client and server)
// --------------------------------------------------------------------------

// TransportConfig holds the socket level tuning knobs of the stream
// transports. The unix transport ignores the TCP specific fields, the ws
// transport only uses the buffer sizes.
type TransportConfig struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables TCP keep-alive with the given period (0 = off)
	TCPKeepAliveSec int
	// TCPLingerSec sets the linger timeout (-1 = system default)
	TCPLingerSec int
	// ReadBufferSize sets the socket read buffer size in bytes (0 = system default)
	ReadBufferSize int
	// WriteBufferSize sets the socket write buffer size in bytes (0 = system default)
	WriteBufferSize int
}

// --------------------------------------------------------------------------
// Sync server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for one sync server
// listener. A process serving several transports creates one ServerConfig
// per listener, sharing everything but the endpoint.
type ServerConfig struct {
	// Endpoint the transport listens on (socket path, host:port or bind address)
	Endpoint string

	// Timeout for single read/write operations in seconds (0 disables deadlines)
	TimeoutSecond int

	// Socket tuning
	Transport TransportConfig

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Sync server settings
	addSection("Sync Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Socket tuning
	addSection("Socket")
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	addField("Read Buffer Size", strconv.Itoa(c.Transport.ReadBufferSize))
	addField("Write Buffer Size", strconv.Itoa(c.Transport.WriteBufferSize))

	return sb.String()
}

// --------------------------------------------------------------------------
// Sync client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters for a sync client. The
// client maintains exactly one connection at a time: the endpoints are a
// failover list tried in order, not a load balancing pool. All frames of a
// session have to flow through one ordered connection, otherwise the
// snapshot ordering guarantees would not hold.
type ClientConfig struct {
	// Endpoints to try in order until one accepts the connection
	Endpoints []string

	// Timeout for single requests in seconds (0 disables deadlines)
	TimeoutSecond int

	// RetryCount is the number of attempts per request
	RetryCount int

	// Reconnect backoff bounds in milliseconds (0 = defaults)
	ReconnectMinBackoffMs int
	ReconnectMaxBackoffMs int

	// Socket tuning
	Transport TransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))
	addField("Reconnect Backoff", fmt.Sprintf("%d-%d ms", c.ReconnectMinBackoffMs, c.ReconnectMaxBackoffMs))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
