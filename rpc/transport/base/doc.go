// Package base provides a foundation for transport layers of the sync
// channel, implementing core functionality for bidirectional stream
// communication independent of the specific network protocol (TCP, Unix
// sockets, etc.). It serves as a base layer that can be extended with
// protocol-specific connectors.
//
// The package focuses on:
//   - Protocol-agnostic client and server transport implementations
//   - Frame-based message protocol with response correlation and server push
//   - Strict per-session frame ordering on both sides of the wire
//   - Robust error handling with retries and reconnection logic
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific
//     operations that allow extending the base transport with different
//     network protocols.
//
//   - serverTransport: Core server implementation. Every accepted connection
//     becomes a session with a single ordered outbound queue, drained by one
//     writer goroutine. Responses and pushes enqueued in a happens-before
//     relation reach the client in that order. Requests of a session are
//     handled sequentially in arrival order.
//
//   - clientTransport: Core client implementation that maintains one
//     connection at a time. The configured endpoints are a failover list
//     rather than a pool: spreading frames over several connections would
//     void the ordering guarantees of the session. A single reader goroutine
//     correlates responses by request id and dispatches push frames (message
//     id 0) sequentially in wire arrival order. Lost connections are
//     re-established with exponential backoff, after which the registered
//     reconnect handler runs so the application can re-subscribe.
//
// Wire Format:
//
//	Each frame consists of a 12 byte header (8 byte message id, 4 byte
//	payload length, both big endian) followed by the payload. Message id 0
//	marks unsolicited server pushes, request ids issued by clients start
//	at 1.
//
// Performance Optimizations:
//
//   - Buffer Pooling: The server uses a sync.Pool to reuse read buffers,
//     reducing GC pressure and memory allocations.
//
//   - Frame Batching: The transport uses net.Buffers to reduce syscalls when
//     writing frames, combining header and payload into a single write
//     operation.
//
//   - Lock-free Outbound Queues: Session queues are lock-free MPSC queues,
//     so pushing a frame never blocks the caller on network I/O.
//
// Thread Safety:
//
//	All public methods are thread-safe. The client transport uses atomic
//	operations and mutexes to ensure concurrent access safety, while the
//	server creates dedicated reader and writer goroutines per session.
package base
