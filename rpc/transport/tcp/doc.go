// Package tcp implements TCP socket-based transport for the versioned
// store's sync channel. It provides concrete implementations of the base
// package's connector interfaces optimized for TCP connections.
//
// This package builds on the base package's transport functionality,
// inheriting its session ordering, push delivery, buffer reuse and
// reconnection handling. See the base package documentation for detailed
// information on the underlying transport mechanisms.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// Both connectors apply the configured socket options (no-delay, buffer
// sizes, keep-alive, linger) to their connections. Keep-alive matters for
// this protocol: subscriber connections idle for long stretches, and
// keep-alive probes are what detects a silently vanished peer.
//
// The default server buffer size is set to 512 KB, which provides good
// performance for typical workloads, but can be customized for specific
// use cases.
package tcp
