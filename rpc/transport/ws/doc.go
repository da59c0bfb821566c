// Package ws implements a websocket transport for the versioned store's
// sync channel, built on github.com/gorilla/websocket. It is the transport
// of choice for browser-based replicas and for deployments where only HTTP
// ingress is available.
//
// Unlike the stream transports (tcp, unix) this package does not build on
// the base package: websocket messages are already length-delimited, so
// frames carry only the 8 byte message id prefix instead of the full
// stream header. The ordering model is identical though. Server side,
// every session owns a single outbound queue drained by one writer
// goroutine (gorilla connections allow at most one concurrent writer,
// which this design satisfies for free). Client side, one connection at a
// time is maintained with the endpoints acting as a failover list, and a
// single reader goroutine correlates responses and dispatches pushes in
// wire arrival order.
//
// Key Components:
//
//   - serverTransport: Accepts websocket upgrades on any path of the
//     configured HTTP endpoint and runs each connection as a session.
//
//   - clientTransport: Dials ws:// endpoints (a bare host:port gets the
//     scheme prepended), with reconnection and exponential backoff.
package ws
