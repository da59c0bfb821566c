// Package transport defines the interfaces and abstractions for the sync
// channel of the versioned store. It provides a common contract that all
// transport implementations must fulfill, enabling protocol-agnostic
// communication.
//
// Unlike a plain request/response RPC layer, a sync transport is
// bidirectional: besides answering requests, the server pushes unsolicited
// snapshot frames to its sessions. The contract therefore centers on two
// ordering guarantees.
//
// Server side, all outbound frames of one session (responses and pushes)
// flow through a single ordered queue and are written by a single writer.
// Two frames enqueued in a happens-before relation reach the client in that
// order. This is what makes gapless subscriptions possible: a handler that
// enqueues the seeding snapshot before registering the watcher knows that no
// later push can overtake the seed.
//
// Client side, all inbound pushes are delivered sequentially on a single
// goroutine in wire arrival order, so snapshots are applied in the order the
// server emitted them.
//
// Key Components:
//
//   - IRPCServerTransport: Interface for server-side transport implementations
//     that accept connections and route request frames to a handler.
//
//   - ISession: One accepted connection with its ordered outbound queue.
//
//   - ServerHandleFunc / SessionCloseFunc: Callbacks for request handling and
//     session cleanup.
//
//   - IRPCClientTransport: Interface for client-side transport implementations
//     that manage a single failover connection, correlate responses and
//     deliver pushes.
package transport
