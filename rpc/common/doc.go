// Package common provides core data structures shared across the sync
// channel. It defines the message protocol and the configuration structures
// used by the transport, client and server packages.
//
// The package focuses on:
//   - Message protocol definition for authority/replica communication
//   - Configuration structures for client and server components
//   - Wire encoding of documents (the Model field)
//
// Key Components:
//
//   - Message: Core data structure for all sync channel communication, with
//     a flexible structure that adapts to different operation types. Includes
//     factory methods for creating the request, response and push messages.
//
//   - MessageType: Enumeration defining all supported operation types,
//     categorized into sync operations (attach, detach, intent, snapshot)
//     and control messages (list, flush).
//
//   - ServerConfig: Configuration for one sync server listener, including
//     endpoint, timeouts and socket tuning.
//
//   - ClientConfig: Configuration for sync clients, controlling the failover
//     endpoint list, timeouts, retry and reconnect behavior.
package common
