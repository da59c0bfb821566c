// Package rpc provides the sync channel of the synchronized versioned store.
// It connects the authority server with its replica clients, carrying attach
// and intent requests upstream and snapshot pushes downstream.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the sync channel,
//     including the Message protocol, model encoding and the configuration
//     structures.
//
//   - transport: Network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, WebSocket), all capable of
//     unsolicited server-to-client pushes.
//
//   - serializer: Message serialization with multiple format options
//     (Binary, JSON, GOB) for converting between Message objects and byte
//     arrays.
//
//   - client: The sync client that binds local replica stores to remote
//     authority stores, forwarding intents and applying pushed snapshots.
//
//   - server: The sync server that exposes the stores of a registry,
//     seeding attached sessions and broadcasting every accepted mutation.
package rpc
