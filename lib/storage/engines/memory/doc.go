// Package memory implements an in-memory storage engine without durability.
// Documents are serialized into sharded maps, so the engine exercises the
// exact same marshal, debounce and migration paths as the durable engines.
// It backs the test suites and ephemeral deployments where persistence
// across restarts is not wanted.
//
// Shard selection uses a per-instance seeded FNV-1a hash of the store name,
// keeping instances independent of each other.
package memory
