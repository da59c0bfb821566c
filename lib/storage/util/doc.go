// Package util provides internal helpers for the storage layer: the
// deadline heap driving the flush daemon and the seeded FNV-1a hash used by
// the sharded memory engine.
package util
