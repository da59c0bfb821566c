// Package store defines the observable document store abstraction at the
// heart of the system: named, schema-versioned JSON documents that
// applications read, mutate and subscribe to without ever touching
// persistence or the sync channel directly. It serves as an abstraction
// layer over the authority and replica implementations, adding descriptor
// management, a process-wide registry and standardized error reporting.
//
// The package focuses on:
//   - A unified interface (IStore) for document operations on both sides of
//     the sync channel
//   - Pluggable store construction through the StoreFactory pattern
//   - A registry enforcing one instance per store name per process
//
// Key Components:
//
//   - IStore Interface: The core abstraction for interacting with a store.
//     Both roles share this common interface, allowing application code to
//     run unchanged in an authority process and in a replica process. The
//     contract is that a store always holds a usable model: degraded loads
//     and lost sync channels fall back to well-defined state instead of
//     failing.
//
//   - Descriptor: The static configuration of one store (name, initial
//     model, migration table, equality mode). Descriptors are declared once
//     per store and handed to the registry, which rejects conflicting
//     declarations for the same name.
//
//   - Registry: An explicit, injected object managing the store instances of
//     one process. It guarantees at-most-one instance per name, provides
//     FlushAll for coordinated shutdown and is the single place the role of
//     a process (authority or replica) is decided, via the injected
//     StoreFactory.
//
//   - Error System: A structured error reporting mechanism using typed error
//     codes and descriptive messages, mirroring the degradation taxonomy of
//     the persistence layer.
//
// Implementations:
//
//	The package includes two implementations of the IStore interface:
//
//	- Authority Store (astore): Owns the durable copy of the document. It is
//	  seeded from a persistence backend, serializes all mutations, schedules
//	  debounced flushes and feeds snapshot broadcasts to attached replicas.
//	  Available in the "github.com/ValentinKolb/sVS/lib/store/astore" package.
//
//	- Replica Store (rstore): Mirrors an authority over a sync channel. Local
//	  mutations apply optimistically and are forwarded as intents; incoming
//	  snapshots reconcile the local model wholesale. A replica keeps working
//	  on its last known state when the channel is lost.
//	  Available in the "github.com/ValentinKolb/sVS/lib/store/rstore" package.
//
// This interface-driven approach allows applications to:
//   - Run the same feature code in authority and replica processes
//   - Treat persistence, migration and sync as infrastructure concerns
//   - Handle degradation in a consistent and type-safe manner
package store
