// Package astore implements the authority side of the store.IStore
// interface: the single instance per store name that owns the durable copy
// of the document. It is seeded from a storage.IBackend on construction and
// feeds two propagation paths after every accepted mutation, the debounced
// flush pipeline of the backend and the watcher list the sync server
// broadcasts snapshots from.
//
// Key Features:
//   - Degradation-tolerant construction (a failed load falls back to the
//     initial model instead of failing)
//   - Arrival-order serialization of all mutations under one mutex
//   - Change detection via the descriptor's equality mode, discarding
//     identity mutations before they reach any propagation path
//   - Sequence-numbered snapshots for exactly-once-effective replication
//   - Gap-free attach semantics for new subscribers
//
// Implementation Details:
//
//   - Mutation Pipeline: Mutate clones the current model, applies the
//     mutator to the clone and compares the result to the current model. An
//     equal result is discarded entirely. An accepted result replaces the
//     model wholesale (documents are never modified in place), increments
//     the sequence number, schedules a debounced flush and notifies all
//     watchers, all under the same mutex. This gives every observer the
//     exact arrival order of mutations.
//
//   - Attach Semantics: The sync server needs to hand a new replica the
//     current state and then every later change, without gaps and without
//     duplicates racing in between. Attach therefore runs the register
//     callback and the watcher registration under the mutation mutex: the
//     delivered snapshot and the first subsequent watch call are guaranteed
//     to be adjacent in sequence order.
//
//   - Flush Coupling: The authority never writes storage directly. It hands
//     the accepted document to the backend's flush scheduler, which owns
//     debouncing, equality suppression against the last flushed state,
//     retries and atomic file replacement. Close and Flush drain the
//     pending state synchronously via the same backend.
//
// Thread Safety:
//
//	All operations are thread-safe. Watchers and listeners are invoked
//	synchronously on the mutating goroutine while the mutex is held; they
//	must be fast, must not block and must not call back into the store.
//
// Usage Example:
//
//	backend, _ := jsonfile.New(jsonfile.Config{Dir: dir})
//	st := astore.New(store.Descriptor{
//		Name:       "preferences",
//		Initial:    document.Document{"theme": "dark"},
//		Migrations: migrate.NewTable("1.0.0"),
//	}, backend)
//
//	err := st.Mutate(func(doc document.Document) document.Document {
//		document.Set(doc, "light", "theme")
//		return nil
//	})
//
// For the replica side of the sync channel see the rstore package, which
// implements the same interface against a sync channel instead of a
// persistence backend.
package astore
