// Package server implements the authority side of the sync channel. It
// exposes the stores of a registry to remote replicas: sessions attach to
// stores, send whole-document intents, and receive every accepted mutation
// as a sequence-numbered snapshot push.
//
// The package focuses on:
//   - Translating sync channel requests into registry and store calls
//   - Gapless subscriptions: the seeding snapshot and all subsequent pushes
//     of a store reach the session in sequence order with nothing in between
//   - Session lifecycle management (subscriptions die with their session)
//   - Adapter pattern to decouple store logic from transport and encoding
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method processing requests and SessionClosed releasing
//     per-session state.
//
//   - NewSyncServerAdapter: Factory function creating the adapter that serves
//     authority stores. Attach subscribes the session (the seed is enqueued
//     under the store's mutation lock, so no snapshot can slip past it),
//     Intent applies supersedes, Detach/List/Flush round out the protocol.
//
//   - NewSyncServer: Factory function creating a configured server with the
//     specified registry, transport and serializer.
//
// Usage Example:
//
//	// Authority registry backed by a storage engine
//	backend, _ := jsonfile.New(jsonfile.Config{Dir: "/var/lib/svs"})
//	registry := store.NewRegistry(func(desc store.Descriptor) (store.IStore, error) {
//		return astore.New(desc, backend), nil
//	})
//
//	// Create the stores this server serves
//	registry.GetOrCreate(stores.PreferencesDescriptor())
//	registry.GetOrCreate(stores.HotbarsDescriptor())
//
//	// Create and start the server
//	s := server.NewSyncServer(
//		common.ServerConfig{Endpoint: "0.0.0.0:8080", TimeoutSecond: 5},
//		registry,
//		tcp.NewTCPDefaultServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//	if err := s.Serve(); err != nil {
//		log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server is thread-safe and handles concurrent sessions. Requests of
//	one session are processed sequentially in arrival order (an intent and
//	the attach that preceded it never race), requests of different sessions
//	run concurrently and are serialized per store by the store's own lock.
//	The Serve method should be called only once.
package server
