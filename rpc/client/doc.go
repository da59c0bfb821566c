// Package client implements the replica side of the sync channel. It
// provides the SyncClient, which mirrors authority stores into local
// store.IReplicaStore instances over a single connection.
//
// The package focuses on:
//   - Attaching replica stores and keeping them seeded across reconnects
//   - Forwarding local mutations to the authority as ordered intents
//   - Applying pushed snapshots in wire order
//   - One-shot reads (Fetch) and control operations (List, Flush)
//
// Key Components:
//
//   - NewSyncClient: Factory function that wires a client transport and a
//     serializer into a SyncClient. Push and reconnect handlers are
//     registered before the connection is established.
//
//   - SyncClient.NewStore: Creates a replica store for a descriptor and
//     attaches it. The returned store is usable immediately and keeps
//     serving local state when the channel is down.
//
// Usage Example:
//
//	// Configure the client
//	config := common.ClientConfig{
//	  Endpoints:     []string{"localhost:5000"},
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}
//
//	// Create the client
//	client, _ := client.NewSyncClient(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	defer client.Close()
//
//	// Attach a replica and use it like any store
//	prefs, _ := client.NewStore(stores.PreferencesDescriptor())
//	_ = prefs.Mutate(func(doc document.Document) document.Document {
//	  document.Set(doc, "dark", "theme")
//	  return doc
//	})
//
//	// React to snapshots pushed by the authority
//	prefs.Subscribe(func(doc document.Document) {
//	  theme, _ := document.Get(doc, "theme")
//	  fmt.Println("theme is now", theme)
//	})
//
// To get registry semantics (shared instances, FlushAll) on the replica
// side, create a store.Registry whose factory calls NewStore.
//
// Consistency Model:
//
// Mutations apply to the local model first and are forwarded to the
// authority afterwards, so a replica may briefly run ahead of the
// authority. The authority serializes all intents and pushes the resulting
// snapshots to every attached replica; the push stream is applied in wire
// order, which makes all attached replicas converge to the authority state.
// While the channel is down mutations stay local, the seed of the next
// re-attach reconciles them.
//
// Thread Safety:
//
//	The SyncClient and the stores it creates are thread-safe and can be
//	used concurrently from multiple goroutines without additional
//	synchronization.
package client
