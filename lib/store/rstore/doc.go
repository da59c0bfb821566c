// Package rstore implements the replica side of the store.IStore interface.
// A replica mirrors an authority over a sync channel: local mutations apply
// optimistically and are forwarded to the authority as whole-document
// intents, incoming snapshots overwrite the local model wholesale. There is
// no merging, the authority's arrival order is the single source of truth.
//
// Key Features:
//   - Optimistic local mutation with immediate listener notification
//   - Whole-document intents, forwarded in mutation order
//   - Idempotent snapshot reconciliation (equal snapshots are absorbed
//     silently)
//   - Sequence-number deduplication of stale or duplicated snapshots
//   - Degraded operation on last-known state when the channel is lost
//
// Implementation Details:
//
//   - Reconciliation: ApplySnapshot compares the incoming model to the local
//     one using the descriptor's equality mode. Equal models advance the
//     sequence number without touching the model or notifying anyone, so a
//     confirmation of the replica's own intent is invisible. Unequal models
//     replace the local state and notify listeners, which is both the seed
//     path and the correction path after a lost race with another replica.
//
//   - Sequencing: Snapshot pushes carry the authority's per-store sequence
//     number. A replica drops anything at or below the last applied number,
//     making redelivery and reordering harmless. The snapshot answering an
//     attach goes through Reseed instead, which resets the numbering, since
//     a restarted authority starts counting from zero again.
//
//   - Degraded Mode: The replica itself has no notion of connectivity. When
//     the sync client loses its channel it simply stops feeding snapshots
//     and forwarding intents, the replica keeps serving and mutating its
//     last known state. After a reconnect the attach snapshot reconciles
//     the divergence wholesale.
//
// Thread Safety:
//
//	All operations are thread-safe. Listeners and the SendFunc run
//	synchronously on the mutating goroutine while the mutex is held; they
//	must be fast, must not block and must not call back into the store.
//
// Durability is entirely the authority's concern: Flush is a no-op and
// Close detaches without affecting the authority or other replicas. For the
// authority side see the astore package.
package rstore
