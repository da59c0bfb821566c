// Package testing provides the contract test suite for store.IStore
// implementations. Both roles run the identical suite through RunStoreTests,
// so the observable behavior (copy semantics, identity mutation discard,
// listener discipline, reset) stays uniform between authority and replica.
package testing
