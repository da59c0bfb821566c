// Package testing provides the contract test suite for storage.IBackend
// implementations. Every engine runs the identical suite through
// RunBackendTests, so behavior (load fallbacks, migration write-back,
// debounce, suppression) stays uniform across engines.
package testing
