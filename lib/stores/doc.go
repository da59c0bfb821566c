// Package stores declares the built-in stores of the application:
// preferences, hotbars, tabs and layouts. Each store contributes a
// descriptor (name, initial model, migration table), a typed view decoded
// via mapstructure, and mutation helpers returning store.Mutator values.
//
// The descriptors are the only coupling between domain code and the store
// engine: feature code obtains an instance from a registry using the
// descriptor and works with the typed views and helpers, never with
// persistence or sync internals.
//
// Schema versions are per store. A migration lives next to the descriptor it
// belongs to (for example the 1.1.0 hotbars migration renaming the slot
// array), so the on-disk history of a store is readable in one file.
package stores
