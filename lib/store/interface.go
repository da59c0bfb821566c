package store

import (
	"fmt"

	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/migrate"
	"github.com/ValentinKolb/sVS/lib/storage"
)

// --------------------------------------------------------------------------
// Store Configuration
// --------------------------------------------------------------------------

// StoreFactory is a function type that creates a new store instance for a
// descriptor. This is used to abstract the creation of the store (and with it
// the role of the process) from the registry and the sync server.
type StoreFactory func(desc Descriptor) (IStore, error)

// Mutator transforms the current model into the next one. It receives a
// working copy: mutating it in place and returning nil is equivalent to
// returning the mutated copy. The store never exposes the copy to anyone
// else, so the function may modify it freely.
type Mutator func(doc document.Document) document.Document

// Listener is invoked with a copy of the model after every accepted mutation
// and after every reconciled snapshot. Listeners run synchronously on the
// mutating goroutine and must not call back into the store.
type Listener func(doc document.Document)

// Descriptor is the static configuration of one store: its unique name, the
// model used when nothing is persisted yet, the migration table applied to
// older documents and the equality mode change detection uses.
type Descriptor struct {
	Name       string
	Initial    document.Document
	Migrations migrate.Table
	Equality   document.EqualityMode
}

// Validate returns a *Error (code RetCInvalidDescriptor) if the descriptor
// is structurally unusable. A nil Initial model is allowed and treated as an
// empty document.
func (d Descriptor) Validate() error {
	if err := storage.ValidateName(d.Name); err != nil {
		return NewError(RetCInvalidDescriptor, err.Error())
	}
	if d.Migrations.Current() == nil {
		return NewError(RetCInvalidDescriptor, fmt.Sprintf("store %q has no migration table", d.Name))
	}
	return nil
}

// LoadSpec converts the descriptor into the persistence layer's load
// specification.
func (d Descriptor) LoadSpec() storage.LoadSpec {
	return storage.LoadSpec{
		Name:       d.Name,
		Initial:    d.Initial,
		Migrations: d.Migrations,
	}
}

// Role describes which side of the sync channel a store instance is on.
type Role uint8

const (
	// RoleAuthority owns the durable copy and serializes all mutations.
	RoleAuthority Role = iota + 1
	// RoleReplica mirrors an authority over a sync channel.
	RoleReplica
)

func (r Role) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleReplica:
		return "replica"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore is the generic interface for interacting with a versioned document
// store. A store always holds a usable model: construction never fails with
// an unusable state, degraded loads fall back to the initial model.
//
// Thread-safety: all methods are safe for concurrent use.
type IStore interface {
	// Name returns the unique store name.
	Name() string
	// Role returns whether this instance is the authority or a replica.
	Role() Role
	// Version returns the schema version of the model, i.e. the descriptor's
	// migration target.
	Version() string
	// Get returns a deep copy of the current model. Mutating the returned
	// document has no effect on the store.
	Get() document.Document
	// Mutate applies fn to a copy of the current model. If the result equals
	// the current model (per the descriptor's equality mode) the mutation is
	// discarded entirely: no listeners, no flush, no propagation.
	Mutate(fn Mutator) error
	// Reset replaces the model with the initial one. Equivalent to a Mutate
	// returning a copy of Descriptor.Initial.
	Reset() error
	// Subscribe registers a listener and returns a function that removes it.
	// The listener is not called with the current state on registration.
	Subscribe(fn Listener) (unsubscribe func())
	// Flush writes the model durably and synchronously. On replicas this is
	// a no-op since durability is the authority's concern.
	Flush() error
	// Close detaches the store from its propagation targets. The authority
	// flushes pending state first. The store must not be used afterwards.
	Close() error
}

// IAuthorityStore extends IStore with the entry points the sync server
// needs. Only authority instances implement it.
type IAuthorityStore interface {
	IStore

	// Snapshot returns a deep copy of the current model together with the
	// mutation sequence number it corresponds to. The pair is consistent.
	Snapshot() (doc document.Document, seq uint64)

	// Attach atomically delivers the current state to register and adds
	// watch as a watcher for all subsequent accepted mutations. No mutation
	// can slip between the register call and the first watch call, and watch
	// is invoked in strict sequence order. Both callbacks run on the
	// mutating goroutine and must not block.
	Attach(register func(doc document.Document, seq uint64), watch func(doc document.Document, seq uint64)) (detach func())
}

// IReplicaStore extends IStore with the entry points the sync client feeds.
// Only replica instances implement it.
type IReplicaStore interface {
	IStore

	// ApplySnapshot reconciles an authority snapshot into the local model.
	// Snapshots with a sequence number at or below the last applied one are
	// dropped; equal models advance the sequence number without notifying
	// listeners.
	ApplySnapshot(doc document.Document, seq uint64)

	// Reseed is ApplySnapshot without the staleness check. It is used for
	// the seeding snapshot after an attach, where the authority (and with
	// it the sequence numbering) may have restarted.
	Reseed(doc document.Document, seq uint64)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInternalError:
		errorCode = "InternalError"
	case RetCStoreClosed:
		errorCode = "StoreClosed"
	case RetCInvalidDescriptor:
		errorCode = "InvalidDescriptor"
	case RetCDescriptorConflict:
		errorCode = "DescriptorConflict"
	default:
		errorCode = "Unknown"
	}

	return fmt.Sprintf("StoreError (code %s): %s", errorCode, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                     // 1: Operation failed due to an internal error.
	RetCStoreClosed                       // 2: Operation on a closed store or registry.
	RetCInvalidDescriptor                 // 3: Structurally unusable store descriptor.
	RetCDescriptorConflict                // 4: Descriptor differs from the one a store was created with.
)
