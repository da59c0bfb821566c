package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/sVS/lib/document"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for requests, responses and
// server pushes. Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Store   string `json:"store,omitempty"`   // Used for: Attach, Detach, Intent, Snapshot, Flush
	Version string `json:"version,omitempty"` // Schema version of Model. Used for: Intent, Snapshot
	Seq     uint64 `json:"seq,omitempty"`     // Authority mutation sequence. Used for: Snapshot
	Model   []byte `json:"model,omitempty"`   // JSON encoded document. Used for: Intent, Snapshot

	// Response only fields
	Ok     bool     `json:"ok,omitempty"`     // Used for: Attach response (subscription established)
	Stores []string `json:"stores,omitempty"` // Used for: List response
	Err    string   `json:"err,omitempty"`    // Empty if no error, otherwise contains the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Unused, can be used for additional Adapters
}

// --------------------------------------------------------------------------
// Model Encoding
// --------------------------------------------------------------------------

// EncodeModel converts a document into the wire representation used by the
// Model field.
func EncodeModel(doc document.Document) ([]byte, error) {
	if doc == nil {
		doc = document.Document{}
	}
	return json.Marshal(doc)
}

// DecodeModel converts the wire representation of the Model field back into
// a document. A nil or empty payload decodes to an empty document.
func DecodeModel(b []byte) (document.Document, error) {
	if len(b) == 0 {
		return document.Document{}, nil
	}
	var doc document.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if doc == nil {
		doc = document.Document{}
	}
	return doc, nil
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewAttachRequest creates a new Attach request
func NewAttachRequest(store string) *Message {
	return &Message{
		MsgType: MsgTAttach,
		Store:   store,
	}
}

// NewAttachResponse creates a new Attach response. The seeding snapshot is not
// part of the response: it is enqueued as the first push of the subscription,
// so a replica applies it in frame order like every later snapshot.
func NewAttachResponse(store string, err error) *Message {
	msg := &Message{
		MsgType: MsgTAttach,
		Store:   store,
		Ok:      err == nil,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewDetachRequest creates a new Detach request
func NewDetachRequest(store string) *Message {
	return &Message{
		MsgType: MsgTDetach,
		Store:   store,
	}
}

// NewDetachResponse creates a new Detach response
func NewDetachResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTDetach,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewIntentRequest creates a new Intent request carrying the whole desired document
func NewIntentRequest(store, version string, model []byte) *Message {
	return &Message{
		MsgType: MsgTIntent,
		Store:   store,
		Version: version,
		Model:   model,
	}
}

// NewIntentResponse creates a new Intent response
func NewIntentResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTIntent,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewSnapshotPush creates a new Snapshot push message (authority to replica, one-way)
func NewSnapshotPush(store, version string, model []byte, seq uint64) *Message {
	return &Message{
		MsgType: MsgTSnapshot,
		Store:   store,
		Version: version,
		Seq:     seq,
		Model:   model,
	}
}

// NewListRequest creates a new List request
func NewListRequest() *Message {
	return &Message{
		MsgType: MsgTList,
	}
}

// NewListResponse creates a new List response
func NewListResponse(stores []string, err error) *Message {
	msg := &Message{
		MsgType: MsgTList,
		Stores:  stores,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewFlushRequest creates a new Flush request. An empty store name requests a
// flush of every store the server owns.
func NewFlushRequest(store string) *Message {
	return &Message{
		MsgType: MsgTFlush,
		Store:   store,
	}
}

// NewFlushResponse creates a new Flush response
func NewFlushResponse(err error) *Message {
	msg := &Message{
		MsgType: MsgTFlush,
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in sync channel communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSuccess:
		return "success"
	case MsgTError:
		return "error"
	case MsgTAttach:
		return "attach"
	case MsgTDetach:
		return "detach"
	case MsgTIntent:
		return "intent"
	case MsgTSnapshot:
		return "snapshot"
	case MsgTList:
		return "list"
	case MsgTFlush:
		return "flush"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	// Convert string back to MessageType
	switch s {
	case "success":
		*t = MsgTSuccess
	case "error":
		*t = MsgTError
	case "attach":
		*t = MsgTAttach
	case "detach":
		*t = MsgTDetach
	case "intent":
		*t = MsgTIntent
	case "snapshot":
		*t = MsgTSnapshot
	case "list":
		*t = MsgTList
	case "flush":
		*t = MsgTFlush
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Sync operations

	MsgTAttach   // Subscribe a replica to a store, the seeding snapshot follows as a push
	MsgTDetach   // Unsubscribe a replica from a store
	MsgTIntent   // Replica to authority: whole desired document
	MsgTSnapshot // Authority to replica: whole current document (push)

	// Control operations

	MsgTList  // List the stores the server owns
	MsgTFlush // Flush one store (or all) durably
)
