package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/sVS/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Attach request
		{
			MsgType: common.MsgTAttach,
			Store:   "preferences",
		},

		// Attach response acknowledging the subscription
		{
			MsgType: common.MsgTAttach,
			Store:   "preferences",
			Ok:      true,
		},

		// Seeding snapshot push as it follows an attach
		{
			MsgType: common.MsgTSnapshot,
			Store:   "preferences",
			Version: "1.1.0",
			Seq:     7,
			Model:   []byte(`{"theme":"dark"}`),
		},

		// Intent request
		{
			MsgType: common.MsgTIntent,
			Store:   "hotbars",
			Version: "1.1.0",
			Model:   []byte(`{"hotbars":[{"name":"default","entries":[]}]}`),
		},

		// Snapshot push
		{
			MsgType: common.MsgTSnapshot,
			Store:   "tabs",
			Version: "1.0.0",
			Seq:     42,
			Model:   []byte(`{"areas":{}}`),
		},

		// List response
		{
			MsgType: common.MsgTList,
			Stores:  []string{"hotbars", "layouts", "preferences", "tabs"},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Err:     "test error message",
		},

		// Message with all fields filled
		{
			MsgType: common.MsgTFlush,
			Store:   "preferences",
			Version: "1.1.0",
			Seq:     99,
			Model:   []byte(`{"theme":"light"}`),
			Ok:      true,
			Stores:  []string{"preferences"},
			Err:     "",
			Meta:    []byte("test-meta-data"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTFlush; msgType++ {
				msg := common.Message{MsgType: msgType}

				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType.String(), err)
					continue
				}

				// Check type
				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s",
						msgType.String(), result.MsgType.String())
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	// Test cases for empty or zero values
	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Message with empty strings and zero values",
			msg: common.Message{
				MsgType: common.MsgTIntent,
				Store:   "",
				Version: "",
				Seq:     0,
				Model:   []byte{},
				Ok:      false,
				Err:     "",
				Meta:    []byte{},
			},
		},
		{
			name: "Message with empty strings but Ok=true",
			msg: common.Message{
				MsgType: common.MsgTAttach,
				Store:   "",
				Ok:      true,
				Model:   nil,
			},
		},
		{
			name: "Message with empty model slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTSnapshot,
				Store:   "test",
				Model:   []byte{},
			},
		},
		{
			name: "Message with empty stores slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTList,
				Stores:  []string{},
			},
		},
		{
			name: "Message with empty meta slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTSuccess,
				Meta:    []byte{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Serialize
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			// Deserialize
			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// Verify Store
			if tc.msg.Store != result.Store {
				t.Errorf("Store mismatch: expected '%s', got '%s'", tc.msg.Store, result.Store)
			}

			// Verify Version
			if tc.msg.Version != result.Version {
				t.Errorf("Version mismatch: expected '%s', got '%s'", tc.msg.Version, result.Version)
			}

			// Verify Seq
			if tc.msg.Seq != result.Seq {
				t.Errorf("Seq mismatch: expected %d, got %d", tc.msg.Seq, result.Seq)
			}

			// Verify Ok
			if tc.msg.Ok != result.Ok {
				t.Errorf("Ok mismatch: expected %v, got %v", tc.msg.Ok, result.Ok)
			}

			// Verify Err
			if tc.msg.Err != result.Err {
				t.Errorf("Err mismatch: expected '%s', got '%s'", tc.msg.Err, result.Err)
			}

			// Verify MsgType
			if tc.msg.MsgType != result.MsgType {
				t.Errorf("MsgType mismatch: expected %v, got %v", tc.msg.MsgType, result.MsgType)
			}

			// Special handling for byte slices that may be nil or empty
			if (tc.msg.Model == nil) != (result.Model == nil) {
				t.Errorf("Model nil/non-nil mismatch: expected %v, got %v", tc.msg.Model, result.Model)
			} else if !reflect.DeepEqual(tc.msg.Model, result.Model) {
				t.Errorf("Model content mismatch: expected %v, got %v", tc.msg.Model, result.Model)
			}

			// Same for Stores
			if (tc.msg.Stores == nil) != (result.Stores == nil) {
				t.Errorf("Stores nil/non-nil mismatch: expected %v, got %v", tc.msg.Stores, result.Stores)
			} else if !reflect.DeepEqual(tc.msg.Stores, result.Stores) {
				t.Errorf("Stores content mismatch: expected %v, got %v", tc.msg.Stores, result.Stores)
			}

			// Same for Meta
			if (tc.msg.Meta == nil) != (result.Meta == nil) {
				t.Errorf("Meta nil/non-nil mismatch: expected %v, got %v", tc.msg.Meta, result.Meta)
			} else if !reflect.DeepEqual(tc.msg.Meta, result.Meta) {
				t.Errorf("Meta content mismatch: expected %v, got %v", tc.msg.Meta, result.Meta)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1}, // Only message type, no flags
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        []byte{1, 0}, // Message type 1, no flags
			expectError: false,
		},
		{
			name:        "Invalid length for store",
			data:        []byte{1, 1, 0, 0, 0, 5, 'a', 'b', 'c'}, // Claims store length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for model",
			data:        []byte{1, 8, 0, 0, 0, 10}, // Claims model length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated stores list",
			data:        []byte{1, 32, 0, 0, 0, 2, 0, 0, 0, 1, 'a'}, // Claims 2 entries but only 1 provided
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}
