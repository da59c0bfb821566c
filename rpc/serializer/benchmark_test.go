package serializer

import (
	"testing"

	"github.com/ValentinKolb/sVS/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTSuccess,
		},
		"AttachRequest": {
			MsgType: common.MsgTAttach,
			Store:   "preferences",
		},
		"SmallSnapshot": {
			MsgType: common.MsgTSnapshot,
			Store:   "preferences",
			Version: "1.1.0",
			Seq:     1,
			Model:   []byte(`{"theme":"dark"}`),
		},
		"MediumSnapshot": {
			MsgType: common.MsgTSnapshot,
			Store:   "hotbars",
			Version: "1.1.0",
			Seq:     128,
			Model:   []byte(`{"hotbars":[{"name":"default","entries":["a","b","c",null,null,"d",null,null,null,"e"]}]}`),
		},
		"LargeSnapshot": {
			MsgType: common.MsgTSnapshot,
			Store:   "layouts",
			Version: "1.0.0",
			Seq:     1024,
			Model:   make([]byte, 1024), // 1KB of data
		},
		"VeryLargeSnapshot": {
			MsgType: common.MsgTSnapshot,
			Store:   "layouts",
			Version: "1.0.0",
			Seq:     4096,
			Model:   make([]byte, 1024*16), // 16KB of data
		},
		"IntentRequest": {
			MsgType: common.MsgTIntent,
			Store:   "tabs",
			Version: "1.0.0",
			Model:   []byte(`{"areas":{"editor":{"open":["a","b"],"active":"a"}}}`),
		},
		"ListResponse": {
			MsgType: common.MsgTList,
			Stores:  []string{"hotbars", "layouts", "preferences", "tabs"},
		},
		"CompleteMessage": {
			MsgType: common.MsgTAttach,
			Store:   "complete-test-store",
			Version: "2.3.4",
			Seq:     10000,
			Model:   []byte(`{"theme":"light","language":"en"}`),
			Ok:      true,
			Stores:  []string{"preferences"},
			Err:     "This is a test error message",
			Meta:    []byte("test-meta-data-for-benchmarking"),
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				// Minimal loop to satisfy benchmark requirements
				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
