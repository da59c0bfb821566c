package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/sVS/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasStore   byte = 1 << 0
	hasVersion byte = 1 << 1
	hasSeq     byte = 1 << 2
	hasModel   byte = 1 << 3
	hasOk      byte = 1 << 4
	hasStores  byte = 1 << 5
	hasErr     byte = 1 << 6
	hasMeta    byte = 1 << 7
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	totalSize := b.sizeBytes(msg)
	result := make([]byte, totalSize)

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags byte
	var flags byte = 0

	// Set position for writing
	pos := 2 // Start after MsgType and flags

	// Handle Store
	if msg.Store != "" {
		flags |= hasStore
		storeBytes := []byte(msg.Store)
		storeLen := len(storeBytes)

		// Write store name length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(storeLen))
		pos += 4

		// Write store name data
		copy(result[pos:pos+storeLen], storeBytes)
		pos += storeLen
	}

	// Handle Version
	if msg.Version != "" {
		flags |= hasVersion
		versionBytes := []byte(msg.Version)
		versionLen := len(versionBytes)

		// Write version length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(versionLen))
		pos += 4

		// Write version data
		copy(result[pos:pos+versionLen], versionBytes)
		pos += versionLen
	}

	// Handle Seq
	if msg.Seq > 0 {
		flags |= hasSeq
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.Seq)
		pos += 8
	}

	// Handle Model
	if msg.Model != nil {
		flags |= hasModel
		modelLen := len(msg.Model)

		// Write model length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(modelLen))
		pos += 4

		// Write model data
		if modelLen > 0 {
			copy(result[pos:pos+modelLen], msg.Model)
			pos += modelLen
		}
	}

	// Handle Ok
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos += 1
	}

	// Handle Stores
	if msg.Stores != nil {
		flags |= hasStores

		// Write entry count
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(msg.Stores)))
		pos += 4

		// Write length prefixed entries
		for _, name := range msg.Stores {
			nameBytes := []byte(name)
			nameLen := len(nameBytes)

			binary.BigEndian.PutUint32(result[pos:pos+4], uint32(nameLen))
			pos += 4

			copy(result[pos:pos+nameLen], nameBytes)
			pos += nameLen
		}
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		errBytes := []byte(msg.Err)
		errLen := len(errBytes)

		// Write error length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(errLen))
		pos += 4

		// Write error data
		copy(result[pos:pos+errLen], errBytes)
		pos += errLen
	}

	// Handle Meta
	if msg.Meta != nil {
		flags |= hasMeta
		metaLen := len(msg.Meta)

		// Write meta length
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(metaLen))
		pos += 4

		// Write meta data
		if metaLen > 0 {
			copy(result[pos:pos+metaLen], msg.Meta)
			pos += metaLen
		}
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	// Read message type
	msg.MsgType = common.MessageType(data[0])

	// Read flags
	flags := data[1]

	// Initialize read position
	pos := 2

	// Read Store if present
	if flags&hasStore != 0 {
		s, next, err := readString(data, pos, "store")
		if err != nil {
			return err
		}
		msg.Store = s
		pos = next
	} else {
		msg.Store = ""
	}

	// Read Version if present
	if flags&hasVersion != 0 {
		s, next, err := readString(data, pos, "version")
		if err != nil {
			return err
		}
		msg.Version = s
		pos = next
	} else {
		msg.Version = ""
	}

	// Read Seq if present
	if flags&hasSeq != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for seq")
		}

		msg.Seq = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	} else {
		msg.Seq = 0
	}

	// Read Model if present
	if flags&hasModel != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for model length")
		}

		// Read model length
		modelLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(modelLen) > len(data) {
			return fmt.Errorf("data too short for model data")
		}

		// Read model data - create an empty slice (not nil) if length is 0
		// Allocate only if needed
		if msg.Model == nil || cap(msg.Model) < int(modelLen) {
			msg.Model = make([]byte, modelLen)
		} else {
			msg.Model = msg.Model[:modelLen]
		}

		if modelLen > 0 {
			copy(msg.Model, data[pos:pos+int(modelLen)])
		}
		pos += int(modelLen)
	} else {
		msg.Model = nil
	}

	// Read Ok if present
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for Ok flag")
		}

		msg.Ok = data[pos] != 0
		pos += 1
	} else {
		msg.Ok = false
	}

	// Read Stores if present
	if flags&hasStores != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for stores count")
		}

		// Read entry count
		count := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		msg.Stores = make([]string, 0, count)
		for i := uint32(0); i < count; i++ {
			s, next, err := readString(data, pos, "stores entry")
			if err != nil {
				return err
			}
			msg.Stores = append(msg.Stores, s)
			pos = next
		}
	} else {
		msg.Stores = nil
	}

	// Read Err if present
	if flags&hasErr != 0 {
		s, next, err := readString(data, pos, "error")
		if err != nil {
			return err
		}
		msg.Err = s
		pos = next
	} else {
		msg.Err = ""
	}

	// Read Meta if present
	if flags&hasMeta != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for meta length")
		}

		// Read meta length
		metaLen := binary.BigEndian.Uint32(data[pos : pos+4])
		pos += 4

		if pos+int(metaLen) > len(data) {
			return fmt.Errorf("data too short for meta data")
		}

		// Read metadata - create an empty slice (not nil) if length is 0
		// Allocate only if needed
		if msg.Meta == nil || cap(msg.Meta) < int(metaLen) {
			msg.Meta = make([]byte, metaLen)
		} else {
			msg.Meta = msg.Meta[:metaLen]
		}

		if metaLen > 0 {
			copy(msg.Meta, data[pos:pos+int(metaLen)])
		}
		pos += int(metaLen)
	} else {
		msg.Meta = nil
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readString reads a length prefixed string at pos and returns the string
// together with the position after it
func readString(data []byte, pos int, field string) (string, int, error) {
	if pos+4 > len(data) {
		return "", 0, fmt.Errorf("data too short for %s length", field)
	}

	strLen := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4

	if pos+int(strLen) > len(data) {
		return "", 0, fmt.Errorf("data too short for %s data", field)
	}

	return string(data[pos : pos+int(strLen)]), pos + int(strLen), nil
}

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	// Add sizes for fields that require length encoding
	if msg.Store != "" {
		size += 4 + len(msg.Store) // 4 bytes for length + store name
	}
	if msg.Version != "" {
		size += 4 + len(msg.Version) // 4 bytes for length + version string
	}
	if msg.Seq > 0 {
		size += 8 // uint64
	}
	if msg.Model != nil {
		size += 4 + len(msg.Model) // 4 bytes for length + model bytes
	}
	if msg.Ok {
		size += 1 // 1 byte for boolean
	}
	if msg.Stores != nil {
		size += 4 // 4 bytes for entry count
		for _, name := range msg.Stores {
			size += 4 + len(name) // 4 bytes for length + entry string
		}
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta) // 4 bytes for length + meta bytes
	}

	return size
}
