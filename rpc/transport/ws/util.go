package ws

import (
	"encoding/binary"
	"fmt"
)

// pushMessageID marks unsolicited server frames. Request ids issued by
// clients start at 1, so 0 is never in flight as a correlation id.
const pushMessageID uint64 = 0

// idHeaderSize is the size of the message id prefix in bytes
const idHeaderSize = 8

// encodeFrame prefixes the payload with the big endian message id. Websocket
// messages are already length-delimited, so unlike the stream transports no
// explicit payload length is needed.
func encodeFrame(messageID uint64, data []byte) []byte {
	frame := make([]byte, idHeaderSize+len(data))
	binary.BigEndian.PutUint64(frame[:idHeaderSize], messageID)
	copy(frame[idHeaderSize:], data)
	return frame
}

// decodeFrame splits a received message into message id and payload
func decodeFrame(frame []byte) (uint64, []byte, error) {
	if len(frame) < idHeaderSize {
		return 0, nil, fmt.Errorf("frame too short: %d bytes", len(frame))
	}
	return binary.BigEndian.Uint64(frame[:idHeaderSize]), frame[idHeaderSize:], nil
}
