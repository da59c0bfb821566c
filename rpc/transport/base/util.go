package base

import (
	"encoding/binary"
	"io"
	"net"
)

// pushMessageID marks unsolicited server frames. Request ids issued by
// clients start at 1, so 0 is never in flight as a correlation id.
const pushMessageID uint64 = 0

// frameHeaderSize is the fixed size of a frame header in bytes
const frameHeaderSize = 12

// writeFrame writes a frame to the connection with the format:
// - 8 bytes: messageID (uint64, big endian), 0 for unsolicited pushes
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func writeFrame(conn net.Conn, messageID uint64, data []byte) error {
	// Create the header (8 bytes for messageID + 4 bytes for content length)
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint64(header[:8], messageID)
	binary.BigEndian.PutUint32(header[8:12], uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from the connection using the provided buffer
// If the buffer is too small, it will allocate a new temporary buffer for the data
func readFrame(conn net.Conn, buf []byte) (uint64, []byte, error) {
	// Check if buffer is large enough for header
	if buf == nil || len(buf) < frameHeaderSize {
		buf = make([]byte, frameHeaderSize) // create header buffer
	}

	// Read header
	if _, err := io.ReadFull(conn, buf[:frameHeaderSize]); err != nil {
		return 0, nil, err
	}

	// Parse header
	messageID := binary.BigEndian.Uint64(buf[:8])
	contentLength := binary.BigEndian.Uint32(buf[8:12])

	// If no data, return empty slice
	if contentLength == 0 {
		return messageID, []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	// Read data
	if _, err := io.ReadFull(conn, buf[:contentLength]); err != nil {
		return 0, nil, err
	}

	// Return data
	return messageID, buf[:contentLength], nil
}
