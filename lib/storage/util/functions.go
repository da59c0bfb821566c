package util

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// --------------------------------------------------------------------------
// Hash Functions
// --------------------------------------------------------------------------

// ShardKey is an efficient key type based on uint64 for shard selection
type ShardKey uint64

// GenerateSeed creates a robust random seed for internal hash distribution
func GenerateSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// Fallback mit aktueller Zeit, nur im äußersten Notfall
		return uint64(time.Now().UnixNano())
	}
	return binary.LittleEndian.Uint64(b[:])
}

// HashName generates a hash value for a store name with a seed.
// This function uses the FNV-1a hash algorithm, which is fast and has good
// distribution even for the short, similar names stores tend to have.
func HashName(s string, seed uint64) ShardKey {

	// FNV-1a hash with seed incorporation
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)

	hash := uint64(offset64) ^ seed

	for i := 0; i < len(s); i++ {
		hash ^= uint64(s[i])
		hash *= prime64
	}

	return ShardKey(hash)
}
