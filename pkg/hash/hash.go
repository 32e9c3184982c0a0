// Package hash provides content hashing for cache keys and audit digests.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Content returns the SHA-256 hex digest of the given byte payload.
// It is used for audit before/after digests, where the full payload is
// too large to persist per entry.
func Content(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Input returns the cache key for a computation input. The input is
// normalized first so insignificant whitespace differences map to the
// same entry; the hash is cryptographic, so distinct inputs never share
// a key in practice.
func Input(parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(Normalize(part)))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Normalize trims the input and collapses internal whitespace runs to a
// single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
