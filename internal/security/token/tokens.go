// Package tokens creates and fingerprints opaque random tokens.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// MinBytes is the smallest accepted token size (128 bits).
const MinBytes = 16

// Opaque returns nBytes from crypto/rand encoded as base64url without padding.
func Opaque(nBytes int) (string, error) {
	return OpaqueFrom(rand.Reader, nBytes)
}

// OpaqueFrom is Opaque with an explicit entropy source.
func OpaqueFrom(r io.Reader, nBytes int) (string, error) {
	if nBytes < MinBytes {
		return "", fmt.Errorf("tokens: %d bytes is below the %d byte minimum", nBytes, MinBytes)
	}
	b := make([]byte, nBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("tokens: read entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Fingerprint is sha256(s) as base64url without padding. Stores key on the
// fingerprint so a dump of the store does not reveal live tokens.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
