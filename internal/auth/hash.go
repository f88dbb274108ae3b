package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// emailTokenBytes yields a 64 character URL-safe token.
const emailTokenBytes = 48

// HashString returns a hex-encoded SHA-256 hash for token storage.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NewEmailToken returns a random, URL-safe token suitable for email links.
func NewEmailToken() (string, error) {
	buf := make([]byte, emailTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
