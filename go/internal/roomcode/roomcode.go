package roomcode

import (
	"crypto/rand"
	"fmt"
)

// Length is the fixed room code length.
const Length = 6

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generate returns a random fixed-length uppercase alphanumeric room code.
// Uniqueness is enforced by the registry, not here; callers retry on
// collision.
func Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = charset[int(b)%len(charset)]
	}
	return string(buf), nil
}

// Valid reports whether s has the shape of a room code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
