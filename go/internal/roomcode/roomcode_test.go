package roomcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := Generate()
		require.NoError(t, err)
		assert.Len(t, code, Length)
		assert.True(t, Valid(code), "generated code %q should be valid", code)
		seen[code] = true
	}
	// 100 draws from a 36^6 space should essentially never collide.
	assert.Greater(t, len(seen), 90)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("ABC123"))
	assert.True(t, Valid("ZZZZZZ"))
	assert.False(t, Valid("abc123"), "lowercase is rejected")
	assert.False(t, Valid("ABC12"), "too short")
	assert.False(t, Valid("ABC1234"), "too long")
	assert.False(t, Valid("AB-123"), "punctuation is rejected")
	assert.False(t, Valid(""))
}
