package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hashed)
	assert.True(t, CheckPassword(hashed, "s3cret"))
	assert.False(t, CheckPassword(hashed, "wrong"))
	assert.False(t, CheckPassword("", "s3cret"))

	_, err = HashPassword("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestRandomHex(t *testing.T) {
	hexRe := regexp.MustCompile(`^[0-9a-f]{8}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		s, err := RandomHex(8)
		require.NoError(t, err)
		assert.Regexp(t, hexRe, s)
		seen[s] = true
	}
	assert.Greater(t, len(seen), 45)

	odd, err := RandomHex(5)
	require.NoError(t, err)
	assert.Len(t, odd, 5)
}

func TestSHA256Hex(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(""))
	assert.Len(t, SHA256Hex("token"), 64)
}
