package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Run("generates 64 character hex string", func(t *testing.T) {
		token, err := GenerateToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		token1, _ := GenerateToken()
		token2, _ := GenerateToken()
		assert.NotEqual(t, token1, token2)
	})

	t.Run("generates valid hex", func(t *testing.T) {
		token, _ := GenerateToken()
		for _, c := range token {
			assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'))
		}
	})
}

func TestHashToken(t *testing.T) {
	t.Run("hash verifies against original token", func(t *testing.T) {
		hash, err := HashToken("test-token")
		require.NoError(t, err)
		assert.True(t, CheckTokenHash("test-token", hash))
	})

	t.Run("hash rejects wrong token", func(t *testing.T) {
		hash, err := HashToken("test-token")
		require.NoError(t, err)
		assert.False(t, CheckTokenHash("other-token", hash))
	})

	t.Run("CheckTokenHash rejects malformed hash", func(t *testing.T) {
		assert.False(t, CheckTokenHash("test-token", "not-a-bcrypt-hash"))
	})
}

func TestConstantTimeEqual(t *testing.T) {
	t.Run("returns true for equal strings", func(t *testing.T) {
		assert.True(t, ConstantTimeEqual("abc", "abc"))
	})

	t.Run("returns false for different strings", func(t *testing.T) {
		assert.False(t, ConstantTimeEqual("abc", "def"))
	})

	t.Run("returns false for different lengths", func(t *testing.T) {
		assert.False(t, ConstantTimeEqual("abc", "abcd"))
	})

	t.Run("returns true for empty strings", func(t *testing.T) {
		assert.True(t, ConstantTimeEqual("", ""))
	})
}

func TestMaskPhone(t *testing.T) {
	t.Run("masks last four digits", func(t *testing.T) {
		assert.Equal(t, "+2250701234****", MaskPhone("+22507012345678"))
	})

	t.Run("masks short values entirely", func(t *testing.T) {
		assert.Equal(t, "****", MaskPhone("123"))
	})
}
