package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	token, err := GenerateToken("secret", time.Minute, "admin", "admin")
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "admin", claims.Subject)
}

func TestParseRejects(t *testing.T) {
	t.Run("Wrong Secret", func(t *testing.T) {
		token, err := GenerateToken("secret", time.Minute, "admin", "admin")
		require.NoError(t, err)
		_, err = ParseToken("other", token)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := GenerateToken("secret", -time.Minute, "admin", "admin")
		require.NoError(t, err)
		_, err = ParseToken("secret", token)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParseToken("secret", "not-a-token")
		assert.Error(t, err)
	})

	t.Run("Empty Secret", func(t *testing.T) {
		_, err := GenerateToken("", time.Minute, "admin", "admin")
		assert.Error(t, err)
	})
}
