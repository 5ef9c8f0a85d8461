package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-rag/internal/pkg/jwtutil"
)

func TestAuthService_Login(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	svc := NewAuthService("admin", hash, "jwt-secret", time.Hour)

	t.Run("Success", func(t *testing.T) {
		res, err := svc.Login(LoginInput{Username: "admin", Password: "s3cret-pass"})
		require.NoError(t, err)
		assert.Equal(t, "admin", res.Username)

		claims, err := jwtutil.ParseToken("jwt-secret", res.Token)
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, claims.Role)
	})

	t.Run("Wrong Password", func(t *testing.T) {
		_, err := svc.Login(LoginInput{Username: "admin", Password: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Wrong Username", func(t *testing.T) {
		_, err := svc.Login(LoginInput{Username: "root", Password: "s3cret-pass"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Missing Fields", func(t *testing.T) {
		_, err := svc.Login(LoginInput{Username: "admin"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("Admin Not Configured", func(t *testing.T) {
		unconfigured := NewAuthService("", "", "jwt-secret", time.Hour)
		_, err := unconfigured.Login(LoginInput{Username: "admin", Password: "x"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
