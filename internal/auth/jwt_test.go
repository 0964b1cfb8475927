package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestValidateAccessToken(t *testing.T) {
	a := NewJWTAuthenticator(testSecret, "Boipoka", "Boipoka")

	claims := func() jwt.MapClaims {
		now := time.Now()
		return jwt.MapClaims{
			"sub": int64(42),
			"exp": now.Add(time.Hour).Unix(),
			"iat": now.Unix(),
			"aud": "Boipoka",
			"iss": "Boipoka",
		}
	}

	t.Run("Valid", func(t *testing.T) {
		token, err := a.ValidateAccessToken(signedToken(t, claims(), testSecret))
		require.NoError(t, err)
		assert.True(t, token.Valid)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		_, err := a.ValidateAccessToken(signedToken(t, claims(), "other-secret"))
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		c := claims()
		c["exp"] = time.Now().Add(-time.Minute).Unix()
		_, err := a.ValidateAccessToken(signedToken(t, c, testSecret))
		assert.Error(t, err)
	})

	t.Run("MissingExpiry", func(t *testing.T) {
		c := claims()
		delete(c, "exp")
		_, err := a.ValidateAccessToken(signedToken(t, c, testSecret))
		assert.Error(t, err)
	})

	t.Run("WrongIssuer", func(t *testing.T) {
		c := claims()
		c["iss"] = "someone-else"
		_, err := a.ValidateAccessToken(signedToken(t, c, testSecret))
		assert.Error(t, err)
	})

	t.Run("WrongAudience", func(t *testing.T) {
		c := claims()
		c["aud"] = "someone-else"
		_, err := a.ValidateAccessToken(signedToken(t, c, testSecret))
		assert.Error(t, err)
	})
}
