package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiryFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	assert.Equal(t, exp.Unix(), expiryFromToken(signed).Unix())
}

func TestExpiryFromToken_NoClaim(t *testing.T) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)

	assert.True(t, expiryFromToken(signed).IsZero())
}

func TestExpiryFromToken_OpaqueToken(t *testing.T) {
	assert.True(t, expiryFromToken("not-a-jwt").IsZero())
}
