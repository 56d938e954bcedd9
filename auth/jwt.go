package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryFromToken extracts the exp claim from a JWT access token without
// verifying the signature (the client has no key material; the server is the
// authority). Returns the zero time when the token is not a JWT or carries
// no expiry.
func expiryFromToken(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
