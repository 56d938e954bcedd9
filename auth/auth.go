// Package auth manages the credential lifecycle of the SDK: the stored token
// pair, coordinated refresh episodes, and the login/logout/refresh exchanges
// against the backend's /auth endpoints.
package auth

import (
	"errors"
	"time"
)

// Mode selects how credentials travel with requests.
type Mode string

const (
	// ModeHeader attaches the access token as a bearer header and sends the
	// refresh token in the refresh request body.
	ModeHeader Mode = "header"

	// ModeCookie relies on the HTTP client's cookie jar; no bearer header is
	// attached and the refresh request carries an empty body. Refresh
	// semantics still apply for session continuation.
	ModeCookie Mode = "cookie"
)

// ErrNoRefreshToken reports a refresh attempt in header mode with no stored
// refresh token.
var ErrNoRefreshToken = errors.New("no refresh token available")

// TokenPair is the credential material returned by login, registration and
// refresh exchanges. RefreshToken and ExpiresAt may be absent.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
