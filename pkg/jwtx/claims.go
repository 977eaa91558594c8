package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRefreshWindow is how close to expiry an access token may get
// before clients should proactively renew it.
const DefaultRefreshWindow = 5 * time.Minute

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrNoExpiry    = errors.New("jwtx: token has no exp claim")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Claims are the access-token claims issued by the practice backend. Only the
// fields the client acts on are decoded; unknown claims are ignored.
type Claims struct {
	jwt.RegisteredClaims

	// UserID of the authenticated account (some backends use sub instead)
	UserID string `json:"user_id,omitempty"`

	// Role of the account at issue time, e.g. "therapist"
	Role string `json:"role,omitempty"`

	// TokenType distinguishes "access" from "refresh" tokens
	TokenType string `json:"token_type,omitempty"`
}

// ParseUnverified decodes a JWT without checking its signature.
//
// The client never holds the signing key, so these claims are only used to
// schedule refreshes. The server remains the authority on validity.
func ParseUnverified(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformed
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, errors.Join(ErrMalformed, err)
	}

	return &claims, nil
}

// ExpiresAtTime returns the exp claim, or ErrNoExpiry when it is absent.
func (c *Claims) ExpiresAtTime() (time.Time, error) {
	if c.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return c.ExpiresAt.Time, nil
}

// ExpiresWithin reports whether the token expires at or before now+window.
// Tokens that are already expired also report true.
func (c *Claims) ExpiresWithin(window time.Duration, now time.Time) (bool, error) {
	exp, err := c.ExpiresAtTime()
	if err != nil {
		return false, err
	}
	return !exp.After(now.Add(window)), nil
}

// Expired reports whether exp is at or before now.
func (c *Claims) Expired(now time.Time) (bool, error) {
	exp, err := c.ExpiresAtTime()
	if err != nil {
		return false, err
	}
	return !exp.After(now), nil
}

// ValidateExpiry ensures the token hasn’t expired (exp) and isn’t before nbf.
func (c *Claims) ValidateExpiry() error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

// NeedsRefresh is the shared decision used by the HTTP interceptor: a token
// that cannot be decoded, has no exp, or is inside the window is refreshed.
func NeedsRefresh(token string, window time.Duration, now time.Time) bool {
	claims, err := ParseUnverified(token)
	if err != nil {
		return true
	}
	soon, err := claims.ExpiresWithin(window, now)
	if err != nil {
		return true
	}
	return soon
}
