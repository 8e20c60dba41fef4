package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the client cares about. The signature is the
// backend's to verify; the client only reads who the token is for and when
// it expires.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Token is an inspected, not verified, bearer token.
type Token struct {
	Raw    string
	UserID string
	Expiry time.Time
}

// Inspect decodes the token without verifying its signature. The user id
// is taken from the user_id claim, falling back to the subject.
func Inspect(raw string) (*Token, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("token carries no user id")
	}

	t := &Token{Raw: raw, UserID: userID}
	if claims.ExpiresAt != nil {
		t.Expiry = claims.ExpiresAt.Time
	}
	return t, nil
}

// Expired reports whether the token expires within the given leeway. A
// token without an expiry never expires.
func (t *Token) Expired(leeway time.Duration) bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(leeway).After(t.Expiry)
}
