package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestInspectUserIDClaim(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	raw := signToken(t, Claims{
		UserID: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	})

	tok, err := Inspect(raw)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if tok.UserID != "alice" {
		t.Fatalf("user id %q", tok.UserID)
	}
	if tok.Raw != raw {
		t.Fatal("raw token not retained")
	}
	if tok.Expiry.Unix() != expiry.Unix() {
		t.Fatalf("expiry %v, want %v", tok.Expiry, expiry)
	}
}

func TestInspectFallsBackToSubject(t *testing.T) {
	raw := signToken(t, jwt.RegisteredClaims{Subject: "bob"})

	tok, err := Inspect(raw)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if tok.UserID != "bob" {
		t.Fatalf("user id %q", tok.UserID)
	}
	if !tok.Expiry.IsZero() {
		t.Fatalf("expiry should be zero: %v", tok.Expiry)
	}
}

func TestInspectRejectsAnonymousToken(t *testing.T) {
	raw := signToken(t, jwt.RegisteredClaims{Issuer: "driftchat"})
	if _, err := Inspect(raw); err == nil {
		t.Fatal("expected error for token without user id")
	}
}

func TestInspectRejectsGarbage(t *testing.T) {
	if _, err := Inspect("not-a-token"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExpired(t *testing.T) {
	tests := []struct {
		name   string
		expiry time.Time
		leeway time.Duration
		want   bool
	}{
		{"no expiry never expires", time.Time{}, time.Minute, false},
		{"future expiry valid", time.Now().Add(time.Hour), time.Minute, false},
		{"past expiry expired", time.Now().Add(-time.Hour), 0, true},
		{"expiring within leeway", time.Now().Add(30 * time.Second), time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := &Token{Expiry: tt.expiry}
			if got := tok.Expired(tt.leeway); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
