package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestIdentifyValidToken(t *testing.T) {
	v := NewVerifier("sekret")
	tok := signed(t, "sekret", "user-42", time.Now().Add(time.Hour))
	sub, err := v.Identify(tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub != "user-42" {
		t.Fatalf("expected user-42, got %s", sub)
	}
}

func TestIdentifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier("sekret")
	tok := signed(t, "other", "user-42", time.Now().Add(time.Hour))
	if _, err := v.Identify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIdentifyRejectsExpired(t *testing.T) {
	v := NewVerifier("sekret")
	tok := signed(t, "sekret", "user-42", time.Now().Add(-time.Hour))
	if _, err := v.Identify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestIdentifyRejectsMissingSubject(t *testing.T) {
	v := NewVerifier("sekret")
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	s, err := tok.SignedString([]byte("sekret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := v.Identify(s); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
