package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)

	token, err := svc.GenerateToken(42, "Mia")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.EmployeeID != 42 || claims.Subject != "42" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewTokenService("secret", time.Hour)
	token, err := svc.GenerateToken(7, "")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService("other", time.Hour)
		if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		later := NewTokenService("secret", time.Hour)
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		if _, err := later.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
			t.Fatalf("expected ErrExpiredToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := svc.ValidateToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})
}
