package remote

import (
	"context"
	"errors"
	"testing"
)

func TestTokenSessionCheck(t *testing.T) {
	s := NewTokenSession("tok-123")
	if err := s.Check(context.Background()); err != nil {
		t.Fatalf("Check() error = %v, want nil", err)
	}
	if s.Token() != "tok-123" {
		t.Errorf("Token() = %v, want tok-123", s.Token())
	}
}

func TestTokenSessionEmptyTokenIsAuthError(t *testing.T) {
	s := NewTokenSession("")
	err := s.Check(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Check() error = %v, want ErrAuth", err)
	}
}

func TestTokenSessionParksAfterReauthSignal(t *testing.T) {
	s := NewTokenSession("tok-123")
	s.RequireReauth()
	err := s.Check(context.Background())
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("Check() after RequireReauth error = %v, want ErrAuth", err)
	}
	// Signalling twice is harmless
	s.RequireReauth()
	if err := s.Check(context.Background()); !errors.Is(err, ErrAuth) {
		t.Fatalf("Check() error = %v, want ErrAuth", err)
	}
}
