package remote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// TokenSession is a static-token session: the token comes from the
// environment and cannot be refreshed in-process. Once the remote store
// rejects it the session parks itself and every Check fails until the
// process restarts with a fresh token.
type TokenSession struct {
	mu     sync.Mutex
	token  string
	parked bool
}

func NewTokenSession(token string) *TokenSession {
	return &TokenSession{token: token}
}

// Token returns the current bearer token; empty when none is set.
func (s *TokenSession) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *TokenSession) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return fmt.Errorf("no session token configured: %w", ErrAuth)
	}
	if s.parked {
		return fmt.Errorf("session token rejected by remote store: %w", ErrAuth)
	}
	return nil
}

func (s *TokenSession) RequireReauth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.parked {
		s.parked = true
		slog.Warn("Session parked until re-authentication", "component", "remote")
	}
}
