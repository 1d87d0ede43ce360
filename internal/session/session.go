// Package session owns the authenticated session of one lyra process: the
// bearer token, its persistence in local state and the logout notification.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"lyra-cli/internal/store"
)

var ErrNotLoggedIn = errors.New("not logged in (run `lyra login`)")

// KV is the slice of local state the session needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Session struct {
	kv KV

	mu        sync.RWMutex
	token     string
	listeners []func()
}

// New loads the persisted token, if any.
func New(ctx context.Context, kv KV) (*Session, error) {
	s := &Session{kv: kv}
	if kv == nil {
		return s, nil
	}
	tok, ok, err := kv.Get(ctx, store.KeyToken)
	if err != nil {
		return nil, err
	}
	if ok {
		s.token = strings.TrimSpace(tok)
	}
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// Require returns ErrNotLoggedIn when there is no token.
func (s *Session) Require() error {
	if !s.Authenticated() {
		return ErrNotLoggedIn
	}
	return nil
}

func (s *Session) Login(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	if s.kv != nil {
		if err := s.kv.Set(ctx, store.KeyToken, token); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Logout forgets the token and notifies listeners. The in-memory token is
// cleared even when removing it from local state fails.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()

	var err error
	if s.kv != nil {
		err = s.kv.Delete(ctx, store.KeyToken)
	}
	if had {
		for _, fn := range listeners {
			fn()
		}
	}
	return err
}

// OnLogout registers fn to run after every logout that dropped a token.
func (s *Session) OnLogout(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}
