package session

import (
	"context"
	"sync"

	"github.com/flatcms/accounts/types"
)

// Session holds the principal of one logged-in session. The zero value is
// an anonymous session.
type Session struct {
	mu        sync.RWMutex
	principal *types.Principal
}

func New() *Session {
	return &Session{}
}

// SetPrincipal marks the session as logged in as p.
func (s *Session) SetPrincipal(p types.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = &p
}

// Principal returns the logged-in principal, if any.
func (s *Session) Principal() (types.Principal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.principal == nil {
		return types.Principal{}, false
	}
	return *s.principal, true
}

func (s *Session) IsLoggedIn() bool {
	_, ok := s.Principal()
	return ok
}

// Clear logs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = nil
}

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, or a fresh anonymous one.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok && s != nil {
		return s
	}
	return New()
}
