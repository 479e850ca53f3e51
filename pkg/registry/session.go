package registry

import (
	"context"
	"sync"
	"time"
)

// SessionManager keeps one authenticated session per registry alive. The
// fast path reads validity without blocking; only the caller that finds the
// session stale pays for re-initialization. Double-checked: after taking
// the write lock the state is re-read, because a concurrent caller may have
// refreshed it between the check and the lock.
type SessionManager struct {
	mu            sync.RWMutex
	valid         bool
	initializedAt time.Time
	token         string
	ttl           time.Duration

	// initFn performs the remote session call and returns the token.
	initFn func(ctx context.Context) (string, error)

	now func() time.Time
}

// NewSessionManager creates a manager. initFn must be side-effect free on
// failure; it is retried on the next Ensure.
func NewSessionManager(ttl time.Duration, initFn func(ctx context.Context) (string, error)) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionManager{
		ttl:    ttl,
		initFn: initFn,
		now:    time.Now,
	}
}

func (s *SessionManager) fresh() bool {
	return s.valid && s.now().Sub(s.initializedAt) < s.ttl
}

// Ensure returns a valid session token, initializing or refreshing the
// session if needed. valid=true and the timestamp are set only on success,
// so a failed init leaves the session invalid and the next caller retries.
func (s *SessionManager) Ensure(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.fresh() {
		token := s.token
		s.mu.RUnlock()
		return token, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fresh() {
		return s.token, nil
	}

	token, err := s.initFn(ctx)
	if err != nil {
		s.valid = false
		return "", err
	}
	s.token = token
	s.valid = true
	s.initializedAt = s.now()
	return token, nil
}

// Invalidate marks the session stale. Called after any remote failure,
// on the assumption that session expiry caused it.
func (s *SessionManager) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
}

// Valid reports current freshness without touching the remote side.
func (s *SessionManager) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fresh()
}
