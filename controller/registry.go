package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Registry holds the open sessions. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	factory  func(id string) *Session
	idleTTL  time.Duration
	now      func() time.Time
}

type entry struct {
	session    *Session
	lastAccess time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTTL makes EvictIdle close sessions not accessed for ttl. Zero keeps
// sessions until deleted.
func WithIdleTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = ttl }
}

// WithClock replaces time.Now for access tracking.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry returns a registry building sessions with factory.
func NewRegistry(factory func(id string) *Session, opts ...RegistryOption) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create opens a new idle session under a fresh ID.
func (r *Registry) Create() *Session {
	s := r.factory(uuid.NewString())
	r.mu.Lock()
	r.sessions[s.ID()] = &entry{session: s, lastAccess: r.now()}
	r.mu.Unlock()
	return s
}

// Get looks up a session and marks it as accessed.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	e.lastAccess = r.now()
	return e.session, nil
}

// Delete closes and forgets a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e.session.Close()
}

// Len is the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// EvictIdle closes every session not accessed within the idle TTL and returns
// how many were removed.
func (r *Registry) EvictIdle() (int, error) {
	if r.idleTTL <= 0 {
		return 0, nil
	}

	cutoff := r.now().Add(-r.idleTTL)
	var idle []*Session
	r.mu.Lock()
	for id, e := range r.sessions {
		if e.lastAccess.Before(cutoff) {
			idle = append(idle, e.session)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	return len(idle), closeAll(idle)
}

// RunJanitor calls EvictIdle every interval until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration, onEvict func(n int, err error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.EvictIdle()
			if onEvict != nil && (n > 0 || err != nil) {
				onEvict(n, err)
			}
		}
	}
}

// CloseAll closes every session.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		sessions = append(sessions, e.session)
	}
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	return closeAll(sessions)
}

func closeAll(sessions []*Session) error {
	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
