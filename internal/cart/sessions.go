package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// DefaultMaxIdle is how long an untouched session keeps its in-process cart.
const DefaultMaxIdle = 30 * time.Minute

// Sessions hands out one Cart per shopper session so concurrent requests
// share the same store. Entries idle for longer than MaxIdle are dropped by
// Sweep; the durable copy stays in the backend.
type Sessions struct {
	backend Backend
	logg    *logger.Logger
	clk     clock.Clock
	maxIdle time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

type sessionEntry struct {
	cart     *Cart
	lastSeen time.Time
}

type SessionsOption func(*Sessions)

func WithClock(clk clock.Clock) SessionsOption {
	return func(s *Sessions) {
		if clk != nil {
			s.clk = clk
		}
	}
}

func WithMaxIdle(d time.Duration) SessionsOption {
	return func(s *Sessions) {
		if d > 0 {
			s.maxIdle = d
		}
	}
}

func NewSessions(backend Backend, logg *logger.Logger, opts ...SessionsOption) *Sessions {
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Sessions{
		backend: backend,
		logg:    logg,
		clk:     clock.Real(),
		maxIdle: DefaultMaxIdle,
		entries: make(map[string]*sessionEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the session's cart, loading it from the backend on first access.
func (s *Sessions) Get(ctx context.Context, sessionID string) (*Cart, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clk.Now()
	if e, ok := s.entries[sessionID]; ok {
		e.lastSeen = now
		return e.cart, nil
	}
	c := Load(ctx, sessionID, s.backend, s.logg)
	s.entries[sessionID] = &sessionEntry{cart: c, lastSeen: now}
	return c, nil
}

// Peek reads the session's cart without registering the session. Unknown
// sessions with nothing stored get an empty snapshot.
func (s *Sessions) Peek(ctx context.Context, sessionID string) (Snapshot, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	s.mu.Unlock()
	if ok {
		return e.cart.Snapshot(ctx), nil
	}
	return newCart(sessionID, s.backend, s.logg).Snapshot(ctx), nil
}

// Forget drops the in-process cart; the durable copy is untouched.
func (s *Sessions) Forget(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}

// Sweep drops every cart not touched within MaxIdle, except the pinned
// sessions, and reports how many went.
func (s *Sessions) Sweep(pinned ...string) int {
	keep := make(map[string]struct{}, len(pinned))
	for _, id := range pinned {
		keep[id] = struct{}{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.clk.Now().Add(-s.maxIdle)
	evicted := 0
	for id, e := range s.entries {
		if _, ok := keep[id]; ok {
			continue
		}
		if !e.lastSeen.After(cutoff) {
			delete(s.entries, id)
			evicted++
		}
	}
	return evicted
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
