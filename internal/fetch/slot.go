package fetch

import (
	"context"
	"sync"
)

// State is the renderable view of one fetched resource. Exactly one of
// loading, error or data is meaningful at a time.
type State[T any] struct {
	Data      *T      `json:"data"`
	IsLoading bool    `json:"isLoading"`
	Error     *string `json:"error"`
}

// Slot holds the latest State for a resource. Only the chain that most
// recently began may write to it.
type Slot[T any] struct {
	mu    sync.Mutex
	state State[T]
	gen   uint64
}

func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

func (s *Slot[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// begin clears stale data and marks the slot loading. The returned generation
// identifies the chain allowed to finish it.
func (s *Slot[T]) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = State[T]{IsLoading: true}
	return s.gen
}

func (s *Slot[T]) succeed(ctx context.Context, gen uint64, data T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || ctx.Err() != nil {
		return false
	}
	s.state = State[T]{Data: &data}
	return true
}

func (s *Slot[T]) fail(ctx context.Context, gen uint64, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || ctx.Err() != nil {
		return false
	}
	s.state = State[T]{Error: &msg}
	return true
}

// Reset returns the slot to its zero state and invalidates running chains.
func (s *Slot[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = State[T]{}
}

// Phase names which part of a State is meaningful.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseReady   Phase = "ready"
)

func (s State[T]) Phase() Phase {
	switch {
	case s.IsLoading:
		return PhaseLoading
	case s.Error != nil:
		return PhaseError
	case s.Data != nil:
		return PhaseReady
	default:
		return PhaseIdle
	}
}
