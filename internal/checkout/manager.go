package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// Manager keeps one orchestrator per cart session. Idle orchestrators that
// have not been touched within MaxIdle are closed by Sweep.
type Manager struct {
	carts   *cart.Sessions
	deps    Deps
	maxIdle time.Duration

	mu    sync.Mutex
	items map[string]*managed
}

type managed struct {
	orch     *Orchestrator
	lastSeen time.Time
}

func NewManager(carts *cart.Sessions, deps Deps) *Manager {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &Manager{
		carts:   carts,
		deps:    deps,
		maxIdle: cart.DefaultMaxIdle,
		items:   make(map[string]*managed),
	}
}

// WithMaxIdle changes the idle window used by Sweep.
func (m *Manager) WithMaxIdle(d time.Duration) *Manager {
	if d > 0 {
		m.maxIdle = d
	}
	return m
}

// Get returns the session's orchestrator, creating it on first use.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Orchestrator, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// touches the cart entry too, so a live checkout keeps its cart
	store, err := m.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := m.deps.Clock.Now()
	if e, ok := m.items[sessionID]; ok {
		e.lastSeen = now
		return e.orch, nil
	}

	o := New(sessionID, store, m.deps)
	if m.deps.Logger != nil {
		logCtx := m.deps.Logger.WithSessionID(context.Background(), sessionID)
		o.Subscribe(func(evt Event) {
			m.deps.Logger.Debug(logCtx, fmt.Sprintf("checkout state %s", evt.State))
		})
	}
	m.items[sessionID] = &managed{orch: o, lastSeen: now}
	return o, nil
}

// Peek returns the session's checkout view without creating an
// orchestrator. Unknown sessions are idle.
func (m *Manager) Peek(_ context.Context, sessionID string) (Snapshot, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	m.mu.Lock()
	e, ok := m.items[sessionID]
	m.mu.Unlock()
	if ok {
		return e.orch.Snapshot(), nil
	}
	opts := m.deps.Options
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	return Snapshot{State: enums.CheckoutStateIdle, Channel: opts.Channel}, nil
}

// Sweep closes idle orchestrators untouched within MaxIdle, then drops idle
// carts that no remaining orchestrator holds. Orchestrators mid-payment are
// kept whatever their age.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	cutoff := m.deps.Clock.Now().Add(-m.maxIdle)
	var evicted []*Orchestrator
	for id, e := range m.items {
		if e.lastSeen.After(cutoff) || e.orch.Snapshot().State != enums.CheckoutStateIdle {
			continue
		}
		delete(m.items, id)
		evicted = append(evicted, e.orch)
	}
	live := make([]string, 0, len(m.items))
	for id := range m.items {
		live = append(live, id)
	}
	m.mu.Unlock()

	for _, o := range evicted {
		o.Close()
	}
	m.carts.Sweep(live...)
	return len(evicted)
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := m.deps.Clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 && m.deps.Logger != nil {
				m.deps.Logger.Debug(ctx, fmt.Sprintf("evicted %d idle checkouts", n))
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// CloseAll stops every orchestrator and waits for their poll loops.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	items := m.items
	m.items = make(map[string]*managed)
	m.mu.Unlock()

	for _, e := range items {
		e.orch.Close()
	}
}
