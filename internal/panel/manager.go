package panel

import (
	"context"
	"sync"

	"github.com/angelmondragon/boxoffice-backend/internal/fetch"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// Key identifies one mounted panel.
type Key struct {
	UserID  string
	EventID string
}

// Manager owns the synchronizers of every mounted admin panel.
type Manager struct {
	runner *fetch.Runner
	reader Reader
	logg   *logger.Logger

	mu     sync.Mutex
	panels map[Key]*Synchronizer
}

func NewManager(runner *fetch.Runner, reader Reader, logg *logger.Logger) *Manager {
	return &Manager{
		runner: runner,
		reader: reader,
		logg:   logg,
		panels: make(map[Key]*Synchronizer),
	}
}

// Mount returns the panel for key, creating it on first use, and applies the
// company id.
func (m *Manager) Mount(ctx context.Context, key Key, companyID string) (*Synchronizer, error) {
	m.mu.Lock()
	s, ok := m.panels[key]
	if !ok {
		s = NewSynchronizer(m.runner, m.reader, m.logg)
		m.panels[key] = s
	}
	m.mu.Unlock()

	if err := s.SetParams(ctx, Params{EventID: key.EventID, CompanyID: companyID}); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) Get(key Key) (*Synchronizer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.panels[key]
	return s, ok
}

// Unmount closes and forgets the panel. It reports whether one was mounted.
func (m *Manager) Unmount(key Key) bool {
	m.mu.Lock()
	s, ok := m.panels[key]
	delete(m.panels, key)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// CloseAll closes every mounted panel.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	panels := m.panels
	m.panels = make(map[Key]*Synchronizer)
	m.mu.Unlock()
	for _, s := range panels {
		s.Close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.panels)
}
