package panel

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/boxoffice-backend/internal/fetch"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// Reader loads the four admin panel resources for a company event.
type Reader interface {
	EventBalances(ctx context.Context, companyID, eventID string) (*ticketing.Balances, error)
	EventTickets(ctx context.Context, companyID, eventID string) ([]ticketing.SoldTicket, error)
	EventTransactions(ctx context.Context, companyID, eventID string) ([]ticketing.Transaction, error)
	EventComplementaryTickets(ctx context.Context, companyID, eventID string) ([]ticketing.ComplementaryTicket, error)
}

var _ Reader = (*ticketing.Client)(nil)

// Params identifies the event a panel shows. Both ids are required.
type Params struct {
	EventID   string `json:"eventId"`
	CompanyID string `json:"companyId"`
}

func (p Params) normalized() Params {
	return Params{EventID: strings.TrimSpace(p.EventID), CompanyID: strings.TrimSpace(p.CompanyID)}
}

// Ready reports whether both identifiers are present.
func (p Params) Ready() bool {
	return p.EventID != "" && p.CompanyID != ""
}

// Synchronizer keeps the four panel resources loaded, one retry chain each.
type Synchronizer struct {
	runner *fetch.Runner
	reader Reader
	logg   *logger.Logger

	balances      *fetch.Slot[*ticketing.Balances]
	tickets       *fetch.Slot[[]ticketing.SoldTicket]
	transactions  *fetch.Slot[[]ticketing.Transaction]
	complementary *fetch.Slot[[]ticketing.ComplementaryTicket]

	mu     sync.Mutex
	params Params
	status enums.PanelStatus
	chains map[enums.PanelResource]*fetch.Chain
}

func NewSynchronizer(runner *fetch.Runner, reader Reader, logg *logger.Logger) *Synchronizer {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Synchronizer{
		runner:        runner,
		reader:        reader,
		logg:          logg,
		balances:      fetch.NewSlot[*ticketing.Balances](),
		tickets:       fetch.NewSlot[[]ticketing.SoldTicket](),
		transactions:  fetch.NewSlot[[]ticketing.Transaction](),
		complementary: fetch.NewSlot[[]ticketing.ComplementaryTicket](),
		status:        enums.PanelStatusWaitingForPrerequisites,
		chains:        make(map[enums.PanelResource]*fetch.Chain),
	}
}

// SetParams starts all four chains for p, superseding any running ones. With
// an identifier missing the panel waits and starts nothing. Setting the same
// params again while syncing is a no-op.
func (s *Synchronizer) SetParams(ctx context.Context, p Params) error {
	p = p.normalized()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == enums.PanelStatusClosed {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "panel is closed")
	}
	if s.status == enums.PanelStatusSyncing && p == s.params {
		return nil
	}

	s.cancelLocked()
	s.params = p
	if !p.Ready() {
		s.status = enums.PanelStatusWaitingForPrerequisites
		s.balances.Reset()
		s.tickets.Reset()
		s.transactions.Reset()
		s.complementary.Reset()
		return nil
	}

	s.status = enums.PanelStatusSyncing
	base := context.WithoutCancel(ctx)
	for _, resource := range enums.PanelResources {
		s.startLocked(base, resource)
	}
	return nil
}

// RefreshTickets supersedes the tickets chain with a fresh one.
func (s *Synchronizer) RefreshTickets(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status {
	case enums.PanelStatusClosed:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "panel is closed")
	case enums.PanelStatusWaitingForPrerequisites:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "panel is waiting for event and company ids")
	}
	if chain, ok := s.chains[enums.PanelResourceTickets]; ok {
		chain.Cancel()
	}
	s.startLocked(context.WithoutCancel(ctx), enums.PanelResourceTickets)
	return nil
}

// Close stops every chain. The panel cannot be reused.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.status = enums.PanelStatusClosed
}

func (s *Synchronizer) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *Synchronizer) Status() enums.PanelStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Synchronizer) cancelLocked() {
	for resource, chain := range s.chains {
		chain.Cancel()
		delete(s.chains, resource)
	}
}

func (s *Synchronizer) startLocked(ctx context.Context, resource enums.PanelResource) {
	p := s.params
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": p.EventID, "company_id": p.CompanyID})

	var chain *fetch.Chain
	switch resource {
	case enums.PanelResourceBalances:
		chain = fetch.Start(ctx, s.runner, resource.String(), s.balances, func(ctx context.Context) (*ticketing.Balances, error) {
			return s.reader.EventBalances(ctx, p.CompanyID, p.EventID)
		})
	case enums.PanelResourceTickets:
		chain = fetch.Start(ctx, s.runner, resource.String(), s.tickets, func(ctx context.Context) ([]ticketing.SoldTicket, error) {
			out, err := s.reader.EventTickets(ctx, p.CompanyID, p.EventID)
			return orEmpty(out), err
		})
	case enums.PanelResourceTransactions:
		chain = fetch.Start(ctx, s.runner, resource.String(), s.transactions, func(ctx context.Context) ([]ticketing.Transaction, error) {
			out, err := s.reader.EventTransactions(ctx, p.CompanyID, p.EventID)
			return orEmpty(out), err
		})
	case enums.PanelResourceComplementary:
		chain = fetch.Start(ctx, s.runner, resource.String(), s.complementary, func(ctx context.Context) ([]ticketing.ComplementaryTicket, error) {
			out, err := s.reader.EventComplementaryTickets(ctx, p.CompanyID, p.EventID)
			return orEmpty(out), err
		})
	default:
		return
	}
	s.chains[resource] = chain
}

func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
