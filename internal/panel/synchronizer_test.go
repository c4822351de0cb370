package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/boxoffice-backend/internal/fetch"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	mu        sync.Mutex
	calls     map[enums.PanelResource]int
	companies []string
	events    []string
	fail      map[enums.PanelResource]error
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		calls: make(map[enums.PanelResource]int),
		fail:  make(map[enums.PanelResource]error),
	}
}

func (f *fakeReader) record(resource enums.PanelResource, companyID, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[resource]++
	f.companies = append(f.companies, companyID)
	f.events = append(f.events, eventID)
	return f.fail[resource]
}

func (f *fakeReader) setFail(resource enums.PanelResource, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[resource] = err
}

func (f *fakeReader) count(resource enums.PanelResource) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[resource]
}

func (f *fakeReader) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeReader) EventBalances(_ context.Context, companyID, eventID string) (*ticketing.Balances, error) {
	if err := f.record(enums.PanelResourceBalances, companyID, eventID); err != nil {
		return nil, err
	}
	return &ticketing.Balances{Currency: "KES", NetBalance: decimal.NewFromInt(100), TicketsSold: 2}, nil
}

func (f *fakeReader) EventTickets(_ context.Context, companyID, eventID string) ([]ticketing.SoldTicket, error) {
	if err := f.record(enums.PanelResourceTickets, companyID, eventID); err != nil {
		return nil, err
	}
	return []ticketing.SoldTicket{{ID: "t-1", Code: "A1"}}, nil
}

func (f *fakeReader) EventTransactions(_ context.Context, companyID, eventID string) ([]ticketing.Transaction, error) {
	if err := f.record(enums.PanelResourceTransactions, companyID, eventID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (f *fakeReader) EventComplementaryTickets(_ context.Context, companyID, eventID string) ([]ticketing.ComplementaryTicket, error) {
	if err := f.record(enums.PanelResourceComplementary, companyID, eventID); err != nil {
		return nil, err
	}
	return []ticketing.ComplementaryTicket{{ID: "c-1"}}, nil
}

func newTestSync(t *testing.T) (*Synchronizer, *fakeReader, *clock.FakeClock) {
	t.Helper()
	clk := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	reader := newFakeReader()
	s := NewSynchronizer(fetch.NewRunner(fetch.DefaultPolicy(), clk, nil, nil), reader, nil)
	t.Cleanup(s.Close)
	return s, reader, clk
}

func allSettled(s *Synchronizer) bool {
	snap := s.Snapshot()
	return !snap.Balances.IsLoading && !snap.Tickets.IsLoading &&
		!snap.Transactions.IsLoading && !snap.Complementary.IsLoading
}

func TestWaitsForPrerequisites(t *testing.T) {
	s, reader, _ := newTestSync(t)

	require.NoError(t, s.SetParams(context.Background(), Params{EventID: "e-1"}))
	snap := s.Snapshot()
	assert.Equal(t, enums.PanelStatusWaitingForPrerequisites, snap.Status)
	assert.Equal(t, fetch.PhaseIdle, snap.Balances.Phase)
	assert.Equal(t, fetch.PhaseIdle, snap.Tickets.Phase)
	assert.Zero(t, reader.total())

	err := s.RefreshTickets(context.Background())
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestLoadsAllFourResources(t *testing.T) {
	s, reader, _ := newTestSync(t)

	require.NoError(t, s.SetParams(context.Background(), Params{EventID: "e-1", CompanyID: "c-1"}))
	require.Eventually(t, func() bool { return allSettled(s) }, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, enums.PanelStatusSyncing, snap.Status)
	assert.Equal(t, fetch.PhaseReady, snap.Balances.Phase)
	require.NotNil(t, snap.Balances.Data)
	assert.Equal(t, 2, (*snap.Balances.Data).TicketsSold)
	require.NotNil(t, snap.Tickets.Data)
	assert.Len(t, *snap.Tickets.Data, 1)
	require.NotNil(t, snap.Transactions.Data)
	assert.Empty(t, *snap.Transactions.Data)
	assert.Equal(t, fetch.PhaseReady, snap.Complementary.Phase)

	for _, resource := range enums.PanelResources {
		assert.Equal(t, 1, reader.count(resource), resource)
	}
	assert.Contains(t, reader.companies, "c-1")
}

func TestSameParamsIsNoop(t *testing.T) {
	s, reader, _ := newTestSync(t)
	ctx := context.Background()

	require.NoError(t, s.SetParams(ctx, Params{EventID: "e-1", CompanyID: "c-1"}))
	require.Eventually(t, func() bool { return allSettled(s) }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.SetParams(ctx, Params{EventID: " e-1 ", CompanyID: "c-1"}))
	assert.Equal(t, 4, reader.total())
}

func TestChangedParamsRerunAllChains(t *testing.T) {
	s, reader, _ := newTestSync(t)
	ctx := context.Background()

	require.NoError(t, s.SetParams(ctx, Params{EventID: "e-1", CompanyID: "c-1"}))
	require.Eventually(t, func() bool { return allSettled(s) }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.SetParams(ctx, Params{EventID: "e-2", CompanyID: "c-1"}))
	require.Eventually(t, func() bool { return allSettled(s) }, time.Second, 5*time.Millisecond)

	assert.Equal(t, 8, reader.total())
	assert.Equal(t, "e-2", s.Params().EventID)
}

func TestOneResourceFailsIndependently(t *testing.T) {
	s, reader, clk := newTestSync(t)
	reader.setFail(enums.PanelResourceTickets, errors.New("tickets down"))

	require.NoError(t, s.SetParams(context.Background(), Params{EventID: "e-1", CompanyID: "c-1"}))
	policy := fetch.DefaultPolicy()
	for i := 0; i < policy.MaxRetries; i++ {
		clk.WaitForTimers(1)
		clk.Advance(policy.Delay(i))
	}
	require.Eventually(t, func() bool { return allSettled(s) }, time.Second, 5*time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, fetch.PhaseError, snap.Tickets.Phase)
	require.NotNil(t, snap.Tickets.Error)
	assert.Contains(t, *snap.Tickets.Error, "tickets down")
	assert.Equal(t, fetch.PhaseReady, snap.Balances.Phase)
	assert.Equal(t, fetch.PhaseReady, snap.Transactions.Phase)
	assert.Equal(t, fetch.PhaseReady, snap.Complementary.Phase)
	assert.Equal(t, policy.Attempts(), reader.count(enums.PanelResourceTickets))
}

func TestRefreshTicketsSupersedesRetryingChain(t *testing.T) {
	s, reader, clk := newTestSync(t)
	reader.setFail(enums.PanelResourceTickets, errors.New("tickets down"))
	ctx := context.Background()

	require.NoError(t, s.SetParams(ctx, Params{EventID: "e-1", CompanyID: "c-1"}))
	clk.WaitForTimers(1)
	require.Equal(t, 1, reader.count(enums.PanelResourceTickets))

	reader.setFail(enums.PanelResourceTickets, nil)
	require.NoError(t, s.RefreshTickets(ctx))
	require.Eventually(t, func() bool { return s.Snapshot().Tickets.Phase == fetch.PhaseReady }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return allSettled(s) }, time.Second, 5*time.Millisecond)
	assert.Zero(t, clk.PendingCount())

	clk.Advance(time.Minute)
	assert.Equal(t, 2, reader.count(enums.PanelResourceTickets))
	assert.Equal(t, 1, reader.count(enums.PanelResourceBalances))

	require.NoError(t, s.RefreshTickets(ctx))
	require.Eventually(t, func() bool { return reader.count(enums.PanelResourceTickets) == 3 }, time.Second, 5*time.Millisecond)
}

func TestCloseStopsEveryChain(t *testing.T) {
	s, reader, clk := newTestSync(t)
	for _, resource := range enums.PanelResources {
		reader.setFail(resource, errors.New("down"))
	}

	require.NoError(t, s.SetParams(context.Background(), Params{EventID: "e-1", CompanyID: "c-1"}))
	clk.WaitForTimers(4)
	s.Close()

	assert.Zero(t, clk.PendingCount())
	clk.Advance(time.Minute)
	assert.Equal(t, 4, reader.total())
	assert.Equal(t, enums.PanelStatusClosed, s.Status())

	err := s.SetParams(context.Background(), Params{EventID: "e-1", CompanyID: "c-1"})
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
}

func TestClearingParamsReturnsToWaiting(t *testing.T) {
	s, _, _ := newTestSync(t)
	ctx := context.Background()
	require.NoError(t, s.SetParams(ctx, Params{EventID: "e-1", CompanyID: "c-1"}))
	require.Eventually(t, func() bool { return allSettled(s) }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SetParams(ctx, Params{EventID: "e-1"}))
	snap := s.Snapshot()
	assert.Equal(t, enums.PanelStatusWaitingForPrerequisites, snap.Status)
	assert.Equal(t, fetch.PhaseIdle, snap.Balances.Phase)
	assert.Nil(t, snap.Tickets.Data)
}

func TestManagerMountUnmount(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	reader := newFakeReader()
	m := NewManager(fetch.NewRunner(fetch.DefaultPolicy(), clk, nil, nil), reader, nil)
	ctx := context.Background()
	key := Key{UserID: "u-1", EventID: "e-1"}

	first, err := m.Mount(ctx, key, "c-1")
	require.NoError(t, err)
	second, err := m.Mount(ctx, key, "c-1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := m.Mount(ctx, Key{UserID: "u-2", EventID: "e-1"}, "c-1")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, m.Len())

	got, ok := m.Get(key)
	require.True(t, ok)
	assert.Same(t, first, got)

	assert.True(t, m.Unmount(key))
	assert.False(t, m.Unmount(key))
	assert.Equal(t, enums.PanelStatusClosed, first.Status())

	m.CloseAll()
	assert.Zero(t, m.Len())
	assert.Equal(t, enums.PanelStatusClosed, other.Status())
}
