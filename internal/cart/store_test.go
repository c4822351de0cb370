package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	redisclient "github.com/angelmondragon/boxoffice-backend/pkg/redis"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vip(eventID string) AddItemInput {
	return AddItemInput{
		EventID:    eventID,
		EventName:  "Event " + eventID,
		TicketType: TicketTypeRef{ID: eventID + "-vip", Name: "VIP", Price: decimal.NewFromInt(2500)},
		Quantity:   1,
	}
}

func regular(eventID string, qty int) AddItemInput {
	return AddItemInput{
		EventID:    eventID,
		EventName:  "Event " + eventID,
		TicketType: TicketTypeRef{ID: eventID + "-reg", Name: "Regular", Price: decimal.RequireFromString("999.50")},
		Quantity:   qty,
	}
}

func TestAddItemMergesSameTicketType(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, "s-1", NewMemoryBackend(), nil)

	_, err := c.AddItem(ctx, regular("e1", 2))
	require.NoError(t, err)
	res, err := c.AddItem(ctx, regular("e1", 3))
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	assert.Equal(t, 5, res.Items[0].Quantity)
	assert.Equal(t, 5, res.ItemCount)
	assert.True(t, res.Total.Equal(decimal.RequireFromString("4997.50")), res.Total.String())
	assert.False(t, res.Cleared)
}

func TestAddItemDifferentEventClearsOnceAndNotifies(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, "s-1", NewMemoryBackend(), nil)

	var notices []Notice
	unsubscribe := c.Subscribe(func(n Notice) { notices = append(notices, n) })
	defer unsubscribe()

	_, err := c.AddItem(ctx, vip("e1"))
	require.NoError(t, err)
	_, err = c.AddItem(ctx, regular("e1", 2))
	require.NoError(t, err)

	res, err := c.AddItem(ctx, vip("e2"))
	require.NoError(t, err)
	assert.True(t, res.Cleared)
	assert.NotEmpty(t, res.Notice)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "e2", res.EventID)

	_, err = c.AddItem(ctx, regular("e2", 1))
	require.NoError(t, err)

	require.Len(t, notices, 1)
	assert.Equal(t, "e1", notices[0].PreviousEventID)
	assert.Equal(t, "e2", notices[0].EventID)

	for _, item := range c.Items(ctx) {
		assert.Equal(t, "e2", item.EventID)
	}
}

func TestUnsubscribeStopsNotices(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, "s-1", NewMemoryBackend(), nil)
	count := 0
	unsubscribe := c.Subscribe(func(Notice) { count++ })
	unsubscribe()

	_, _ = c.AddItem(ctx, vip("e1"))
	_, _ = c.AddItem(ctx, vip("e2"))
	assert.Zero(t, count)
}

func TestAddItemValidation(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, "s-1", NewMemoryBackend(), nil)

	cases := map[string]AddItemInput{
		"zero quantity":  regular("e1", 0),
		"missing event":  {EventName: "x", TicketType: TicketTypeRef{ID: "t", Name: "n"}, Quantity: 1},
		"missing ticket": {EventID: "e1", EventName: "x", TicketType: TicketTypeRef{Name: "n"}, Quantity: 1},
		"negative price": {EventID: "e1", EventName: "x", TicketType: TicketTypeRef{ID: "t", Name: "n", Price: decimal.NewFromInt(-1)}, Quantity: 1},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.AddItem(ctx, input)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
	assert.True(t, c.Snapshot(ctx).IsEmpty())
}

func TestUpdateQuantity(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, "s-1", NewMemoryBackend(), nil)
	_, _ = c.AddItem(ctx, vip("e1"))
	_, _ = c.AddItem(ctx, regular("e1", 1))

	snap, err := c.UpdateQuantity(ctx, "e1-vip", 4)
	require.NoError(t, err)
	assert.Equal(t, 5, snap.ItemCount)

	snap, err = c.UpdateQuantity(ctx, "e1-vip", 0)
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "e1-reg", snap.Items[0].TicketTypeID)

	snap, err = c.UpdateQuantity(ctx, "e1-reg", -3)
	require.NoError(t, err)
	assert.True(t, snap.IsEmpty())
	assert.True(t, snap.Total.IsZero())
}

func TestRemoveAndClearErasePersistence(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	c := Load(ctx, "s-1", backend, nil)
	_, _ = c.AddItem(ctx, vip("e1"))
	_, _ = c.AddItem(ctx, regular("e1", 2))

	snap, err := c.RemoveItem(ctx, "e1-vip")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.ItemCount)

	require.NoError(t, c.Clear(ctx))
	assert.True(t, c.Snapshot(ctx).IsEmpty())
	data, err := backend.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	c := Load(ctx, "s-1", backend, nil)
	_, _ = c.AddItem(ctx, regular("e1", 3))

	reloaded := Load(ctx, "s-1", backend, nil)
	snap := reloaded.Snapshot(ctx)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.True(t, snap.Total.Equal(decimal.RequireFromString("2998.50")))
}

func TestCorruptDataLoadsEmpty(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(ctx, "s-1", []byte(`{not json`)))

	c := Load(ctx, "s-1", backend, nil)
	assert.True(t, c.Snapshot(ctx).IsEmpty())
}

func TestLoadSanitizesStoredLines(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	raw := `[{"eventId":"e1","ticketTypeId":"a","unitPrice":"10","quantity":2},
		{"eventId":"e1","ticketTypeId":"b","unitPrice":"10","quantity":0},
		{"eventId":"e2","ticketTypeId":"c","unitPrice":"10","quantity":1}]`
	require.NoError(t, backend.Save(ctx, "s-1", []byte(raw)))

	snap := Load(ctx, "s-1", backend, nil).Snapshot(ctx)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "a", snap.Items[0].TicketTypeID)
}

type failingBackend struct {
	*MemoryBackend
}

func (f failingBackend) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, "s-1", failingBackend{NewMemoryBackend()}, nil)
	res, err := c.AddItem(ctx, vip("e1"))
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.Equal(t, 1, res.ItemCount)
	assert.Equal(t, 1, c.Snapshot(ctx).ItemCount)
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	c := Load(ctx, "s-1", NewMemoryBackend(), nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.AddItem(ctx, regular("e1", 1))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Snapshot(ctx).ItemCount)
}

func TestSessionsShareCartPerSession(t *testing.T) {
	ctx := context.Background()
	sessions := NewSessions(NewMemoryBackend(), nil)

	a, err := sessions.Get(ctx, "s-1")
	require.NoError(t, err)
	b, err := sessions.Get(ctx, " s-1 ")
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := sessions.Get(ctx, "s-2")
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, sessions.Len())

	_, _ = a.AddItem(ctx, vip("e1"))
	sessions.Forget("s-1")
	reloaded, err := sessions.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.NotSame(t, a, reloaded)
	assert.Equal(t, 1, reloaded.Snapshot(ctx).ItemCount)

	_, err = sessions.Get(ctx, "")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestInstancesSharingBackendSeeEachOthersWrites(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	instanceA := NewSessions(backend, nil)
	instanceB := NewSessions(backend, nil)

	a, err := instanceA.Get(ctx, "s-1")
	require.NoError(t, err)
	b, err := instanceB.Get(ctx, "s-1")
	require.NoError(t, err)

	vipLine := vip("e1")
	vipLine.Quantity = 2
	_, err = b.AddItem(ctx, vipLine)
	require.NoError(t, err)

	snap := a.Snapshot(ctx)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 2, snap.ItemCount)

	res, err := a.AddItem(ctx, regular("e1", 1))
	require.NoError(t, err)
	assert.Equal(t, 3, res.ItemCount)

	snap = b.Snapshot(ctx)
	require.Len(t, snap.Items, 2)
	assert.Equal(t, "e1-vip", snap.Items[0].TicketTypeID)
	assert.Equal(t, 2, snap.Items[0].Quantity)
	assert.Equal(t, "e1-reg", snap.Items[1].TicketTypeID)

	require.NoError(t, a.Clear(ctx))
	assert.True(t, b.Snapshot(ctx).IsEmpty())
}

type unreachableBackend struct {
	*MemoryBackend
	down bool
}

func (u *unreachableBackend) Load(ctx context.Context, sessionID string) ([]byte, error) {
	if u.down {
		return nil, errors.New("connection refused")
	}
	return u.MemoryBackend.Load(ctx, sessionID)
}

func TestBackendReadFailure(t *testing.T) {
	ctx := context.Background()
	backend := &unreachableBackend{MemoryBackend: NewMemoryBackend()}
	c := Load(ctx, "s-1", backend, nil)
	_, err := c.AddItem(ctx, vip("e1"))
	require.NoError(t, err)

	backend.down = true
	// reads fall back to the last known lines
	assert.Equal(t, 1, c.Snapshot(ctx).ItemCount)

	// mutations refuse to write over lines they could not read
	_, err = c.AddItem(ctx, vip("e1"))
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	_, err = c.UpdateQuantity(ctx, "e1-vip", 5)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))

	backend.down = false
	assert.Equal(t, 1, c.Snapshot(ctx).ItemCount)
}

func TestSessionsPeekDoesNotRegister(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	sessions := NewSessions(backend, nil)

	for i := 0; i < 100; i++ {
		snap, err := sessions.Peek(ctx, fmt.Sprintf("anon-%d", i))
		require.NoError(t, err)
		assert.True(t, snap.IsEmpty())
	}
	assert.Zero(t, sessions.Len())

	// a cart written by another instance is still visible
	other := Load(ctx, "s-9", backend, nil)
	_, err := other.AddItem(ctx, vip("e1"))
	require.NoError(t, err)
	snap, err := sessions.Peek(ctx, "s-9")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ItemCount)
	assert.Equal(t, "s-9", snap.SessionID)
	assert.Zero(t, sessions.Len())

	_, err = sessions.Peek(ctx, " ")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestSessionsSweepDropsIdleCarts(t *testing.T) {
	ctx := context.Background()
	clk := clock.Fake(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	backend := NewMemoryBackend()
	sessions := NewSessions(backend, nil, WithClock(clk), WithMaxIdle(10*time.Minute))

	stale, err := sessions.Get(ctx, "stale")
	require.NoError(t, err)
	_, err = stale.AddItem(ctx, vip("e1"))
	require.NoError(t, err)

	clk.Advance(6 * time.Minute)
	_, err = sessions.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Zero(t, sessions.Sweep())

	clk.Advance(4 * time.Minute)
	assert.Equal(t, 1, sessions.Sweep())
	assert.Equal(t, 1, sessions.Len())

	// the evicted cart comes back from the backend
	reloaded, err := sessions.Get(ctx, "stale")
	require.NoError(t, err)
	assert.NotSame(t, stale, reloaded)
	assert.Equal(t, 1, reloaded.Snapshot(ctx).ItemCount)
}

type fakeRedis struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redisclient.ErrNotFound
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeRedis) CartKey(sessionID string) string {
	return "bo:cart:" + sessionID
}

func TestRedisBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
	backend := NewRedisBackend(store, time.Hour)

	data, err := backend.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Nil(t, data)

	c := Load(ctx, "s-1", backend, nil)
	_, err = c.AddItem(ctx, vip("e1"))
	require.NoError(t, err)
	assert.Contains(t, store.data["bo:cart:s-1"], `"ticketTypeId":"e1-vip"`)
	assert.Equal(t, time.Hour, store.ttl["bo:cart:s-1"])

	reloaded := Load(ctx, "s-1", backend, nil)
	assert.Equal(t, 1, reloaded.Snapshot(ctx).ItemCount)

	require.NoError(t, reloaded.Clear(ctx))
	_, ok := store.data["bo:cart:s-1"]
	assert.False(t, ok)
}
