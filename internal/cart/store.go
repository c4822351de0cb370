package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/go-playground/validator/v10"
)

const eventSwitchNotice = "Your cart had tickets for another event. It was cleared so you can book this one."

var validate = validator.New()

// Store is the per-session cart. All lines share one event.
type Store interface {
	Snapshot(ctx context.Context) Snapshot
	Items(ctx context.Context) []Item
	AddItem(ctx context.Context, input AddItemInput) (AddResult, error)
	UpdateQuantity(ctx context.Context, ticketTypeID string, quantity int) (Snapshot, error)
	RemoveItem(ctx context.Context, ticketTypeID string) (Snapshot, error)
	Clear(ctx context.Context) error
	Subscribe(fn func(Notice)) func()
}

// Cart is the mutex-guarded Store implementation. The backend is the source
// of truth: every read and mutation reloads the stored lines first, and every
// mutation writes through.
type Cart struct {
	sessionID string
	backend   Backend
	logg      *logger.Logger

	mu    sync.Mutex
	items []Item
	// dirty is set while the last write did not reach the backend; the local
	// lines win until a write succeeds.
	dirty bool

	subMu  sync.Mutex
	subs   map[int]func(Notice)
	nextID int
}

var _ Store = (*Cart)(nil)

// Load builds the cart for sessionID from the backend. Missing or unreadable
// data yields an empty cart.
func Load(ctx context.Context, sessionID string, backend Backend, logg *logger.Logger) *Cart {
	c := newCart(sessionID, backend, logg)
	items, err := c.read(ctx)
	if err != nil {
		c.logg.Warn(c.logg.WithSessionID(ctx, sessionID), fmt.Sprintf("cart load failed, starting empty: %v", err))
	}
	c.items = items
	return c
}

func newCart(sessionID string, backend Backend, logg *logger.Logger) *Cart {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Cart{
		sessionID: sessionID,
		backend:   backend,
		logg:      logg,
		subs:      make(map[int]func(Notice)),
	}
}

// read fetches the stored lines. Unreadable data counts as an empty cart;
// only backend failures are returned.
func (c *Cart) read(ctx context.Context) ([]Item, error) {
	data, err := c.backend.Load(ctx, c.sessionID)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var stored []Item
	if err := json.Unmarshal(data, &stored); err != nil {
		c.logg.Warn(c.logg.WithSessionID(ctx, c.sessionID), fmt.Sprintf("cart data unreadable, starting empty: %v", err))
		return nil, nil
	}
	return sanitize(stored), nil
}

// refreshLocked replaces the local lines with the stored ones so writes made
// by other instances are not lost.
func (c *Cart) refreshLocked(ctx context.Context) error {
	if c.dirty {
		return nil
	}
	items, err := c.read(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	c.items = items
	return nil
}

// sanitize drops lines that could not have been written by a valid mutation
// and keeps only the first event's lines.
func sanitize(items []Item) []Item {
	var out []Item
	eventID := ""
	for _, item := range items {
		if item.Quantity <= 0 || item.TicketTypeID == "" || item.EventID == "" {
			continue
		}
		if eventID == "" {
			eventID = item.EventID
		}
		if item.EventID != eventID {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (c *Cart) SessionID() string {
	return c.sessionID
}

// Snapshot reloads the cart. When the backend is unreachable the last known
// lines are served.
func (c *Cart) Snapshot(ctx context.Context) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(ctx); err != nil {
		c.logg.Warn(c.logg.WithSessionID(ctx, c.sessionID), fmt.Sprintf("serving cached cart: %v", err))
	}
	return summarize(c.sessionID, c.items)
}

func (c *Cart) Items(ctx context.Context) []Item {
	return c.Snapshot(ctx).Items
}

func (c *Cart) AddItem(ctx context.Context, input AddItemInput) (AddResult, error) {
	input.EventID = strings.TrimSpace(input.EventID)
	input.TicketType.ID = strings.TrimSpace(input.TicketType.ID)
	if err := validate.Struct(input); err != nil {
		return AddResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart item")
	}
	if input.TicketType.Price.IsNegative() {
		return AddResult{}, pkgerrors.New(pkgerrors.CodeValidation, "ticket price cannot be negative")
	}

	c.mu.Lock()
	if err := c.refreshLocked(ctx); err != nil {
		result := AddResult{Snapshot: summarize(c.sessionID, c.items)}
		c.mu.Unlock()
		return result, err
	}
	var notice *Notice
	if len(c.items) > 0 && c.items[0].EventID != input.EventID {
		notice = &Notice{
			SessionID:       c.sessionID,
			PreviousEventID: c.items[0].EventID,
			EventID:         input.EventID,
			Message:         eventSwitchNotice,
		}
		c.items = nil
	}

	merged := false
	for i := range c.items {
		if c.items[i].TicketTypeID == input.TicketType.ID {
			c.items[i].Quantity += input.Quantity
			merged = true
			break
		}
	}
	if !merged {
		c.items = append(c.items, Item{
			EventID:        input.EventID,
			EventName:      input.EventName,
			TicketTypeID:   input.TicketType.ID,
			TicketTypeName: input.TicketType.Name,
			UnitPrice:      input.TicketType.Price,
			Quantity:       input.Quantity,
		})
	}
	err := c.persistLocked(ctx)
	result := AddResult{Snapshot: summarize(c.sessionID, c.items)}
	c.mu.Unlock()

	if notice != nil {
		result.Cleared = true
		result.Notice = notice.Message
		c.publish(*notice)
	}
	return result, err
}

func (c *Cart) UpdateQuantity(ctx context.Context, ticketTypeID string, quantity int) (Snapshot, error) {
	ticketTypeID = strings.TrimSpace(ticketTypeID)
	if ticketTypeID == "" {
		return Snapshot{}, pkgerrors.New(pkgerrors.CodeValidation, "ticket type id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(ctx); err != nil {
		return summarize(c.sessionID, c.items), err
	}
	if quantity <= 0 {
		c.items = removeLine(c.items, ticketTypeID)
	} else {
		for i := range c.items {
			if c.items[i].TicketTypeID == ticketTypeID {
				c.items[i].Quantity = quantity
				break
			}
		}
	}
	err := c.persistLocked(ctx)
	return summarize(c.sessionID, c.items), err
}

func (c *Cart) RemoveItem(ctx context.Context, ticketTypeID string) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.refreshLocked(ctx); err != nil {
		return summarize(c.sessionID, c.items), err
	}
	c.items = removeLine(c.items, strings.TrimSpace(ticketTypeID))
	err := c.persistLocked(ctx)
	return summarize(c.sessionID, c.items), err
}

// Clear empties the cart and erases the durable copy.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	if err := c.backend.Delete(ctx, c.sessionID); err != nil {
		c.dirty = true
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart storage")
	}
	c.dirty = false
	return nil
}

// Subscribe registers fn for event-switch notices and returns an unsubscribe func.
func (c *Cart) Subscribe(fn func(Notice)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Cart) publish(n Notice) {
	c.subMu.Lock()
	subs := make([]func(Notice), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subMu.Unlock()
	for _, fn := range subs {
		fn(n)
	}
}

func (c *Cart) persistLocked(ctx context.Context) error {
	err := c.writeLocked(ctx)
	c.dirty = err != nil
	return err
}

func (c *Cart) writeLocked(ctx context.Context) error {
	if len(c.items) == 0 {
		if err := c.backend.Delete(ctx, c.sessionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
		}
		return nil
	}
	data, err := json.Marshal(c.items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := c.backend.Save(ctx, c.sessionID, data); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}
	return nil
}

func removeLine(items []Item, ticketTypeID string) []Item {
	out := items[:0]
	for _, item := range items {
		if item.TicketTypeID != ticketTypeID {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
