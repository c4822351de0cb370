package cart

import (
	"github.com/shopspring/decimal"
)

// Item is one ticket-type line in a shopper's cart.
type Item struct {
	EventID        string          `json:"eventId"`
	EventName      string          `json:"eventName"`
	TicketTypeID   string          `json:"ticketTypeId"`
	TicketTypeName string          `json:"ticketTypeName"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	Quantity       int             `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Snapshot is a point-in-time copy of the cart with derived totals.
type Snapshot struct {
	SessionID string          `json:"sessionId"`
	EventID   string          `json:"eventId,omitempty"`
	EventName string          `json:"eventName,omitempty"`
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// IsEmpty reports whether the snapshot holds no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// TicketTypeRef identifies the ticket type being added.
type TicketTypeRef struct {
	ID    string          `json:"id" validate:"required"`
	Name  string          `json:"name" validate:"required"`
	Price decimal.Decimal `json:"price"`
}

// AddItemInput describes an add-to-cart action.
type AddItemInput struct {
	EventID    string        `json:"eventId" validate:"required"`
	EventName  string        `json:"eventName" validate:"required"`
	TicketType TicketTypeRef `json:"ticketType"`
	Quantity   int           `json:"quantity" validate:"gt=0"`
}

// AddResult is returned from AddItem. Cleared is true when the cart held
// tickets for another event and was emptied first.
type AddResult struct {
	Snapshot
	Cleared bool   `json:"cleared"`
	Notice  string `json:"notice,omitempty"`
}

// Notice is delivered to subscribers when adding an item discards the
// previous event's tickets.
type Notice struct {
	SessionID       string `json:"sessionId"`
	PreviousEventID string `json:"previousEventId"`
	EventID         string `json:"eventId"`
	Message         string `json:"message"`
}

func summarize(sessionID string, items []Item) Snapshot {
	out := Snapshot{
		SessionID: sessionID,
		Items:     make([]Item, len(items)),
		Total:     decimal.Zero,
	}
	copy(out.Items, items)
	for _, item := range items {
		out.Total = out.Total.Add(item.LineTotal())
		out.ItemCount += item.Quantity
	}
	if len(items) > 0 {
		out.EventID = items[0].EventID
		out.EventName = items[0].EventName
	}
	return out
}
