package checkout

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
)

const (
	ReasonNotFound     = "not_found"
	ReasonNotActive    = "not_active"
	ReasonInsufficient = "insufficient_availability"
)

// InvalidLine is a cart line the live inventory can no longer satisfy.
type InvalidLine struct {
	TicketTypeID   string `json:"ticketTypeId"`
	TicketTypeName string `json:"ticketTypeName"`
	Reason         string `json:"reason"`
	Requested      int    `json:"requested"`
	Available      int    `json:"available"`
}

// checkInventory compares each cart line against the event snapshot.
func checkInventory(items []cart.Item, event *ticketing.Event) []InvalidLine {
	var invalid []InvalidLine
	for _, item := range items {
		line := InvalidLine{
			TicketTypeID:   item.TicketTypeID,
			TicketTypeName: item.TicketTypeName,
			Requested:      item.Quantity,
		}
		tt, ok := event.TicketType(item.TicketTypeID)
		switch {
		case !ok:
			line.Reason = ReasonNotFound
		case !tt.Status.IsPurchasable():
			line.Reason = ReasonNotActive
			line.Available = tt.QuantityAvailable
		case tt.QuantityAvailable < item.Quantity:
			line.Reason = ReasonInsufficient
			line.Available = tt.QuantityAvailable
		default:
			continue
		}
		if tt.Name != "" {
			line.TicketTypeName = tt.Name
		}
		invalid = append(invalid, line)
	}
	return invalid
}

func invalidLinesMessage(lines []InvalidLine) string {
	names := make([]string, 0, len(lines))
	for _, l := range lines {
		name := l.TicketTypeName
		if name == "" {
			name = l.TicketTypeID
		}
		names = append(names, name)
	}
	return fmt.Sprintf("some tickets in your cart are no longer available: %s", strings.Join(names, ", "))
}
