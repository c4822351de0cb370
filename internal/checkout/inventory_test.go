package checkout

import (
	"testing"

	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInventory(t *testing.T) {
	event := &ticketing.Event{
		ID: "e1",
		TicketTypes: []ticketing.TicketType{
			{ID: "vip", Name: "VIP", Status: enums.TicketTypeStatusActive, QuantityAvailable: 10},
			{ID: "early", Name: "Early Bird", Status: enums.TicketTypeStatusInactive, QuantityAvailable: 50},
			{ID: "reg", Name: "Regular", Status: enums.TicketTypeStatusActive, QuantityAvailable: 2},
		},
	}
	items := []cart.Item{
		{TicketTypeID: "vip", TicketTypeName: "VIP", Quantity: 10},
		{TicketTypeID: "early", TicketTypeName: "Early", Quantity: 1},
		{TicketTypeID: "reg", TicketTypeName: "Regular", Quantity: 3},
		{TicketTypeID: "gone", TicketTypeName: "Retired", Quantity: 1},
	}

	invalid := checkInventory(items, event)
	require.Len(t, invalid, 3)

	assert.Equal(t, InvalidLine{TicketTypeID: "early", TicketTypeName: "Early Bird", Reason: ReasonNotActive, Requested: 1, Available: 50}, invalid[0])
	assert.Equal(t, InvalidLine{TicketTypeID: "reg", TicketTypeName: "Regular", Reason: ReasonInsufficient, Requested: 3, Available: 2}, invalid[1])
	assert.Equal(t, InvalidLine{TicketTypeID: "gone", TicketTypeName: "Retired", Reason: ReasonNotFound, Requested: 1}, invalid[2])

	assert.Equal(t, "some tickets in your cart are no longer available: Early Bird, Regular, Retired", invalidLinesMessage(invalid))
}

func TestCheckInventoryAllValid(t *testing.T) {
	event := &ticketing.Event{TicketTypes: []ticketing.TicketType{{ID: "vip", Status: enums.TicketTypeStatusActive, QuantityAvailable: 1}}}
	assert.Empty(t, checkInventory([]cart.Item{{TicketTypeID: "vip", Quantity: 1}}, event))
}
