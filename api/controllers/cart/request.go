package cart

// addItemRequest names the ticket type to add. Name and price come from the
// live event, never from the client.
type addItemRequest struct {
	EventID      string `json:"eventId" validate:"required"`
	TicketTypeID string `json:"ticketTypeId" validate:"required"`
	Quantity     int    `json:"quantity" validate:"gt=0"`
}

// updateQuantityRequest sets a line's quantity; zero or less removes it.
type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}
