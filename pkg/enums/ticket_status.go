package enums

// TicketTypeStatus is the sale status the remote API reports for a ticket type.
type TicketTypeStatus string

const (
	TicketTypeStatusActive   TicketTypeStatus = "active"
	TicketTypeStatusInactive TicketTypeStatus = "inactive"
	TicketTypeStatusSoldOut  TicketTypeStatus = "sold_out"
)

// IsPurchasable reports whether new purchases may reference the ticket type.
func (s TicketTypeStatus) IsPurchasable() bool {
	return s == TicketTypeStatusActive
}
