package ticketing

import (
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Event is the live snapshot of an event and its ticket inventory.
type Event struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	PosterURL   string       `json:"posterUrl"`
	Venue       string       `json:"venue,omitempty"`
	StartsAt    *time.Time   `json:"startsAt,omitempty"`
	TicketTypes []TicketType `json:"ticketTypes"`
}

// TicketType returns the ticket type with id, if the event lists it.
func (e *Event) TicketType(id string) (TicketType, bool) {
	if e == nil {
		return TicketType{}, false
	}
	for _, tt := range e.TicketTypes {
		if tt.ID == id {
			return tt, true
		}
	}
	return TicketType{}, false
}

type TicketType struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	Price             decimal.Decimal        `json:"price"`
	Status            enums.TicketTypeStatus `json:"status"`
	QuantityAvailable int                    `json:"quantityAvailable"`
}

// Customer identifies the payer of a mobile-money charge.
type Customer struct {
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number"`
}

type TicketLine struct {
	TicketID string `json:"ticketId"`
	Quantity int    `json:"quantity"`
}

// InitiatePaymentRequest starts an off-band charge for a set of ticket lines.
type InitiatePaymentRequest struct {
	EventID         string               `json:"eventId"`
	AmountDisplayed decimal.Decimal      `json:"amountDisplayed"`
	CouponCode      string               `json:"coupon_code"`
	Channel         enums.PaymentChannel `json:"channel"`
	Customer        Customer             `json:"customer"`
	Tickets         []TicketLine         `json:"tickets"`
}

type InitiatePaymentResponse struct {
	TicketGroup string `json:"ticketGroup"`
}

// ResolvedTicket is an issued ticket returned once a payment settles.
type ResolvedTicket struct {
	ID             string          `json:"id"`
	TicketTypeID   string          `json:"ticketTypeId,omitempty"`
	TicketTypeName string          `json:"ticketTypeName,omitempty"`
	Code           string          `json:"code,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Status         string          `json:"status,omitempty"`
}

// PaymentStatus is the polled outcome for a ticket group.
type PaymentStatus struct {
	Success   bool             `json:"success"`
	Tickets   []ResolvedTicket `json:"tickets"`
	Total     decimal.Decimal  `json:"total"`
	PosterURL string           `json:"posterUrl"`
	EventName string           `json:"eventName"`
	Message   string           `json:"message,omitempty"`
}

// Settled reports whether the payment is confirmed and tickets were issued.
func (s *PaymentStatus) Settled() bool {
	return s != nil && s.Success && len(s.Tickets) > 0
}

// Balances summarizes the money an event has taken.
type Balances struct {
	Currency     string          `json:"currency,omitempty"`
	GrossSales   decimal.Decimal `json:"grossSales"`
	Fees         decimal.Decimal `json:"fees"`
	NetBalance   decimal.Decimal `json:"netBalance"`
	Withdrawn    decimal.Decimal `json:"withdrawn"`
	Available    decimal.Decimal `json:"available"`
	TicketsSold  int             `json:"ticketsSold"`
	LastSettleAt *time.Time      `json:"lastSettledAt,omitempty"`
}

// SoldTicket is a ticket as listed on the admin panel.
type SoldTicket struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	TicketTypeName string     `json:"ticketTypeName"`
	HolderName     string     `json:"holderName,omitempty"`
	HolderEmail    string     `json:"holderEmail,omitempty"`
	Status         string     `json:"status"`
	CheckedInAt    *time.Time `json:"checkedInAt,omitempty"`
	PurchasedAt    *time.Time `json:"purchasedAt,omitempty"`
}

type Transaction struct {
	ID          string          `json:"id"`
	Reference   string          `json:"reference"`
	TicketGroup string          `json:"ticketGroup,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Channel     string          `json:"channel"`
	Status      string          `json:"status"`
	PhoneNumber string          `json:"phoneNumber,omitempty"`
	CreatedAt   *time.Time      `json:"createdAt,omitempty"`
}

type ComplementaryTicket struct {
	ID             string     `json:"id"`
	Code           string     `json:"code"`
	TicketTypeName string     `json:"ticketTypeName"`
	RecipientName  string     `json:"recipientName"`
	RecipientEmail string     `json:"recipientEmail,omitempty"`
	IssuedAt       *time.Time `json:"issuedAt,omitempty"`
}
