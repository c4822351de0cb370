package orders

import (
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ticket is an issued ticket captured on the order at settlement.
type Ticket struct {
	ID             string          `json:"id"`
	TicketTypeID   string          `json:"ticketTypeId,omitempty"`
	TicketTypeName string          `json:"ticketTypeName,omitempty"`
	Code           string          `json:"code,omitempty"`
	Price          decimal.Decimal `json:"price"`
	Status         string          `json:"status,omitempty"`
}

// Order is the immutable record of a settled payment.
type Order struct {
	ID             uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerName   string               `gorm:"not null" json:"customerName"`
	CustomerEmail  string               `gorm:"not null;index:idx_orders_customer_email" json:"customerEmail"`
	CustomerPhone  string               `gorm:"not null;default:''" json:"customerPhone,omitempty"`
	TicketGroup    string               `gorm:"not null;uniqueIndex:uq_orders_ticket_group" json:"ticketGroup"`
	EventID        string               `gorm:"not null;default:''" json:"eventId,omitempty"`
	EventName      string               `gorm:"not null;default:''" json:"eventName"`
	PosterURL      string               `gorm:"not null;default:''" json:"posterUrl"`
	Tickets        []Ticket             `gorm:"type:jsonb;serializer:json;not null" json:"tickets"`
	Total          decimal.Decimal      `gorm:"type:numeric(14,2);not null" json:"total"`
	PaymentChannel enums.PaymentChannel `gorm:"not null;default:'mpesa'" json:"paymentChannel"`
	CouponCode     *string              `json:"couponCode,omitempty"`
	OrderDate      time.Time            `gorm:"not null" json:"orderDate"`
	CreatedAt      time.Time            `json:"-"`
}

func (Order) TableName() string {
	return "orders"
}

// NewOrderInput is what checkout knows when a payment settles.
type NewOrderInput struct {
	CustomerName   string `validate:"required"`
	CustomerEmail  string `validate:"required,email"`
	CustomerPhone  string `validate:"omitempty,numeric"`
	TicketGroup    string `validate:"required"`
	EventID        string
	EventName      string
	PosterURL      string
	Tickets        []Ticket             `validate:"required,min=1"`
	Total          decimal.Decimal      `validate:"-"`
	PaymentChannel enums.PaymentChannel `validate:"required"`
	CouponCode     string
}
