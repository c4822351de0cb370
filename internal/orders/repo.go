package orders

import (
	"context"

	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *Order) (*Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByTicketGroup(ctx context.Context, ticketGroup string) (*Order, error)
	ListByEmail(ctx context.Context, email string, params pagination.Params) (pagination.Page[Order], error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *Order) (*Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByTicketGroup(ctx context.Context, ticketGroup string) (*Order, error) {
	var order Order
	if err := r.db.WithContext(ctx).Where("ticket_group = ?", ticketGroup).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByEmail(ctx context.Context, email string, params pagination.Params) (pagination.Page[Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[Order]{}, err
	}

	q := r.db.WithContext(ctx).Where("customer_email = ?", email)
	if cursor != nil {
		q = q.Where("(order_date < ?) OR (order_date = ? AND id < ?)", cursor.At, cursor.At, cursor.ID)
	}

	var rows []Order
	if err := q.Order("order_date DESC").Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return pagination.Page[Order]{}, err
	}
	return pagination.BuildPage(rows, params.Limit, orderCursor), nil
}

func orderCursor(o Order) pagination.Cursor {
	return pagination.Cursor{At: o.OrderDate, ID: o.ID}
}
