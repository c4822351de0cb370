package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/boxoffice-backend/pkg/clock"
	"github.com/angelmondragon/boxoffice-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service creates and reads orders.
type Service interface {
	Create(ctx context.Context, input NewOrderInput) (*Order, error)
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByEmail(ctx context.Context, email string, params pagination.Params) (pagination.Page[Order], error)
}

type service struct {
	repo     Repository
	tx       txRunner
	clock    clock.Clock
	validate *validator.Validate
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, clk clock.Clock) (Service, error) {
	if repo == nil {
		return nil, errors.New("orders repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &service{repo: repo, tx: tx, clock: clk, validate: validator.New()}, nil
}

// Create persists a new order. A ticket group that already has an order
// resolves to that order instead of a second row.
func (s *service) Create(ctx context.Context, input NewOrderInput) (*Order, error) {
	input.TicketGroup = strings.TrimSpace(input.TicketGroup)
	input.CustomerEmail = normalizeEmail(input.CustomerEmail)
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order")
	}
	if input.Total.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total cannot be negative")
	}

	order := &Order{
		ID:             uuid.New(),
		CustomerName:   strings.TrimSpace(input.CustomerName),
		CustomerEmail:  input.CustomerEmail,
		CustomerPhone:  input.CustomerPhone,
		TicketGroup:    input.TicketGroup,
		EventID:        input.EventID,
		EventName:      input.EventName,
		PosterURL:      input.PosterURL,
		Tickets:        input.Tickets,
		Total:          input.Total,
		PaymentChannel: input.PaymentChannel,
		OrderDate:      s.clock.Now().UTC(),
	}
	if code := strings.TrimSpace(input.CouponCode); code != "" {
		order.CouponCode = &code
	}

	var result *Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByTicketGroup(ctx, order.TicketGroup)
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		result, err = repo.Create(ctx, order)
		return err
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			if existing, findErr := s.repo.FindByTicketGroup(ctx, order.TicketGroup); findErr == nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// ListByEmail pages through the customer's orders, newest first.
func (s *service) ListByEmail(ctx context.Context, email string, params pagination.Params) (pagination.Page[Order], error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return pagination.Page[Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "a valid email is required")
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return pagination.Page[Order]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	page, err := s.repo.ListByEmail(ctx, email, params)
	if err != nil {
		return pagination.Page[Order]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return page, nil
}

// normalizeEmail lower-cases emails so history lookups match however the
// customer typed the address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
