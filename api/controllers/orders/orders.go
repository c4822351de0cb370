package orders

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	internalorders "github.com/angelmondragon/boxoffice-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/boxoffice-backend/pkg/auth"
	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
)

// Reader is the read side of the order service.
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (*internalorders.Order, error)
	ListByEmail(ctx context.Context, email string, params pagination.Params) (pagination.Page[internalorders.Order], error)
}

// detailResponse is the confirmation page payload. HistoryToken unlocks the
// order list for the customer's email.
type detailResponse struct {
	*internalorders.Order
	HistoryToken          string     `json:"historyToken,omitempty"`
	HistoryTokenExpiresAt *time.Time `json:"historyTokenExpiresAt,omitempty"`
}

// Detail returns the confirmation data for one order.
func Detail(svc Reader, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "orderID")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id"))
			return
		}

		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := detailResponse{Order: order}
		token, expires, err := pkgAuth.MintOrderAccessToken(jwtCfg, time.Now(), order.CustomerEmail)
		if err != nil {
			if logg != nil {
				logg.Warn(r.Context(), "order history token not issued: "+err.Error())
			}
		} else {
			resp.HistoryToken, resp.HistoryTokenExpiresAt = token, &expires
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListByEmail pages through the orders of the email proven by the bearer
// history token, newest first. Ticket codes are left out of the list.
func ListByEmail(svc Reader, jwtCfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		token := middleware.BearerToken(r)
		if token == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "order history token is required"))
			return
		}
		email, err := pkgAuth.ParseOrderAccessToken(jwtCfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid order history token"))
			return
		}
		if requested := pkgAuth.NormalizeEmail(r.URL.Query().Get("email")); requested != "" && requested != email {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "token does not cover this email"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListByEmail(r.Context(), email, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, withoutTicketCodes(page))
	}
}

func withoutTicketCodes(page pagination.Page[internalorders.Order]) pagination.Page[internalorders.Order] {
	items := make([]internalorders.Order, len(page.Items))
	for i, order := range page.Items {
		tickets := make([]internalorders.Ticket, len(order.Tickets))
		for j, ticket := range order.Tickets {
			ticket.Code = ""
			tickets[j] = ticket
		}
		order.Tickets = tickets
		items[i] = order
	}
	page.Items = items
	return page
}
