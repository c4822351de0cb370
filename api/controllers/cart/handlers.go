package cart

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	internalcart "github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/internal/ticketing"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// Sessions resolves the cart of a shopper session. Peek must not register
// the session.
type Sessions interface {
	Get(ctx context.Context, sessionID string) (*internalcart.Cart, error)
	Peek(ctx context.Context, sessionID string) (internalcart.Snapshot, error)
}

// EventReader resolves ticket type names and prices.
type EventReader interface {
	GetEvent(ctx context.Context, eventID string) (*ticketing.Event, error)
}

func sessionCart(r *http.Request, sessions Sessions) (*internalcart.Cart, error) {
	return sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
}

func Get(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := sessions.Peek(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// AddItem adds a ticket type from the live event. Adding from a different
// event empties the cart first and the response carries the notice.
func AddItem(sessions Sessions, events EventReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := sessionCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := events.GetEvent(r.Context(), strings.TrimSpace(req.EventID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tt, ok := event.TicketType(strings.TrimSpace(req.TicketTypeID))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "ticket type not found for event"))
			return
		}
		if !tt.Status.IsPurchasable() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "ticket type is not on sale").
				WithDetails(map[string]any{"ticketTypeId": tt.ID, "status": tt.Status}))
			return
		}

		result, err := c.AddItem(r.Context(), internalcart.AddItemInput{
			EventID:    event.ID,
			EventName:  event.Name,
			TicketType: internalcart.TicketTypeRef{ID: tt.ID, Name: tt.Name, Price: tt.Price},
			Quantity:   req.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func UpdateQuantity(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := sessionCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := c.UpdateQuantity(r.Context(), chi.URLParam(r, "ticketTypeID"), req.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

func RemoveItem(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := sessionCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snap, err := c.RemoveItem(r.Context(), chi.URLParam(r, "ticketTypeID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

func Clear(sessions Sessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := sessionCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := c.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
