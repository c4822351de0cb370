package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	"github.com/angelmondragon/boxoffice-backend/internal/checkout"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// CheckoutSessions resolves the checkout orchestrator of a cart session.
type CheckoutSessions interface {
	Get(ctx context.Context, sessionID string) (*checkout.Orchestrator, error)
	Peek(ctx context.Context, sessionID string) (checkout.Snapshot, error)
}

type checkoutRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	CouponCode string `json:"couponCode"`
}

type channelRequest struct {
	Channel string `json:"channel" validate:"required"`
}

// CheckoutSubmit starts a payment for the session's cart. It answers 202
// once the payment awaits verification.
func CheckoutSubmit(sessions CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snap, err := orch.Submit(r.Context(), checkout.Form{
			Name:       validators.SanitizeString(req.Name, 120),
			Email:      req.Email,
			Phone:      req.Phone,
			CouponCode: validators.SanitizeString(req.CouponCode, 64),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, snap)
	}
}

func CheckoutGet(sessions CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := sessions.Peek(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snap)
	}
}

// CheckoutSelectChannel changes the payment channel while idle.
func CheckoutSelectChannel(sessions CheckoutSessions, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req channelRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		channel, err := enums.ParsePaymentChannel(req.Channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unsupported payment channel"))
			return
		}
		if err := orch.SelectChannel(channel); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orch.Snapshot())
	}
}
