package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/internal/panel"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// PanelManager owns the mounted admin panels.
type PanelManager interface {
	Mount(ctx context.Context, key panel.Key, companyID string) (*panel.Synchronizer, error)
	Get(key panel.Key) (*panel.Synchronizer, bool)
	Unmount(key panel.Key) bool
}

func panelKey(r *http.Request) (panel.Key, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return panel.Key{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin session required")
	}
	eventID := strings.TrimSpace(chi.URLParam(r, "eventID"))
	if eventID == "" {
		return panel.Key{}, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	return panel.Key{UserID: userID, EventID: eventID}, nil
}

// PanelMount mounts the panel for the event with the caller's company and
// starts syncing all four resources.
func PanelMount(panels PanelManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := panelKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		s, err := panels.Mount(r.Context(), key, middleware.CompanyIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, s.Snapshot())
	}
}

func PanelGet(panels PanelManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := panelKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		s, ok := panels.Get(key)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "panel is not mounted"))
			return
		}
		responses.WriteSuccess(w, s.Snapshot())
	}
}

func PanelRefreshTickets(panels PanelManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := panelKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		s, ok := panels.Get(key)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "panel is not mounted"))
			return
		}
		if err := s.RefreshTickets(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, s.Snapshot())
	}
}

func PanelUnmount(panels PanelManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := panelKey(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !panels.Unmount(key) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "panel is not mounted"))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
