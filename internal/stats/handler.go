package stats

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/platform/httpx"
)

// Handler serves the admin statistics endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
	auth    accounts.AuthMiddleware
}

// NewHandler constructs the handler.
func NewHandler(logger *slog.Logger, service *Service, auth accounts.AuthMiddleware) *Handler {
	return &Handler{logger: logger, service: service, auth: auth}
}

// MountRoutes attaches the stats routes. Everything here is admin-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.auth.Authenticate)
	r.Use(h.auth.RequireRole(accounts.RoleAdmin))
	r.Get("/stats", h.handleOverview)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context())
	if err != nil {
		h.logger.Error("stats overview failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}
