package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/platform/httpx"
	"github.com/atrium-admin/atrium/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware *Middleware
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, middleware *Middleware) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		middleware: middleware,
		validator:  validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.Authenticate)
		r.Get("/me", h.handleMe)
		r.Post("/logout", h.handleLogout)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}

	account, token, err := h.service.Login(r.Context(), LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		IP:         r.RemoteAddr,
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		h.logAuthFailure("login failed", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		Account: accounts.ToResponse(account),
		Token:   token,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}

	account, token, err := h.service.Register(r.Context(), RegisterInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logAuthFailure("register failed", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sessionResponse{
		Account: accounts.ToResponse(account),
		Token:   token,
	})
}

// handleMe returns the live account for the verified caller. Because the
// middleware re-resolves on every request, repeated calls with the same token
// reflect the current database state, not the claims snapshot.
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	account, err := h.service.Resolve(r.Context(), identity.AccountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"account": accounts.ToResponse(account)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	h.service.Logout(r.Context(), identity, r.RemoteAddr, r.UserAgent())
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// logAuthFailure logs unexpected failures only; credential errors are normal
// traffic and never carry user input into the log.
func (h *Handler) logAuthFailure(op string, err error) {
	if h.logger == nil {
		return
	}
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials),
		errors.Is(err, shared.ErrAccountDisabled),
		errors.Is(err, shared.ErrEmailExists),
		errors.Is(err, shared.ErrValidation):
		return
	}
	h.logger.Error(op, slog.Any("error", err))
}

func validationError(err error) error {
	var fields []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields = append(fields, fe.Field())
		}
	}
	if len(fields) == 0 {
		return shared.ErrValidation
	}
	return fmt.Errorf("%w: invalid fields: %s", shared.ErrValidation, strings.Join(fields, ", "))
}
