package accounts

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atrium-admin/atrium/internal/platform/httpx"
	"github.com/atrium-admin/atrium/internal/shared"
)

// AuthMiddleware is the subset of the auth middleware the account routes
// depend on.
type AuthMiddleware interface {
	Authenticate(next http.Handler) http.Handler
	RequireRole(role Role) func(http.Handler) http.Handler
}

// Handler wires HTTP endpoints for user administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auth      AuthMiddleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, auth AuthMiddleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		auth:      auth,
		validator: validator.New(),
	}
}

// MountRoutes registers user management routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.auth.Authenticate)

	admin := h.auth.RequireRole(RoleAdmin)
	r.With(admin).Get("/", h.list)
	r.With(admin).Post("/", h.create)
	r.Get("/{id}", h.get)
	r.With(admin).Put("/{id}", h.update)
	r.With(admin).Delete("/{id}", h.delete)
	r.Put("/{id}/password", h.changePassword)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Page: 1, Limit: 10}
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filter.Limit = n
		}
	}
	if v := q.Get("role"); v == string(RoleAdmin) || v == string(RoleUser) {
		role := Role(v)
		filter.Role = &role
	}
	if v := q.Get("status"); v == "active" || v == "inactive" {
		active := v == "active"
		filter.IsActive = &active
	}
	filter.Search = strings.TrimSpace(q.Get("search"))

	result, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logError("list users", err)
		httpx.RespondError(w, err)
		return
	}
	users := make([]AccountResponse, len(result))
	for i := range result {
		users[i] = ToResponse(&result[i])
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity, _ := shared.IdentityFromContext(r.Context())
	if identity.Role != string(RoleAdmin) && identity.AccountID != id {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToResponse(account))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	account, err := h.service.Create(r.Context(), CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     Role(req.Role),
		IsActive: req.Status == "active",
		Avatar:   req.Avatar,
	}, identity, requestMeta(r))
	if err != nil {
		h.logError("create user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ToResponse(account))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	params := UpdateParams{Name: req.Name, Avatar: req.Avatar}
	if req.Role != nil {
		role := Role(*req.Role)
		params.Role = &role
	}
	if req.Status != nil {
		active := *req.Status == "active"
		params.IsActive = &active
	}
	identity, _ := shared.IdentityFromContext(r.Context())
	account, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), params, identity, requestMeta(r))
	if err != nil {
		h.logError("update user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToResponse(account))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	identity, _ := shared.IdentityFromContext(r.Context())
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), identity, requestMeta(r)); err != nil {
		h.logError("delete user", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	identity, _ := shared.IdentityFromContext(r.Context())
	if identity.AccountID != id {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req ChangePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed JSON body", shared.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, validationError(err))
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, req.OldPassword, req.NewPassword, requestMeta(r)); err != nil {
		h.logError("change password", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// logError logs unexpected failures only; routine domain outcomes such as a
// duplicate email or a refused self-delete are normal traffic.
func (h *Handler) logError(op string, err error) {
	if h.logger == nil {
		return
	}
	switch {
	case errors.Is(err, shared.ErrNotFound),
		errors.Is(err, shared.ErrEmailExists),
		errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrPasswordIncorrect):
		return
	}
	h.logger.Error(op, slog.Any("error", err))
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{IP: r.RemoteAddr, UserAgent: r.UserAgent()}
}

// validationError condenses validator output into the shared validation error
// without echoing submitted values.
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
