package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/platform/httpx"
	"github.com/atrium-admin/atrium/internal/shared"
)

const bearerPrefix = "Bearer "

// AccountResolver re-fetches the live account behind token claims.
type AccountResolver interface {
	Resolve(ctx context.Context, accountID string) (*accounts.Account, error)
}

// Middleware guards protected routes. Every request re-verifies the token
// cryptographically and re-checks the account's live status against the
// database; nothing is cached between requests.
type Middleware struct {
	tokens   *TokenService
	resolver AccountResolver
	logger   *slog.Logger
}

// NewMiddleware constructs the auth middleware.
func NewMiddleware(tokens *TokenService, resolver AccountResolver, logger *slog.Logger) *Middleware {
	return &Middleware{tokens: tokens, resolver: resolver, logger: logger}
}

// Authenticate extracts and verifies the bearer token, resolves the account
// and attaches the caller's identity to the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractBearer(r.Header.Get("Authorization"))
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		claims, err := m.tokens.Verify(token)
		if err != nil {
			httpx.RespondError(w, shared.ErrInvalidToken)
			return
		}
		account, err := m.resolver.Resolve(r.Context(), claims.Subject)
		if err != nil {
			m.respondResolveError(w, err)
			return
		}
		ctx := shared.ContextWithIdentity(r.Context(), shared.Identity{
			AccountID: account.ID,
			Email:     account.Email,
			Role:      string(account.Role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route on the resolved role. It must run after
// Authenticate.
func (m *Middleware) RequireRole(role accounts.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if identity.Role != string(role) {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) respondResolveError(w http.ResponseWriter, err error) {
	expected := errors.Is(err, shared.ErrUserNotFound) || errors.Is(err, shared.ErrAccountDisabled)
	if !expected && m.logger != nil {
		m.logger.Error("resolve account", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// extractBearer returns the token portion of an Authorization header.
func extractBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

var _ accounts.AuthMiddleware = (*Middleware)(nil)
