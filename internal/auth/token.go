package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/shared"
)

// Claims are the identity assertions embedded in an access token. The
// account id travels in the registered subject claim.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenConfig holds the signing secret and the two allowed lifetimes.
type TokenConfig struct {
	Secret      []byte
	TTL         time.Duration
	TTLRemember time.Duration
}

// TokenService issues and verifies stateless HS256 bearer tokens. Validity is
// purely signature plus expiry; the service never touches the database.
// The secret is read-only after construction, so rotating it means
// restarting the process and invalidating all outstanding tokens.
type TokenService struct {
	config TokenConfig
}

// NewTokenService validates the configuration and constructs the service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("auth: signing secret required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.TTLRemember <= 0 {
		cfg.TTLRemember = 30 * 24 * time.Hour
	}
	return &TokenService{config: cfg}, nil
}

// Issue signs a token for the account. The extended lifetime is selected by
// the caller's remember-me flag.
func (s *TokenService) Issue(account *accounts.Account, remember bool) (string, error) {
	ttl := s.config.TTL
	if remember {
		ttl = s.config.TTLRemember
	}
	now := time.Now()
	claims := Claims{
		Email: account.Email,
		Role:  string(account.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims. Any
// structural or cryptographic failure collapses into ErrInvalidToken.
func (s *TokenService) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, shared.ErrInvalidToken
	}
	return claims, nil
}
