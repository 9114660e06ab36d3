package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/shared"
)

func testAccount() *accounts.Account {
	return &accounts.Account{
		ID:    "acc-1",
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  accounts.RoleUser,
	}
}

func newTestTokenService(t *testing.T, cfg TokenConfig) *TokenService {
	t.Helper()
	if len(cfg.Secret) == 0 {
		cfg.Secret = []byte("test-secret")
	}
	svc, err := NewTokenService(cfg)
	require.NoError(t, err)
	return svc
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	svc := newTestTokenService(t, TokenConfig{TTL: time.Hour})

	token, err := svc.Issue(testAccount(), false)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestRememberMeExtendsLifetime(t *testing.T) {
	svc := newTestTokenService(t, TokenConfig{TTL: time.Hour, TTLRemember: 30 * 24 * time.Hour})

	short, err := svc.Issue(testAccount(), false)
	require.NoError(t, err)
	long, err := svc.Issue(testAccount(), true)
	require.NoError(t, err)

	shortClaims, err := svc.Verify(short)
	require.NoError(t, err)
	longClaims, err := svc.Verify(long)
	require.NoError(t, err)

	assert.True(t, longClaims.ExpiresAt.After(shortClaims.ExpiresAt.Time))
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService(t, TokenConfig{})

	now := time.Now().Add(-2 * time.Hour)
	claims := Claims{
		Email: "ada@example.com",
		Role:  "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(expired)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := newTestTokenService(t, TokenConfig{Secret: []byte("issuer-secret")})
	verifier := newTestTokenService(t, TokenConfig{Secret: []byte("other-secret")})

	token, err := issuer.Issue(testAccount(), false)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	svc := newTestTokenService(t, TokenConfig{})

	token, err := svc.Issue(testAccount(), false)
	require.NoError(t, err)

	tampered := token[:len(token)-2] + "xx"
	_, err = svc.Verify(tampered)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	svc := newTestTokenService(t, TokenConfig{})

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	svc := newTestTokenService(t, TokenConfig{})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(t, TokenConfig{})
	_, err := svc.Verify("definitely.not.a.jwt")
	assert.ErrorIs(t, err, shared.ErrInvalidToken)
}
