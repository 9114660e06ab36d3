package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/atrium-admin/atrium/internal/accounts"
	"github.com/atrium-admin/atrium/internal/activity"
	"github.com/atrium-admin/atrium/internal/password"
	"github.com/atrium-admin/atrium/internal/shared"
)

// ActivityRecorder writes audit records for authentication events.
type ActivityRecorder interface {
	Record(ctx context.Context, rec activity.Record) error
}

// LoginMetrics counts login outcomes; satisfied by observability.Metrics.
type LoginMetrics interface {
	RecordLogin(outcome string)
}

// LoginInput carries the credentials and request context of a login attempt.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	IP         string
	UserAgent  string
}

// RegisterInput carries the fields of a self-service registration.
type RegisterInput struct {
	Name      string
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// Service orchestrates credential verification, token issuance and audit
// logging.
type Service struct {
	repo       accounts.Repository
	tokens     *TokenService
	hasher     *password.Hasher
	activities ActivityRecorder
	metrics    LoginMetrics
	logger     *slog.Logger
}

// NewService constructs a Service.
func NewService(repo accounts.Repository, tokens *TokenService, hasher *password.Hasher, activities ActivityRecorder, metrics LoginMetrics, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		hasher:     hasher,
		activities: activities,
		metrics:    metrics,
		logger:     logger,
	}
}

// Login validates credentials and issues a bearer token. An unknown email and
// a wrong password fail with the identical ErrInvalidCredentials value so the
// two cases cannot be told apart. A disabled account fails before the
// password is checked.
func (s *Service) Login(ctx context.Context, input LoginInput) (*accounts.Account, string, error) {
	account, err := s.repo.FindByEmail(ctx, accounts.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.countLogin("invalid_credentials")
			return nil, "", shared.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !account.IsActive {
		s.countLogin("disabled")
		return nil, "", shared.ErrAccountDisabled
	}
	if !s.hasher.Verify(input.Password, account.PasswordHash) {
		s.countLogin("invalid_credentials")
		return nil, "", shared.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account, input.RememberMe)
	if err != nil {
		return nil, "", err
	}
	s.countLogin("success")
	s.record(ctx, activity.Record{
		Action:      activity.ActionLogin,
		AccountID:   account.ID,
		Description: "user logged in",
		IP:          input.IP,
		UserAgent:   input.UserAgent,
	})
	return account, token, nil
}

// Register creates an account with the default role inside one transaction:
// uniqueness check, insert and audit record commit or roll back together. A
// concurrent registration racing past the check loses on the unique index and
// surfaces as ErrEmailExists.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*accounts.Account, string, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, "", err
	}

	var created *accounts.Account
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx accounts.TxRepository) error {
		email := accounts.NormalizeEmail(input.Email)
		if _, err := tx.FindByEmail(ctx, email); err == nil {
			return shared.ErrEmailExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		account, err := tx.Create(ctx, accounts.CreateParams{
			Name:         input.Name,
			Email:        email,
			PasswordHash: hash,
			Role:         accounts.RoleUser,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		created = account
		return tx.RecordActivity(ctx, activity.Record{
			Action:      activity.ActionRegister,
			AccountID:   account.ID,
			Description: "new user registered",
			IP:          input.IP,
			UserAgent:   input.UserAgent,
		})
	})
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(created, false)
	if err != nil {
		return nil, "", err
	}
	return created, token, nil
}

// Logout records the event. The token itself stays structurally valid until
// expiry; the client discards its session.
func (s *Service) Logout(ctx context.Context, identity shared.Identity, ip, userAgent string) {
	s.record(ctx, activity.Record{
		Action:      activity.ActionLogout,
		AccountID:   identity.AccountID,
		Description: "user logged out",
		IP:          ip,
		UserAgent:   userAgent,
	})
}

// Resolve re-fetches the live account referenced by token claims. The
// middleware calls this on every protected request so disabling or deleting
// an account takes effect immediately.
func (s *Service) Resolve(ctx context.Context, accountID string) (*accounts.Account, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUserNotFound
		}
		return nil, err
	}
	if !account.IsActive {
		return nil, shared.ErrAccountDisabled
	}
	return account, nil
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordLogin(outcome)
	}
}

func (s *Service) record(ctx context.Context, rec activity.Record) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Record(ctx, rec); err != nil && s.logger != nil {
		s.logger.Warn("record activity", slog.String("action", rec.Action), slog.Any("error", err))
	}
}
