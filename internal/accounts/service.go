package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atrium-admin/atrium/internal/activity"
	"github.com/atrium-admin/atrium/internal/password"
	"github.com/atrium-admin/atrium/internal/shared"
)

// ActivityRecorder writes audit records outside a transaction.
type ActivityRecorder interface {
	Record(ctx context.Context, rec activity.Record) error
}

// RequestMeta carries the caller context attached to audit records.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// Service handles account management business rules.
type Service struct {
	repo       Repository
	hasher     *password.Hasher
	activities ActivityRecorder
	logger     *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, hasher *password.Hasher, activities ActivityRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, activities: activities, logger: logger}
}

// List returns a page of accounts matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Account, shared.Pagination, error) {
	result, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filter.Page, filter.Limit, total), nil
}

// Get fetches a single account.
func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateInput describes a new account requested by an administrator.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
	IsActive bool
	Avatar   *string
}

// Create inserts a new account on behalf of an administrator. The uniqueness
// check, insert and audit record share one transaction.
func (s *Service) Create(ctx context.Context, input CreateInput, actor shared.Identity, meta RequestMeta) (*Account, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	params := CreateParams{
		Name:         input.Name,
		Email:        NormalizeEmail(input.Email),
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     input.IsActive,
		Avatar:       input.Avatar,
	}

	var created *Account
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.FindByEmail(ctx, params.Email); err == nil {
			return shared.ErrEmailExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		account, err := tx.Create(ctx, params)
		if err != nil {
			return err
		}
		created = account
		return tx.RecordActivity(ctx, activity.Record{
			Action:      activity.ActionCreateUser,
			AccountID:   actor.AccountID,
			Description: "administrator created a user",
			Metadata:    map[string]any{"targetUserId": account.ID},
			IP:          meta.IP,
			UserAgent:   meta.UserAgent,
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update applies a partial update to an account.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams, actor shared.Identity, meta RequestMeta) (*Account, error) {
	account, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, err
	}
	s.record(ctx, activity.Record{
		Action:      activity.ActionUpdateUser,
		AccountID:   actor.AccountID,
		Description: "administrator updated a user",
		Metadata:    map[string]any{"targetUserId": id},
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
	})
	return account, nil
}

// Delete removes an account. Administrators cannot delete themselves.
func (s *Service) Delete(ctx context.Context, id string, actor shared.Identity, meta RequestMeta) error {
	if id == actor.AccountID {
		return fmt.Errorf("%w: cannot delete own account", shared.ErrValidation)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, activity.Record{
		Action:      activity.ActionDeleteUser,
		AccountID:   actor.AccountID,
		Description: "administrator deleted a user",
		Metadata:    map[string]any{"targetUserId": id},
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
	})
	return nil
}

// ChangePassword rotates a user's own password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword string, meta RequestMeta) error {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, account.PasswordHash) {
		return shared.ErrPasswordIncorrect
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	s.record(ctx, activity.Record{
		Action:      activity.ActionChangePassword,
		AccountID:   id,
		Description: "user changed password",
		IP:          meta.IP,
		UserAgent:   meta.UserAgent,
	})
	return nil
}

// record writes an audit entry; failures are logged, never fatal to the
// request that triggered them.
func (s *Service) record(ctx context.Context, rec activity.Record) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Record(ctx, rec); err != nil && s.logger != nil {
		s.logger.Warn("record activity", slog.String("action", rec.Action), slog.Any("error", err))
	}
}
