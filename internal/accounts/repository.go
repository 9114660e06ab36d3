package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atrium-admin/atrium/internal/activity"
	"github.com/atrium-admin/atrium/internal/platform/db"
	"github.com/atrium-admin/atrium/internal/shared"
)

// CreateParams are the fields required to insert a new account.
type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	Avatar       *string
}

// UpdateParams is a partial update; nil fields are left untouched.
type UpdateParams struct {
	Name     *string
	Role     *Role
	IsActive *bool
	Avatar   *string
}

// ListFilter narrows and paginates account listings.
type ListFilter struct {
	Role     *Role
	IsActive *bool
	Search   string
	Page     int
	Limit    int
}

// Repository defines persistence operations for accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context, filter ListFilter) ([]Account, int, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Account, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error

	CountTotal(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role Role) (int, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)

	// WithTx runs fn inside a transaction. The uniqueness check and insert
	// during registration must be indivisible (see TxRepository.Create).
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is the transaction-scoped subset used by registration.
type TxRepository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, params CreateParams) (*Account, error)
	RecordActivity(ctx context.Context, rec activity.Record) error
}

const accountColumns = `id, name, email, password_hash, role, is_active, avatar, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.Avatar, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func findByEmail(ctx context.Context, q rowQuerier, email string) (*Account, error) {
	return scanAccount(q.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, NormalizeEmail(email)))
}

// FindByEmail fetches an account by its normalized email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return findByEmail(ctx, r.pool, email)
}

// FindByID fetches an account by id.
func (r *PGRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	return scanAccount(r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

// List returns a filtered, paginated page of accounts plus the total count.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Account, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Role != nil {
		where = append(where, "role = "+arg(*filter.Role))
	}
	if filter.IsActive != nil {
		where = append(where, "is_active = "+arg(*filter.IsActive))
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		where = append(where, "(name ILIKE "+p+" OR email ILIKE "+p+")")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.Limit, total)
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		accountColumns, cond, arg(page.Limit), arg(page.Offset()))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive, &a.Avatar, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

// Update applies a partial update and returns the new row.
func (r *PGRepository) Update(ctx context.Context, id string, params UpdateParams) (*Account, error) {
	set := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if params.Name != nil {
		set = append(set, "name = "+arg(*params.Name))
	}
	if params.Role != nil {
		set = append(set, "role = "+arg(*params.Role))
	}
	if params.IsActive != nil {
		set = append(set, "is_active = "+arg(*params.IsActive))
	}
	if params.Avatar != nil {
		set = append(set, "avatar = "+arg(*params.Avatar))
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}
	set = append(set, "updated_at = NOW()")
	query := fmt.Sprintf(`UPDATE accounts SET %s WHERE id = %s RETURNING %s`,
		strings.Join(set, ", "), arg(id), accountColumns)
	return scanAccount(r.pool.QueryRow(ctx, query, args...))
}

// UpdatePassword replaces the stored hash.
func (r *PGRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the account. Audit records keep their account_id value.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountTotal returns the total number of accounts.
func (r *PGRepository) CountTotal(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM accounts`)
}

// CountActive returns the number of active accounts.
func (r *PGRepository) CountActive(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM accounts WHERE is_active`)
}

// CountByRole returns the number of accounts holding the given role.
func (r *PGRepository) CountByRole(ctx context.Context, role Role) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM accounts WHERE role = $1`, role)
}

// CountCreatedSince returns the number of accounts created at or after since.
func (r *PGRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM accounts WHERE created_at >= $1`, since)
}

func (r *PGRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&n)
	return n, err
}

// WithTx runs fn against a transaction-scoped repository.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return findByEmail(ctx, r.tx, email)
}

// Create inserts a new account. A unique violation on the email index from a
// concurrent registration maps to ErrEmailExists so exactly one of the racing
// transactions succeeds.
func (r *pgTxRepository) Create(ctx context.Context, params CreateParams) (*Account, error) {
	row := r.tx.QueryRow(ctx, `
INSERT INTO accounts (id, name, email, password_hash, role, is_active, avatar, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
RETURNING `+accountColumns,
		uuid.NewString(), params.Name, NormalizeEmail(params.Email), params.PasswordHash,
		params.Role, params.IsActive, params.Avatar)
	account, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrEmailExists
		}
		return nil, err
	}
	return account, nil
}

func (r *pgTxRepository) RecordActivity(ctx context.Context, rec activity.Record) error {
	return activity.RecordInTx(ctx, r.tx, rec)
}

var _ Repository = (*PGRepository)(nil)
