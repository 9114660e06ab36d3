package accounts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atrium-admin/atrium/internal/activity"
	"github.com/atrium-admin/atrium/internal/password"
	"github.com/atrium-admin/atrium/internal/shared"
)

type memoryRepository struct {
	mu       sync.Mutex
	byID     map[string]*Account
	byEmail  map[string]*Account
	nextID   int
	recorded []activity.Record

	deleteErr error
	updateErr error
	listErr   error
}

var _ Repository = (*memoryRepository)(nil)

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]*Account),
		nextID:  1,
	}
}

func (m *memoryRepository) seed(a Account) *Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = fmt.Sprintf("acc-%d", m.nextID)
		m.nextID++
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
	}
	stored := a
	m.byID[stored.ID] = &stored
	m.byEmail[NormalizeEmail(stored.Email)] = &stored
	return &stored
}

func (m *memoryRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupEmail(email)
}

func (m *memoryRepository) lookupEmail(email string) (*Account, error) {
	a, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memoryRepository) FindByID(ctx context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (m *memoryRepository) List(ctx context.Context, filter ListFilter) ([]Account, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var matched []Account
	for _, a := range m.byID {
		if filter.Role != nil && a.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && a.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(a.Name), needle) &&
				!strings.Contains(a.Email, needle) {
				continue
			}
		}
		matched = append(matched, *a)
	}
	total := len(matched)
	page := shared.NewPagination(filter.Page, filter.Limit, total)
	start := page.Offset()
	if start > total {
		start = total
	}
	end := start + page.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *memoryRepository) Update(ctx context.Context, id string, params UpdateParams) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if params.Name != nil {
		a.Name = *params.Name
	}
	if params.Role != nil {
		a.Role = *params.Role
	}
	if params.IsActive != nil {
		a.IsActive = *params.IsActive
	}
	if params.Avatar != nil {
		a.Avatar = params.Avatar
	}
	a.UpdatedAt = time.Now()
	copied := *a
	return &copied, nil
}

func (m *memoryRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	a, ok := m.byID[id]
	if !ok {
		return shared.ErrNotFound
	}
	delete(m.byID, id)
	delete(m.byEmail, NormalizeEmail(a.Email))
	return nil
}

func (m *memoryRepository) CountTotal(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memoryRepository) CountActive(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.byID {
		if a.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) CountByRole(ctx context.Context, role Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.byID {
		if a.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.byID {
		if !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, &memoryTxRepository{repo: m})
}

type memoryTxRepository struct {
	repo *memoryRepository
}

func (t *memoryTxRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return t.repo.lookupEmail(email)
}

func (t *memoryTxRepository) Create(ctx context.Context, params CreateParams) (*Account, error) {
	email := NormalizeEmail(params.Email)
	if _, exists := t.repo.byEmail[email]; exists {
		return nil, shared.ErrEmailExists
	}
	now := time.Now()
	a := &Account{
		ID:           fmt.Sprintf("acc-%d", t.repo.nextID),
		Name:         params.Name,
		Email:        email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		IsActive:     params.IsActive,
		Avatar:       params.Avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	t.repo.nextID++
	t.repo.byID[a.ID] = a
	t.repo.byEmail[email] = a
	copied := *a
	return &copied, nil
}

func (t *memoryTxRepository) RecordActivity(ctx context.Context, rec activity.Record) error {
	t.repo.recorded = append(t.repo.recorded, rec)
	return nil
}

type captureRecorder struct {
	recorded []activity.Record
}

func (c *captureRecorder) Record(ctx context.Context, rec activity.Record) error {
	c.recorded = append(c.recorded, rec)
	return nil
}

func fastHasher() *password.Hasher {
	return password.NewHasher(bcrypt.MinCost)
}

func adminIdentity(id string) shared.Identity {
	return shared.Identity{AccountID: id, Email: "root@example.com", Role: string(RoleAdmin)}
}

func TestServiceCreate(t *testing.T) {
	repo := newMemoryRepository()
	recorder := &captureRecorder{}
	svc := NewService(repo, fastHasher(), recorder, nil)

	account, err := svc.Create(context.Background(), CreateInput{
		Name:     "Ada",
		Email:    "ADA@Example.com",
		Password: "secret123",
		Role:     RoleAdmin,
		IsActive: false,
	}, adminIdentity("admin-1"), RequestMeta{IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, "ada@example.com", account.Email)
	assert.Equal(t, RoleAdmin, account.Role)
	assert.False(t, account.IsActive)
	assert.True(t, fastHasher().Verify("secret123", account.PasswordHash))

	// The create_user record names the admin, not the new account, and is
	// written inside the same transaction as the insert.
	require.Len(t, repo.recorded, 1)
	rec := repo.recorded[0]
	assert.Equal(t, activity.ActionCreateUser, rec.Action)
	assert.Equal(t, "admin-1", rec.AccountID)
	assert.Equal(t, account.ID, rec.Metadata["targetUserId"])
}

func TestServiceCreateDuplicateEmail(t *testing.T) {
	repo := newMemoryRepository()
	repo.seed(Account{Name: "Ada", Email: "ada@example.com", Role: RoleUser, IsActive: true})
	svc := NewService(repo, fastHasher(), &captureRecorder{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Name:     "Clone",
		Email:    "ada@example.com",
		Password: "secret123",
		Role:     RoleUser,
		IsActive: true,
	}, adminIdentity("admin-1"), RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrEmailExists)
}

func TestServiceUpdate(t *testing.T) {
	repo := newMemoryRepository()
	account := repo.seed(Account{Name: "Ada", Email: "ada@example.com", Role: RoleUser, IsActive: true})
	recorder := &captureRecorder{}
	svc := NewService(repo, fastHasher(), recorder, nil)

	name := "Ada Lovelace"
	role := RoleAdmin
	updated, err := svc.Update(context.Background(), account.ID,
		UpdateParams{Name: &name, Role: &role}, adminIdentity("admin-1"), RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, RoleAdmin, updated.Role)

	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, activity.ActionUpdateUser, recorder.recorded[0].Action)
}

func TestServiceUpdateMissing(t *testing.T) {
	svc := NewService(newMemoryRepository(), fastHasher(), &captureRecorder{}, nil)
	name := "Nobody"
	_, err := svc.Update(context.Background(), "ghost", UpdateParams{Name: &name}, adminIdentity("admin-1"), RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceDelete(t *testing.T) {
	repo := newMemoryRepository()
	account := repo.seed(Account{Name: "Ada", Email: "ada@example.com", Role: RoleUser, IsActive: true})
	recorder := &captureRecorder{}
	svc := NewService(repo, fastHasher(), recorder, nil)

	require.NoError(t, svc.Delete(context.Background(), account.ID, adminIdentity("admin-1"), RequestMeta{}))

	_, err := repo.FindByID(context.Background(), account.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, activity.ActionDeleteUser, recorder.recorded[0].Action)
}

func TestServiceDeleteSelf(t *testing.T) {
	repo := newMemoryRepository()
	admin := repo.seed(Account{Name: "Root", Email: "root@example.com", Role: RoleAdmin, IsActive: true})
	recorder := &captureRecorder{}
	svc := NewService(repo, fastHasher(), recorder, nil)

	err := svc.Delete(context.Background(), admin.ID, adminIdentity(admin.ID), RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrValidation)

	// The account survives and nothing is audited.
	_, findErr := repo.FindByID(context.Background(), admin.ID)
	assert.NoError(t, findErr)
	assert.Empty(t, recorder.recorded)
}

func TestServiceChangePassword(t *testing.T) {
	hasher := fastHasher()
	hash, err := hasher.Hash("old-secret")
	require.NoError(t, err)

	repo := newMemoryRepository()
	account := repo.seed(Account{Name: "Ada", Email: "ada@example.com", PasswordHash: hash, Role: RoleUser, IsActive: true})
	recorder := &captureRecorder{}
	svc := NewService(repo, hasher, recorder, nil)

	require.NoError(t, svc.ChangePassword(context.Background(), account.ID, "old-secret", "new-secret", RequestMeta{}))

	stored, err := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, hasher.Verify("new-secret", stored.PasswordHash))
	assert.False(t, hasher.Verify("old-secret", stored.PasswordHash))

	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, activity.ActionChangePassword, recorder.recorded[0].Action)
}

func TestServiceChangePasswordWrongOld(t *testing.T) {
	hasher := fastHasher()
	hash, err := hasher.Hash("old-secret")
	require.NoError(t, err)

	repo := newMemoryRepository()
	account := repo.seed(Account{Name: "Ada", Email: "ada@example.com", PasswordHash: hash, Role: RoleUser, IsActive: true})
	svc := NewService(repo, hasher, &captureRecorder{}, nil)

	err = svc.ChangePassword(context.Background(), account.ID, "not-the-old-one", "new-secret", RequestMeta{})
	assert.ErrorIs(t, err, shared.ErrPasswordIncorrect)

	stored, findErr := repo.FindByID(context.Background(), account.ID)
	require.NoError(t, findErr)
	assert.True(t, hasher.Verify("old-secret", stored.PasswordHash))
}

func TestServiceListPagination(t *testing.T) {
	repo := newMemoryRepository()
	for i := 0; i < 25; i++ {
		repo.seed(Account{
			Name:     fmt.Sprintf("User %02d", i),
			Email:    fmt.Sprintf("user%02d@example.com", i),
			Role:     RoleUser,
			IsActive: i%2 == 0,
		})
	}
	svc := NewService(repo, fastHasher(), &captureRecorder{}, nil)

	page, pagination, err := svc.List(context.Background(), ListFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page, 10)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 25, pagination.Total)
	assert.Equal(t, 3, pagination.TotalPages)

	active := true
	filtered, pagination, err := svc.List(context.Background(), ListFilter{Page: 1, Limit: 50, IsActive: &active})
	require.NoError(t, err)
	assert.Len(t, filtered, 13)
	assert.Equal(t, 13, pagination.Total)
}
