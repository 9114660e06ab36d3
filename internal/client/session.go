package client

import (
	"context"
	"errors"
	"sync"
)

// ErrBusy is returned when a session operation is already in flight.
var ErrBusy = errors.New("client: session operation in progress")

// State is a snapshot of the session store.
type State struct {
	Account       *Account
	Token         string
	Authenticated bool
	Loading       bool
	LastError     error
}

// SessionStore holds the client-side auth state: the current account, its
// token, and the in-flight/error flags. Mutating operations are
// single-flight; a second call while one is loading fails with ErrBusy. A
// failed operation records its error and leaves the previous session state
// untouched.
type SessionStore struct {
	mu      sync.Mutex
	client  *Client
	storage Storage

	account       *Account
	token         string
	authenticated bool
	loading       bool
	lastErr       error
}

// NewSessionStore constructs a store bound to an API client and storage.
// The store installs itself as the client's token source. Previously
// persisted state is restored; call CheckAuth to validate it against the
// server.
func NewSessionStore(api *Client, storage Storage) (*SessionStore, error) {
	if api == nil {
		return nil, errors.New("client: api client required")
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &SessionStore{client: api, storage: storage}
	api.token = s.currentToken

	persisted, err := storage.Load()
	if err != nil {
		return nil, err
	}
	s.account = persisted.Account
	s.token = persisted.Token
	s.authenticated = persisted.Authenticated && persisted.Token != ""
	return s, nil
}

// Snapshot returns the current state.
func (s *SessionStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Account:       s.account,
		Token:         s.token,
		Authenticated: s.authenticated,
		Loading:       s.loading,
		LastError:     s.lastErr,
	}
}

// Token returns the current bearer token, empty when logged out.
func (s *SessionStore) Token() string {
	return s.currentToken()
}

// Login authenticates and, on success, replaces the session.
func (s *SessionStore) Login(ctx context.Context, email, password string, rememberMe bool) error {
	if err := s.begin(); err != nil {
		return err
	}
	session, err := s.client.Login(ctx, email, password, rememberMe)
	if err != nil {
		s.fail(err)
		return err
	}
	s.establish(session)
	return nil
}

// Register creates an account and, on success, starts its session.
func (s *SessionStore) Register(ctx context.Context, name, email, password string) error {
	if err := s.begin(); err != nil {
		return err
	}
	session, err := s.client.Register(ctx, name, email, password)
	if err != nil {
		s.fail(err)
		return err
	}
	s.establish(session)
	return nil
}

// Logout notifies the server and clears the session. Local state clears
// even when the server call fails: the user asked to be logged out.
func (s *SessionStore) Logout(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	err := s.client.Logout(ctx)
	s.clear(nil)
	return err
}

// CheckAuth validates a restored token against the server and refreshes the
// cached account. An invalid or rejected token clears the session silently,
// so a stale persisted login degrades to logged-out rather than an error.
func (s *SessionStore) CheckAuth(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	if s.currentToken() == "" {
		s.clear(nil)
		return nil
	}
	account, err := s.client.Me(ctx)
	if err != nil {
		s.clear(nil)
		return nil
	}
	s.mu.Lock()
	s.account = account
	s.authenticated = true
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	s.persist()
	return nil
}

func (s *SessionStore) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loading {
		return ErrBusy
	}
	s.loading = true
	s.lastErr = nil
	return nil
}

func (s *SessionStore) fail(err error) {
	s.mu.Lock()
	s.loading = false
	s.lastErr = err
	s.mu.Unlock()
}

func (s *SessionStore) establish(session *Session) {
	s.mu.Lock()
	account := session.Account
	s.account = &account
	s.token = session.Token
	s.authenticated = true
	s.loading = false
	s.lastErr = nil
	s.mu.Unlock()
	s.persist()
}

func (s *SessionStore) clear(err error) {
	s.mu.Lock()
	s.account = nil
	s.token = ""
	s.authenticated = false
	s.loading = false
	s.lastErr = err
	s.mu.Unlock()
	_ = s.storage.Clear()
}

func (s *SessionStore) currentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *SessionStore) persist() {
	s.mu.Lock()
	persisted := &PersistedSession{
		Token:         s.token,
		Account:       s.account,
		Authenticated: s.authenticated,
	}
	s.mu.Unlock()
	_ = s.storage.Save(persisted)
}
