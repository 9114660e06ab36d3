// Package client is the Go client for the Atrium API: a thin HTTP wrapper,
// a persisted session store, and the file storage backing it. The session
// store is what CLI and embedded frontends talk to; the raw Client is for
// callers that manage tokens themselves.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// APIError is a structured error returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Account mirrors the account payload served by the API.
type Account struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Status    string  `json:"status"`
	Avatar    *string `json:"avatar,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

// Session is the login/register response: the account plus its bearer token.
type Session struct {
	Account Account `json:"account"`
	Token   string  `json:"token"`
}

// Pagination mirrors the list metadata served by the API.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// UserList is a page of accounts.
type UserList struct {
	Users      []Account  `json:"users"`
	Pagination Pagination `json:"pagination"`
}

// TokenSource supplies the bearer token for authenticated calls. It is read
// on every request so token rotation needs no client rebuild.
type TokenSource func() string

// Client wraps HTTP access to the Atrium API.
type Client struct {
	baseURL string
	http    *http.Client
	token   TokenSource
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTokenSource sets the bearer token supplier.
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.token = src
	}
}

// New constructs a Client for the given base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string, rememberMe bool) (*Session, error) {
	body := map[string]any{"email": email, "password": password, "rememberMe": rememberMe}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Register creates an account and returns its first session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*Session, error) {
	body := map[string]any{"name": name, "email": email, "password": password}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Me returns the account behind the current token.
func (c *Client) Me(ctx context.Context) (*Account, error) {
	var resp struct {
		Account Account `json:"account"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Account, nil
}

// Logout records the logout server-side. The token itself stays valid until
// expiry, so callers must also drop it locally.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// ListUsers fetches a page of accounts. Admin only.
func (c *Client) ListUsers(ctx context.Context, page, limit int) (*UserList, error) {
	path := fmt.Sprintf("/api/users?page=%d&limit=%d", page, limit)
	var list UserList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error
		apiErr.Message = envelope.Message
	}
	if apiErr.Code == "" {
		apiErr.Code = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
