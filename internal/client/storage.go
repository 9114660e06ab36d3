package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// PersistedSession is the slice of session state written to disk. Transient
// flags (loading, last error) never persist.
type PersistedSession struct {
	Token         string   `json:"token"`
	Account       *Account `json:"account,omitempty"`
	Authenticated bool     `json:"isAuthenticated"`
}

// Storage persists session state between runs.
type Storage interface {
	Load() (*PersistedSession, error)
	Save(*PersistedSession) error
	Clear() error
}

// FileStorage keeps the session in a JSON file. Writes go through a temp
// file and rename so a crash never leaves a half-written session.
type FileStorage struct {
	path string
}

// NewFileStorage constructs storage at the given path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Load reads the persisted session. A missing file yields an empty session.
func (s *FileStorage) Load() (*PersistedSession, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &PersistedSession{}, nil
		}
		return nil, fmt.Errorf("client: load session: %w", err)
	}
	var session PersistedSession
	if err := json.Unmarshal(raw, &session); err != nil {
		// A corrupt file is treated as logged out rather than an error.
		return &PersistedSession{}, nil
	}
	return &session, nil
}

// Save writes the session atomically.
func (s *FileStorage) Save(session *PersistedSession) error {
	payload, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("client: encode session: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("client: create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return fmt.Errorf("client: write session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("client: write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("client: write session: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("client: write session: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("client: write session: %w", err)
	}
	return nil
}

// Clear removes the persisted session.
func (s *FileStorage) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("client: clear session: %w", err)
	}
	return nil
}

// MemoryStorage is an in-process Storage for tests and embedded use.
type MemoryStorage struct {
	session *PersistedSession
}

// NewMemoryStorage constructs an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the stored session or an empty one.
func (s *MemoryStorage) Load() (*PersistedSession, error) {
	if s.session == nil {
		return &PersistedSession{}, nil
	}
	copied := *s.session
	return &copied, nil
}

// Save stores a copy of the session.
func (s *MemoryStorage) Save(session *PersistedSession) error {
	copied := *session
	s.session = &copied
	return nil
}

// Clear drops the stored session.
func (s *MemoryStorage) Clear() error {
	s.session = nil
	return nil
}
