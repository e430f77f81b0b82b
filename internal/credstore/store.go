// Package credstore persists the bearer token that gates every fleet call.
package credstore

import (
	"fmt"
	"path/filepath"
	"sync"
)

// TokenKey is the storage key the access token is kept under
const TokenKey = "access_token"

// Store holds the current bearer token. An empty string from Get means no
// token is stored.
type Store interface {
	Get() (string, error)
	Set(token string) error
	Clear() error
	Close() error
}

// Open returns the store backend named by kind ("file", "sqlite" or
// "memory") rooted at stateDir
func Open(kind, stateDir string) (Store, error) {
	switch kind {
	case "", "file":
		return NewFileStore(filepath.Join(stateDir, TokenKey)), nil
	case "sqlite":
		return NewSQLiteStore(filepath.Join(stateDir, "credentials.db"))
	case "memory":
		return NewMemoryStore(""), nil
	default:
		return nil, fmt.Errorf("unknown token store %q (expected file, sqlite or memory)", kind)
	}
}

// MemoryStore keeps the token in process memory only
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore creates a memory store seeded with token
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Get() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) Set(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	return m.Set("")
}

func (m *MemoryStore) Close() error {
	return nil
}
