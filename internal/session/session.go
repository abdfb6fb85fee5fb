// Package session keeps the backend credential for one user agent: a browser
// (signed cookie plus the mirror cookie the route guard reads) or the CLI
// (a token file).
package session

import (
	"sync"

	"github.com/taskmaster/console/internal/infrastructure/logger"
)

// Store is the durable home of the token. Load returns "" when nothing is
// stored.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// Session caches the token of one Store. It satisfies api.TokenSource.
type Session struct {
	store  Store
	logger *logger.Logger

	mu     sync.Mutex
	token  string
	loaded bool
}

func New(store Store, log *logger.Logger) *Session {
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{store: store, logger: log.WithComponent("session")}
}

// GetToken returns the stored token, or "" when absent or unreadable.
func (s *Session) GetToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		token, err := s.store.Load()
		if err != nil {
			s.logger.Warnw("Failed to load session token", "error", err)
			token = ""
		}
		s.token = token
		s.loaded = true
	}
	return s.token
}

// SetToken persists the token in the durable store and the mirror.
func (s *Session) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(token); err != nil {
		return err
	}
	s.token = token
	s.loaded = true
	return nil
}

// RemoveToken clears both locations. The in-memory copy is dropped even when
// the store fails.
func (s *Session) RemoveToken() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.loaded = true
	return s.store.Clear()
}

// Token implements api.TokenSource.
func (s *Session) Token() string {
	return s.GetToken()
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Load() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *MemoryStore) Save(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}
