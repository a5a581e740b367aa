// Package memory provides an in-process storage backend. Data is lost on
// restart; it backs tests and local development.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
)

// Manager implements interfaces.StorageManager in memory.
type Manager struct {
	users    *UserStore
	sessions *SessionStore
}

// NewManager creates an empty in-memory storage manager.
func NewManager(logger *common.Logger) *Manager {
	logger.Info().Msg("In-memory storage manager initialized")
	return &Manager{
		users:    &UserStore{users: make(map[string]*models.User)},
		sessions: &SessionStore{sessions: make(map[string]*models.Session)},
	}
}

func (m *Manager) UserStore() interfaces.UserStore       { return m.users }
func (m *Manager) SessionStore() interfaces.SessionStore { return m.sessions }
func (m *Manager) Close() error                          { return nil }

// UserStore keeps deep copies so callers never share state with the store.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*models.User
}

func (s *UserStore) GetUser(_ context.Context, key string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[models.UserKey(key)]
	if !ok {
		return nil, models.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *UserStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Key()]; ok {
		return models.ErrConflict
	}
	s.users[user.Key()] = user.Clone()
	return nil
}

func (s *UserStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Key()] = user.Clone()
	return nil
}

func (s *UserStore) ListUsers(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	return out, nil
}

// SessionStore holds sessions keyed by token hash.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func (s *SessionStore) SaveSession(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *session
	s.sessions[session.TokenHash] = &c
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, tokenHash string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *sess
	return &c, nil
}

func (s *SessionStore) DeactivateSession(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[tokenHash]; ok {
		sess.Active = false
	}
	return nil
}

func (s *SessionStore) PurgeExpired(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, sess := range s.sessions {
		if sess.ExpiresAt.Before(before) {
			delete(s.sessions, k)
			n++
		}
	}
	return n, nil
}

// Compile-time checks
var (
	_ interfaces.StorageManager = (*Manager)(nil)
	_ interfaces.UserStore      = (*UserStore)(nil)
	_ interfaces.SessionStore   = (*SessionStore)(nil)
)
