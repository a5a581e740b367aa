// Package interfaces defines service contracts for bagboard
package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/bagboard/internal/models"
)

// StorageManager coordinates all storage backends
type StorageManager interface {
	UserStore() UserStore
	SessionStore() SessionStore

	// Lifecycle
	Close() error
}

// UserStore persists user documents with their embedded portfolios.
// Keys are models.UserKey values. Missing users return models.ErrNotFound.
type UserStore interface {
	GetUser(ctx context.Context, key string) (*models.User, error)

	// CreateUser inserts a new user, returning models.ErrConflict when the
	// key is taken.
	CreateUser(ctx context.Context, user *models.User) error

	// SaveUser overwrites the whole document (last write wins).
	SaveUser(ctx context.Context, user *models.User) error

	ListUsers(ctx context.Context) ([]*models.User, error)
}

// SessionStore persists login sessions keyed by token hash.
type SessionStore interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, tokenHash string) (*models.Session, error)
	DeactivateSession(ctx context.Context, tokenHash string) error

	// PurgeExpired removes sessions that expired before the given time.
	PurgeExpired(ctx context.Context, before time.Time) (int, error)
}
