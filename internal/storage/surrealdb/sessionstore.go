package surrealdb

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SessionStore implements interfaces.SessionStore. Record ids are token hashes.
type SessionStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *surrealdb.DB, logger *common.Logger) *SessionStore {
	return &SessionStore{db: db, logger: logger}
}

func (s *SessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	sql := "UPSERT type::record('session', $id) CONTENT $session"
	vars := map[string]any{"id": session.TokenHash, "session": session}
	if _, err := surrealdb.Query[[]models.Session](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, tokenHash string) (*models.Session, error) {
	session, err := surrealdb.Select[models.Session](ctx, s.db, surrealmodels.NewRecordID("session", tokenHash))
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select session: %w", err)
	}
	if session == nil || session.TokenHash == "" {
		return nil, models.ErrNotFound
	}
	return session, nil
}

func (s *SessionStore) DeactivateSession(ctx context.Context, tokenHash string) error {
	sql := "UPDATE type::record('session', $id) SET active = false"
	vars := map[string]any{"id": tokenHash}
	if _, err := surrealdb.Query[[]models.Session](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to deactivate session: %w", err)
	}
	return nil
}

func (s *SessionStore) PurgeExpired(ctx context.Context, before time.Time) (int, error) {
	sql := "DELETE session WHERE expires_at < $before RETURN BEFORE"
	vars := map[string]any{"before": before}

	results, err := surrealdb.Query[[]models.Session](ctx, s.db, sql, vars)
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}

	count := 0
	if results != nil && len(*results) > 0 {
		count = len((*results)[0].Result)
	}
	if count > 0 {
		s.logger.Info().Int("count", count).Msg("Expired sessions purged")
	}
	return count, nil
}

var _ interfaces.SessionStore = (*SessionStore)(nil)
