package surrealdb

import (
	"context"
	"fmt"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// UserStore implements interfaces.UserStore. Portfolios travel inside the
// user document.
type UserStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewUserStore(db *surrealdb.DB, logger *common.Logger) *UserStore {
	return &UserStore{
		db:     db,
		logger: logger,
	}
}

func (s *UserStore) GetUser(ctx context.Context, key string) (*models.User, error) {
	user, err := surrealdb.Select[models.User](ctx, s.db, surrealmodels.NewRecordID("user", models.UserKey(key)))
	if err != nil {
		if isNotFoundError(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	if user == nil || user.Username == "" {
		return nil, models.ErrNotFound
	}
	return user, nil
}

func (s *UserStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.GetUser(ctx, user.Key()); err == nil {
		return models.ErrConflict
	}

	sql := "CREATE type::record('user', $id) CONTENT $user"
	vars := map[string]any{"id": user.Key(), "user": user}
	if _, err := surrealdb.Query[[]models.User](ctx, s.db, sql, vars); err != nil {
		if isAlreadyExistsError(err) {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *UserStore) SaveUser(ctx context.Context, user *models.User) error {
	sql := "UPSERT type::record('user', $id) CONTENT $user"
	vars := map[string]any{"id": user.Key(), "user": user}

	if _, err := surrealdb.Query[[]models.User](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *UserStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	list, err := surrealdb.Select[[]models.User](ctx, s.db, surrealmodels.Table("user"))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var users []*models.User
	if list != nil {
		for i := range *list {
			if (*list)[i].Username != "" {
				users = append(users, &(*list)[i])
			}
		}
	}
	return users, nil
}

var _ interfaces.UserStore = (*UserStore)(nil)
