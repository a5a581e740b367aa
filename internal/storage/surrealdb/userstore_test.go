package surrealdb

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(username string) *models.User {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.User{
		Username:     username,
		PasswordHash: "$2a$10$hash",
		DisplayName:  username,
		AccountType:  models.AccountTypeEmail,
		Portfolios:   []models.Portfolio{},
		CreatedAt:    now,
		ModifiedAt:   now,
	}
}

func TestUserStoreCreateAndGet(t *testing.T) {
	store := NewUserStore(testDB(t), testLogger())
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newTestUser("Alice")))

	got, err := store.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)
	assert.Equal(t, models.AccountTypeEmail, got.AccountType)
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)

	// Lookup is case-insensitive
	got, err = store.GetUser(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Username)
}

func TestUserStoreCreateDuplicate(t *testing.T) {
	store := NewUserStore(testDB(t), testLogger())
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newTestUser("bob")))
	err := store.CreateUser(ctx, newTestUser("BOB"))
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserStoreGetNotFound(t *testing.T) {
	store := NewUserStore(testDB(t), testLogger())

	_, err := store.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserStoreSavePortfolios(t *testing.T) {
	store := NewUserStore(testDB(t), testLogger())
	ctx := context.Background()

	user := newTestUser("carol")
	require.NoError(t, store.CreateUser(ctx, user))

	user.Portfolios = append(user.Portfolios, models.Portfolio{
		ID:    "1700000000000",
		Name:  "memes",
		Rows:  []models.Row{{Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Chain: models.ChainSolana}},
		Views: 3,
	})
	require.NoError(t, store.SaveUser(ctx, user))

	got, err := store.GetUser(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, got.Portfolios, 1)
	assert.Equal(t, "memes", got.Portfolios[0].Name)
	assert.Equal(t, 3, got.Portfolios[0].Views)
	require.Len(t, got.Portfolios[0].Rows, 1)
	assert.Equal(t, models.ChainSolana, got.Portfolios[0].Rows[0].Chain)
}

func TestUserStoreListUsers(t *testing.T) {
	store := NewUserStore(testDB(t), testLogger())
	ctx := context.Background()

	for _, name := range []string{"u1", "u2", "u3"} {
		require.NoError(t, store.CreateUser(ctx, newTestUser(name)))
	}

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
