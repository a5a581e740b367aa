package leaderboard

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/bobmcallan/bagboard/internal/storage/memory"
)

const (
	bonk = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	usdc = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	cake = "0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82"
)

type fakeMetadata struct {
	tokens   map[string]models.TokenMetadata
	resolved int32
}

func (f *fakeMetadata) Resolve(_ context.Context, addr string) (*models.TokenMetadata, error) {
	atomic.AddInt32(&f.resolved, 1)
	t := f.tokens[addr]
	t.Address = addr
	return &t, nil
}

func (f *fakeMetadata) ResolveMany(ctx context.Context, addrs []string) ([]models.TokenMetadata, error) {
	out := make([]models.TokenMetadata, len(addrs))
	for i, a := range addrs {
		t, _ := f.Resolve(ctx, a)
		out[i] = *t
	}
	return out, nil
}

func rows(addrs ...string) []models.Row {
	out := make([]models.Row, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, models.Row{Address: a})
	}
	return out
}

func seed(t *testing.T, users ...*models.User) *memory.Manager {
	t.Helper()
	store := memory.NewManager(common.NewSilentLogger())
	for _, u := range users {
		require.NoError(t, store.UserStore().CreateUser(context.Background(), u))
	}
	return store
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0.0, Score(nil, nil))
	assert.InDelta(t, 7.0, Score(models.Float(10), nil), 1e-9)
	assert.InDelta(t, 0.7*10+0.3*math.Log10(1+999), Score(models.Float(10), models.Float(999)), 1e-9)
	assert.InDelta(t, -7.0, Score(models.Float(-10), models.Float(0)), 1e-9)
}

func TestCompute(t *testing.T) {
	meta := &fakeMetadata{tokens: map[string]models.TokenMetadata{
		bonk: {PriceUSD: models.Float(1), Change24h: models.Float(20), MarketCap: models.Float(1e9)},
		usdc: {PriceUSD: models.Float(1), Change24h: models.Float(0), MarketCap: models.Float(1e10)},
		// cake is unknown to every source
	}}
	store := seed(t,
		&models.User{Username: "alice", DisplayName: "Alice", Portfolios: []models.Portfolio{
			{ID: "1", Name: "Hot", Views: 5, Rows: rows(bonk)},
			{ID: "2", Name: "Stable", Views: 9, Rows: rows(usdc, bonk)},
		}},
		&models.User{Username: "bob", Portfolios: []models.Portfolio{
			{ID: "1", Name: "Unpriced", Views: 9, Rows: rows(cake, cake, cake)},
			{ID: "2", Name: "Empty", Views: 1},
		}},
	)

	board, err := NewService(store.UserStore(), meta, common.NewSilentLogger()).Compute(context.Background())
	require.NoError(t, err)

	// Each distinct address is resolved once
	assert.Equal(t, int32(3), meta.resolved)

	// Views tie at 9 breaks on portfolio name
	require.Len(t, board.MostViewed, 4)
	assert.Equal(t, "Stable", board.MostViewed[0].PortfolioName)
	assert.Equal(t, "Unpriced", board.MostViewed[1].PortfolioName)
	assert.Equal(t, "Hot", board.MostViewed[2].PortfolioName)
	assert.Equal(t, "Empty", board.MostViewed[3].PortfolioName)

	// Unpriced and empty portfolios do not perform
	require.Len(t, board.TopPerforming, 2)
	assert.Equal(t, "Hot", board.TopPerforming[0].PortfolioName)
	assert.InDelta(t, 0.7*20+0.3*math.Log10(1+1e9), board.TopPerforming[0].Score, 1e-9)
	assert.Equal(t, "Stable", board.TopPerforming[1].PortfolioName)
	assert.InDelta(t, 10.0, *board.TopPerforming[1].AvgChange24h, 1e-9)

	require.Len(t, board.MostTokens, 3)
	assert.Equal(t, "Unpriced", board.MostTokens[0].PortfolioName)
	assert.Equal(t, 3, board.MostTokens[0].TokenCount)
	assert.Equal(t, "bob", board.MostTokens[0].Username)
}

func TestCompute_TruncatesAndBreaksTiesOnUsername(t *testing.T) {
	var users []*models.User
	for i := 0; i < 7; i++ {
		users = append(users, &models.User{
			Username:   fmt.Sprintf("user%d", 6-i),
			Portfolios: []models.Portfolio{{ID: "1", Name: "Same", Views: 1}},
		})
	}
	store := seed(t, users...)

	board, err := NewService(store.UserStore(), &fakeMetadata{}, common.NewSilentLogger()).Compute(context.Background())
	require.NoError(t, err)

	require.Len(t, board.MostViewed, TopN)
	for i, e := range board.MostViewed {
		assert.Equal(t, fmt.Sprintf("user%d", i), e.Username)
	}
	assert.Empty(t, board.TopPerforming)
	assert.Empty(t, board.MostTokens)
}

func TestCompute_NoUsers(t *testing.T) {
	store := seed(t)
	board, err := NewService(store.UserStore(), &fakeMetadata{}, common.NewSilentLogger()).Compute(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, board.MostViewed)
	assert.Empty(t, board.MostViewed)
}
