// Package leaderboard ranks every portfolio across all users
package leaderboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/bobmcallan/bagboard/internal/services/metadata"
)

// TopN is the length of each ranking.
const TopN = 5

// Score weights.
const (
	changeWeight    = 0.7
	marketCapWeight = 0.3
)

// Compile-time interface check
var _ interfaces.LeaderboardService = (*Service)(nil)

// Service computes leaderboards on demand. Nothing is cached here; token
// metadata goes through the metadata service's cache.
type Service struct {
	users    interfaces.UserStore
	metadata interfaces.MetadataService
	logger   *common.Logger
}

// NewService creates a leaderboard service
func NewService(users interfaces.UserStore, meta interfaces.MetadataService, logger *common.Logger) *Service {
	return &Service{users: users, metadata: meta, logger: logger}
}

type candidate struct {
	entry  models.LeaderboardEntry
	priced bool
}

// Compute flattens every user's portfolios and builds the three rankings.
func (s *Service) Compute(ctx context.Context) (*models.Leaderboard, error) {
	start := time.Now()

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	// Resolve each distinct address once
	var addrs []string
	seen := make(map[string]bool)
	for _, u := range users {
		for _, p := range u.Portfolios {
			for _, r := range p.Rows {
				if !seen[r.Address] {
					seen[r.Address] = true
					addrs = append(addrs, r.Address)
				}
			}
		}
	}

	tokens, err := s.metadata.ResolveMany(ctx, addrs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token metadata: %w", err)
	}
	byAddr := make(map[string]models.TokenMetadata, len(tokens))
	for i, t := range tokens {
		byAddr[addrs[i]] = t
	}

	var all []candidate
	for _, u := range users {
		for _, p := range u.Portfolios {
			held := make([]models.TokenMetadata, 0, len(p.Rows))
			for _, r := range p.Rows {
				held = append(held, byAddr[r.Address])
			}
			stats := metadata.Aggregate(held)

			entry := models.LeaderboardEntry{
				Username:      u.Username,
				DisplayName:   u.DisplayName,
				PortfolioID:   p.ID,
				PortfolioName: p.Name,
				Views:         p.Views,
				Shares:        p.Shares,
				TokenCount:    len(p.Rows),
				AvgChange24h:  stats.AvgChange24h,
				AvgMarketCap:  stats.AvgMarketCap,
			}
			priced := stats.PricedCount > 0
			if priced {
				entry.Score = Score(stats.AvgChange24h, stats.AvgMarketCap)
			}
			all = append(all, candidate{entry: entry, priced: priced})
		}
	}

	board := &models.Leaderboard{
		MostViewed: rank(all, func(c candidate) bool { return true },
			func(a, b models.LeaderboardEntry) bool { return a.Views > b.Views }),
		TopPerforming: rank(all, func(c candidate) bool { return c.priced && c.entry.TokenCount > 0 },
			func(a, b models.LeaderboardEntry) bool { return a.Score > b.Score }),
		MostTokens: rank(all, func(c candidate) bool { return c.entry.TokenCount > 0 },
			func(a, b models.LeaderboardEntry) bool { return a.TokenCount > b.TokenCount }),
	}

	s.logger.Debug().
		Int("users", len(users)).
		Int("portfolios", len(all)).
		Int("tokens", len(addrs)).
		Dur("elapsed", time.Since(start)).
		Msg("Leaderboard computed")

	return board, nil
}

// Score weights the average 24h change against the order of magnitude of
// the average market cap. Missing averages contribute nothing.
func Score(avgChange, avgMarketCap *float64) float64 {
	var score float64
	if avgChange != nil {
		score += changeWeight * *avgChange
	}
	if avgMarketCap != nil && *avgMarketCap > 0 {
		score += marketCapWeight * math.Log10(1+*avgMarketCap)
	}
	return score
}

// rank filters, sorts by the primary key, breaks ties on portfolio name then
// username, and truncates to TopN.
func rank(all []candidate, keep func(candidate) bool, better func(a, b models.LeaderboardEntry) bool) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(all))
	for _, c := range all {
		if keep(c) {
			out = append(out, c.entry)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if better(a, b) {
			return true
		}
		if better(b, a) {
			return false
		}
		if a.PortfolioName != b.PortfolioName {
			return a.PortfolioName < b.PortfolioName
		}
		return a.Username < b.Username
	})

	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}
