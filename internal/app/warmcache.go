package app

import (
	"context"
	"os"
	"time"

	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
)

// warmCache resolves metadata for every stored address on startup so the
// first leaderboard request is fast.
func warmCache(ctx context.Context, users interfaces.UserStore, meta interfaces.MetadataService, logger *common.Logger) {
	// Check env var override
	if os.Getenv("BAGBOARD_WARM_CACHE") == "off" {
		logger.Info().Msg("Warm cache: disabled via BAGBOARD_WARM_CACHE=off")
		return
	}

	start := time.Now()

	all, err := users.ListUsers(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Warm cache: failed to list users")
		return
	}

	seen := make(map[string]bool)
	var addrs []string
	for _, u := range all {
		for _, p := range u.Portfolios {
			for _, r := range p.Rows {
				if !seen[r.Address] {
					seen[r.Address] = true
					addrs = append(addrs, r.Address)
				}
			}
		}
	}

	if len(addrs) == 0 {
		logger.Info().Msg("Warm cache: no portfolio tokens, skipping")
		return
	}

	logger.Info().Int("tokens", len(addrs)).Msg("Warm cache: starting")

	if _, err := meta.ResolveMany(ctx, addrs); err != nil {
		logger.Warn().Err(err).Msg("Warm cache: metadata resolution failed")
		return
	}

	logger.Info().
		Int("tokens", len(addrs)).
		Dur("elapsed", time.Since(start)).
		Msg("Warm cache: complete")
}
