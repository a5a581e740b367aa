package app

import (
	"context"
	"time"

	"github.com/bobmcallan/bagboard/internal/common"
)

// DefaultPurgeInterval is how often expired sessions are removed.
const DefaultPurgeInterval = time.Hour

type sessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int, error)
}

// startSessionScheduler deletes expired sessions on a fixed interval.
func startSessionScheduler(ctx context.Context, purger sessionPurger, logger *common.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPurgeInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Session scheduler: stopped")
			return
		case <-ticker.C:
			purgeSessions(ctx, purger, logger)
		}
	}
}

func purgeSessions(ctx context.Context, purger sessionPurger, logger *common.Logger) {
	start := time.Now()

	n, err := purger.PurgeExpiredSessions(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Session purge: failed")
		return
	}
	if n == 0 {
		return
	}

	logger.Info().
		Int("purged", n).
		Dur("elapsed", time.Since(start)).
		Msg("Session purge: complete")
}
