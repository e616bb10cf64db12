package app

import (
	"context"
	"time"

	"decaquiz-service/internal/config"
)

// ExpirySweeper removes quizzes, progress and submissions past their expiry.
// Backends with native TTLs do not need one.
type ExpirySweeper interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RunSweeper calls DeleteExpired every interval until ctx is done.
func RunSweeper(ctx context.Context, sweeper ExpirySweeper, interval time.Duration) {
	if interval <= 0 {
		return
	}
	log := config.WithContext(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := sweeper.DeleteExpired(ctx, now)
			if err != nil {
				log.WithError(err).Warn("expiry sweep failed")
				continue
			}
			if removed > 0 {
				log.WithField("removed", removed).Info("expired rows swept")
			}
		}
	}
}
