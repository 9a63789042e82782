package cleanup

import (
	"context"
	"time"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/clock"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/observability/metrics"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RunOnce deletes every refresh token record that expired before now.
func RunOnce(ctx context.Context, repo ExpiredDeleter, clk clock.Clock, log *logger.Logger) (int64, error) {
	deleted, err := repo.DeleteExpired(ctx, clk.Now())
	if err != nil {
		log.WithFields(ctx, logger.Fields{
			"action": "refresh_token_cleanup_failed",
		}).Errorf("refresh token cleanup failed: %v", err)
		return 0, err
	}
	if deleted > 0 {
		metrics.RefreshTokensCleanupDeleted.Add(float64(deleted))
		log.WithFields(ctx, logger.Fields{
			"action":  "refresh_token_cleanup",
			"deleted": deleted,
		}).Infof("refresh token cleanup: deleted %d expired tokens", deleted)
	}
	return deleted, nil
}

// StartRefreshTokenCleanup runs RunOnce every interval until ctx is done. A
// non-positive interval disables cleanup.
func StartRefreshTokenCleanup(ctx context.Context, repo ExpiredDeleter, clk clock.Clock, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		log.Info("refresh token cleanup disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = RunOnce(ctx, repo, clk, log)
		}
	}
}
