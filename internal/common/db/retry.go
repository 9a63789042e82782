package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"

	"github.com/AlibekovAA/jwt-auth-api/internal/common/constants"
	"github.com/AlibekovAA/jwt-auth-api/internal/common/logger"
	"github.com/AlibekovAA/jwt-auth-api/internal/observability/metrics"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  constants.DBRetryMaxAttempts,
	InitialDelay: constants.DBRetryInitialDelay,
	MaxDelay:     constants.DBRetryMaxDelay,
	Multiplier:   constants.DBRetryMultiplier,
}

// IsRetryableError reports whether err is a transient Postgres failure:
// lost connections, serialization failures, deadlocks and lock timeouts.
func IsRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
		return true
	case "40001", "40P01":
		return true
	case "55P03":
		return true
	}
	return false
}

// RetryWithBackoff runs fn until it succeeds, fails with a non-retryable error
// or cfg.MaxAttempts is reached. fn must be safe to repeat.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, cfg RetryConfig, operation string, fn func(context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetryConfig
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				log.WithFields(ctx, logger.Fields{
					"operation": operation,
					"attempts":  attempt,
					"action":    "db_retry_success",
				}).Info("database operation succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			return err
		}

		metrics.DBRetriesTotal.WithLabelValues(operation).Inc()
		if attempt == cfg.MaxAttempts {
			break
		}

		log.WithFields(ctx, logger.Fields{
			"operation": operation,
			"attempt":   attempt,
			"action":    "db_retry",
		}).Warnf("database operation failed: %v, retrying in %v", err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, cfg.MaxAttempts, lastErr)
}
