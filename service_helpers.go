package adminkit

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fernandezvara/dbkit"
	"go.uber.org/zap"
)

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

func (s *Store) upsertTableConfig(ctx context.Context, rec *TableConfigRecord) error {
	result, err := s.db.NewInsert().
		Model(rec).
		On("CONFLICT (entity_key) DO UPDATE").
		Set("columns = EXCLUDED.columns").
		Set("multi_sort = EXCLUDED.multi_sort").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return dbkit.WithErr(result, err, "UpsertTableConfig").Err()
}

func (s *Store) logAudit(ctx context.Context, entry *AuditEntry) error {
	_, err := s.db.NewInsert().Model(entry.ToModel()).Exec(ctx)
	return dbkit.WithErr1(err, "LogAudit").Err()
}

// withRetry runs fn until it succeeds, fails with a non-transient error or
// runs out of attempts. Waits grow exponentially with jitter.
func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		// Don't retry on non-transient errors
		if !isTransientError(err) {
			break
		}

		if attempt == s.maxAttempts-1 {
			break
		}

		wait := retryBackoff(s.backoff, attempt)
		s.logger.Warn("retrying database operation",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return errors.Join(lastErr, ctx.Err())
		case <-time.After(wait):
		}
	}

	return NewError(ErrDatabaseError, op+" failed: "+lastErr.Error())
}

// retryBackoff returns base * 2^attempt plus up to 10% jitter.
func retryBackoff(base time.Duration, attempt int) time.Duration {
	backoff := base * time.Duration(1<<uint(attempt))
	jitter := time.Duration(float64(backoff) * 0.1 * (0.5 + rand.Float64()))
	return backoff + jitter
}

// PostgreSQL and network failures worth retrying.
var transientErrors = []string{
	"connection",
	"timeout",
	"deadlock",
	"lock wait timeout",
	"connection refused",
	"connection reset",
	"broken pipe",
	"temporary failure",
	"try again",
	"resource temporarily unavailable",
}

// isTransientError checks if an error is transient and can be retried
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation is final for the caller
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, transient := range transientErrors {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}
