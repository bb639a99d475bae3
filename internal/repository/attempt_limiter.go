package repository

import (
	"context"
	"fmt"
	"time"

	"auth-service/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const failedAttemptsKeyPrefix = "failed_attempts:"

// AttemptLimiter tracks consecutive failed logins per identity in Redis.
// The increment is a single Redis INCR, so concurrent failures for the same
// identity cannot lose updates. The TTL is re-armed on every failure, which
// makes the block window slide from the most recent failure, not the first.
type AttemptLimiter struct {
	client      *redis.Client
	maxAttempts int
	blockWindow time.Duration
	logger      *zap.Logger
}

// NewAttemptLimiter creates a Redis-backed failed-login limiter.
func NewAttemptLimiter(client *redis.Client, maxAttempts int, blockWindow time.Duration, logger *zap.Logger) *AttemptLimiter {
	return &AttemptLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		blockWindow: blockWindow,
		logger:      logger.Named("AttemptLimiter"),
	}
}

func attemptKey(identity string) string {
	return failedAttemptsKeyPrefix + identity
}

// Check fails with ErrTooManyAttempts once the counter reaches the limit.
// It performs no writes, so a blocked caller costs one Redis read.
func (l *AttemptLimiter) Check(ctx context.Context, identity string) error {
	count, err := l.client.Get(ctx, attemptKey(identity)).Int64()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		l.logger.Error("Failed to read attempt counter", zap.String("identity", identity), zap.Error(err))
		return fmt.Errorf("failed to read attempt counter: %w", err)
	}

	if count >= int64(l.maxAttempts) {
		l.logger.Warn("Login identity is blocked",
			zap.String("identity", identity),
			zap.Int64("failures", count),
			zap.Int("max", l.maxAttempts))
		return domain.ErrTooManyAttempts
	}
	return nil
}

// RecordFailure increments the counter and re-arms its TTL in one pipeline.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, identity string) error {
	key := attemptKey(identity)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.blockWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("Failed to record login failure", zap.String("identity", identity), zap.Error(err))
		return fmt.Errorf("failed to record login failure: %w", err)
	}

	l.logger.Debug("Recorded login failure",
		zap.String("identity", identity),
		zap.Int64("failures", incr.Val()))
	return nil
}

// RecordSuccess deletes the counter. Idempotent: deleting an absent counter
// is not an error.
func (l *AttemptLimiter) RecordSuccess(ctx context.Context, identity string) error {
	if err := l.client.Del(ctx, attemptKey(identity)).Err(); err != nil {
		l.logger.Error("Failed to clear attempt counter", zap.String("identity", identity), zap.Error(err))
		return fmt.Errorf("failed to clear attempt counter: %w", err)
	}
	return nil
}
