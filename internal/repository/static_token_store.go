package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"auth-service/internal/domain"
	"auth-service/internal/security"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const staticTokenKeyPrefix = "static_auth_token:"

// StaticTokenStore issues fixed-TTL bearer tokens (no sliding renewal),
// used for service-to-service calls and registration bootstrap.
type StaticTokenStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStaticTokenStore creates a Redis-backed static token store.
func NewStaticTokenStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StaticTokenStore {
	return &StaticTokenStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("StaticTokenStore"),
	}
}

func staticTokenKey(token string) string {
	return staticTokenKeyPrefix + token
}

// Issue creates a new static token for the user with the configured TTL.
func (s *StaticTokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	token := security.NewOpaqueToken()
	if err := s.client.Set(ctx, staticTokenKey(token), userID, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to store static token", zap.Int64("userID", userID), zap.Error(err))
		return "", fmt.Errorf("failed to store static token: %w", err)
	}
	s.logger.Debug("Static token issued", zap.Int64("userID", userID))
	return token, nil
}

// Resolve returns the user id a token was issued for. Unlike sessions the
// TTL is not renewed on read.
func (s *StaticTokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.Get(ctx, staticTokenKey(token)).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrTokenNotFound
		}
		s.logger.Error("Failed to resolve static token", zap.Error(err))
		return 0, fmt.Errorf("failed to resolve static token: %w", err)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.logger.Error("Corrupted static token value in redis", zap.String("value", raw), zap.Error(err))
		return 0, fmt.Errorf("corrupted static token value: %w", err)
	}
	return userID, nil
}

// Revoke removes a static token. Idempotent.
func (s *StaticTokenStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, staticTokenKey(token)).Err(); err != nil {
		s.logger.Error("Failed to revoke static token", zap.Error(err))
		return fmt.Errorf("failed to revoke static token: %w", err)
	}
	return nil
}
