package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auth-service/internal/domain"
	"auth-service/internal/security"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

type sessionPayload struct {
	UserID int64 `json:"user_id"`
}

// SessionStore maps opaque random tokens to user ids in Redis with a sliding
// TTL: every successful Get renews the expiration.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("SessionStore"),
	}
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// Create opens a new session and returns its opaque token.
func (s *SessionStore) Create(ctx context.Context, userID int64) (string, error) {
	token := security.NewOpaqueToken()
	payload, err := json.Marshal(sessionPayload{UserID: userID})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session payload: %w", err)
	}

	if err := s.client.Set(ctx, sessionKey(token), payload, s.ttl).Err(); err != nil {
		s.logger.Error("Failed to create session", zap.Int64("userID", userID), zap.Error(err))
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Debug("Session created", zap.Int64("userID", userID))
	return token, nil
}

// Get resolves a session token to a user id and renews the TTL in the same
// Redis call (GETEX). A miss returns ErrSessionNotFound.
func (s *SessionStore) Get(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.GetEx(ctx, sessionKey(token), s.ttl).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, domain.ErrSessionNotFound
		}
		s.logger.Error("Failed to get session", zap.Error(err))
		return 0, fmt.Errorf("failed to get session: %w", err)
	}

	var payload sessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		// Corrupted store data, treat the session as gone.
		s.logger.Error("Failed to unmarshal session payload", zap.Error(err))
		return 0, domain.ErrSessionNotFound
	}
	return payload.UserID, nil
}

// Delete removes a session. Idempotent.
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		s.logger.Error("Failed to delete session", zap.Error(err))
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID scans all sessions and removes those belonging to the user.
// Best-effort cleanup for account deletion; there is no index from user id
// to session tokens.
func (s *SessionStore) DeleteByUserID(ctx context.Context, userID int64) (int64, error) {
	var deleted int64

	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Result()
		if err != nil {
			if err == redis.Nil {
				continue // expired between SCAN and GET
			}
			s.logger.Warn("Failed to read session during purge", zap.String("key", key), zap.Error(err))
			continue
		}

		var payload sessionPayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			s.logger.Warn("Skipping malformed session during purge", zap.String("key", key))
			continue
		}
		if payload.UserID != userID {
			continue
		}

		if err := s.client.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("Failed to delete session during purge", zap.String("key", key), zap.Error(err))
			continue
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		s.logger.Error("Session scan failed during purge", zap.Int64("userID", userID), zap.Error(err))
		return deleted, fmt.Errorf("session scan failed: %w", err)
	}

	s.logger.Info("Purged user sessions", zap.Int64("userID", userID), zap.Int64("deleted", deleted))
	return deleted, nil
}
