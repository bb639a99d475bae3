package repository

import (
	"context"
	"testing"
	"time"

	"auth-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionStoreCreateAndGet(t *testing.T) {
	_, client := newRedisTest(t)
	store := NewSessionStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	token, err := store.Create(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := store.Get(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestSessionStoreUnknownToken(t *testing.T) {
	_, client := newRedisTest(t)
	store := NewSessionStore(client, time.Hour, zap.NewNop())

	_, err := store.Get(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeef")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStoreSlidingTTL(t *testing.T) {
	mr, client := newRedisTest(t)
	store := NewSessionStore(client, time.Minute, zap.NewNop())
	ctx := context.Background()

	token, err := store.Create(ctx, 7)
	require.NoError(t, err)

	// Each read renews the TTL, so the session outlives its original
	// deadline as long as it keeps being used.
	for i := 0; i < 3; i++ {
		mr.FastForward(40 * time.Second)
		_, err = store.Get(ctx, token)
		require.NoError(t, err, "read %d should renew the session", i+1)
	}

	mr.FastForward(61 * time.Second)
	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound, "idle session expires")
}

func TestSessionStoreDeleteIdempotent(t *testing.T) {
	_, client := newRedisTest(t)
	store := NewSessionStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	token, err := store.Create(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, token))
	require.NoError(t, store.Delete(ctx, token))

	_, err = store.Get(ctx, token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionStoreDeleteByUserID(t *testing.T) {
	_, client := newRedisTest(t)
	store := NewSessionStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	first, err := store.Create(ctx, 10)
	require.NoError(t, err)
	second, err := store.Create(ctx, 10)
	require.NoError(t, err)
	other, err := store.Create(ctx, 11)
	require.NoError(t, err)

	deleted, err := store.DeleteByUserID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = store.Get(ctx, first)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = store.Get(ctx, second)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	userID, err := store.Get(ctx, other)
	require.NoError(t, err, "other users keep their sessions")
	assert.Equal(t, int64(11), userID)
}
