package service_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"sync"
	"testing"
	"time"

	"auth-service/internal/clients"
	"auth-service/internal/domain"
	"auth-service/internal/repository"
	"auth-service/internal/service"
	"auth-service/internal/token"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRecordRepo is an in-memory AuthRecordRepository with the same
// compare-and-set semantics as the Postgres implementation.
type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[int64]*domain.AuthRecord
}

var _ repository.AuthRecordRepository = (*fakeRecordRepo)(nil)

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[int64]*domain.AuthRecord)}
}

func (r *fakeRecordRepo) Create(_ context.Context, record *domain.AuthRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.UserID]; ok {
		return domain.ErrRecordExists
	}
	clone := *record
	r.records[record.UserID] = &clone
	return nil
}

func (r *fakeRecordRepo) GetByUserID(_ context.Context, userID int64) (*domain.AuthRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[userID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	clone := *record
	return &clone, nil
}

func (r *fakeRecordRepo) SetRefreshToken(_ context.Context, userID int64, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[userID]
	if !ok {
		return domain.ErrRecordNotFound
	}
	record.CurrentRefreshToken = &refreshToken
	record.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRecordRepo) RotateRefreshToken(_ context.Context, userID int64, previous, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[userID]
	if !ok || record.CurrentRefreshToken == nil || *record.CurrentRefreshToken != previous {
		return domain.ErrRecordNotFound
	}
	record.CurrentRefreshToken = &next
	record.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRecordRepo) Delete(_ context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[userID]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(r.records, userID)
	return nil
}

// fakeUserClient serves profiles from memory and can simulate an outage.
type fakeUserClient struct {
	mu       sync.Mutex
	nextID   int64
	byName   map[string]*domain.UserProfile
	byID     map[int64]*domain.UserProfile
	offline  bool
	inactive map[string]bool
}

var _ clients.UserServiceClient = (*fakeUserClient)(nil)

func newFakeUserClient() *fakeUserClient {
	return &fakeUserClient{
		nextID:   1,
		byName:   make(map[string]*domain.UserProfile),
		byID:     make(map[int64]*domain.UserProfile),
		inactive: make(map[string]bool),
	}
}

func (f *fakeUserClient) CreateUser(_ context.Context, username, email string) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, fmt.Errorf("user service down: %w", domain.ErrUpstreamUnavailable)
	}
	if _, ok := f.byName[username]; ok {
		return nil, domain.ErrRecordExists
	}
	profile := &domain.UserProfile{
		UserID:   f.nextID,
		Username: username,
		Email:    email,
		IsActive: true,
	}
	f.nextID++
	f.byName[username] = profile
	f.byID[profile.UserID] = profile
	return profile, nil
}

func (f *fakeUserClient) GetUserByID(_ context.Context, userID int64) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, fmt.Errorf("user service down: %w", domain.ErrUpstreamUnavailable)
	}
	profile, ok := f.byID[userID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return f.withActive(profile), nil
}

func (f *fakeUserClient) GetUserByUsername(_ context.Context, username string) (*domain.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, fmt.Errorf("user service down: %w", domain.ErrUpstreamUnavailable)
	}
	profile, ok := f.byName[username]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return f.withActive(profile), nil
}

func (f *fakeUserClient) withActive(p *domain.UserProfile) *domain.UserProfile {
	clone := *p
	clone.IsActive = !f.inactive[p.Username]
	return &clone
}

func (f *fakeUserClient) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offline = offline
}

type serviceFixture struct {
	svc     service.AuthService
	repo    *fakeRecordRepo
	users   *fakeUserClient
	limiter *repository.AttemptLimiter
	mr      *miniredis.Miniredis
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	codec, err := token.NewCodec(privatePEM, publicPEM, token.Options{
		Issuer:     "auth-service",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 720 * time.Hour,
	}, zap.NewNop())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newFakeRecordRepo()
	users := newFakeUserClient()
	limiter := repository.NewAttemptLimiter(client, 5, 300*time.Second, zap.NewNop())
	sessions := repository.NewSessionStore(client, time.Hour, zap.NewNop())
	statics := repository.NewStaticTokenStore(client, time.Hour, zap.NewNop())

	svc := service.NewAuthService(repo, limiter, sessions, statics, users, codec, zap.NewNop())
	return &serviceFixture{svc: svc, repo: repo, users: users, limiter: limiter, mr: mr}
}

func (fx *serviceFixture) register(t *testing.T, username, password string) *domain.RegistrationResult {
	t.Helper()
	result, err := fx.svc.Register(context.Background(), username, username+"@example.com", password)
	require.NoError(t, err)
	return result
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	result := fx.register(t, "alice", "password1")
	require.NotZero(t, result.UserID)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)

	// The registration static token resolves back to the new account.
	userID, err := fx.svc.ResolveStaticToken(ctx, result.StaticToken)
	require.NoError(t, err)
	assert.Equal(t, result.UserID, userID)

	pair, err := fx.svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	claims, err := fx.svc.VerifyAccessToken(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.UserID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	refreshed, err := fx.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	_, err = fx.svc.VerifyAccessToken(ctx, refreshed.AccessToken)
	require.NoError(t, err)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	fx := newServiceFixture(t)
	fx.register(t, "alice", "password1")

	_, err := fx.svc.Register(context.Background(), "alice", "other@example.com", "password2")
	assert.ErrorIs(t, err, domain.ErrRecordExists)
}

func TestLoginRejectionsAreIndistinguishable(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	fx.register(t, "alice", "password1")
	fx.users.inactive["alice2"] = true
	fx.register(t, "alice2", "password1")

	_, wrongPassword := fx.svc.Login(ctx, "alice", "nope12345")
	_, unknownUser := fx.svc.Login(ctx, "nobody", "password1")
	_, inactiveUser := fx.svc.Login(ctx, "alice2", "password1")

	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, inactiveUser, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, wrongPassword.Error(), inactiveUser.Error())
}

func TestLoginRejectionTimingIsUniform(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	fx.register(t, "alice", "password1")

	timeRejection := func(username string) time.Duration {
		start := time.Now()
		_, err := fx.svc.Login(ctx, username, "wrongpass1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		return time.Since(start)
	}

	var wrongPassword, unknownUser time.Duration
	for i := 0; i < 3; i++ {
		wrongPassword += timeRejection("alice")
		unknownUser += timeRejection("nobody")
	}

	// Both causes pay a full bcrypt comparison, so neither side can be
	// orders of magnitude faster than the other.
	ratio := float64(unknownUser) / float64(wrongPassword)
	assert.Greater(t, ratio, 0.2, "unknown-user rejections must not short-circuit the password check")
	assert.Less(t, ratio, 5.0)
}

func TestLoginLockoutAfterFailures(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	fx.register(t, "alice", "password1")

	for i := 0; i < 5; i++ {
		_, err := fx.svc.Login(ctx, "alice", "wrongpass1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// Even the correct password is rejected while the account is locked.
	_, err := fx.svc.Login(ctx, "alice", "password1")
	assert.ErrorIs(t, err, domain.ErrTooManyAttempts)

	fx.mr.FastForward(301 * time.Second)
	_, err = fx.svc.Login(ctx, "alice", "password1")
	assert.NoError(t, err, "lock lifts after the block window")
}

func TestSuccessfulLoginResetsCounter(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	fx.register(t, "alice", "password1")

	for i := 0; i < 4; i++ {
		_, err := fx.svc.Login(ctx, "alice", "wrongpass1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	_, err := fx.svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	// The counter restarted from zero, so four more failures do not lock.
	for i := 0; i < 4; i++ {
		_, err := fx.svc.Login(ctx, "alice", "wrongpass1")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	_, err = fx.svc.Login(ctx, "alice", "password1")
	assert.NoError(t, err)
}

func TestUpstreamOutageDoesNotCountAsFailure(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	fx.register(t, "alice", "password1")

	fx.users.setOffline(true)
	for i := 0; i < 10; i++ {
		_, err := fx.svc.Login(ctx, "alice", "password1")
		require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
		require.NotErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// None of the outage failures counted against the limiter.
	fx.users.setOffline(false)
	require.NoError(t, fx.limiter.Check(ctx, "alice"))
	_, err := fx.svc.Login(ctx, "alice", "password1")
	assert.NoError(t, err)
}

func TestRefreshRotationRejectsReuse(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	result := fx.register(t, "alice", "password1")

	first, err := fx.svc.Refresh(ctx, result.RefreshToken)
	require.NoError(t, err)

	// The redeemed token is revoked by rotation.
	_, err = fx.svc.Refresh(ctx, result.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// The replacement token still works.
	second, err := fx.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestConcurrentRefreshHasSingleWinner(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	result := fx.register(t, "alice", "password1")

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.Refresh(ctx, result.RefreshToken)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, rejected int
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, domain.ErrTokenInvalid)
		rejected++
	}
	assert.Equal(t, 1, succeeded, "exactly one racing refresh wins the rotation")
	assert.Equal(t, 1, rejected)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	fx := newServiceFixture(t)
	result := fx.register(t, "alice", "password1")

	_, err := fx.svc.Refresh(context.Background(), result.AccessToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestRefreshSupersededByNewLogin(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	result := fx.register(t, "alice", "password1")

	// A fresh login replaces the stored refresh token, revoking the one
	// issued at registration.
	pair, err := fx.svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	_, err = fx.svc.Refresh(ctx, result.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	_, err = fx.svc.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	result := fx.register(t, "alice", "password1")

	login, err := fx.svc.LoginSession(ctx, "alice", "password1")
	require.NoError(t, err)
	require.NotEmpty(t, login.SessionToken)
	assert.Equal(t, result.UserID, login.UserID)

	userID, err := fx.svc.CheckSession(ctx, login.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, result.UserID, userID)

	require.NoError(t, fx.svc.Logout(ctx, login.SessionToken))

	_, err = fx.svc.CheckSession(ctx, login.SessionToken)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDeleteAccountPurgesEverything(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()
	fx.register(t, "alice", "password1")

	login, err := fx.svc.LoginSession(ctx, "alice", "password1")
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeleteAccount(ctx, login.UserID))

	_, err = fx.repo.GetByUserID(ctx, login.UserID)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = fx.svc.CheckSession(ctx, login.SessionToken)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = fx.svc.Refresh(ctx, login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)

	// Deleting again is not an error: the record is already gone.
	assert.NoError(t, fx.svc.DeleteAccount(ctx, login.UserID))
}

func TestGetProfile(t *testing.T) {
	fx := newServiceFixture(t)
	result := fx.register(t, "alice", "password1")

	profile, err := fx.svc.GetProfile(context.Background(), result.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice@example.com", profile.Email)
}
