package service

import (
	"context"
	"errors"
	"fmt"

	"auth-service/internal/clients"
	"auth-service/internal/domain"
	"auth-service/internal/repository"
	"auth-service/internal/security"
	"auth-service/internal/token"

	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ AuthService = (*authServiceImpl)(nil)

type authServiceImpl struct {
	records      repository.AuthRecordRepository
	limiter      *repository.AttemptLimiter
	sessions     *repository.SessionStore
	staticTokens *repository.StaticTokenStore
	users        clients.UserServiceClient
	codec        *token.Codec
	logger       *zap.Logger
}

// NewAuthService wires the authentication service from its dependencies.
func NewAuthService(
	records repository.AuthRecordRepository,
	limiter *repository.AttemptLimiter,
	sessions *repository.SessionStore,
	staticTokens *repository.StaticTokenStore,
	users clients.UserServiceClient,
	codec *token.Codec,
	logger *zap.Logger,
) AuthService {
	return &authServiceImpl{
		records:      records,
		limiter:      limiter,
		sessions:     sessions,
		staticTokens: staticTokens,
		users:        users,
		codec:        codec,
		logger:       logger.Named("AuthService"),
	}
}

func (s *authServiceImpl) Register(ctx context.Context, username, email, password string) (*domain.RegistrationResult, error) {
	log := s.logger.With(zap.String("username", username))

	profile, err := s.users.CreateUser(ctx, username, email)
	if err != nil {
		if errors.Is(err, domain.ErrRecordExists) {
			return nil, domain.ErrRecordExists
		}
		log.Warn("Registration failed at user service", zap.Error(err))
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	pair, err := s.mintPair(profile.UserID, profile.Email)
	if err != nil {
		return nil, err
	}

	record := &domain.AuthRecord{
		UserID:              profile.UserID,
		PasswordHash:        hash,
		CurrentRefreshToken: &pair.RefreshToken,
	}
	if err := s.records.Create(ctx, record); err != nil {
		log.Error("Failed to create auth record", zap.Int64("user_id", profile.UserID), zap.Error(err))
		return nil, err
	}

	staticToken, err := s.staticTokens.Issue(ctx, profile.UserID)
	if err != nil {
		return nil, err
	}

	log.Info("User registered", zap.Int64("user_id", profile.UserID))
	return &domain.RegistrationResult{
		UserID:       profile.UserID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		StaticToken:  staticToken,
	}, nil
}

func (s *authServiceImpl) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	record, profile, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	pair, err := s.mintPair(record.UserID, profile.Email)
	if err != nil {
		return nil, err
	}
	if err := s.records.SetRefreshToken(ctx, record.UserID, pair.RefreshToken); err != nil {
		s.logger.Error("Failed to store refresh token", zap.Int64("user_id", record.UserID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("User logged in", zap.Int64("user_id", record.UserID))
	return pair, nil
}

func (s *authServiceImpl) LoginSession(ctx context.Context, username, password string) (*domain.SessionLogin, error) {
	pair, err := s.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	claims, err := s.codec.DecodeAccess(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	sessionToken, err := s.sessions.Create(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &domain.SessionLogin{
		UserID:       claims.UserID,
		SessionToken: sessionToken,
		Tokens:       *pair,
	}, nil
}

// authenticate runs the credential check state machine. Every rejection that
// stems from the caller's input pays a full bcrypt comparison, records a
// failed attempt, and returns the same domain.ErrInvalidCredentials, so the
// causes cannot be told apart by timing or message. Upstream outages are
// passed through untouched and never count against the limiter.
func (s *authServiceImpl) authenticate(ctx context.Context, username, password string) (*domain.AuthRecord, *domain.UserProfile, error) {
	log := s.logger.With(zap.String("username", username))

	if err := s.limiter.Check(ctx, username); err != nil {
		if errors.Is(err, domain.ErrTooManyAttempts) {
			log.Warn("Login blocked by attempt limiter")
		}
		return nil, nil, err
	}

	profile, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			// Burn a bcrypt comparison so an unknown username rejects in
			// the same time as a wrong password.
			security.DummyCheck(password)
			return nil, nil, s.rejectLogin(ctx, username, "unknown username")
		}
		log.Warn("User service lookup failed during login", zap.Error(err))
		return nil, nil, err
	}
	if !profile.IsActive {
		security.DummyCheck(password)
		return nil, nil, s.rejectLogin(ctx, username, "inactive account")
	}

	record, err := s.records.GetByUserID(ctx, profile.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			security.DummyCheck(password)
			return nil, nil, s.rejectLogin(ctx, username, "no credential record")
		}
		log.Error("Failed to load auth record", zap.Int64("user_id", profile.UserID), zap.Error(err))
		return nil, nil, err
	}

	if !security.CheckPassword(password, record.PasswordHash) {
		return nil, nil, s.rejectLogin(ctx, username, "password mismatch")
	}

	if err := s.limiter.RecordSuccess(ctx, username); err != nil {
		log.Warn("Failed to reset attempt counter", zap.Error(err))
	}
	return record, profile, nil
}

// rejectLogin records a failed attempt and returns the shared rejection
// sentinel. The reason is logged but never leaves the service.
func (s *authServiceImpl) rejectLogin(ctx context.Context, username, reason string) error {
	s.logger.Info("Login rejected", zap.String("username", username), zap.String("reason", reason))
	if err := s.limiter.RecordFailure(ctx, username); err != nil {
		s.logger.Warn("Failed to record login failure", zap.String("username", username), zap.Error(err))
	}
	return domain.ErrInvalidCredentials
}

func (s *authServiceImpl) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.codec.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.Int64("user_id", claims.UserID))

	record, err := s.records.GetByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		log.Error("Failed to load auth record for refresh", zap.Error(err))
		return nil, err
	}
	if record.CurrentRefreshToken == nil || *record.CurrentRefreshToken != refreshToken {
		log.Warn("Refresh token does not match stored token, rejecting")
		return nil, domain.ErrTokenInvalid
	}

	pair, err := s.mintPair(claims.UserID, claims.Email)
	if err != nil {
		return nil, err
	}

	err = s.records.RotateRefreshToken(ctx, claims.UserID, refreshToken, pair.RefreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			// Lost the rotation race: another request redeemed this token first.
			log.Warn("Concurrent refresh detected, rejecting")
			return nil, domain.ErrTokenInvalid
		}
		log.Error("Failed to rotate refresh token", zap.Error(err))
		return nil, err
	}

	log.Debug("Refresh token rotated")
	return pair, nil
}

func (s *authServiceImpl) VerifyAccessToken(_ context.Context, accessToken string) (*domain.TokenClaims, error) {
	return s.codec.DecodeAccess(accessToken)
}

func (s *authServiceImpl) GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error) {
	return s.users.GetUserByID(ctx, userID)
}

func (s *authServiceImpl) CheckSession(ctx context.Context, sessionToken string) (int64, error) {
	return s.sessions.Get(ctx, sessionToken)
}

func (s *authServiceImpl) Logout(ctx context.Context, sessionToken string) error {
	return s.sessions.Delete(ctx, sessionToken)
}

func (s *authServiceImpl) ResolveStaticToken(ctx context.Context, staticToken string) (int64, error) {
	return s.staticTokens.Resolve(ctx, staticToken)
}

func (s *authServiceImpl) DeleteAccount(ctx context.Context, userID int64) error {
	log := s.logger.With(zap.Int64("user_id", userID))

	// Best effort: reset the lockout counter before the profile disappears.
	if profile, err := s.users.GetUserByID(ctx, userID); err == nil {
		if err := s.limiter.RecordSuccess(ctx, profile.Username); err != nil {
			log.Warn("Failed to clear attempt counter during account deletion", zap.Error(err))
		}
	} else if !errors.Is(err, domain.ErrProfileNotFound) {
		log.Warn("Could not resolve username during account deletion", zap.Error(err))
	}

	if err := s.records.Delete(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			log.Debug("No auth record to delete")
		} else {
			log.Error("Failed to delete auth record", zap.Error(err))
			return err
		}
	}

	if purged, err := s.sessions.DeleteByUserID(ctx, userID); err != nil {
		log.Warn("Failed to purge sessions during account deletion", zap.Error(err))
	} else if purged > 0 {
		log.Debug("Purged user sessions", zap.Int64("count", purged))
	}

	log.Info("Account auth data deleted")
	return nil
}

func (s *authServiceImpl) mintPair(userID int64, email string) (*domain.TokenPair, error) {
	access, atExp, err := s.codec.IssueAccess(userID, email)
	if err != nil {
		return nil, err
	}
	refresh, rtExp, err := s.codec.IssueRefresh(userID, email)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AtExpires:    atExp,
		RtExpires:    rtExp,
	}, nil
}
