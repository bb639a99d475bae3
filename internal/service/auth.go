package service

import (
	"context"

	"auth-service/internal/domain"
)

// AuthService is the application-facing surface of the authentication
// service: credential checks, token issuance and rotation, sessions and
// account lifecycle.
type AuthService interface {
	// Register creates a profile in the user service, stores the credential
	// record and returns an initial token set for the new account.
	Register(ctx context.Context, username, email, password string) (*domain.RegistrationResult, error)

	// Login verifies credentials and returns a fresh token pair.
	// All rejection causes surface as domain.ErrInvalidCredentials;
	// a locked identity surfaces as domain.ErrTooManyAttempts.
	Login(ctx context.Context, username, password string) (*domain.TokenPair, error)

	// LoginSession performs Login and additionally opens a server-side
	// session for cookie-based clients.
	LoginSession(ctx context.Context, username, password string) (*domain.SessionLogin, error)

	// Refresh exchanges a refresh token for a new pair. The presented token
	// must match the currently stored one; rotation is atomic, so a token
	// can be redeemed at most once.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)

	// VerifyAccessToken validates a bearer token and returns its claims.
	VerifyAccessToken(ctx context.Context, accessToken string) (*domain.TokenClaims, error)

	// GetProfile returns the profile of an authenticated user.
	GetProfile(ctx context.Context, userID int64) (*domain.UserProfile, error)

	// CheckSession resolves a session token to a user id, renewing its TTL.
	CheckSession(ctx context.Context, sessionToken string) (int64, error)

	// Logout destroys a session. Unknown tokens are not an error.
	Logout(ctx context.Context, sessionToken string) error

	// ResolveStaticToken resolves a fixed-lifetime static token to a user id.
	ResolveStaticToken(ctx context.Context, token string) (int64, error)

	// DeleteAccount removes the credential record and purges the user's
	// sessions and lockout counters.
	DeleteAccount(ctx context.Context, userID int64) error
}
