package domain

import "errors"

// Service-wide sentinel errors. Flows return these (optionally wrapped with
// fmt.Errorf("...: %w", err)) and the HTTP layer maps them to status codes
// in exactly one place, so no internal detail leaks across the boundary.
var (
	// ErrInvalidCredentials is returned for every login rejection regardless
	// of which step failed (unknown user, inactive user, missing auth record,
	// wrong password). Callers must not be able to tell the causes apart.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrTooManyAttempts means the failed-attempt limiter tripped. Safe to
	// disclose: it carries no information about whether the account exists.
	ErrTooManyAttempts = errors.New("too many failed attempts, try again later")

	// Token errors. All of them are terminal for the operation that hit them.
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// ErrUpstreamUnavailable covers transport errors, timeouts and 5xx
	// responses from the user-profile service. Retryable by the caller and
	// never counted as a failed credential attempt.
	ErrUpstreamUnavailable = errors.New("user service unavailable")

	ErrRecordExists   = errors.New("auth record already exists")
	ErrRecordNotFound = errors.New("auth record not found")

	ErrSessionNotFound = errors.New("session not found")
	ErrTokenNotFound   = errors.New("token not found in storage")

	ErrProfileNotFound = errors.New("user profile not found")

	ErrInternal = errors.New("internal server error")
)
