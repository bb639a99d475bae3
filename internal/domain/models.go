package domain

import "time"

// AuthRecord is the single locally persisted entity: the authentication
// secrets for one externally managed user. Profile data (username, email,
// active flag) lives in the user service; only the password hash and the
// currently valid refresh token are stored here.
type AuthRecord struct {
	UserID              int64     `db:"user_id" json:"user_id"`
	PasswordHash        []byte    `db:"password_hash" json:"-"` // never serialized or logged
	CurrentRefreshToken *string   `db:"current_refresh_token" json:"-"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// UserProfile is the subset of the user-service response this service
// consumes. It is never persisted locally.
type UserProfile struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// TokenPair holds a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AtExpires    int64  `json:"at_expires"`
	RtExpires    int64  `json:"rt_expires"`
}

// RegistrationResult is returned by the registration flow: the externally
// issued user id plus the freshly seeded credentials.
type RegistrationResult struct {
	UserID       int64  `json:"user_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	StaticToken  string `json:"static_token"`
}

// SessionLogin is the cookie-variant login result: a server-side session
// token alongside the JWT pair. The two credential mechanisms are
// independent; a client may hold either or both.
type SessionLogin struct {
	UserID       int64     `json:"user_id"`
	SessionToken string    `json:"session_token"`
	Tokens       TokenPair `json:"tokens"`
}
