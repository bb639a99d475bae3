package repository

import (
	"context"

	"auth-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool the repositories need. Both a pool and
// a transaction satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuthRecordRepository owns the auth_records table. No other component
// touches it.
type AuthRecordRepository interface {
	Create(ctx context.Context, record *domain.AuthRecord) error
	GetByUserID(ctx context.Context, userID int64) (*domain.AuthRecord, error)
	// SetRefreshToken unconditionally replaces the stored refresh token
	// (login and registration seed it this way).
	SetRefreshToken(ctx context.Context, userID int64, refreshToken string) error
	// RotateRefreshToken replaces the stored refresh token only if it still
	// equals previous. Returns ErrRecordNotFound when the compare-and-set
	// matched no row, which callers surface as a revoked token.
	RotateRefreshToken(ctx context.Context, userID int64, previous, next string) error
	Delete(ctx context.Context, userID int64) error
}
