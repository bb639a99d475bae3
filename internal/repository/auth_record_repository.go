package repository

import (
	"context"
	"errors"
	"fmt"

	"auth-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	createAuthRecordQuery = `
		INSERT INTO auth_records (user_id, password_hash, current_refresh_token, updated_at)
		VALUES ($1, $2, $3, NOW());
	`
	getAuthRecordQuery = `
		SELECT user_id, password_hash, current_refresh_token, updated_at
		FROM auth_records
		WHERE user_id = $1;
	`
	setRefreshTokenQuery = `
		UPDATE auth_records
		SET current_refresh_token = $2, updated_at = NOW()
		WHERE user_id = $1;
	`
	// The WHERE clause on the previous token value is the whole revocation
	// mechanism: of two concurrent rotations only one can match.
	rotateRefreshTokenQuery = `
		UPDATE auth_records
		SET current_refresh_token = $3, updated_at = NOW()
		WHERE user_id = $1 AND current_refresh_token = $2;
	`
	deleteAuthRecordQuery = `DELETE FROM auth_records WHERE user_id = $1;`
)

// Compile-time check to ensure pgAuthRecordRepository implements AuthRecordRepository
var _ AuthRecordRepository = (*pgAuthRecordRepository)(nil)

type pgAuthRecordRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewAuthRecordRepository creates a new PostgreSQL-backed AuthRecordRepository.
func NewAuthRecordRepository(db DBTX, logger *zap.Logger) AuthRecordRepository {
	return &pgAuthRecordRepository{
		db:     db,
		logger: logger.Named("AuthRecordRepo"),
	}
}

// Create inserts a new auth record.
func (r *pgAuthRecordRepository) Create(ctx context.Context, record *domain.AuthRecord) error {
	_, err := r.db.Exec(ctx, createAuthRecordQuery, record.UserID, record.PasswordHash, record.CurrentRefreshToken)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			r.logger.Warn("Attempted to create duplicate auth record", zap.Int64("userID", record.UserID))
			return domain.ErrRecordExists
		}
		r.logger.Error("Failed to create auth record", zap.Int64("userID", record.UserID), zap.Error(err))
		return fmt.Errorf("failed to create auth record: %w", err)
	}
	r.logger.Info("Auth record created", zap.Int64("userID", record.UserID))
	return nil
}

// GetByUserID fetches the auth record for a user.
func (r *pgAuthRecordRepository) GetByUserID(ctx context.Context, userID int64) (*domain.AuthRecord, error) {
	record := &domain.AuthRecord{}
	err := r.db.QueryRow(ctx, getAuthRecordQuery, userID).
		Scan(&record.UserID, &record.PasswordHash, &record.CurrentRefreshToken, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Auth record not found", zap.Int64("userID", userID))
			return nil, domain.ErrRecordNotFound
		}
		r.logger.Error("Failed to get auth record", zap.Int64("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get auth record: %w", err)
	}
	return record, nil
}

// SetRefreshToken unconditionally replaces the stored refresh token.
func (r *pgAuthRecordRepository) SetRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	cmdTag, err := r.db.Exec(ctx, setRefreshTokenQuery, userID, refreshToken)
	if err != nil {
		r.logger.Error("Failed to set refresh token", zap.Int64("userID", userID), zap.Error(err))
		return fmt.Errorf("failed to set refresh token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Set refresh token matched no record", zap.Int64("userID", userID))
		return domain.ErrRecordNotFound
	}
	return nil
}

// RotateRefreshToken is an optimistic compare-and-set on the stored token.
func (r *pgAuthRecordRepository) RotateRefreshToken(ctx context.Context, userID int64, previous, next string) error {
	cmdTag, err := r.db.Exec(ctx, rotateRefreshTokenQuery, userID, previous, next)
	if err != nil {
		r.logger.Error("Failed to rotate refresh token", zap.Int64("userID", userID), zap.Error(err))
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the record is gone or another rotation won the race.
		r.logger.Warn("Refresh token rotation matched no record", zap.Int64("userID", userID))
		return domain.ErrRecordNotFound
	}
	r.logger.Debug("Refresh token rotated", zap.Int64("userID", userID))
	return nil
}

// Delete removes the auth record for a user.
func (r *pgAuthRecordRepository) Delete(ctx context.Context, userID int64) error {
	cmdTag, err := r.db.Exec(ctx, deleteAuthRecordQuery, userID)
	if err != nil {
		r.logger.Error("Failed to delete auth record", zap.Int64("userID", userID), zap.Error(err))
		return fmt.Errorf("failed to delete auth record: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent auth record", zap.Int64("userID", userID))
		return domain.ErrRecordNotFound
	}
	r.logger.Info("Auth record deleted", zap.Int64("userID", userID))
	return nil
}
