package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Brownie44l1/lumistore/internal/models"
)

// ==============================================
// VERIFICATION REPOSITORY
// ==============================================

// VerificationRepository owns the email challenge columns of users.
type VerificationRepository struct {
	db *pgxpool.Pool
}

func NewVerificationRepository(db *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func (r *VerificationRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.BeginTx(ctx, pgx.TxOptions{})
}

// GetUserByEmailForUpdate locks the account row until tx ends.
func (r *VerificationRepository) GetUserByEmailForUpdate(ctx context.Context, tx pgx.Tx, email string) (*models.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return u, nil
}

// SaveOTPState writes the challenge fields of a locked account.
func (r *VerificationRepository) SaveOTPState(ctx context.Context, tx pgx.Tx, userID string, s models.OTPState) error {
	query := `
		UPDATE users
		SET otp_code = $2,
		    otp_expires_at = $3,
		    otp_attempts = $4,
		    otp_locked_until = $5,
		    email_verified = $6,
		    updated_at = now()
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query, userID, s.Code, s.ExpiresAt, s.Attempts, s.LockedUntil, s.Verified)
	if err != nil {
		return fmt.Errorf("failed to save OTP state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
