package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/lumistore/internal/auth"
	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/metrics"
	"github.com/Brownie44l1/lumistore/internal/models"
)

type VerificationRepositoryInterface interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetUserByEmailForUpdate(ctx context.Context, tx pgx.Tx, email string) (*models.User, error)
	SaveOTPState(ctx context.Context, tx pgx.Tx, userID string, s models.OTPState) error
}

// Notifier delivers the account emails.
type Notifier interface {
	SendOTP(ctx context.Context, to, code string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error
	SendWelcomeEmail(ctx context.Context, to, name string) error
}

// ==============================================
// OTP SERVICE
// ==============================================

// OTPService manages the email verification challenge. Every read-modify-write
// of the challenge fields happens under a row lock on the account, so
// concurrent submissions cannot lose attempt increments.
type OTPService struct {
	repo   VerificationRepositoryInterface
	notify Notifier
	policy models.OTPPolicy
	log    zerolog.Logger

	now     func() time.Time
	genCode func() (string, error)
}

func NewOTPService(repo VerificationRepositoryInterface, notify Notifier, policy models.OTPPolicy, log zerolog.Logger) *OTPService {
	return &OTPService{
		repo:    repo,
		notify:  notify,
		policy:  policy,
		log:     log.With().Str("component", "otp").Logger(),
		now:     time.Now,
		genCode: auth.GenerateOTP,
	}
}

func (s *OTPService) Policy() models.OTPPolicy { return s.policy }

// ==============================================
// ISSUE
// ==============================================

// IssueCode stores a fresh code for the account and emails it. The new code
// is committed before delivery is attempted.
func (s *OTPService) IssueCode(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	code, err := s.genCode()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := s.repo.GetUserByEmailForUpdate(ctx, tx, email)
	if err != nil {
		return err
	}

	next, err := user.OTPState().Issue(code, s.now(), s.policy)
	if err != nil {
		return err
	}
	if err := s.repo.SaveOTPState(ctx, tx, user.ID, next); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log := logging.With(ctx, s.log)
	log.Info().Str("user_id", user.ID).Msg("verification code issued")

	return s.notify.SendOTP(ctx, user.Email, code, s.policy.CodeTTL)
}

// ==============================================
// CHECK
// ==============================================

// CheckCode verifies a submitted code. Wrong codes advance the attempt
// counter and eventually lock the challenge; expired codes do not count.
func (s *OTPService) CheckCode(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	code = strings.TrimSpace(code)

	outcome, err := s.checkCode(ctx, email, code)
	metrics.IncOTPCheck(outcome)
	return err
}

func (s *OTPService) checkCode(ctx context.Context, email, code string) (string, error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return "error", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := s.repo.GetUserByEmailForUpdate(ctx, tx, email)
	if err != nil {
		if models.IsNotFoundError(err) {
			return "unknown", err
		}
		return "error", err
	}

	next, checkErr := user.OTPState().Check(code, s.now(), s.policy)

	var invalid *models.InvalidCodeError
	persist := checkErr == nil || errors.As(checkErr, &invalid) || errors.Is(checkErr, models.ErrTooManyAttempts)
	if persist {
		if err := s.repo.SaveOTPState(ctx, tx, user.ID, next); err != nil {
			return "error", err
		}
		if err := tx.Commit(ctx); err != nil {
			return "error", fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	log := logging.With(ctx, s.log).With().Str("user_id", user.ID).Logger()
	switch {
	case checkErr == nil:
		log.Info().Msg("email verified")
		return "verified", nil
	case errors.Is(checkErr, models.ErrTooManyAttempts):
		log.Warn().Str("event", "security").Msg("verification locked after repeated failures")
		return "locked", checkErr
	case errors.Is(checkErr, models.ErrLocked):
		return "locked", checkErr
	case errors.Is(checkErr, models.ErrInvalidCode):
		return "invalid", checkErr
	case errors.Is(checkErr, models.ErrExpiredCode):
		return "expired", checkErr
	case errors.Is(checkErr, models.ErrAlreadyVerified):
		return "already_verified", checkErr
	default:
		return "error", checkErr
	}
}
