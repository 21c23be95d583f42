package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/lumistore/internal/auth"
	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/metrics"
	"github.com/Brownie44l1/lumistore/internal/models"
)

type ResetRepositoryInterface interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	RedeemResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (string, error)
}

// ==============================================
// RESET SERVICE
// ==============================================

// ResetService implements the emailed password reset link. Only the SHA-256
// of a token is stored; the raw token exists in the email alone.
type ResetService struct {
	users  ResetRepositoryInterface
	notify Notifier
	appURL string
	ttl    time.Duration
	log    zerolog.Logger

	now      func() time.Time
	genToken func() (string, error)
	hashPass func(string) (string, error)
}

func NewResetService(users ResetRepositoryInterface, notify Notifier, appURL string, ttl time.Duration, log zerolog.Logger) *ResetService {
	if ttl <= 0 {
		ttl = models.ResetTokenTTL
	}
	return &ResetService{
		users:  users,
		notify: notify,
		appURL: strings.TrimRight(appURL, "/"),
		ttl:    ttl,
		log:    log.With().Str("component", "reset").Logger(),
		now:    time.Now,
		genToken: func() (string, error) {
			return auth.GenerateOpaqueToken(models.ResetTokenBytes)
		},
		hashPass: auth.HashPassword,
	}
}

// RequestReset issues a reset token and emails the link. Unknown addresses
// return nil so callers cannot tell whether an account exists.
func (s *ResetService) RequestReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	log := logging.With(ctx, s.log).With().Str("email", logging.RedactEmail(email)).Logger()

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if models.IsNotFoundError(err) {
			metrics.IncReset("request", "unknown")
			log.Info().Msg("reset requested for unknown address")
			return nil
		}
		return err
	}

	token, err := s.genToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	if err := s.users.SetResetToken(ctx, user.ID, auth.HashToken(token), s.now().Add(s.ttl)); err != nil {
		return err
	}

	link := s.appURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.notify.SendPasswordReset(ctx, user.Email, link, s.ttl); err != nil {
		metrics.IncReset("request", "email_failed")
		return err
	}

	metrics.IncReset("request", "sent")
	log.Info().Str("user_id", user.ID).Msg("reset link sent")
	return nil
}

// RedeemReset sets a new password if the token is current. The token is
// cleared in the same statement that changes the password.
func (s *ResetService) RedeemReset(ctx context.Context, token, newPassword string) error {
	if err := models.ValidatePassword("new_password", newPassword); err != nil {
		metrics.IncReset("redeem", "invalid_password")
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		metrics.IncReset("redeem", "invalid_token")
		return models.ErrInvalidToken
	}

	hash, err := s.hashPass(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.users.RedeemResetToken(ctx, auth.HashToken(token), hash, s.now())
	if err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			metrics.IncReset("redeem", "invalid_token")
		}
		return err
	}

	metrics.IncReset("redeem", "success")
	log := logging.With(ctx, s.log)
	log.Info().Str("user_id", userID).Msg("password reset")
	return nil
}
