package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/lumistore/internal/api/dto"
	"github.com/Brownie44l1/lumistore/internal/auth"
	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/models"
	"github.com/Brownie44l1/lumistore/internal/ratelimit"
)

type UserRepositoryInterface interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

// OTPManager is the email challenge used by registration.
type OTPManager interface {
	IssueCode(ctx context.Context, email string) error
	CheckCode(ctx context.Context, email, code string) error
	Policy() models.OTPPolicy
}

// PasswordResetter is the emailed reset link flow.
type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) error
	RedeemReset(ctx context.Context, token, newPassword string) error
}

// ==============================================
// AUTH SERVICE
// ==============================================

type AuthService struct {
	users     UserRepositoryInterface
	otp       OTPManager
	resets    PasswordResetter
	notify    Notifier
	limiter   ratelimit.Limiter
	jwtSecret string
	log       zerolog.Logger
}

func NewAuthService(
	users UserRepositoryInterface,
	otp OTPManager,
	resets PasswordResetter,
	notify Notifier,
	limiter ratelimit.Limiter,
	jwtSecret string,
	log zerolog.Logger,
) *AuthService {
	if limiter == nil {
		limiter = ratelimit.Noop{}
	}
	return &AuthService{
		users:     users,
		otp:       otp,
		resets:    resets,
		notify:    notify,
		limiter:   limiter,
		jwtSecret: jwtSecret,
		log:       log.With().Str("component", "auth").Logger(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ==============================================
// REGISTER
// ==============================================

// Register creates an unverified account and emails its first code. The
// account is kept when the email cannot be delivered; the response then
// carries a warning and the user can ask for a new code.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	if err := models.ValidatePassword("password", req.Password); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        normalizeEmail(req.Email),
		Phone:        req.Phone,
		PasswordHash: passwordHash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log := logging.With(ctx, s.log).With().Str("user_id", user.ID).Logger()
	log.Info().Msg("account registered")

	resp := &dto.RegisterResponse{
		User:     user.ToPublic(),
		Message:  "Account created successfully. Please check your email for the verification code.",
		NextStep: "verify_email",
	}

	if err := s.otp.IssueCode(ctx, user.Email); err != nil {
		log.Error().Err(err).Msg("verification code not delivered after registration")
		resp.Warning = "We could not send the verification email. Please request a new code."
	}

	return resp, nil
}

// ==============================================
// EMAIL VERIFICATION
// ==============================================

func (s *AuthService) VerifyEmail(ctx context.Context, req dto.VerifyOTPRequest) (*dto.VerifyOTPResponse, error) {
	email := normalizeEmail(req.Email)

	if err := s.otp.CheckCode(ctx, email, req.Code); err != nil {
		return nil, err
	}

	// welcome email is best effort
	if user, err := s.users.GetUserByEmail(ctx, email); err == nil {
		if err := s.notify.SendWelcomeEmail(ctx, user.Email, user.Name); err != nil {
			log := logging.With(ctx, s.log)
			log.Warn().Err(err).Str("user_id", user.ID).Msg("welcome email not sent")
		}
	}

	return &dto.VerifyOTPResponse{
		Success: true,
		Message: "Email verified successfully. You can now log in.",
	}, nil
}

// ==============================================
// RESEND OTP
// ==============================================

func (s *AuthService) ResendOTP(ctx context.Context, req dto.ResendOTPRequest) (*dto.ResendOTPResponse, error) {
	email := normalizeEmail(req.Email)
	log := logging.With(ctx, s.log).With().Str("email", logging.RedactEmail(email)).Logger()

	if err := s.throttle(ctx, log, "otp:"+email); err != nil {
		return nil, err
	}

	if err := s.otp.IssueCode(ctx, email); err != nil {
		return nil, err
	}

	return &dto.ResendOTPResponse{
		Success:   true,
		Message:   "Verification code sent to your email",
		ExpiresIn: int(s.otp.Policy().CodeTTL.Seconds()),
	}, nil
}

// ==============================================
// LOGIN
// ==============================================

func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		log := logging.With(ctx, s.log)
		log.Warn().Str("event", "security").Str("user_id", user.ID).Msg("failed login")
		return nil, models.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		return nil, models.ErrEmailNotVerified
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	token, expiresIn, err := auth.GenerateJWT(user.ID, user.Email, s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &dto.LoginResponse{
		User:        user.ToPublic(),
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	}, nil
}

// Me returns the authenticated user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToPublic(), nil
}

// ==============================================
// PASSWORD RESET
// ==============================================

func (s *AuthService) ForgotPassword(ctx context.Context, req dto.ForgotPasswordRequest) (*dto.ForgotPasswordResponse, error) {
	email := normalizeEmail(req.Email)
	log := logging.With(ctx, s.log).With().Str("email", logging.RedactEmail(email)).Logger()

	if err := s.throttle(ctx, log, "reset:"+email); err != nil {
		return nil, err
	}

	if err := s.resets.RequestReset(ctx, email); err != nil {
		return nil, err
	}
	return &dto.ForgotPasswordResponse{
		Success: true,
		Message: "If this email is registered, you'll receive a password reset link shortly",
	}, nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req dto.ResetPasswordRequest) (*dto.ResetPasswordResponse, error) {
	if err := s.resets.RedeemReset(ctx, req.Token, req.NewPassword); err != nil {
		return nil, err
	}
	return &dto.ResetPasswordResponse{
		Success: true,
		Message: "Password updated. You can now log in with your new password.",
	}, nil
}

// throttle applies the per-address limiter. Limiter outages fail open so a
// Redis problem never blocks account recovery.
func (s *AuthService) throttle(ctx context.Context, log zerolog.Logger, key string) error {
	res, err := s.limiter.Allow(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
		return nil
	}
	if !res.Allowed {
		log.Warn().Str("event", "security").Dur("retry_after", res.RetryAfter).Msg("request rate limited")
		return fmt.Errorf("%w: retry in %s", models.ErrRateLimited, res.RetryAfter.Round(time.Second))
	}
	return nil
}
