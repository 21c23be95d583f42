package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/mailer"
	"github.com/Brownie44l1/lumistore/internal/metrics"
	"github.com/Brownie44l1/lumistore/internal/models"
)

// ==============================================
// EMAIL SERVICE
// ==============================================

// EmailService renders the storefront's transactional emails and hands them
// to a mailer.Sender. Delivery failures are returned wrapped in
// models.ErrEmailDelivery.
type EmailService struct {
	sender  mailer.Sender
	appName string
	log     zerolog.Logger
}

func NewEmailService(sender mailer.Sender, appName string, log zerolog.Logger) *EmailService {
	if appName == "" {
		appName = "Lumistore"
	}
	return &EmailService{
		sender:  sender,
		appName: appName,
		log:     log.With().Str("component", "email").Logger(),
	}
}

func (s *EmailService) send(ctx context.Context, kind string, msg mailer.Message) error {
	err := s.sender.Send(ctx, msg)
	metrics.IncEmail(kind, err == nil)
	if err != nil {
		log := logging.With(ctx, s.log)
		log.Error().
			Err(err).
			Str("kind", kind).
			Str("to", logging.RedactEmail(msg.To)).
			Msg("email delivery failed")
		return fmt.Errorf("%w: %s email: %v", models.ErrEmailDelivery, kind, err)
	}
	return nil
}

// ==============================================
// SEND OTP
// ==============================================

// SendOTP sends an email verification code.
func (s *EmailService) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	minutes := int(ttl.Minutes())
	return s.send(ctx, "otp", mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("Verify Your Email - %s", s.appName),
		Text: fmt.Sprintf(`Hello,

Thank you for signing up with %s!

Your email verification code is: %s

This code will expire in %d minutes.

If you didn't request this code, please ignore this email.

Best regards,
%s Team
`, s.appName, code, minutes, s.appName),
		HTML: fmt.Sprintf(`<p>Hello,</p>
<p>Thank you for signing up with %s!</p>
<p>Your email verification code is: <strong style="font-size:20px;letter-spacing:4px">%s</strong></p>
<p>This code will expire in %d minutes.</p>
<p>If you didn't request this code, please ignore this email.</p>
<p>Best regards,<br>%s Team</p>`, s.appName, code, minutes, s.appName),
	})
}

// ==============================================
// SEND RESET LINK
// ==============================================

func (s *EmailService) SendPasswordReset(ctx context.Context, to, link string, ttl time.Duration) error {
	minutes := int(ttl.Minutes())
	return s.send(ctx, "reset", mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("Reset Your Password - %s", s.appName),
		Text: fmt.Sprintf(`Hello,

We received a request to reset your password.

Open this link to choose a new password:
%s

This link will expire in %d minutes.

If you didn't request this, please ignore this email and your password will remain unchanged.

Best regards,
%s Team
`, link, minutes, s.appName),
		HTML: fmt.Sprintf(`<p>Hello,</p>
<p>We received a request to reset your password.</p>
<p><a href="%s">Choose a new password</a></p>
<p>This link will expire in %d minutes.</p>
<p>If you didn't request this, please ignore this email and your password will remain unchanged.</p>
<p>Best regards,<br>%s Team</p>`, link, minutes, s.appName),
	})
}

// SendWelcomeEmail sends a welcome email to newly verified users
func (s *EmailService) SendWelcomeEmail(ctx context.Context, to, name string) error {
	return s.send(ctx, "welcome", mailer.Message{
		To:      to,
		Subject: fmt.Sprintf("Welcome to %s!", s.appName),
		Text: fmt.Sprintf(`Hello %s,

Welcome to %s! Your email address has been verified.

You can now:
- Order hosting plans
- Follow your orders and payments
- Manage your hosting subscriptions

Best regards,
%s Team
`, name, s.appName, s.appName),
	})
}
