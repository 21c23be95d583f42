package models

import (
	"errors"
	"fmt"
	"time"
)

// ==============================================
// CUSTOM ERROR TYPES
// ==============================================

// AppError represents a structured application error
type AppError struct {
	Code    string // Error code for client
	Message string // Human-readable message
	Err     error  // Underlying error (for logging)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ==============================================
// ERROR KINDS
// ==============================================

var (
	ErrValidation      = errors.New("validation failed")
	ErrAuthentication  = errors.New("authentication failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrLocked          = errors.New("account temporarily locked")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrInvalidCode     = errors.New("invalid code")
	ErrExpiredCode     = errors.New("code has expired")
	ErrAlreadyVerified = errors.New("account already verified")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrPaymentGateway  = errors.New("payment gateway error")
	ErrProvisioning    = errors.New("provisioning error")
	ErrEmailDelivery   = errors.New("email delivery failed")
	ErrTimeout         = errors.New("timeout")
)

// Domain errors, each of which matches one of the kinds above.
var (
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrOrderNotFound      = fmt.Errorf("order %w", ErrNotFound)
	ErrEmailAlreadyExists = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrSubscriptionExists = fmt.Errorf("subscription already exists for order: %w", ErrConflict)
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrAuthentication)
	ErrInvalidSignature   = fmt.Errorf("invalid signature: %w", ErrAuthentication)
	ErrEmailNotVerified   = fmt.Errorf("email not verified: %w", ErrAuthentication)
	ErrRateLimited        = errors.New("too many requests")
)

// LockedError is returned while an account is inside its lockout window.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, try again in %d minute(s)", e.RemainingMinutes())
}

// RemainingMinutes rounds the remaining lockout up to whole minutes.
func (e *LockedError) RemainingMinutes() int {
	if e.Remaining <= 0 {
		return 0
	}
	mins := int(e.Remaining / time.Minute)
	if e.Remaining%time.Minute != 0 {
		mins++
	}
	return mins
}

func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// InvalidCodeError reports a wrong OTP that did not trigger a lockout.
type InvalidCodeError struct {
	AttemptsRemaining int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code, %d attempt(s) remaining", e.AttemptsRemaining)
}

func (e *InvalidCodeError) Is(target error) bool {
	return target == ErrInvalidCode
}

// ValidationError carries the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ==============================================
// ERROR CODES (for API responses)
// ==============================================
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeAccountLocked    = "ACCOUNT_LOCKED"
	ErrCodeTooManyAttempts  = "TOO_MANY_ATTEMPTS"
	ErrCodeOTPInvalid       = "OTP_INVALID"
	ErrCodeOTPExpired       = "OTP_EXPIRED"
	ErrCodeAlreadyVerified  = "ALREADY_VERIFIED"
	ErrCodeInvalidToken     = "INVALID_TOKEN"
	ErrCodePaymentGateway   = "PAYMENT_GATEWAY_ERROR"
	ErrCodeProvisioning     = "PROVISIONING_ERROR"
	ErrCodeEmailDelivery    = "EMAIL_DELIVERY_FAILED"
	ErrCodeTimeout          = "UPSTREAM_TIMEOUT"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeEmailNotVerified = "EMAIL_NOT_VERIFIED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// ==============================================
// HELPER FUNCTIONS
// ==============================================

// IsNotFoundError checks if error is a "not found" error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTimeout reports whether err came from an upstream call running out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
