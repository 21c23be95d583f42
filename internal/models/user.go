package models

import (
	"fmt"
	"time"
)

// ==============================================
// USER MODEL (Database mapping)
// ==============================================

// User represents a storefront customer
type User struct {
	ID                  string     `db:"id"`
	Name                string     `db:"name"`
	Email               string     `db:"email"`
	Phone               *string    `db:"phone"`
	PasswordHash        string     `db:"password_hash"`
	EmailVerified       bool       `db:"email_verified"`
	OTPCode             *string    `db:"otp_code"`
	OTPExpiresAt        *time.Time `db:"otp_expires_at"`
	OTPAttempts         int        `db:"otp_attempts"`
	OTPLockedUntil      *time.Time `db:"otp_locked_until"`
	ResetTokenHash      *string    `db:"reset_token_hash"`
	ResetTokenExpiresAt *time.Time `db:"reset_token_expires_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
	LastLoginAt         *time.Time `db:"last_login_at"`
}

// OTPState extracts the challenge fields of the account.
func (u *User) OTPState() OTPState {
	return OTPState{
		Code:        u.OTPCode,
		ExpiresAt:   u.OTPExpiresAt,
		Attempts:    u.OTPAttempts,
		LockedUntil: u.OTPLockedUntil,
		Verified:    u.EmailVerified,
	}
}

// ApplyOTPState writes a challenge state back onto the account.
func (u *User) ApplyOTPState(s OTPState) {
	u.OTPCode = s.Code
	u.OTPExpiresAt = s.ExpiresAt
	u.OTPAttempts = s.Attempts
	u.OTPLockedUntil = s.LockedUntil
	u.EmailVerified = s.Verified
}

// PublicUser is the safe version to return to clients (no sensitive fields)
type PublicUser struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         *string    `json:"phone,omitempty"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}

// ToPublic converts User to PublicUser (removes sensitive fields)
func (u *User) ToPublic() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		LastLoginAt:   u.LastLoginAt,
	}
}

// Password length bounds apply to registration and password reset. bcrypt
// rejects input longer than MaxPasswordLength bytes.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// ValidatePassword checks the length bounds and reports failures against field.
func ValidatePassword(field, password string) error {
	switch {
	case len(password) < MinPasswordLength:
		return NewValidationError(field, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	case len(password) > MaxPasswordLength:
		return NewValidationError(field, fmt.Sprintf("must be at most %d bytes", MaxPasswordLength))
	}
	return nil
}
