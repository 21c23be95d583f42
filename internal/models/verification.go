package models

import (
	"crypto/subtle"
	"time"
)

// ==============================================
// OTP CONFIGURATION
// ==============================================

const (
	OTPLength          = 6
	OTPCodeTTL         = 10 * time.Minute
	OTPLockoutDuration = 15 * time.Minute
	OTPMaxAttempts     = 5
)

// OTPPolicy holds the tunable limits of an email challenge.
type OTPPolicy struct {
	CodeTTL         time.Duration
	LockoutDuration time.Duration
	MaxAttempts     int
}

func DefaultOTPPolicy() OTPPolicy {
	return OTPPolicy{
		CodeTTL:         OTPCodeTTL,
		LockoutDuration: OTPLockoutDuration,
		MaxAttempts:     OTPMaxAttempts,
	}
}

// ==============================================
// OTP STATE
// ==============================================

// OTPState is the per-account challenge record.
type OTPState struct {
	Code        *string
	ExpiresAt   *time.Time
	Attempts    int
	LockedUntil *time.Time
	Verified    bool
}

// Issue replaces any prior code, resets the counter and clears a lockout.
func (s OTPState) Issue(code string, now time.Time, p OTPPolicy) (OTPState, error) {
	if s.Verified {
		return s, ErrAlreadyVerified
	}
	exp := now.Add(p.CodeTTL)
	return OTPState{
		Code:      &code,
		ExpiresAt: &exp,
	}, nil
}

// Check evaluates a submitted code and returns the state to persist along
// with the outcome. The returned state must be written even when the error
// is non-nil, since failed attempts advance the counter.
func (s OTPState) Check(submitted string, now time.Time, p OTPPolicy) (OTPState, error) {
	if s.Verified {
		return s, ErrAlreadyVerified
	}

	if s.LockedUntil != nil && now.Before(*s.LockedUntil) {
		return s, &LockedError{Remaining: s.LockedUntil.Sub(now)}
	}

	if s.Code == nil || !codesEqual(*s.Code, submitted) {
		next := s
		next.Attempts++
		if next.Attempts >= p.MaxAttempts {
			until := now.Add(p.LockoutDuration)
			next.LockedUntil = &until
			return next, ErrTooManyAttempts
		}
		return next, &InvalidCodeError{AttemptsRemaining: p.MaxAttempts - next.Attempts}
	}

	if s.ExpiresAt == nil || now.After(*s.ExpiresAt) {
		return s, ErrExpiredCode
	}

	return OTPState{Verified: true}, nil
}

func codesEqual(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// ==============================================
// RESET TOKEN CONFIGURATION
// ==============================================

const (
	ResetTokenBytes = 32
	ResetTokenTTL   = time.Hour
)
