package dto

import "github.com/Brownie44l1/lumistore/internal/models"

// ==============================================
// AUTH REQUEST DTOs
// ==============================================

// RegisterRequest - Email + password signup
type RegisterRequest struct {
	Name     string  `json:"name" binding:"required,min=2,max=100"`
	Email    string  `json:"email" binding:"required,email"`
	Phone    *string `json:"phone,omitempty"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
}

// VerifyOTPRequest - Email OTP verification
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// LoginRequest
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ResendOTPRequest
type ResendOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPasswordRequest - Starts the emailed reset link flow
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest - Redeems a reset link token
type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=72"`
}

// ==============================================
// AUTH RESPONSE DTOs
// ==============================================

// RegisterResponse - Returns user info + instructions
type RegisterResponse struct {
	User     *models.PublicUser `json:"user"`
	Message  string             `json:"message"`
	NextStep string             `json:"next_step"` // "verify_email"
	Warning  string             `json:"warning,omitempty"`
}

// VerifyOTPResponse
type VerifyOTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginResponse
type LoginResponse struct {
	User        *models.PublicUser `json:"user"`
	AccessToken string             `json:"access_token"`
	ExpiresIn   int                `json:"expires_in"` // seconds
	TokenType   string             `json:"token_type"` // "Bearer"
}

// ResendOTPResponse
type ResendOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expires_in"` // seconds until OTP expires
}

// ForgotPasswordResponse is identical for known and unknown addresses.
type ForgotPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ResetPasswordResponse
type ResetPasswordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
