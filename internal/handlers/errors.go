package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/lumistore/internal/api/dto"
	"github.com/Brownie44l1/lumistore/internal/models"
)

// respondSuccess sends a successful JSON response
func respondSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// respondError sends an error JSON response
func respondError(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, dto.ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// respondBindError reports a request body that failed binding.
func respondBindError(c *gin.Context, err error) {
	respondError(c, http.StatusBadRequest, models.ErrCodeValidationFailed, "Invalid request: "+err.Error())
}

// respondServiceError maps service errors to appropriate HTTP status codes and responses
func respondServiceError(c *gin.Context, err error) {
	status, resp := mapServiceError(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if status == http.StatusTooManyRequests || status == http.StatusLocked {
		if after, ok := resp.Details["retry_after_minutes"]; ok {
			if m, convErr := strconv.Atoi(after); convErr == nil {
				c.Header("Retry-After", strconv.Itoa(m*60))
			}
		}
	}
	c.AbortWithStatusJSON(status, resp)
}

// mapServiceError maps service errors to HTTP status codes and stable error
// codes. Messages for 5xx never include the underlying error text.
func mapServiceError(err error) (int, dto.ErrorResponse) {
	var (
		locked     *models.LockedError
		invalid    *models.InvalidCodeError
		validation *models.ValidationError
	)

	switch {
	// 400
	case errors.As(err, &validation):
		return http.StatusBadRequest, dto.ErrorResponse{
			Error:   models.ErrCodeValidationFailed,
			Message: validation.Error(),
			Details: map[string]string{"field": validation.Field},
		}
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, dto.ErrorResponse{Error: models.ErrCodeValidationFailed, Message: err.Error()}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, dto.ErrorResponse{
			Error:   models.ErrCodeOTPInvalid,
			Message: "Invalid verification code",
			Details: map[string]string{"attempts_remaining": strconv.Itoa(invalid.AttemptsRemaining)},
		}
	case errors.Is(err, models.ErrExpiredCode):
		return http.StatusBadRequest, dto.ErrorResponse{Error: models.ErrCodeOTPExpired, Message: "Verification code has expired, request a new one"}
	case errors.Is(err, models.ErrInvalidToken):
		return http.StatusBadRequest, dto.ErrorResponse{Error: models.ErrCodeInvalidToken, Message: "Reset link is invalid or has expired"}

	// 401 / 403
	case errors.Is(err, models.ErrEmailNotVerified):
		return http.StatusForbidden, dto.ErrorResponse{Error: models.ErrCodeEmailNotVerified, Message: "Email address is not verified"}
	case errors.Is(err, models.ErrInvalidSignature):
		return http.StatusUnauthorized, dto.ErrorResponse{Error: models.ErrCodeUnauthorized, Message: "Invalid signature"}
	case errors.Is(err, models.ErrAuthentication):
		return http.StatusUnauthorized, dto.ErrorResponse{Error: models.ErrCodeUnauthorized, Message: "Invalid email or password"}

	// 404
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, dto.ErrorResponse{Error: models.ErrCodeNotFound, Message: notFoundMessage(err)}

	// 409
	case errors.Is(err, models.ErrAlreadyVerified):
		return http.StatusConflict, dto.ErrorResponse{Error: models.ErrCodeAlreadyVerified, Message: "Email address is already verified"}
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, dto.ErrorResponse{Error: models.ErrCodeConflict, Message: conflictMessage(err)}

	// 423 / 429
	case errors.As(err, &locked):
		return http.StatusLocked, dto.ErrorResponse{
			Error:   models.ErrCodeAccountLocked,
			Message: "Too many failed attempts, try again later",
			Details: map[string]string{"retry_after_minutes": strconv.Itoa(locked.RemainingMinutes())},
		}
	case errors.Is(err, models.ErrTooManyAttempts):
		return http.StatusTooManyRequests, dto.ErrorResponse{Error: models.ErrCodeTooManyAttempts, Message: "Too many failed attempts, verification is locked"}
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, dto.ErrorResponse{Error: models.ErrCodeRateLimited, Message: "Too many requests, please try again later"}

	// upstream
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout, dto.ErrorResponse{Error: models.ErrCodeTimeout, Message: "Upstream service timed out"}
	case errors.Is(err, models.ErrPaymentGateway):
		return http.StatusBadGateway, dto.ErrorResponse{Error: models.ErrCodePaymentGateway, Message: "Payment gateway error"}
	case errors.Is(err, models.ErrProvisioning):
		return http.StatusBadGateway, dto.ErrorResponse{Error: models.ErrCodeProvisioning, Message: "Hosting provisioning error"}
	case errors.Is(err, models.ErrEmailDelivery):
		return http.StatusServiceUnavailable, dto.ErrorResponse{Error: models.ErrCodeEmailDelivery, Message: "Email could not be sent, please try again"}

	// Default (500 Internal Server Error)
	default:
		return http.StatusInternalServerError, dto.ErrorResponse{Error: models.ErrCodeInternalError, Message: "Internal server error"}
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		return "Order not found"
	case errors.Is(err, models.ErrUserNotFound):
		return "Account not found"
	default:
		return "Not found"
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, models.ErrEmailAlreadyExists) {
		return "Email is already registered"
	}
	return "Conflict"
}
