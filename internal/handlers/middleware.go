package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/lumistore/internal/auth"
	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/models"
)

const (
	headerRequestID = "X-Request-ID"
	ctxKeyUserID    = "user_id"
	ctxKeyEmail     = "email"
)

// RequestID propagates or assigns a request id and stores it in the request
// context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(logging.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// RequestLogger writes one line per request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		l := logging.With(c.Request.Context(), log)
		ev := l.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = l.Error()
		case status >= http.StatusBadRequest:
			ev = l.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// RequireAuth validates the bearer token and exposes the caller's id.
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Missing bearer token")
			return
		}

		claims, err := auth.ValidateJWT(strings.TrimSpace(token), jwtSecret)
		if err != nil {
			respondError(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, "Invalid or expired token")
			return
		}

		c.Set(ctxKeyUserID, claims.UserID)
		c.Set(ctxKeyEmail, claims.Email)
		c.Request = c.Request.WithContext(logging.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(ctxKeyUserID)
}
