package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/lumistore/internal/api/dto"
	"github.com/Brownie44l1/lumistore/internal/models"
)

// maxCallbackBody bounds the gateway callback body.
const maxCallbackBody = 64 << 10

// ==============================================
// SERVICE INTERFACES (for testing)
// ==============================================

type CallbackService interface {
	ApplyCallback(ctx context.Context, signature string, rawBody []byte) (*models.CallbackResult, error)
}

type ChannelService interface {
	ListChannels(ctx context.Context) (models.ChannelGroups, error)
}

// ==============================================
// HANDLER (HTTP Layer ONLY)
// ==============================================

type PaymentHandler struct {
	callbacks CallbackService
	channels  ChannelService
}

func NewPaymentHandler(callbacks CallbackService, channels ChannelService) *PaymentHandler {
	return &PaymentHandler{callbacks: callbacks, channels: channels}
}

// Callback handles POST /api/v1/payment/callback. The body is read raw so
// the signature is checked over exactly the bytes the gateway sent.
func (h *PaymentHandler) Callback(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCallbackBody+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, models.ErrCodeValidationFailed, "Unable to read body")
		return
	}
	if len(body) > maxCallbackBody {
		respondError(c, http.StatusRequestEntityTooLarge, models.ErrCodeValidationFailed, "Body too large")
		return
	}

	res, err := h.callbacks.ApplyCallback(c.Request.Context(), c.GetHeader("signature"), body)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, dto.CallbackAck{
		Success: true,
		OrderID: res.OrderID,
		Status:  res.Status,
	})
}

// Channels handles GET /api/v1/payment/channels
func (h *PaymentHandler) Channels(c *gin.Context) {
	groups, err := h.channels.ListChannels(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, dto.ChannelsResponse{Success: true, Channels: groups})
}

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func (h *PaymentHandler) RegisterRoutes(router *gin.Engine) {
	p := router.Group("/api/v1/payment")
	{
		p.POST("/callback", h.Callback)
		p.GET("/channels", h.Channels)
	}
}
