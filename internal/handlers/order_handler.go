package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Brownie44l1/lumistore/internal/api/dto"
	"github.com/Brownie44l1/lumistore/internal/models"
)

// ==============================================
// SERVICE INTERFACES (for testing)
// ==============================================

type OrderService interface {
	Checkout(ctx context.Context, req models.CreateOrderRequest, customer models.Customer) (*models.CheckoutResponse, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string) (*models.OrderListResponse, error)
}

// ProfileService resolves the checkout customer from the caller's account.
type ProfileService interface {
	Me(ctx context.Context, userID string) (*models.PublicUser, error)
}

// ==============================================
// HANDLER (HTTP Layer ONLY)
// ==============================================

type OrderHandler struct {
	orders    OrderService
	profiles  ProfileService
	jwtSecret string
}

func NewOrderHandler(orders OrderService, profiles ProfileService, jwtSecret string) *OrderHandler {
	return &OrderHandler{orders: orders, profiles: profiles, jwtSecret: jwtSecret}
}

// Checkout handles POST /api/v1/orders
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ctx := c.Request.Context()
	userID := currentUserID(c)

	user, err := h.profiles.Me(ctx, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	customer := models.Customer{Name: user.Name, Email: user.Email, Phone: req.Phone}
	if customer.Phone == "" && user.Phone != nil {
		customer.Phone = *user.Phone
	}

	resp, err := h.orders.Checkout(ctx, req.ToModel(userID), customer)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, resp)
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	resp, err := h.orders.ListOrders(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, resp)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, order)
}

// ==============================================
// ROUTE REGISTRATION
// ==============================================

func (h *OrderHandler) RegisterRoutes(router *gin.Engine) {
	o := router.Group("/api/v1/orders", RequireAuth(h.jwtSecret))
	{
		o.POST("", h.Checkout)
		o.GET("", h.ListOrders)
		o.GET("/:id", h.GetOrder)
	}
}
