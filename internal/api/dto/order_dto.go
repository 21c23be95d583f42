package dto

import "github.com/Brownie44l1/lumistore/internal/models"

// ==============================================
// ORDER REQUEST DTOs
// ==============================================

// CheckoutRequest - Plan purchase; customer details default to the account's
type CheckoutRequest struct {
	PlanID         *string         `json:"plan_id,omitempty"`
	PlanName       string          `json:"plan_name" binding:"required"`
	PlanType       string          `json:"plan_type" binding:"required"`
	Price          int64           `json:"price" binding:"required,gt=0"`
	DurationMonths int             `json:"duration_months" binding:"omitempty,min=1,max=120"`
	Domain         string          `json:"domain,omitempty" binding:"omitempty,fqdn"`
	Phone          string          `json:"phone,omitempty"`
	Metadata       models.Metadata `json:"metadata,omitempty"`
}

// ToModel builds the service request for the authenticated user.
func (r CheckoutRequest) ToModel(userID string) models.CreateOrderRequest {
	return models.CreateOrderRequest{
		UserID:         userID,
		PlanID:         r.PlanID,
		PlanName:       r.PlanName,
		PlanType:       r.PlanType,
		Price:          r.Price,
		DurationMonths: r.DurationMonths,
		Domain:         r.Domain,
		Metadata:       r.Metadata,
	}
}

// ==============================================
// PAYMENT RESPONSE DTOs
// ==============================================

// CallbackAck is returned to the gateway for every authenticated callback.
type CallbackAck struct {
	Success bool               `json:"success"`
	OrderID string             `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

// ChannelsResponse groups gateway channels by category.
type ChannelsResponse struct {
	Success  bool                 `json:"success"`
	Channels models.ChannelGroups `json:"channels"`
}
