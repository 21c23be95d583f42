package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ==============================================
// ORDER MODEL
// ==============================================

// Order is a customer's intent to purchase a plan.
type Order struct {
	ID             string      `db:"id" json:"id"`
	UserID         string      `db:"user_id" json:"user_id"`
	PlanID         *string     `db:"plan_id" json:"plan_id,omitempty"`
	PlanName       string      `db:"plan_name" json:"plan_name"`
	PlanType       string      `db:"plan_type" json:"plan_type"`
	Price          int64       `db:"price" json:"price"`
	DurationMonths int         `db:"duration_months" json:"duration_months"`
	Status         OrderStatus `db:"status" json:"status"`
	PaymentID      *string     `db:"payment_id" json:"payment_id,omitempty"`
	PaymentURL     *string     `db:"payment_url" json:"payment_url,omitempty"`
	Metadata       Metadata    `db:"metadata" json:"metadata"`
	PaidAt         *time.Time  `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Duration returns the subscription length in months, defaulting to 1.
func (o *Order) Duration() int {
	if o.DurationMonths < 1 {
		return DefaultDurationMonths
	}
	return o.DurationMonths
}

// Domain returns the hosting domain requested at checkout, if any.
func (o *Order) Domain() string {
	if o.Metadata == nil {
		return ""
	}
	d, _ := o.Metadata[MetadataKeyDomain].(string)
	return d
}

const DefaultDurationMonths = 1

// ==============================================
// ORDER STATUS
// ==============================================

// OrderStatus is a closed set; values outside it are rejected on parse.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusExpired    OrderStatus = "EXPIRED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusExpired, OrderStatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q: %w", s, ErrValidation)
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusExpired || s == OrderStatusFailed
}

// CanTransitionTo reports whether s -> next is a forward edge.
// A callback may overtake the local session step, so PENDING accepts every
// terminal status directly.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing || next.IsTerminal()
	case OrderStatusProcessing:
		return next.IsTerminal()
	default:
		return false
	}
}

func (s *OrderStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into OrderStatus", src)
	}
	st, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ==============================================
// METADATA
// ==============================================

// Metadata is the free-form JSON document stored with an order.
type Metadata map[string]any

const (
	MetadataKeyPaymentDetails = "paymentDetails"
	MetadataKeyDomain         = "domain"
	MetadataKeyTransactionID  = "transactionId"
	MetadataKeyFailureReason  = "failureReason"
)

// PaymentDetails is the structured value kept under Metadata["paymentDetails"].
type PaymentDetails struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

// SetPaymentDetails stores the gateway session under paymentDetails.
func (m Metadata) SetPaymentDetails(d PaymentDetails) {
	m[MetadataKeyPaymentDetails] = map[string]any{
		"sessionId":   d.SessionID,
		"redirectUrl": d.RedirectURL,
	}
}

// PaymentDetails decodes the nested paymentDetails document.
func (m Metadata) PaymentDetails() (PaymentDetails, bool) {
	raw, ok := m[MetadataKeyPaymentDetails]
	if !ok {
		return PaymentDetails{}, false
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return PaymentDetails{}, false
	}
	var d PaymentDetails
	if err := json.Unmarshal(b, &d); err != nil {
		return PaymentDetails{}, false
	}
	return d, true
}

// reservedMetadataKeys are written by the server only.
var reservedMetadataKeys = []string{
	MetadataKeyPaymentDetails,
	MetadataKeyDomain,
	MetadataKeyTransactionID,
	MetadataKeyFailureReason,
}

// WithoutReserved returns a copy of client-supplied metadata with the
// server-owned keys removed.
func (m Metadata) WithoutReserved() Metadata {
	out := m.Clone()
	for _, k := range reservedMetadataKeys {
		delete(out, k)
	}
	return out
}

// Clone returns a shallow copy safe to mutate at the top level.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ==============================================
// REQUESTS / RESPONSES
// ==============================================

// CreateOrderRequest is the input to order creation.
type CreateOrderRequest struct {
	UserID         string   `json:"-"`
	PlanID         *string  `json:"plan_id,omitempty"`
	PlanName       string   `json:"plan_name" binding:"required"`
	PlanType       string   `json:"plan_type" binding:"required"`
	Price          int64    `json:"price" binding:"required"`
	DurationMonths int      `json:"duration_months,omitempty"`
	Domain         string   `json:"domain,omitempty"`
	Metadata       Metadata `json:"metadata,omitempty"`
}

// Validate checks the fields required to open an order.
func (r *CreateOrderRequest) Validate() error {
	if r.UserID == "" {
		return NewValidationError("user_id", "is required")
	}
	if r.PlanName == "" {
		return NewValidationError("plan_name", "is required")
	}
	if r.PlanType == "" {
		return NewValidationError("plan_type", "is required")
	}
	if r.Price <= 0 {
		return NewValidationError("price", "must be positive")
	}
	if r.DurationMonths < 0 {
		return NewValidationError("duration_months", "must be at least 1")
	}
	if d := strings.TrimSpace(r.Domain); d != "" {
		if err := validate.Var(d, "fqdn"); err != nil {
			return NewValidationError("domain", "must be a fully qualified domain name")
		}
	}
	return nil
}

// Customer is the payer identity forwarded to the gateway.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// CheckoutResponse is returned after an order has a payment session.
type CheckoutResponse struct {
	Success    bool           `json:"success"`
	OrderID    string         `json:"order_id"`
	Status     OrderStatus    `json:"status"`
	PaymentURL string         `json:"payment_url,omitempty"`
	Details    PaymentDetails `json:"payment_details"`
}

// OrderListResponse wraps a user's orders.
type OrderListResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}
