package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ==============================================
// GATEWAY STATUS CODES
// ==============================================

// GatewayStatusCode is the numeric outcome reported by the payment gateway.
type GatewayStatusCode int

const (
	GatewayStatusSuccess GatewayStatusCode = 1
	GatewayStatusPending GatewayStatusCode = 0
	GatewayStatusExpired GatewayStatusCode = -1
	GatewayStatusFailed  GatewayStatusCode = -2
)

// TargetStatus maps a gateway outcome to the order status it drives.
// ok is false for pending and unrecognised codes, which cause no transition.
func (c GatewayStatusCode) TargetStatus() (status OrderStatus, ok bool) {
	switch c {
	case GatewayStatusSuccess:
		return OrderStatusCompleted, true
	case GatewayStatusExpired:
		return OrderStatusExpired, true
	case GatewayStatusFailed:
		return OrderStatusFailed, true
	default:
		return "", false
	}
}

func (c GatewayStatusCode) String() string {
	switch c {
	case GatewayStatusSuccess:
		return "success"
	case GatewayStatusPending:
		return "pending"
	case GatewayStatusExpired:
		return "expired"
	case GatewayStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// UnmarshalJSON accepts both 1 and "1".
func (c *GatewayStatusCode) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("invalid status_code %q: %w", string(b), ErrValidation)
	}
	*c = GatewayStatusCode(n)
	return nil
}

// ==============================================
// CALLBACK PAYLOAD
// ==============================================

// CallbackPayload is the body the gateway posts to the notify URL.
type CallbackPayload struct {
	TrxID       FlexString        `json:"trx_id"`
	Status      string            `json:"status"`
	StatusCode  GatewayStatusCode `json:"status_code"`
	ReferenceID string            `json:"reference_id"`
	SID         string            `json:"sid,omitempty"`
	Amount      FlexString        `json:"amount,omitempty"`
	Via         string            `json:"via,omitempty"`
	Channel     string            `json:"channel,omitempty"`
}

// FlexString decodes a JSON string or number into its textual form.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(b)
	return nil
}

// ParseCallbackPayload decodes and validates a raw callback body.
func ParseCallbackPayload(raw []byte) (*CallbackPayload, error) {
	var p CallbackPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ValidationError{Field: "body", Reason: "malformed callback payload"}
	}
	if p.ReferenceID == "" {
		return nil, NewValidationError("reference_id", "is required")
	}
	return &p, nil
}

// CallbackResult is returned to the gateway once a callback is handled.
type CallbackResult struct {
	OrderID      string      `json:"order_id"`
	Status       OrderStatus `json:"status"`
	Transitioned bool        `json:"transitioned"`
}

// PaymentEvent is the audit row written for every authenticated callback.
type PaymentEvent struct {
	ID         int64             `db:"id"`
	OrderID    string            `db:"order_id"`
	TrxID      string            `db:"trx_id"`
	StatusCode GatewayStatusCode `db:"status_code"`
	Payload    json.RawMessage   `db:"payload"`
	ReceivedAt time.Time         `db:"received_at"`
}

// ==============================================
// PAYMENT SESSION
// ==============================================

// SessionRequest asks the gateway for a hosted payment page.
type SessionRequest struct {
	OrderID   string
	Product   string
	Price     int64
	Customer  Customer
	ReturnURL string
	CancelURL string
	NotifyURL string
}

// PaymentSession is the gateway's answer to a SessionRequest.
type PaymentSession struct {
	SessionID   string
	RedirectURL string
}

// ==============================================
// PAYMENT CHANNELS
// ==============================================

type ChannelCategory string

const (
	ChannelCategoryBank    ChannelCategory = "bank"
	ChannelCategoryRetail  ChannelCategory = "retail"
	ChannelCategoryQRIS    ChannelCategory = "qris"
	ChannelCategoryEWallet ChannelCategory = "ewallet"
)

// ChannelCategoryFor maps a gateway method group onto a display category.
func ChannelCategoryFor(method string) (ChannelCategory, bool) {
	switch method {
	case "va", "cc":
		return ChannelCategoryBank, true
	case "cstore":
		return ChannelCategoryRetail, true
	case "qris":
		return ChannelCategoryQRIS, true
	case "ewallet-asia", "paylater":
		return ChannelCategoryEWallet, true
	}
	return "", false
}

// PaymentChannel is one selectable payment method.
type PaymentChannel struct {
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Method      string          `json:"method"`
	Category    ChannelCategory `json:"category"`
	Logo        string          `json:"logo,omitempty"`
	Description string          `json:"description,omitempty"`
	Enabled     bool            `json:"enabled"`
	Fee         any             `json:"fee,omitempty"`
}

// ChannelGroups is the channel list keyed by category.
type ChannelGroups map[ChannelCategory][]PaymentChannel
