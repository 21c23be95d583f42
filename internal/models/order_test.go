package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	all := []OrderStatus{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusCompleted,
		OrderStatusExpired,
		OrderStatusFailed,
	}

	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCompleted, OrderStatusExpired, OrderStatusFailed},
		OrderStatusProcessing: {OrderStatusCompleted, OrderStatusExpired, OrderStatusFailed},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_TerminalNeverRegresses(t *testing.T) {
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusExpired, OrderStatusFailed} {
		assert.True(t, s.IsTerminal())
		assert.False(t, s.CanTransitionTo(OrderStatusPending))
		assert.False(t, s.CanTransitionTo(OrderStatusProcessing))
	}
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusProcessing.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	st, err := ParseOrderStatus("COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, st)

	_, err = ParseOrderStatus("completed")
	assert.ErrorIs(t, err, ErrValidation)

	var scanned OrderStatus
	require.NoError(t, scanned.Scan([]byte("PROCESSING")))
	assert.Equal(t, OrderStatusProcessing, scanned)
	assert.Error(t, scanned.Scan(42))
}

func TestOrder_DurationDefaultsToOneMonth(t *testing.T) {
	assert.Equal(t, 1, (&Order{}).Duration())
	assert.Equal(t, 12, (&Order{DurationMonths: 12}).Duration())
}

func TestMetadata_PaymentDetailsRoundTrip(t *testing.T) {
	m := Metadata{"domain": "example.com"}
	m.SetPaymentDetails(PaymentDetails{SessionID: "sess-1", RedirectURL: "https://pay/1"})

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var back Metadata
	require.NoError(t, json.Unmarshal(raw, &back))

	d, ok := back.PaymentDetails()
	require.True(t, ok)
	assert.Equal(t, "sess-1", d.SessionID)
	assert.Equal(t, "https://pay/1", d.RedirectURL)
	assert.Equal(t, "example.com", back["domain"])

	_, ok = Metadata{}.PaymentDetails()
	assert.False(t, ok)
}

func TestMetadata_WithoutReserved(t *testing.T) {
	m := Metadata{
		MetadataKeyDomain:        "evil.example.com",
		MetadataKeyFailureReason: "spoofed",
		MetadataKeyTransactionID: "1",
		"coupon":                 "NEWYEAR",
	}

	out := m.WithoutReserved()

	assert.Equal(t, Metadata{"coupon": "NEWYEAR"}, out)
	assert.Len(t, m, 4, "input is not modified")
	assert.Empty(t, Metadata(nil).WithoutReserved())
}

func TestCreateOrderRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateOrderRequest
		wantErr bool
	}{
		{"valid", CreateOrderRequest{UserID: "u", PlanName: "Basic", PlanType: "hosting", Price: 50000}, false},
		{"missing user", CreateOrderRequest{PlanName: "Basic", PlanType: "hosting", Price: 50000}, true},
		{"missing plan name", CreateOrderRequest{UserID: "u", PlanType: "hosting", Price: 50000}, true},
		{"missing plan type", CreateOrderRequest{UserID: "u", PlanName: "Basic", Price: 50000}, true},
		{"zero price", CreateOrderRequest{UserID: "u", PlanName: "Basic", PlanType: "hosting"}, true},
		{"negative duration", CreateOrderRequest{UserID: "u", PlanName: "Basic", PlanType: "hosting", Price: 1, DurationMonths: -1}, true},
		{"valid domain", CreateOrderRequest{UserID: "u", PlanName: "Basic", PlanType: "hosting", Price: 1, Domain: " Shop.Example.com "}, false},
		{"path as domain", CreateOrderRequest{UserID: "u", PlanName: "Basic", PlanType: "hosting", Price: 1, Domain: "../etc/passwd"}, true},
		{"domain with spaces", CreateOrderRequest{UserID: "u", PlanName: "Basic", PlanType: "hosting", Price: 1, Domain: "not a domain"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewSubscriptionForOrder(t *testing.T) {
	start := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
	o := &Order{ID: "o1", UserID: "u1", PlanName: "Pro", PlanType: "hosting", DurationMonths: 3}

	sub := NewSubscriptionForOrder(o, start)

	assert.Equal(t, "o1", sub.OrderID)
	assert.Equal(t, SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.AutoRenew)
	assert.Equal(t, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), sub.EndDate)
}

func TestAddMonths_Overflow(t *testing.T) {
	start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), AddMonths(start, 1))
}
