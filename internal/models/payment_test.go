package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayStatusCode_TargetStatus(t *testing.T) {
	tests := []struct {
		code   GatewayStatusCode
		want   OrderStatus
		wantOK bool
	}{
		{GatewayStatusSuccess, OrderStatusCompleted, true},
		{GatewayStatusExpired, OrderStatusExpired, true},
		{GatewayStatusFailed, OrderStatusFailed, true},
		{GatewayStatusPending, "", false},
		{GatewayStatusCode(7), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			got, ok := tt.code.TargetStatus()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCallbackPayload(t *testing.T) {
	p, err := ParseCallbackPayload([]byte(`{"trx_id":12345,"status":"berhasil","status_code":"1","reference_id":"order-1"}`))
	require.NoError(t, err)
	assert.Equal(t, FlexString("12345"), p.TrxID)
	assert.Equal(t, GatewayStatusSuccess, p.StatusCode)
	assert.Equal(t, "order-1", p.ReferenceID)

	p, err = ParseCallbackPayload([]byte(`{"trx_id":"abc","status_code":-2,"reference_id":"order-2"}`))
	require.NoError(t, err)
	assert.Equal(t, FlexString("abc"), p.TrxID)
	assert.Equal(t, GatewayStatusFailed, p.StatusCode)
}

func TestParseCallbackPayload_Invalid(t *testing.T) {
	_, err := ParseCallbackPayload([]byte(`not json`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseCallbackPayload([]byte(`{"status_code":1}`))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ParseCallbackPayload([]byte(`{"status_code":"x","reference_id":"o"}`))
	assert.Error(t, err)
}

func TestChannelCategoryFor(t *testing.T) {
	cases := map[string]ChannelCategory{
		"va":           ChannelCategoryBank,
		"cc":           ChannelCategoryBank,
		"cstore":       ChannelCategoryRetail,
		"qris":         ChannelCategoryQRIS,
		"ewallet-asia": ChannelCategoryEWallet,
		"paylater":     ChannelCategoryEWallet,
	}
	for method, want := range cases {
		got, ok := ChannelCategoryFor(method)
		assert.True(t, ok, method)
		assert.Equal(t, want, got, method)
	}

	_, ok := ChannelCategoryFor("crypto")
	assert.False(t, ok)
}
