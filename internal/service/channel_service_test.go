package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/lumistore/internal/models"
)

func sampleChannels() []models.PaymentChannel {
	return []models.PaymentChannel{
		{Code: "bca", Name: "BCA", Method: "va", Category: models.ChannelCategoryBank, Enabled: true},
		{Code: "alfamart", Name: "Alfamart", Method: "cstore", Enabled: true},
		{Code: "qris", Name: "QRIS", Method: "qris", Category: models.ChannelCategoryQRIS, Enabled: true},
		{Code: "dana", Name: "DANA", Method: "ewallet-asia", Category: models.ChannelCategoryEWallet, Enabled: false},
	}
}

func TestGroupChannels(t *testing.T) {
	groups := GroupChannels(sampleChannels())

	assert.Len(t, groups[models.ChannelCategoryBank], 1)
	assert.Len(t, groups[models.ChannelCategoryRetail], 1)
	assert.Len(t, groups[models.ChannelCategoryQRIS], 1)
	assert.Empty(t, groups[models.ChannelCategoryEWallet], "disabled channels are dropped")
	assert.NotNil(t, groups[models.ChannelCategoryEWallet])
}

func TestListChannels_Cached(t *testing.T) {
	gw := &stubGateway{ListChannelsFunc: func(ctx context.Context) ([]models.PaymentChannel, error) {
		return sampleChannels(), nil
	}}
	service := NewChannelService(gw, time.Minute, zerolog.Nop())
	ctx := context.Background()

	first, err := service.ListChannels(ctx)
	require.NoError(t, err)
	second, err := service.ListChannels(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gw.lists)

	service.Invalidate()
	_, err = service.ListChannels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.lists)
}

func TestListChannels_ConcurrentMissesShareRequest(t *testing.T) {
	release := make(chan struct{})
	gw := &stubGateway{ListChannelsFunc: func(ctx context.Context) ([]models.PaymentChannel, error) {
		<-release
		return sampleChannels(), nil
	}}
	service := NewChannelService(gw, time.Minute, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.ListChannels(context.Background())
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, gw.lists)
}

func TestListChannels_ErrorNotCached(t *testing.T) {
	calls := 0
	gw := &stubGateway{ListChannelsFunc: func(ctx context.Context) ([]models.PaymentChannel, error) {
		calls++
		if calls == 1 {
			return nil, models.ErrPaymentGateway
		}
		return sampleChannels(), nil
	}}
	service := NewChannelService(gw, time.Minute, zerolog.Nop())

	_, err := service.ListChannels(context.Background())
	assert.True(t, errors.Is(err, models.ErrPaymentGateway))

	groups, err := service.ListChannels(context.Background())
	require.NoError(t, err)
	assert.Len(t, groups[models.ChannelCategoryBank], 1)
}

func TestListChannels_CallerCancelDoesNotFailFlight(t *testing.T) {
	gw := &stubGateway{ListChannelsFunc: func(ctx context.Context) ([]models.PaymentChannel, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return sampleChannels(), nil
	}}
	service := NewChannelService(gw, time.Minute, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	groups, err := service.ListChannels(ctx)

	require.NoError(t, err)
	assert.Len(t, groups[models.ChannelCategoryBank], 1)

	// the result was cached for the callers that stayed
	_, err = service.ListChannels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, gw.lists)
}
