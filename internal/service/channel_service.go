package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/models"
)

// ChannelLister fetches the gateway's payment channels.
type ChannelLister interface {
	ListChannels(ctx context.Context) ([]models.PaymentChannel, error)
}

const channelsCacheKey = "channels"

// ==============================================
// CHANNEL SERVICE
// ==============================================

// ChannelService serves the enabled payment channels grouped by category.
// The gateway is queried at most once per TTL; concurrent misses share one
// request.
type ChannelService struct {
	gateway ChannelLister
	cache   *gocache.Cache
	ttl     time.Duration
	sf      singleflight.Group
	log     zerolog.Logger
}

func NewChannelService(gateway ChannelLister, ttl time.Duration, log zerolog.Logger) *ChannelService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ChannelService{
		gateway: gateway,
		cache:   gocache.New(ttl, time.Minute),
		ttl:     ttl,
		log:     log.With().Str("component", "channels").Logger(),
	}
}

func (s *ChannelService) ListChannels(ctx context.Context) (models.ChannelGroups, error) {
	if v, ok := s.cache.Get(channelsCacheKey); ok {
		if groups, ok := v.(models.ChannelGroups); ok {
			return groups, nil
		}
	}

	log := logging.With(ctx, s.log)

	// the flight outlives any single caller
	flightCtx := context.WithoutCancel(ctx)
	v, err, shared := s.sf.Do(channelsCacheKey, func() (interface{}, error) {
		channels, err := s.gateway.ListChannels(flightCtx)
		if err != nil {
			return nil, err
		}
		groups := GroupChannels(channels)
		s.cache.Set(channelsCacheKey, groups, s.ttl)
		return groups, nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to load payment channels")
		return nil, err
	}

	log.Debug().Bool("shared", shared).Msg("payment channels loaded")
	return v.(models.ChannelGroups), nil
}

// Invalidate drops the cached channel list.
func (s *ChannelService) Invalidate() { s.cache.Delete(channelsCacheKey) }

// GroupChannels keeps enabled channels and groups them by category. Every
// category is present in the result, possibly empty.
func GroupChannels(channels []models.PaymentChannel) models.ChannelGroups {
	groups := models.ChannelGroups{
		models.ChannelCategoryBank:    {},
		models.ChannelCategoryRetail:  {},
		models.ChannelCategoryQRIS:    {},
		models.ChannelCategoryEWallet: {},
	}
	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		cat := ch.Category
		if cat == "" {
			if c, ok := models.ChannelCategoryFor(ch.Method); ok {
				cat = c
			} else {
				cat = models.ChannelCategoryBank
			}
		}
		groups[cat] = append(groups[cat], ch)
	}
	return groups
}
