package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Brownie44l1/lumistore/internal/logging"
	"github.com/Brownie44l1/lumistore/internal/metrics"
	"github.com/Brownie44l1/lumistore/internal/models"
)

type SubscriptionRepositoryInterface interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	SetSiteID(ctx context.Context, subscriptionID, siteID string) error
}

// Provisioner creates a hosting site on the control panel.
type Provisioner interface {
	Provision(ctx context.Context, domain string) (*models.Site, error)
}

// ==============================================
// SUBSCRIPTION ACTIVATOR
// ==============================================

type SubscriptionActivator struct {
	subs        SubscriptionRepositoryInterface
	provisioner Provisioner
	log         zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewSubscriptionActivator builds an activator. provisioner may be nil when
// no hosting panel is configured.
func NewSubscriptionActivator(subs SubscriptionRepositoryInterface, provisioner Provisioner, log zerolog.Logger) *SubscriptionActivator {
	return &SubscriptionActivator{
		subs:        subs,
		provisioner: provisioner,
		log:         log.With().Str("component", "subscriptions").Logger(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Activate creates the subscription for a completed order. A second call for
// the same order returns models.ErrSubscriptionExists and writes nothing.
// Site provisioning failures are logged and do not fail activation.
func (a *SubscriptionActivator) Activate(ctx context.Context, order *models.Order) (*models.Subscription, error) {
	if order.Status != models.OrderStatusCompleted {
		return nil, models.NewValidationError("status", fmt.Sprintf("order is %s, not completed", order.Status))
	}

	start := a.now()
	if order.PaidAt != nil {
		start = *order.PaidAt
	}

	sub := models.NewSubscriptionForOrder(order, start)
	sub.ID = a.newID()

	if err := a.subs.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}
	metrics.IncSubscriptionActivated()

	if domain := order.Domain(); domain != "" && a.provisioner != nil {
		a.provision(ctx, sub, domain)
	}
	return sub, nil
}

func (a *SubscriptionActivator) provision(ctx context.Context, sub *models.Subscription, domain string) {
	log := logging.With(ctx, a.log).With().
		Str("subscription_id", sub.ID).
		Str("order_id", sub.OrderID).
		Str("domain", domain).
		Logger()

	site, err := a.provisioner.Provision(ctx, domain)
	if err == nil {
		err = a.subs.SetSiteID(ctx, sub.ID, site.SiteID)
	}
	if err != nil {
		status := "failed"
		if errors.Is(err, models.ErrTimeout) {
			status = "timeout"
		}
		metrics.IncProvisioning(status)
		log.Error().Err(err).Str("code", models.ErrCodeProvisioning).Msg("hosting provisioning failed")
		return
	}

	sub.SiteID = &site.SiteID
	metrics.IncProvisioning("success")
	log.Info().Str("site_id", site.SiteID).Msg("hosting site provisioned")
}
