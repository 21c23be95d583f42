package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/lumistore/internal/models"
)

type MockSubscriptionRepository struct {
	CreateSubscriptionFunc func(ctx context.Context, sub *models.Subscription) error
	SetSiteIDFunc          func(ctx context.Context, subscriptionID, siteID string) error

	created []*models.Subscription
	siteIDs map[string]string
}

func (m *MockSubscriptionRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if m.CreateSubscriptionFunc != nil {
		return m.CreateSubscriptionFunc(ctx, sub)
	}
	for _, s := range m.created {
		if s.OrderID == sub.OrderID {
			return models.ErrSubscriptionExists
		}
	}
	m.created = append(m.created, sub)
	return nil
}

func (m *MockSubscriptionRepository) SetSiteID(ctx context.Context, subscriptionID, siteID string) error {
	if m.SetSiteIDFunc != nil {
		return m.SetSiteIDFunc(ctx, subscriptionID, siteID)
	}
	if m.siteIDs == nil {
		m.siteIDs = map[string]string{}
	}
	m.siteIDs[subscriptionID] = siteID
	return nil
}

type stubProvisioner struct {
	domains []string
	err     error
}

func (p *stubProvisioner) Provision(ctx context.Context, domain string) (*models.Site, error) {
	p.domains = append(p.domains, domain)
	if p.err != nil {
		return nil, p.err
	}
	return &models.Site{SiteID: "42", FTPUsername: "shop"}, nil
}

func completedOrder(paidAt time.Time) *models.Order {
	o := pendingOrder()
	o.Status = models.OrderStatusCompleted
	o.PaidAt = &paidAt
	return o
}

func TestActivate_CreatesSubscription(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	prov := &stubProvisioner{}
	activator := NewSubscriptionActivator(repo, prov, zerolog.Nop())
	paidAt := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

	sub, err := activator.Activate(context.Background(), completedOrder(paidAt))

	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.True(t, sub.AutoRenew)
	assert.True(t, paidAt.Equal(sub.StartDate))
	assert.True(t, paidAt.AddDate(0, 3, 0).Equal(sub.EndDate))
	assert.Equal(t, testOrderID, sub.OrderID)

	assert.Equal(t, []string{"shop.example.com"}, prov.domains)
	require.NotNil(t, sub.SiteID)
	assert.Equal(t, "42", *sub.SiteID)
	assert.Equal(t, "42", repo.siteIDs[sub.ID])
}

func TestActivate_SecondCallConflicts(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	activator := NewSubscriptionActivator(repo, nil, zerolog.Nop())
	o := completedOrder(time.Now())

	_, err := activator.Activate(context.Background(), o)
	require.NoError(t, err)
	_, err = activator.Activate(context.Background(), o)

	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Len(t, repo.created, 1)
}

func TestActivate_RequiresCompletedOrder(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	activator := NewSubscriptionActivator(repo, nil, zerolog.Nop())

	_, err := activator.Activate(context.Background(), pendingOrder())

	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, repo.created)
}

func TestActivate_ProvisioningFailureIsNotFatal(t *testing.T) {
	repo := &MockSubscriptionRepository{}
	prov := &stubProvisioner{err: errors.Join(models.ErrProvisioning, models.ErrTimeout)}
	activator := NewSubscriptionActivator(repo, prov, zerolog.Nop())

	sub, err := activator.Activate(context.Background(), completedOrder(time.Now()))

	require.NoError(t, err)
	assert.Nil(t, sub.SiteID)
	assert.Len(t, repo.created, 1)
}

func TestActivate_NoDomainSkipsProvisioning(t *testing.T) {
	prov := &stubProvisioner{}
	activator := NewSubscriptionActivator(&MockSubscriptionRepository{}, prov, zerolog.Nop())
	o := completedOrder(time.Now())
	delete(o.Metadata, models.MetadataKeyDomain)

	_, err := activator.Activate(context.Background(), o)

	require.NoError(t, err)
	assert.Empty(t, prov.domains)
}
