package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Brownie44l1/lumistore/internal/models"
)

// ==============================================
// SUBSCRIPTION REPOSITORY
// ==============================================

type SubscriptionRepository struct {
	db *pgxpool.Pool
}

func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// CreateSubscription inserts sub unless its order already has one, in which
// case ErrSubscriptionExists is returned and nothing is written.
func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, order_id, plan_name, plan_type, status, start_date, end_date, auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.OrderID,
		sub.PlanName,
		sub.PlanType,
		string(sub.Status),
		sub.StartDate,
		sub.EndDate,
		sub.AutoRenew,
	).Scan(&sub.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrSubscriptionExists
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// GetByOrderID returns the subscription created for an order.
func (r *SubscriptionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Subscription, error) {
	query := `
		SELECT id, user_id, order_id, plan_name, plan_type, status, start_date, end_date, auto_renew, site_id, created_at
		FROM subscriptions
		WHERE order_id = $1
	`

	var sub models.Subscription
	var status string
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.OrderID,
		&sub.PlanName,
		&sub.PlanType,
		&status,
		&sub.StartDate,
		&sub.EndDate,
		&sub.AutoRenew,
		&sub.SiteID,
		&sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("subscription %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	sub.Status = models.SubscriptionStatus(status)
	return &sub, nil
}

// SetSiteID links the provisioned hosting site to the subscription.
func (r *SubscriptionRepository) SetSiteID(ctx context.Context, subscriptionID, siteID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE subscriptions SET site_id = $2 WHERE id = $1`, subscriptionID, siteID)
	if err != nil {
		return fmt.Errorf("failed to set site id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %w", models.ErrNotFound)
	}
	return nil
}
