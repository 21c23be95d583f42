package models

import "time"

// ==============================================
// SUBSCRIPTION MODEL
// ==============================================

// Subscription is the service entitlement produced by a completed order.
type Subscription struct {
	ID        string             `db:"id" json:"id"`
	UserID    string             `db:"user_id" json:"user_id"`
	OrderID   string             `db:"order_id" json:"order_id"`
	PlanName  string             `db:"plan_name" json:"plan_name"`
	PlanType  string             `db:"plan_type" json:"plan_type"`
	Status    SubscriptionStatus `db:"status" json:"status"`
	StartDate time.Time          `db:"start_date" json:"start_date"`
	EndDate   time.Time          `db:"end_date" json:"end_date"`
	AutoRenew bool               `db:"auto_renew" json:"auto_renew"`
	SiteID    *string            `db:"site_id" json:"site_id,omitempty"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// AddMonths returns t advanced by n calendar months.
// Day overflow normalises forward (Jan 31 + 1 month lands in early March).
func AddMonths(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// NewSubscriptionForOrder builds the ACTIVE subscription for a completed order.
func NewSubscriptionForOrder(o *Order, start time.Time) *Subscription {
	return &Subscription{
		UserID:    o.UserID,
		OrderID:   o.ID,
		PlanName:  o.PlanName,
		PlanType:  o.PlanType,
		Status:    SubscriptionStatusActive,
		StartDate: start,
		EndDate:   AddMonths(start, o.Duration()),
		AutoRenew: true,
	}
}

// ==============================================
// HOSTING SITE
// ==============================================

// Site is what the hosting panel returns after provisioning a website.
type Site struct {
	SiteID      string `json:"site_id"`
	FTPUsername string `json:"ftp_username"`
	FTPPassword string `json:"-"`
}
