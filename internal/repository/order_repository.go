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
// ORDER REPOSITORY
// ==============================================

type OrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `
	id, user_id, plan_id, plan_name, plan_type, price, duration_months,
	status, payment_id, payment_url, metadata, paid_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.PlanID,
		&o.PlanName,
		&o.PlanType,
		&o.Price,
		&o.DurationMonths,
		&o.Status,
		&o.PaymentID,
		&o.PaymentURL,
		&o.Metadata,
		&o.PaidAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if o.Metadata == nil {
		o.Metadata = models.Metadata{}
	}
	return &o, nil
}

// BeginTx starts a transaction for the per-order critical section.
func (r *OrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.BeginTx(ctx, pgx.TxOptions{})
}

// ==============================================
// CREATE
// ==============================================

// CreateOrder inserts a new order. The caller assigns the ID.
func (r *OrderRepository) CreateOrder(ctx context.Context, o *models.Order) error {
	if o.Metadata == nil {
		o.Metadata = models.Metadata{}
	}

	query := `
		INSERT INTO orders (id, user_id, plan_id, plan_name, plan_type, price, duration_months, status, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		o.ID,
		o.UserID,
		o.PlanID,
		o.PlanName,
		o.PlanType,
		o.Price,
		o.DurationMonths,
		string(o.Status),
		o.Metadata,
	).Scan(&o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// ==============================================
// READ
// ==============================================

func (r *OrderRepository) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// GetOrderByIDForUpdate locks the order row until tx ends.
func (r *OrderRepository) GetOrderByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

	o, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return o, nil
}

// ListOrdersByUser returns a user's orders, newest first.
func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

// ==============================================
// UPDATE (inside a locked transaction)
// ==============================================

// UpdateOrder persists the mutable state of a locked order.
func (r *OrderRepository) UpdateOrder(ctx context.Context, tx pgx.Tx, o *models.Order) error {
	query := `
		UPDATE orders
		SET status = $2, payment_id = $3, payment_url = $4, metadata = $5, paid_at = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`

	err := tx.QueryRow(ctx, query,
		o.ID,
		string(o.Status),
		o.PaymentID,
		o.PaymentURL,
		o.Metadata,
		o.PaidAt,
	).Scan(&o.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrOrderNotFound
		}
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// RecordPaymentEvent appends an authenticated callback to the audit trail.
func (r *OrderRepository) RecordPaymentEvent(ctx context.Context, tx pgx.Tx, ev *models.PaymentEvent) error {
	query := `
		INSERT INTO payment_events (order_id, trx_id, status_code, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, received_at
	`

	err := tx.QueryRow(ctx, query,
		ev.OrderID,
		ev.TrxID,
		int(ev.StatusCode),
		ev.Payload,
	).Scan(&ev.ID, &ev.ReceivedAt)

	if err != nil {
		return fmt.Errorf("failed to record payment event: %w", err)
	}
	return nil
}
