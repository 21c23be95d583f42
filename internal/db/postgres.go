package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const connectTimeout = 10 * time.Second

// PoolOption tunes the pool before it is opened.
type PoolOption func(*pgxpool.Config)

// WithConns sets the pool bounds. Non-positive values keep the defaults.
func WithConns(max, min int32) PoolOption {
	return func(c *pgxpool.Config) {
		if max > 0 {
			c.MaxConns = max
		}
		if min > 0 && min <= c.MaxConns {
			c.MinConns = min
		}
	}
}

// NewPool opens a PostgreSQL pool and checks it with a ping. Order and OTP
// flows hold a row lock for the life of a transaction, so MaxConns bounds how
// many of them can run at once.
func NewPool(ctx context.Context, dbURL string, opts ...PoolOption) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse DB_URL: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnIdleTime = 5 * time.Minute
	config.ConnConfig.ConnectTimeout = connectTimeout
	for _, opt := range opts {
		opt(config)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return pool, nil
}
