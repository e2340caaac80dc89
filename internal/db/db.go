// Package db opens the Postgres pool and applies the schema.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates missing tables. Every statement is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id         BIGSERIAL PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL CHECK (role IN ('admin','seller','customer')),
		status     TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','pending','suspended')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id          BIGSERIAL PRIMARY KEY,
		owner_id    BIGINT NOT NULL REFERENCES accounts(id),
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		stock       INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS products_owner_idx ON products (owner_id)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id         BIGSERIAL PRIMARY KEY,
		account_id BIGINT UNIQUE REFERENCES accounts(id),
		token_hash TEXT UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CHECK ((account_id IS NULL) <> (token_hash IS NULL))
	)`,
	`CREATE TABLE IF NOT EXISTS cart_lines (
		cart_id    BIGINT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		added_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (cart_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                     BIGSERIAL PRIMARY KEY,
		number                 TEXT NOT NULL,
		account_id             BIGINT REFERENCES accounts(id),
		guest_name             TEXT NOT NULL DEFAULT '',
		guest_email            TEXT NOT NULL DEFAULT '',
		shipping_address       JSONB NOT NULL,
		payment_method         TEXT NOT NULL,
		subtotal               NUMERIC(12,2) NOT NULL,
		discount               NUMERIC(12,2) NOT NULL,
		delivery_fee           NUMERIC(12,2) NOT NULL,
		total                  NUMERIC(12,2) NOT NULL,
		is_paid                BOOLEAN NOT NULL DEFAULT FALSE,
		paid_at                TIMESTAMPTZ,
		paid_via               TEXT NOT NULL DEFAULT '',
		is_delivered           BOOLEAN NOT NULL DEFAULT FALSE,
		delivered_at           TIMESTAMPTZ,
		is_confirmed_by_admin  BOOLEAN NOT NULL DEFAULT FALSE,
		confirmed_at           TIMESTAMPTZ,
		is_cancelled           BOOLEAN NOT NULL DEFAULT FALSE,
		cancelled_at           TIMESTAMPTZ,
		cancelled_by           TEXT NOT NULL DEFAULT '',
		payment_code           TEXT NOT NULL DEFAULT '',
		payment_provider       TEXT NOT NULL DEFAULT '',
		payment_code_issued_at TIMESTAMPTZ,
		created_by             TEXT NOT NULL,
		version                INTEGER NOT NULL DEFAULT 1,
		created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT orders_number_key UNIQUE (number),
		CHECK ((account_id IS NULL) = (guest_email <> ''))
	)`,
	`CREATE INDEX IF NOT EXISTS orders_account_idx ON orders (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_lines (
		id         BIGSERIAL PRIMARY KEY,
		order_id   BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_lines_order_idx ON order_lines (order_id)`,
	`CREATE INDEX IF NOT EXISTS order_lines_product_idx ON order_lines (product_id)`,
}
