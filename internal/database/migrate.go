package database

import (
	"context"
	"database/sql"
	"fmt"
)

// One statement per entry: the pgx extended protocol does not accept
// multi-statement strings.
var schema = []string{`
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      VARCHAR(50) NOT NULL UNIQUE,
	email         VARCHAR(100) NOT NULL UNIQUE,
	password      TEXT NOT NULL,
	full_name     VARCHAR(100) NOT NULL,
	role          VARCHAR(20) NOT NULL DEFAULT 'customer',
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	last_login    TIMESTAMPTZ,
	refresh_token TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`, `
CREATE TABLE IF NOT EXISTS customers (
	id           BIGSERIAL PRIMARY KEY,
	name         VARCHAR(100) NOT NULL,
	contact_name VARCHAR(100) NOT NULL DEFAULT '',
	country      VARCHAR(100) NOT NULL,
	user_id      BIGINT NOT NULL REFERENCES users(id),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`, `
CREATE TABLE IF NOT EXISTS admins (
	id         BIGSERIAL PRIMARY KEY,
	user_id    BIGINT NOT NULL UNIQUE REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`, `
CREATE TABLE IF NOT EXISTS products (
	id           BIGSERIAL PRIMARY KEY,
	name         VARCHAR(200) NOT NULL,
	unit_price   NUMERIC(12,2) NOT NULL,
	product_code BIGINT NOT NULL DEFAULT 0,
	quantity     INTEGER NOT NULL CHECK (quantity >= 0),
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`, `
CREATE TABLE IF NOT EXISTS orders (
	id          BIGSERIAL PRIMARY KEY,
	customer_id BIGINT NOT NULL REFERENCES customers(id),
	order_date  TIMESTAMPTZ NOT NULL,
	status      VARCHAR(20) NOT NULL DEFAULT 'pending',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);`, `
CREATE TABLE IF NOT EXISTS order_details (
	id         BIGSERIAL PRIMARY KEY,
	order_id   BIGINT NOT NULL REFERENCES orders(id),
	product_id BIGINT NOT NULL REFERENCES products(id),
	quantity   INTEGER NOT NULL CHECK (quantity > 0),
	price      NUMERIC(12,2) NOT NULL CHECK (price >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`, `
CREATE TABLE IF NOT EXISTS order_tracking (
	id            BIGSERIAL PRIMARY KEY,
	order_id      BIGINT NOT NULL REFERENCES orders(id),
	status        VARCHAR(20) NOT NULL,
	note          TEXT,
	updated_by_id BIGINT NOT NULL,
	location      JSON,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`, `
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);`, `
CREATE INDEX IF NOT EXISTS idx_order_details_order ON order_details(order_id);`, `
CREATE INDEX IF NOT EXISTS idx_order_tracking_order ON order_tracking(order_id);`,
}

// Migrate applies the schema. Statements are idempotent so it is safe to run
// on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
