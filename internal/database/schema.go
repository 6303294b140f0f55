package database

import (
	"context"
	"fmt"
)

// schema crea las tablas si no existen. containers_held y units se protegen
// con CHECK para que el almacenamiento rechace cualquier valor inválido.
const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id              UUID PRIMARY KEY,
	name            TEXT NOT NULL,
	phone           TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	is_regular      BOOLEAN NOT NULL DEFAULT false,
	containers_held INTEGER NOT NULL DEFAULT 0 CHECK (containers_held >= 0),
	default_units   INTEGER,
	route_id        UUID,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id           UUID PRIMARY KEY,
	customer_id  UUID NOT NULL REFERENCES customers(id) ON DELETE CASCADE,
	units        INTEGER NOT NULL CHECK (units > 0),
	product_type TEXT NOT NULL CHECK (product_type IN ('bottle', 'jug')),
	order_type   TEXT NOT NULL CHECK (order_type IN ('regular', 'bulk', 'event')),
	price        NUMERIC(12, 2) NOT NULL,
	is_paid      BOOLEAN NOT NULL DEFAULT false,
	delivered_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_unpaid
	ON orders (customer_id, order_type) WHERE is_paid = false;
CREATE INDEX IF NOT EXISTS idx_orders_delivered_at ON orders (delivered_at);

CREATE TABLE IF NOT EXISTS profiles (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	phone      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id UUID PRIMARY KEY REFERENCES profiles(user_id) ON DELETE CASCADE,
	role    TEXT NOT NULL CHECK (role IN ('staff', 'admin'))
);
`

// EnsureSchema aplica el esquema
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecWithTimeout(ctx, schema); err != nil {
		return fmt.Errorf("error applying schema: %w", err)
	}
	return nil
}
