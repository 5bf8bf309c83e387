package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds every table the pipeline persists to. Applied with IF
// NOT EXISTS so startup migration is idempotent.
var schema = []string{
	`CREATE SCHEMA IF NOT EXISTS xray`,

	`CREATE TABLE IF NOT EXISTS xray.positions (
		portfolio_id TEXT NOT NULL,
		security_id  TEXT NOT NULL DEFAULT '',
		name         TEXT NOT NULL,
		quantity     DOUBLE PRECISION NOT NULL,
		unit_price   DOUBLE PRECISION NOT NULL,
		currency     TEXT NOT NULL DEFAULT '',
		asset_class  TEXT NOT NULL DEFAULT 'unknown',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (portfolio_id, security_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS xray.identifier_cache (
		ticker       TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		canonical_id TEXT NOT NULL,
		source       TEXT NOT NULL,
		resolved_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS identifier_cache_name_idx
		ON xray.identifier_cache (name)`,

	`CREATE TABLE IF NOT EXISTS xray.security_metadata (
		canonical_id TEXT PRIMARY KEY,
		sector       TEXT NOT NULL DEFAULT '',
		geography    TEXT NOT NULL DEFAULT '',
		asset_class  TEXT NOT NULL DEFAULT '',
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS xray.fund_holdings (
		fund_id    TEXT PRIMARY KEY,
		source     TEXT NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS xray.fund_holding_rows (
		fund_id     TEXT NOT NULL REFERENCES xray.fund_holdings(fund_id) ON DELETE CASCADE,
		row_index   INT NOT NULL,
		raw_ticker  TEXT NOT NULL DEFAULT '',
		ticker      TEXT NOT NULL DEFAULT '',
		name        TEXT NOT NULL DEFAULT '',
		weight      DOUBLE PRECISION NOT NULL,
		provider_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (fund_id, row_index)
	)`,
}

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
