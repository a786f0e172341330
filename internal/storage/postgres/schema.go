package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		address    TEXT PRIMARY KEY,
		kind       TEXT NOT NULL,
		data       JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS increase_liquidity_events (
		id                   BIGSERIAL PRIMARY KEY,
		event_name           TEXT NOT NULL,
		ts                   BIGINT NOT NULL,
		position_nft_mint    TEXT NOT NULL,
		pool_id              TEXT NOT NULL,
		liquidity            NUMERIC(39, 0) NOT NULL,
		amount0              NUMERIC(20, 0) NOT NULL,
		amount1              NUMERIC(20, 0) NOT NULL,
		amount0_transfer_fee NUMERIC(20, 0) NOT NULL,
		amount1_transfer_fee NUMERIC(20, 0) NOT NULL,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS increase_liquidity_events_pool_ts
		ON increase_liquidity_events (pool_id, ts)`,
	`CREATE TABLE IF NOT EXISTS pool_window_metrics (
		pool_id              TEXT NOT NULL,
		window_size_seconds  BIGINT NOT NULL,
		window_start_ts      TIMESTAMPTZ NOT NULL,
		window_end_ts        TIMESTAMPTZ NOT NULL,
		increase_count       BIGINT NOT NULL,
		positions            BIGINT NOT NULL,
		liquidity_added      NUMERIC NOT NULL,
		amount0              NUMERIC NOT NULL,
		amount1              NUMERIC NOT NULL,
		amount0_transfer_fee NUMERIC NOT NULL,
		amount1_transfer_fee NUMERIC NOT NULL,
		transfer_fee_rate0   NUMERIC,
		transfer_fee_rate1   NUMERIC,
		tvl0                 NUMERIC,
		tvl1                 NUMERIC,
		tvl_method           TEXT NOT NULL DEFAULT '',
		created_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (pool_id, window_size_seconds, window_start_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS indexer_state (
		name              TEXT PRIMARY KEY,
		last_processed_ts BIGINT NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables the store uses if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
