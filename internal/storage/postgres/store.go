package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clmmLedger/internal/ledger"
	"clmmLedger/internal/model"
)

// Store provides Postgres persistence for accounts, events and metrics.
type Store struct {
	pool         *pgxpool.Pool
	maxRetries   int
	retryBackoff time.Duration
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, maxRetries: 5, retryBackoff: 50 * time.Millisecond}, nil
}

// SetRetry configures how often a conflicting transaction is rerun.
func (s *Store) SetRetry(maxRetries int, backoff time.Duration) {
	s.maxRetries = maxRetries
	s.retryBackoff = backoff
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// WithTx runs fn in a serializable transaction, rerunning it when Postgres
// reports a serialization failure or deadlock.
func (s *Store) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return withRetry(ctx, s.maxRetries, s.retryBackoff, isConflict, func(ctx context.Context) error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
	})
}

// Load reads every account without locking.
func (s *Store) Load(ctx context.Context) (*ledger.World, error) {
	rows, err := s.pool.Query(ctx, `SELECT address, kind, data FROM accounts`)
	if err != nil {
		return nil, err
	}
	return collectWorld(rows)
}

// Save upserts every account of w.
func (s *Store) Save(ctx context.Context, w *ledger.World) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		return saveDocuments(ctx, tx, w)
	})
}

// Update locks the account rows, applies fn to the loaded world and writes it
// back in the same transaction. Nothing is written when fn fails.
func (s *Store) Update(ctx context.Context, fn func(*ledger.World) error) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT address, kind, data FROM accounts ORDER BY address FOR UPDATE`)
		if err != nil {
			return err
		}
		w, err := collectWorld(rows)
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
		return saveDocuments(ctx, tx, w)
	})
}

func collectWorld(rows pgx.Rows) (*ledger.World, error) {
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ledger.Document, error) {
		var doc ledger.Document
		err := row.Scan(&doc.Address, &doc.Kind, &doc.Data)
		return doc, err
	})
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return ledger.FromDocuments(docs)
}

func saveDocuments(ctx context.Context, tx pgx.Tx, w *ledger.World) error {
	docs, err := w.Documents()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, doc := range docs {
		batch.Queue(`
			INSERT INTO accounts (address, kind, data, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (address)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				data = EXCLUDED.data,
				updated_at = now()
			WHERE accounts.data IS DISTINCT FROM EXCLUDED.data
		`, doc.Address, doc.Kind, []byte(doc.Data))
	}

	br := tx.SendBatch(ctx, batch)
	defer br.Close()

	for range docs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save accounts: %w", err)
		}
	}
	return br.Close()
}

// WriteEvents inserts event records.
func (s *Store) WriteEvents(ctx context.Context, records []model.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		d := r.Decoded
		batch.Queue(`
			INSERT INTO increase_liquidity_events (
				event_name, ts, position_nft_mint, pool_id, liquidity,
				amount0, amount1, amount0_transfer_fee, amount1_transfer_fee, created_at
			) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9::numeric, now())
		`,
			r.EventName,
			int64(r.Timestamp),
			d.PositionNftMint,
			d.PoolID,
			d.Liquidity,
			d.Amount0,
			d.Amount1,
			d.Amount0TransferFee,
			d.Amount1TransferFee,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_id, window_size_seconds, window_start_ts, window_end_ts,
				increase_count, positions, liquidity_added, amount0, amount1,
				amount0_transfer_fee, amount1_transfer_fee, transfer_fee_rate0, transfer_fee_rate1,
				tvl0, tvl1, tvl_method, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7::numeric,$8::numeric,$9::numeric,$10::numeric,$11::numeric,$12::numeric,$13::numeric,$14::numeric,$15::numeric,$16,now(),now())
			ON CONFLICT (pool_id, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				increase_count = EXCLUDED.increase_count,
				positions = EXCLUDED.positions,
				liquidity_added = EXCLUDED.liquidity_added,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				amount0_transfer_fee = EXCLUDED.amount0_transfer_fee,
				amount1_transfer_fee = EXCLUDED.amount1_transfer_fee,
				transfer_fee_rate0 = EXCLUDED.transfer_fee_rate0,
				transfer_fee_rate1 = EXCLUDED.transfer_fee_rate1,
				tvl0 = EXCLUDED.tvl0,
				tvl1 = EXCLUDED.tvl1,
				tvl_method = EXCLUDED.tvl_method,
				updated_at = now()
		`,
			m.PoolID,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.IncreaseCount),
			int64(m.Positions),
			m.LiquidityAdded,
			m.Amount0,
			m.Amount1,
			m.Amount0TransferFee,
			m.Amount1TransferFee,
			m.TransferFeeRate0,
			m.TransferFeeRate1,
			m.TVL0,
			m.TVL1,
			m.TVLMethod,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}
