package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"clmmLedger/internal/model"
)

// MetricsStore receives flushed window metrics.
type MetricsStore interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	// Pools supplies decimals and vault balances. Optional.
	Pools *PoolInfoCache
}

// Aggregator aggregates liquidity increase events into pool window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Pools == nil {
		cfg.Pools = NewPoolInfoCache()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over an event JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, flushed, skipped, failed int

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode event record", zap.Error(err))
			continue
		}

		if record.Timestamp <= startTs {
			skipped++
			continue
		}
		if record.Decoded.PoolID == "" {
			failed++
			a.logger.Warn("event without pool", zap.String("event", record.EventName))
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		key := record.Decoded.PoolID
		acc := a.accumulators[key]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[key] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, a.metrics(acc))
			flushed++
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[key] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", key), zap.String("event", record.EventName))
			continue
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		batch = append(batch, a.metrics(acc))
		flushed++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", flushed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records a timestamp below every open window so a rerun rebuilds
// those windows from scratch.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) metrics(acc *Accumulator) model.PoolWindowMetrics {
	info, ok := a.cfg.Pools.Get(acc.PoolID)
	if !ok {
		a.logger.Debug("no pool info, amounts left unscaled", zap.String("pool", acc.PoolID))
	}

	m := model.PoolWindowMetrics{
		PoolID:             acc.PoolID,
		WindowSizeSecs:     int64(a.cfg.WindowSeconds),
		WindowStart:        time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:          time.Unix(int64(acc.WindowEnd), 0).UTC(),
		IncreaseCount:      acc.IncreaseCount,
		Positions:          acc.Positions(),
		LiquidityAdded:     acc.LiquidityAdded.String(),
		Amount0:            formatTokenAmount(acc.Amount0, info.Decimals0),
		Amount1:            formatTokenAmount(acc.Amount1, info.Decimals1),
		Amount0TransferFee: formatTokenAmount(acc.Fee0, info.Decimals0),
		Amount1TransferFee: formatTokenAmount(acc.Fee1, info.Decimals1),
		TransferFeeRate0:   transferFeeRate(acc.Amount0, acc.Fee0),
		TransferFeeRate1:   transferFeeRate(acc.Amount1, acc.Fee1),
	}

	tvl0, tvl1, method := poolTVL(info, ok)
	m.TVLMethod = method
	if tvl0 != nil {
		v := formatTokenAmount(tvl0, info.Decimals0)
		m.TVL0 = &v
	}
	if tvl1 != nil {
		v := formatTokenAmount(tvl1, info.Decimals1)
		m.TVL1 = &v
	}
	return m
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var lowest uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if lowest == 0 || entry.WindowStart < lowest {
			lowest = entry.WindowStart
		}
	}
	return lowest
}
