package aggregate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clmmLedger/internal/model"
)

type memStore struct {
	calls   int
	metrics []model.PoolWindowMetrics
}

func (m *memStore) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	m.calls++
	m.metrics = append(m.metrics, metrics...)
	return nil
}

func record(ts uint64, pool, position, liquidity, amount0, amount1, fee0, fee1 string) model.EventRecord {
	return model.EventRecord{
		EventName: "IncreaseLiquidity",
		Timestamp: ts,
		Decoded: model.IncreaseLiquidityEventData{
			PositionNftMint:    position,
			PoolID:             pool,
			Liquidity:          liquidity,
			Amount0:            amount0,
			Amount1:            amount1,
			Amount0TransferFee: fee0,
			Amount1TransferFee: fee1,
		},
	}
}

func writeInput(t *testing.T, lines ...any) string {
	t.Helper()
	var sb strings.Builder
	for _, line := range lines {
		switch v := line.(type) {
		case string:
			sb.WriteString(v)
		default:
			data, err := json.Marshal(v)
			require.NoError(t, err)
			sb.Write(data)
		}
		sb.WriteByte('\n')
	}
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func TestAggregatorRun(t *testing.T) {
	input := writeInput(t,
		record(100, "poolA", "posX", "1000", "990000", "0", "10000", "0"),
		"not json",
		"",
		record(150, "poolB", "posZ", "7", "1", "2", "0", "0"),
		record(200, "poolA", "posY", "500", "10", "20", "0", "0"),
		model.EventRecord{EventName: "CollectFee", Timestamp: 210, Decoded: model.IncreaseLiquidityEventData{PoolID: "poolA"}},
		record(400, "poolA", "posX", "1", "0", "0", "0", "0"),
	)

	vault0 := uint64(5_000_000)
	pools := NewPoolInfoCache()
	pools.Set("poolA", PoolInfo{Decimals0: 6, Vault0Balance: &vault0})

	store := &memStore{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	agg := NewAggregator(Config{WindowSeconds: 300, StateStore: state, Pools: pools}, store, nil)
	require.NoError(t, agg.Run(context.Background(), input))

	sort.Slice(store.metrics, func(i, j int) bool {
		if store.metrics[i].PoolID != store.metrics[j].PoolID {
			return store.metrics[i].PoolID < store.metrics[j].PoolID
		}
		return store.metrics[i].WindowStart.Before(store.metrics[j].WindowStart)
	})
	require.Len(t, store.metrics, 3)

	first := store.metrics[0]
	assert.Equal(t, "poolA", first.PoolID)
	assert.Equal(t, time.Unix(0, 0).UTC(), first.WindowStart)
	assert.Equal(t, time.Unix(300, 0).UTC(), first.WindowEnd)
	assert.Equal(t, int64(300), first.WindowSizeSecs)
	assert.Equal(t, uint64(2), first.IncreaseCount)
	assert.Equal(t, uint64(2), first.Positions)
	assert.Equal(t, "1500", first.LiquidityAdded)
	assert.Equal(t, "0.990010", first.Amount0)
	assert.Equal(t, "20", first.Amount1)
	assert.Equal(t, "0.010000", first.Amount0TransferFee)
	require.NotNil(t, first.TransferFeeRate0)
	assert.Equal(t, "0.009999900000999990", *first.TransferFeeRate0)
	require.NotNil(t, first.TransferFeeRate1)
	assert.Equal(t, "0.000000000000000000", *first.TransferFeeRate1)
	assert.Equal(t, tvlMethodVaultLatest, first.TVLMethod)
	require.NotNil(t, first.TVL0)
	assert.Equal(t, "5.000000", *first.TVL0)
	assert.Nil(t, first.TVL1)

	second := store.metrics[1]
	assert.Equal(t, time.Unix(300, 0).UTC(), second.WindowStart)
	assert.Equal(t, uint64(1), second.IncreaseCount)
	assert.Nil(t, second.TransferFeeRate0)

	other := store.metrics[2]
	assert.Equal(t, "poolB", other.PoolID)
	assert.Equal(t, "1", other.Amount0)
	assert.Equal(t, tvlMethodNone, other.TVLMethod)

	last, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(400), last)

	// A rerun resumes after the saved timestamp.
	rerun := &memStore{}
	require.NoError(t, NewAggregator(Config{WindowSeconds: 300, StateStore: state}, rerun, nil).Run(context.Background(), input))
	assert.Empty(t, rerun.metrics)
}

func TestAggregatorRecomputeFrom(t *testing.T) {
	input := writeInput(t,
		record(100, "poolA", "posX", "1", "1", "1", "0", "0"),
		record(700, "poolA", "posX", "2", "1", "1", "0", "0"),
	)
	store := &memStore{}
	agg := NewAggregator(Config{WindowSeconds: 600, RecomputeFrom: 600}, store, nil)
	require.NoError(t, agg.Run(context.Background(), input))

	require.Len(t, store.metrics, 1)
	assert.Equal(t, time.Unix(600, 0).UTC(), store.metrics[0].WindowStart)
	assert.Equal(t, "2", store.metrics[0].LiquidityAdded)
}

func TestAggregatorBatchesAndSavesSafeState(t *testing.T) {
	input := writeInput(t,
		record(10, "poolA", "p", "1", "0", "0", "0", "0"),
		record(70, "poolA", "p", "1", "0", "0", "0", "0"),
		record(130, "poolB", "p", "1", "0", "0", "0", "0"),
		record(190, "poolA", "p", "1", "0", "0", "0", "0"),
	)
	store := &memStore{}
	saves := &recordingState{}
	agg := NewAggregator(Config{WindowSeconds: 60, BatchSize: 1, StateStore: saves}, store, nil)
	require.NoError(t, agg.Run(context.Background(), input))

	assert.Len(t, store.metrics, 4)
	require.NotEmpty(t, saves.saved)
	// Mid-run saves stay below the oldest open window.
	assert.Equal(t, uint64(59), saves.saved[0])
	assert.Equal(t, uint64(190), saves.saved[len(saves.saved)-1])
}

type recordingState struct {
	saved []uint64
}

func (r *recordingState) Load(context.Context) (uint64, bool, error) { return 0, false, nil }

func (r *recordingState) Save(_ context.Context, ts uint64) error {
	r.saved = append(r.saved, ts)
	return nil
}

func TestAggregatorRequiresWindow(t *testing.T) {
	err := NewAggregator(Config{}, &memStore{}, nil).Run(context.Background(), "unused")
	assert.ErrorContains(t, err, "window seconds")
}

func TestAccumulatorRejectsBadAmounts(t *testing.T) {
	acc := NewAccumulator(record(1, "poolA", "p", "1", "1", "1", "0", "0"), 0, 60)

	assert.ErrorContains(t, acc.AddEvent(record(1, "poolA", "p", "x", "1", "1", "0", "0")), "liquidity")
	assert.ErrorContains(t, acc.AddEvent(record(1, "poolA", "p", "1", "-1", "1", "0", "0")), "negative")
	assert.Equal(t, uint64(0), acc.IncreaseCount)
	assert.Equal(t, "0", acc.LiquidityAdded.String())

	require.NoError(t, acc.AddEvent(model.EventRecord{EventName: "Swap", Timestamp: 5}))
	assert.Equal(t, uint64(5), acc.LastTS)
	assert.Equal(t, uint64(0), acc.IncreaseCount)
}

func TestFileStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := &FileStateStore{
		Path: filepath.Join(t.TempDir(), "agg", "state.json"),
		Now:  func() time.Time { return time.Unix(1_700_000_000, 0) },
	}
	_, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, 42))
	ts, ok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(42), ts)

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2023-11-14T22:13:20Z")
}

func TestDBStateStoreNilRows(t *testing.T) {
	s := &DBStateStore{Name: StateName(300)}
	assert.Equal(t, "aggregate:300", s.Name)
	_, ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, s.Save(context.Background(), 1))
}
