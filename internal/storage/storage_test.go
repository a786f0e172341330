package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"clmmLedger/internal/ledger"
	"clmmLedger/internal/model"
	"clmmLedger/internal/storage/postgres"
)

var (
	_ EventSink  = (*JsonlStorage)(nil)
	_ EventSink  = (*postgres.Store)(nil)
	_ WorldStore = (*StateFile)(nil)
	_ WorldStore = (*postgres.Store)(nil)
)

func TestJsonlStorageAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.jsonl")
	s := NewJsonlStorage(path)
	ev := model.IncreaseLiquidityEvent{
		PositionNftMint: solana.PublicKey{7},
		PoolID:          solana.PublicKey{1},
		Liquidity:       uint128.From64(1000),
		Amount0:         5,
	}

	require.NoError(t, s.WriteEvents(context.Background(), []model.EventRecord{ev.Record(100)}))
	require.NoError(t, s.WriteEvents(context.Background(), []model.EventRecord{ev.Record(200)}))
	require.NoError(t, s.WriteEvents(context.Background(), nil))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var got []model.EventRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.EventRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		got = append(got, rec)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, got, 2)
	assert.Equal(t, uint64(100), got[0].Timestamp)
	assert.Equal(t, uint64(200), got[1].Timestamp)
	assert.Equal(t, "1000", got[1].Decoded.Liquidity)
	assert.Equal(t, "5", got[1].Decoded.Amount0)
}

func TestStateFileMissingIsEmpty(t *testing.T) {
	s := NewStateFile(filepath.Join(t.TempDir(), "state.json"))
	w, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, w.Pools)
}

func TestStateFileRejectsDirectory(t *testing.T) {
	_, err := NewStateFile(t.TempDir()).Load(context.Background())
	assert.ErrorContains(t, err, "is a directory")
}

func TestStateFileUpdate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	s := NewStateFile(path)
	pool := solana.PublicKey{1}

	require.NoError(t, s.Update(ctx, func(w *ledger.World) error {
		return w.Put(pool, &model.PoolState{TickSpacing: 60, Liquidity: uint128.Max})
	}))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	failed := errors.New("boom")
	err = s.Update(ctx, func(w *ledger.World) error {
		w.Pools[pool.String()].TickSpacing = 1
		return failed
	})
	assert.ErrorIs(t, err, failed)

	w, err := s.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, w.Pools, pool.String())
	assert.Equal(t, uint16(60), w.Pools[pool.String()].TickSpacing)
	assert.Equal(t, uint128.Max, w.Pools[pool.String()].Liquidity)
	assert.Equal(t, pool, w.Pools[pool.String()].ID)
}

func TestStateFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := NewStateFile(path).Load(context.Background())
	assert.ErrorContains(t, err, "parse state file")
}
