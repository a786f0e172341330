package aggregate

import (
	"fmt"
	"math/big"
	"strings"

	"clmmLedger/internal/model"
)

const eventIncreaseLiquidity = "increaseliquidity"

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolID         string
	WindowStart    uint64
	WindowEnd      uint64
	IncreaseCount  uint64
	LiquidityAdded *big.Int
	Amount0        *big.Int
	Amount1        *big.Int
	Fee0           *big.Int
	Fee1           *big.Int
	LastTS         uint64
	positions      map[string]struct{}
}

func NewAccumulator(record model.EventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolID:         record.Decoded.PoolID,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		LiquidityAdded: big.NewInt(0),
		Amount0:        big.NewInt(0),
		Amount1:        big.NewInt(0),
		Fee0:           big.NewInt(0),
		Fee1:           big.NewInt(0),
		LastTS:         record.Timestamp,
		positions:      make(map[string]struct{}),
	}
}

// Positions is the number of distinct positions increased in the window.
func (a *Accumulator) Positions() uint64 {
	return uint64(len(a.positions))
}

// AddEvent folds record into the window. Events other than liquidity
// increases are ignored.
func (a *Accumulator) AddEvent(record model.EventRecord) error {
	if record.Timestamp > a.LastTS {
		a.LastTS = record.Timestamp
	}

	switch strings.ToLower(record.EventName) {
	case eventIncreaseLiquidity:
		return a.applyIncrease(record.Decoded)
	default:
		return nil
	}
}

func (a *Accumulator) applyIncrease(ev model.IncreaseLiquidityEventData) error {
	values := make([]*big.Int, 0, 5)
	for _, field := range []struct{ name, value string }{
		{"liquidity", ev.Liquidity},
		{"amount0", ev.Amount0},
		{"amount1", ev.Amount1},
		{"amount0_transfer_fee", ev.Amount0TransferFee},
		{"amount1_transfer_fee", ev.Amount1TransferFee},
	} {
		v, err := parseBigInt(field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		if v.Sign() < 0 {
			return fmt.Errorf("%s: negative value %s", field.name, field.value)
		}
		values = append(values, v)
	}

	a.LiquidityAdded.Add(a.LiquidityAdded, values[0])
	a.Amount0.Add(a.Amount0, values[1])
	a.Amount1.Add(a.Amount1, values[2])
	a.Fee0.Add(a.Fee0, values[3])
	a.Fee1.Add(a.Fee1, values[4])
	a.positions[ev.PositionNftMint] = struct{}{}
	a.IncreaseCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}
