package model

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// TickArraySize is the number of ticks stored in one tick array.
const TickArraySize = 60

// ExtensionBitmapSize is the number of 512-bit bitmaps per sign in the extension.
const ExtensionBitmapSize = 14

// TickState is one initialized-tick record.
type TickState struct {
	Tick int32
	// LiquidityNet is a signed 128-bit value in two's complement.
	LiquidityNet            uint128.Uint128
	LiquidityGross          uint128.Uint128
	FeeGrowthOutside0X64    uint128.Uint128
	FeeGrowthOutside1X64    uint128.Uint128
	RewardGrowthsOutsideX64 [RewardNum]uint128.Uint128
}

// Initialized reports whether any liquidity references the tick.
func (t TickState) Initialized() bool {
	return !t.LiquidityGross.IsZero()
}

// LiquidityNetBig returns LiquidityNet as a signed integer.
func (t TickState) LiquidityNetBig() *big.Int {
	v := t.LiquidityNet.Big()
	if t.LiquidityNet.Hi>>63 == 1 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), 128))
	}
	return v
}

// TickArrayState holds TickArraySize consecutive ticks of a pool.
type TickArrayState struct {
	ID                   solana.PublicKey
	PoolID               solana.PublicKey
	StartTickIndex       int32
	Ticks                [TickArraySize]TickState
	InitializedTickCount uint8
}

// Clone returns a copy that shares no memory with t.
func (t *TickArrayState) Clone() *TickArrayState {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// TickArrayBitmapExtension records initialized tick arrays outside the
// pool's default bitmap coverage.
type TickArrayBitmapExtension struct {
	PoolID                  solana.PublicKey
	PositiveTickArrayBitmap [ExtensionBitmapSize][8]uint64
	NegativeTickArrayBitmap [ExtensionBitmapSize][8]uint64
}

// Clone returns a copy that shares no memory with e.
func (e *TickArrayBitmapExtension) Clone() *TickArrayBitmapExtension {
	if e == nil {
		return nil
	}
	cp := *e
	return &cp
}
