package liquidity

import (
	"fmt"

	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickbitmap"
	"clmmLedger/internal/tickmath"
)

// checkTickRange validates a position's bounds against the pool's spacing.
func checkTickRange(tickLower, tickUpper int32, tickSpacing uint16) error {
	if tickLower >= tickUpper {
		return fmt.Errorf("tick lower %d not below tick upper %d: %w", tickLower, tickUpper, errcode.ErrInvalidTick)
	}
	if tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick {
		return fmt.Errorf("ticks [%d, %d] out of bounds: %w", tickLower, tickUpper, errcode.ErrInvalidTick)
	}
	spacing := int32(tickSpacing)
	if spacing == 0 || tickLower%spacing != 0 || tickUpper%spacing != 0 {
		return fmt.Errorf("ticks [%d, %d] not multiples of spacing %d: %w", tickLower, tickUpper, tickSpacing, errcode.ErrInvalidTick)
	}
	return nil
}

// tickState returns the slot for tick inside arr.
func tickState(arr *model.TickArrayState, tick int32, tickSpacing uint16) (*model.TickState, error) {
	start := tickbitmap.ArrayStartIndex(tick, tickSpacing)
	if start != arr.StartTickIndex {
		return nil, fmt.Errorf("tick %d not in tick array starting at %d: %w", tick, arr.StartTickIndex, errcode.ErrInvalidTick)
	}
	offset := (tick - start) / int32(tickSpacing)
	return &arr.Ticks[offset], nil
}

// addSigned adds delta to a two's complement i128 value, or subtracts it when
// negate is set.
func addSigned(net, delta uint128.Uint128, negate bool) (uint128.Uint128, error) {
	wasNegative := net.Hi>>63 == 1
	var out uint128.Uint128
	if negate {
		out = net.SubWrap(delta)
		if wasNegative && out.Hi>>63 == 0 {
			return uint128.Zero, fmt.Errorf("liquidity net: %w", errcode.ErrOverflow)
		}
		return out, nil
	}
	out = net.AddWrap(delta)
	if !wasNegative && out.Hi>>63 == 1 {
		return uint128.Zero, fmt.Errorf("liquidity net: %w", errcode.ErrOverflow)
	}
	return out, nil
}

// updateTick adds liquidityDelta to tick and reports whether it went from
// uninitialized to initialized. Growth-outside values are seeded the first
// time a tick at or below the current price is referenced.
func updateTick(tick *model.TickState, pool *model.PoolState, liquidityDelta uint128.Uint128, upper bool) (bool, error) {
	grossBefore := tick.LiquidityGross
	grossAfter, err := fixedpoint.CheckedAdd128(grossBefore, liquidityDelta)
	if err != nil {
		return false, fmt.Errorf("tick %d liquidity gross: %w", tick.Tick, err)
	}
	net, err := addSigned(tick.LiquidityNet, liquidityDelta, upper)
	if err != nil {
		return false, fmt.Errorf("tick %d: %w", tick.Tick, err)
	}

	if grossBefore.IsZero() && tick.Tick <= pool.TickCurrent {
		tick.FeeGrowthOutside0X64 = pool.FeeGrowthGlobal0X64
		tick.FeeGrowthOutside1X64 = pool.FeeGrowthGlobal1X64
		tick.RewardGrowthsOutsideX64 = pool.RewardGrowthsGlobal()
	}
	tick.LiquidityGross = grossAfter
	tick.LiquidityNet = net
	return grossBefore.IsZero() != grossAfter.IsZero(), nil
}

// growthInside returns global - below - above for one growth counter, all
// modulo 2^128.
func growthInside(tickCurrent int32, lower, upper *model.TickState, global, lowerOutside, upperOutside uint128.Uint128) uint128.Uint128 {
	below := lowerOutside
	if tickCurrent < lower.Tick {
		below = fixedpoint.WrappingSub(global, lowerOutside)
	}
	above := upperOutside
	if tickCurrent >= upper.Tick {
		above = fixedpoint.WrappingSub(global, upperOutside)
	}
	return fixedpoint.WrappingSub(fixedpoint.WrappingSub(global, below), above)
}

func feeGrowthInside(pool *model.PoolState, lower, upper *model.TickState) (uint128.Uint128, uint128.Uint128) {
	inside0 := growthInside(pool.TickCurrent, lower, upper, pool.FeeGrowthGlobal0X64, lower.FeeGrowthOutside0X64, upper.FeeGrowthOutside0X64)
	inside1 := growthInside(pool.TickCurrent, lower, upper, pool.FeeGrowthGlobal1X64, lower.FeeGrowthOutside1X64, upper.FeeGrowthOutside1X64)
	return inside0, inside1
}

func rewardGrowthsInside(pool *model.PoolState, lower, upper *model.TickState) [model.RewardNum]uint128.Uint128 {
	var out [model.RewardNum]uint128.Uint128
	for i, info := range pool.RewardInfos {
		if !info.Initialized() {
			continue
		}
		out[i] = growthInside(pool.TickCurrent, lower, upper,
			info.RewardGrowthGlobalX64, lower.RewardGrowthsOutsideX64[i], upper.RewardGrowthsOutsideX64[i])
	}
	return out
}
