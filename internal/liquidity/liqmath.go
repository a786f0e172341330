package liquidity

import (
	"fmt"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/tickmath"
)

func sortPrices(a, b uint128.Uint128) (uint128.Uint128, uint128.Uint128) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

func toAmount(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, fmt.Errorf("token amount %s exceeds 64 bits: %w", v.Dec(), errcode.ErrOverflow)
	}
	return v.Uint64(), nil
}

// GetDeltaAmount0Unsigned returns the token 0 amount backing liquidity between
// two sqrt prices: liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func GetDeltaAmount0Unsigned(sqrtA, sqrtB, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	if sqrtA.IsZero() {
		return 0, fixedpoint.ErrDivideByZero
	}

	numerator1 := new(uint256.Int).Lsh(fixedpoint.ToUint256(liquidity), fixedpoint.Resolution)
	numerator2 := fixedpoint.ToUint256(sqrtB.Sub(sqrtA))
	a, b := fixedpoint.ToUint256(sqrtA), fixedpoint.ToUint256(sqrtB)

	q, overflow := new(uint256.Int).MulDivOverflow(numerator1, numerator2, b)
	if overflow {
		return 0, fmt.Errorf("amount 0: %w", errcode.ErrOverflow)
	}
	if !roundUp {
		return toAmount(q.Div(q, a))
	}

	if !new(uint256.Int).MulMod(numerator1, numerator2, b).IsZero() {
		q.AddUint64(q, 1)
	}
	rem := new(uint256.Int).Mod(q, a)
	q.Div(q, a)
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}
	return toAmount(q)
}

// GetDeltaAmount1Unsigned returns the token 1 amount backing liquidity between
// two sqrt prices: liquidity * (sqrtB - sqrtA).
func GetDeltaAmount1Unsigned(sqrtA, sqrtB, liquidity uint128.Uint128, roundUp bool) (uint64, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	mulDiv := fixedpoint.MulDivFloor
	if roundUp {
		mulDiv = fixedpoint.MulDivCeil
	}
	v, err := mulDiv(liquidity, sqrtB.Sub(sqrtA), fixedpoint.Q64)
	if err != nil {
		return 0, fmt.Errorf("amount 1: %w", err)
	}
	return fixedpoint.ToUint64(v)
}

// GetDeltaAmounts returns the amounts, rounded up, required to add liquidity
// to [tickLower, tickUpper) at the current pool price.
func GetDeltaAmounts(tickCurrent int32, sqrtPriceCurrent uint128.Uint128, tickLower, tickUpper int32, liquidity uint128.Uint128) (uint64, uint64, error) {
	sqrtLower, err := tickmath.SqrtPriceAtTick(tickLower)
	if err != nil {
		return 0, 0, err
	}
	sqrtUpper, err := tickmath.SqrtPriceAtTick(tickUpper)
	if err != nil {
		return 0, 0, err
	}

	var amount0, amount1 uint64
	switch {
	case tickCurrent < tickLower:
		amount0, err = GetDeltaAmount0Unsigned(sqrtLower, sqrtUpper, liquidity, true)
	case tickCurrent < tickUpper:
		amount0, err = GetDeltaAmount0Unsigned(sqrtPriceCurrent, sqrtUpper, liquidity, true)
		if err == nil {
			amount1, err = GetDeltaAmount1Unsigned(sqrtLower, sqrtPriceCurrent, liquidity, true)
		}
	default:
		amount1, err = GetDeltaAmount1Unsigned(sqrtLower, sqrtUpper, liquidity, true)
	}
	if err != nil {
		return 0, 0, err
	}
	return amount0, amount1, nil
}

// LiquidityFromAmount0 returns the liquidity amount0 of token 0 buys between
// two sqrt prices.
func LiquidityFromAmount0(sqrtA, sqrtB uint128.Uint128, amount0 uint64) (uint128.Uint128, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	intermediate, err := fixedpoint.MulDivFloor(sqrtA, sqrtB, fixedpoint.Q64)
	if err != nil {
		return uint128.Zero, err
	}
	return fixedpoint.MulDivFloor(uint128.From64(amount0), intermediate, sqrtB.Sub(sqrtA))
}

// LiquidityFromAmount1 returns the liquidity amount1 of token 1 buys between
// two sqrt prices.
func LiquidityFromAmount1(sqrtA, sqrtB uint128.Uint128, amount1 uint64) (uint128.Uint128, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	return fixedpoint.MulDivFloor(uint128.From64(amount1), fixedpoint.Q64, sqrtB.Sub(sqrtA))
}

// LiquidityFromSingleAmount0 sizes liquidity from a token 0 amount alone. It
// is zero once the price is at or above the range, where no token 0 is held.
func LiquidityFromSingleAmount0(sqrtCurrent, sqrtA, sqrtB uint128.Uint128, amount0 uint64) (uint128.Uint128, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	switch {
	case sqrtCurrent.Cmp(sqrtA) <= 0:
		return LiquidityFromAmount0(sqrtA, sqrtB, amount0)
	case sqrtCurrent.Cmp(sqrtB) < 0:
		return LiquidityFromAmount0(sqrtCurrent, sqrtB, amount0)
	default:
		return uint128.Zero, nil
	}
}

// LiquidityFromSingleAmount1 sizes liquidity from a token 1 amount alone. It
// is zero while the price is below the range.
func LiquidityFromSingleAmount1(sqrtCurrent, sqrtA, sqrtB uint128.Uint128, amount1 uint64) (uint128.Uint128, error) {
	sqrtA, sqrtB = sortPrices(sqrtA, sqrtB)
	switch {
	case sqrtCurrent.Cmp(sqrtA) < 0:
		return uint128.Zero, nil
	case sqrtCurrent.Cmp(sqrtB) < 0:
		return LiquidityFromAmount1(sqrtA, sqrtCurrent, amount1)
	default:
		return LiquidityFromAmount1(sqrtA, sqrtB, amount1)
	}
}
