package accrual

import (
	"fmt"

	"lukechampine.com/uint128"

	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/model"
)

// CalculateLatestTokenFees returns lastTotalFees plus the fees earned by
// liquidity while the inside fee growth moved from last to latest.
//
// The growth delta is taken modulo 2^128, so a counter that wrapped once since
// the checkpoint still yields the elapsed growth. The product is floored so a
// position is never overpaid.
func CalculateLatestTokenFees(lastTotalFees uint64, feeGrowthInsideLastX64, feeGrowthInsideLatestX64, liquidity uint128.Uint128) (uint64, error) {
	delta := fixedpoint.WrappingSub(feeGrowthInsideLatestX64, feeGrowthInsideLastX64)
	accrued, err := fixedpoint.MulDivFloor(delta, liquidity, fixedpoint.Q64)
	if err != nil {
		return 0, fmt.Errorf("fee growth delta: %w", err)
	}
	feeGrowthDelta, err := fixedpoint.ToUint64(accrued)
	if err != nil {
		return 0, fmt.Errorf("fee growth delta: %w", err)
	}
	total, err := fixedpoint.CheckedAdd64(lastTotalFees, feeGrowthDelta)
	if err != nil {
		return 0, fmt.Errorf("token fees owed: %w", err)
	}
	return total, nil
}

// Synchronize brings personal up to date with protocol. It must run before
// the personal position's liquidity changes: fees and rewards for the elapsed
// period are computed against the liquidity held during that period.
//
// personal is modified only if every step succeeds.
func Synchronize(personal *model.PersonalPosition, protocol *model.ProtocolPosition) error {
	next := *personal

	owed0, err := CalculateLatestTokenFees(
		next.TokenFeesOwed0,
		next.FeeGrowthInside0LastX64,
		protocol.FeeGrowthInside0LastX64,
		next.Liquidity,
	)
	if err != nil {
		return fmt.Errorf("token 0: %w", err)
	}
	owed1, err := CalculateLatestTokenFees(
		next.TokenFeesOwed1,
		next.FeeGrowthInside1LastX64,
		protocol.FeeGrowthInside1LastX64,
		next.Liquidity,
	)
	if err != nil {
		return fmt.Errorf("token 1: %w", err)
	}
	next.TokenFeesOwed0 = owed0
	next.TokenFeesOwed1 = owed1

	next.FeeGrowthInside0LastX64 = protocol.FeeGrowthInside0LastX64
	next.FeeGrowthInside1LastX64 = protocol.FeeGrowthInside1LastX64

	if err := next.UpdateRewards(protocol.RewardGrowthInside, true); err != nil {
		return fmt.Errorf("update rewards: %w", err)
	}

	*personal = next
	return nil
}
