package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
)

func TestUpdateRewardsAccruesAgainstCurrentLiquidity(t *testing.T) {
	pos := &PersonalPosition{Liquidity: uint128.From64(10)}
	pos.RewardInfos[0].GrowthInsideLastX64 = fixedpoint.Q64
	pos.RewardInfos[0].RewardAmountOwed = 7

	growth := [RewardNum]uint128.Uint128{
		fixedpoint.Q64.Mul64(3),
		fixedpoint.Q64.Rsh(1),
		uint128.Zero,
	}
	require.NoError(t, pos.UpdateRewards(growth, true))

	assert.Equal(t, uint64(7+20), pos.RewardInfos[0].RewardAmountOwed)
	assert.Equal(t, uint64(5), pos.RewardInfos[1].RewardAmountOwed)
	assert.Equal(t, uint64(0), pos.RewardInfos[2].RewardAmountOwed)
	for i := range growth {
		assert.Equal(t, growth[i], pos.RewardInfos[i].GrowthInsideLastX64)
	}
}

func TestUpdateRewardsCheckpointOnly(t *testing.T) {
	pos := &PersonalPosition{Liquidity: uint128.From64(10)}
	growth := [RewardNum]uint128.Uint128{fixedpoint.Q64, fixedpoint.Q64, fixedpoint.Q64}

	require.NoError(t, pos.UpdateRewards(growth, false))

	for i := range growth {
		assert.Equal(t, uint64(0), pos.RewardInfos[i].RewardAmountOwed)
		assert.Equal(t, growth[i], pos.RewardInfos[i].GrowthInsideLastX64)
	}
}

func TestUpdateRewardsOverflowLeavesPositionUntouched(t *testing.T) {
	pos := &PersonalPosition{Liquidity: uint128.From64(2)}
	pos.RewardInfos[1].RewardAmountOwed = ^uint64(0)
	before := *pos

	growth := [RewardNum]uint128.Uint128{fixedpoint.Q64, fixedpoint.Q64, fixedpoint.Q64}
	err := pos.UpdateRewards(growth, true)

	assert.ErrorIs(t, err, errcode.ErrOverflow)
	assert.Equal(t, before, *pos)
}

func TestPoolStatusBits(t *testing.T) {
	pool := &PoolState{}
	assert.False(t, pool.StatusAllows(OpenPositionOrIncreaseLiquidity))

	pool.SetStatus(OpenPositionOrIncreaseLiquidity, true)
	pool.SetStatus(Swap, true)
	assert.True(t, pool.StatusAllows(OpenPositionOrIncreaseLiquidity))
	assert.True(t, pool.StatusAllows(Swap))
	assert.False(t, pool.StatusAllows(CollectFee))

	pool.SetStatus(OpenPositionOrIncreaseLiquidity, false)
	assert.False(t, pool.StatusAllows(OpenPositionOrIncreaseLiquidity))
	assert.True(t, pool.StatusAllows(Swap))
}

func TestLiquidityNetBig(t *testing.T) {
	tick := TickState{LiquidityNet: uint128.Zero.SubWrap(uint128.From64(42))}
	assert.Equal(t, "-42", tick.LiquidityNetBig().String())

	tick.LiquidityNet = uint128.From64(42)
	assert.Equal(t, "42", tick.LiquidityNetBig().String())
}

func TestCloneIsIndependent(t *testing.T) {
	arr := &TickArrayState{StartTickIndex: 60}
	cp := arr.Clone()
	cp.Ticks[3].LiquidityGross = uint128.From64(1)

	assert.True(t, arr.Ticks[3].LiquidityGross.IsZero())
	assert.Nil(t, (*PoolState)(nil).Clone())
}
