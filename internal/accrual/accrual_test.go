package accrual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/model"
)

func TestCalculateLatestTokenFeesScenario(t *testing.T) {
	got, err := CalculateLatestTokenFees(1000, uint128.Zero, fixedpoint.Q64, uint128.From64(5))
	require.NoError(t, err)
	assert.Equal(t, uint64(1005), got)
}

func TestCalculateLatestTokenFees(t *testing.T) {
	cases := []struct {
		name      string
		lastTotal uint64
		last      uint128.Uint128
		latest    uint128.Uint128
		liquidity uint128.Uint128
		want      uint64
	}{
		{"zero liquidity", 42, uint128.Zero, fixedpoint.Q64.Mul64(1_000_000), uint128.Zero, 42},
		{"no elapsed growth", 42, fixedpoint.Q64, fixedpoint.Q64, uint128.From64(1_000_000), 42},
		{"floors fractional fees", 0, uint128.Zero, fixedpoint.Q64.Rsh(1), uint128.From64(3), 1},
		{"large liquidity", 0, uint128.Zero, uint128.From64(1), uint128.New(0, 1<<20), 1 << 20},
		{
			"wrapped counter",
			10,
			uint128.Max.Sub(fixedpoint.Q64).Add64(1),
			fixedpoint.Q64,
			uint128.From64(7),
			10 + 14,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CalculateLatestTokenFees(tc.lastTotal, tc.last, tc.latest, tc.liquidity)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCalculateLatestTokenFeesWrapMatchesUnwrapped(t *testing.T) {
	liquidity := uint128.From64(123_456)
	elapsed := fixedpoint.Q64.Mul64(9).Add64(77)

	plainLast := fixedpoint.Q64
	plain, err := CalculateLatestTokenFees(0, plainLast, plainLast.Add(elapsed), liquidity)
	require.NoError(t, err)

	wrapLast := uint128.Max.Sub(fixedpoint.Q64)
	wrapLatest := wrapLast.AddWrap(elapsed)
	require.True(t, wrapLatest.Cmp(wrapLast) < 0)
	wrapped, err := CalculateLatestTokenFees(0, wrapLast, wrapLatest, liquidity)
	require.NoError(t, err)

	assert.Equal(t, plain, wrapped)
}

func TestCalculateLatestTokenFeesMonotonic(t *testing.T) {
	last := fixedpoint.Q64.Mul64(3)
	prev := uint64(500)
	for _, step := range []uint64{0, 1, 1 << 10, 1 << 40, 1 << 63} {
		latest := last.Add64(step)
		got, err := CalculateLatestTokenFees(prev, last, latest, uint128.From64(1<<30))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got, prev)
	}
}

func TestCalculateLatestTokenFeesOverflow(t *testing.T) {
	_, err := CalculateLatestTokenFees(^uint64(0), uint128.Zero, fixedpoint.Q64, uint128.From64(1))
	assert.ErrorIs(t, err, errcode.ErrOverflow)

	_, err = CalculateLatestTokenFees(0, uint128.Zero, uint128.Max, uint128.Max)
	assert.ErrorIs(t, err, errcode.ErrOverflow)
}

func TestSynchronize(t *testing.T) {
	protocol := &model.ProtocolPosition{
		FeeGrowthInside0LastX64: fixedpoint.Q64.Mul64(4),
		FeeGrowthInside1LastX64: fixedpoint.Q64.Mul64(2).Add64(12345),
		RewardGrowthInside: [model.RewardNum]uint128.Uint128{
			fixedpoint.Q64.Mul64(3),
			uint128.Zero,
			fixedpoint.Q64,
		},
	}
	personal := &model.PersonalPosition{
		Liquidity:               uint128.From64(100),
		FeeGrowthInside0LastX64: fixedpoint.Q64,
		FeeGrowthInside1LastX64: fixedpoint.Q64,
		TokenFeesOwed0:          1,
		TokenFeesOwed1:          2,
	}

	require.NoError(t, Synchronize(personal, protocol))

	assert.Equal(t, uint64(1+300), personal.TokenFeesOwed0)
	assert.Equal(t, uint64(2+100), personal.TokenFeesOwed1)
	assert.Equal(t, protocol.FeeGrowthInside0LastX64, personal.FeeGrowthInside0LastX64)
	assert.Equal(t, protocol.FeeGrowthInside1LastX64, personal.FeeGrowthInside1LastX64)
	assert.Equal(t, uint64(300), personal.RewardInfos[0].RewardAmountOwed)
	assert.Equal(t, uint64(100), personal.RewardInfos[2].RewardAmountOwed)
	for i := range protocol.RewardGrowthInside {
		assert.Equal(t, protocol.RewardGrowthInside[i], personal.RewardInfos[i].GrowthInsideLastX64)
	}
	assert.Equal(t, uint128.From64(100), personal.Liquidity, "synchronize must not change liquidity")
}

func TestSynchronizeFailureLeavesPositionUntouched(t *testing.T) {
	protocol := &model.ProtocolPosition{
		FeeGrowthInside0LastX64: fixedpoint.Q64,
		FeeGrowthInside1LastX64: fixedpoint.Q64,
	}
	personal := &model.PersonalPosition{
		Liquidity:      uint128.From64(1),
		TokenFeesOwed0: 9,
		TokenFeesOwed1: ^uint64(0),
	}
	before := *personal

	err := Synchronize(personal, protocol)

	assert.ErrorIs(t, err, errcode.ErrOverflow)
	assert.Equal(t, before, *personal)
}
