package tickmath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
)

func TestSqrtPriceAtTick(t *testing.T) {
	cases := []struct {
		tick int32
		want string
	}{
		{0, "18446744073709551616"},
		{1, "18447666387855957090"},
		{-1, "18445821805675395072"},
		{60, "18502164624211742928"},
		{-60, "18391489527427966291"},
		{MinTick, "4295048016"},
		{MaxTick, "79226673521066979257578248091"},
	}
	for _, tc := range cases {
		got, err := SqrtPriceAtTick(tc.tick)
		require.NoError(t, err, "tick %d", tc.tick)
		assert.Equal(t, tc.want, got.String(), "tick %d", tc.tick)
	}
}

func TestSqrtPriceBounds(t *testing.T) {
	lo, err := SqrtPriceAtTick(MinTick)
	require.NoError(t, err)
	hi, err := SqrtPriceAtTick(MaxTick)
	require.NoError(t, err)
	assert.Equal(t, MinSqrtPriceX64, lo)
	assert.Equal(t, MaxSqrtPriceX64, hi)
}

func TestSqrtPriceIncreasesWithTick(t *testing.T) {
	prev := uint128.Zero
	for tick := int32(-1000); tick <= 1000; tick += 7 {
		got, err := SqrtPriceAtTick(tick)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Cmp(prev), "tick %d", tick)
		prev = got
	}
}

func TestSqrtPriceAtTickOutOfRange(t *testing.T) {
	_, err := SqrtPriceAtTick(MaxTick + 1)
	assert.ErrorIs(t, err, errcode.ErrInvalidTick)
	_, err = SqrtPriceAtTick(MinTick - 1)
	assert.ErrorIs(t, err, errcode.ErrInvalidTick)
}
