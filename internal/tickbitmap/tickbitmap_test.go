package tickbitmap

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickmath"
)

var (
	testProgram = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	testPool    = solana.MustPublicKeyFromBase58("61R1ndXxvsWXXkWSyNkCxnzwd3zUNB8Q2ibmkiLPC8ht")
)

func TestArrayStartIndex(t *testing.T) {
	cases := []struct {
		tick int32
		want int32
	}{
		{0, 0},
		{599, 0},
		{600, 600},
		{-1, -600},
		{-600, -600},
		{-601, -1200},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ArrayStartIndex(tc.tick, 10), "tick %d", tc.tick)
	}
}

func TestCheckValidStartIndex(t *testing.T) {
	assert.True(t, CheckValidStartIndex(600, 10))
	assert.False(t, CheckValidStartIndex(601, 10))
	assert.True(t, CheckValidStartIndex(-443640, 1))
	assert.False(t, CheckValidStartIndex(-443700, 1))
	assert.False(t, CheckValidStartIndex(443640, 1))
}

func TestTickRange(t *testing.T) {
	lo, hi := TickRange(10)
	assert.Equal(t, int64(-307200), lo)
	assert.Equal(t, int64(307200), hi)

	lo, hi = TickRange(60)
	assert.Equal(t, int64(-446400), lo)
	assert.Equal(t, int64(446400), hi)
}

func TestIsOverflowDefaultTickArrayBitmap(t *testing.T) {
	cases := []struct {
		name    string
		spacing uint16
		ticks   []int32
		want    bool
	}{
		{"inside", 10, []int32{-600, 600}, false},
		{"last default array", 10, []int32{306600, 307199}, false},
		{"upper edge", 10, []int32{307200}, true},
		{"lower edge inside", 10, []int32{-307200}, false},
		{"lower edge outside", 10, []int32{-307201}, true},
		{"one of two", 10, []int32{0, 400000}, true},
		{"wide spacing covers everything", 60, []int32{tickmath.MinTick, tickmath.MaxTick}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsOverflowDefaultTickArrayBitmap(tc.spacing, tc.ticks...))
		})
	}
}

func TestFlipDefault(t *testing.T) {
	var bitmap [16]uint64

	require.NoError(t, FlipDefault(&bitmap, 0, 10))
	require.NoError(t, FlipDefault(&bitmap, -600, 10))
	assert.Equal(t, uint64(1), bitmap[8])
	assert.Equal(t, uint64(1)<<63, bitmap[7])

	require.NoError(t, FlipDefault(&bitmap, 0, 10))
	assert.Zero(t, bitmap[8])

	assert.ErrorIs(t, FlipDefault(&bitmap, 601, 10), errcode.ErrInvalidTick)
}

func TestExtensionOffset(t *testing.T) {
	cases := []struct {
		start      int32
		spacing    uint16
		wantBitmap int
		wantBit    int
	}{
		{307200, 10, 0, 0},
		{307800, 10, 0, 1},
		{-307800, 10, 0, 511},
		{-444000, 10, 0, 284},
		{61440, 1, 1, 0},
		{-61440, 1, 0, 0},
		{-61500, 1, 1, 511},
	}
	for _, tc := range cases {
		bitmap, bit, err := ExtensionOffset(tc.start, tc.spacing)
		require.NoError(t, err, "start %d", tc.start)
		assert.Equal(t, tc.wantBitmap, bitmap, "start %d", tc.start)
		assert.Equal(t, tc.wantBit, bit, "start %d", tc.start)
	}

	for _, start := range []int32{0, 614400, -614400} {
		_, _, err := ExtensionOffset(start, 10)
		assert.ErrorIs(t, err, errcode.ErrInvalidTick, "start %d", start)
	}
}

func TestFlipRoutesToBitmap(t *testing.T) {
	pool := &model.PoolState{TickSpacing: 10}
	ext := &model.TickArrayBitmapExtension{}

	require.NoError(t, Flip(pool, nil, 600))
	ok, err := IsInitialized(pool, nil, 600)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, Flip(pool, nil, 307800), errcode.ErrMissingBitmapExtension)

	require.NoError(t, Flip(pool, ext, 307800))
	require.NoError(t, Flip(pool, ext, -307800))
	assert.Equal(t, uint64(2), ext.PositiveTickArrayBitmap[0][0])
	assert.Equal(t, uint64(1)<<63, ext.NegativeTickArrayBitmap[0][7])

	ok, err = IsInitialized(pool, ext, -307800)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = IsInitialized(pool, nil, -307800)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddresses(t *testing.T) {
	ext1, err := ExtensionAddress(testProgram, testPool)
	require.NoError(t, err)
	ext2, err := ExtensionAddress(testProgram, testPool)
	require.NoError(t, err)
	assert.Equal(t, ext1, ext2)

	a, err := ProtocolPositionAddress(testProgram, testPool, -600, 600)
	require.NoError(t, err)
	b, err := ProtocolPositionAddress(testProgram, testPool, -600, 1200)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, ext1, a)

	lower, err := TickArrayAddress(testProgram, testPool, -600)
	require.NoError(t, err)
	upper, err := TickArrayAddress(testProgram, testPool, 600)
	require.NoError(t, err)
	assert.NotEqual(t, lower, upper)
}
