// Package tickbitmap locates tick arrays and maintains the bitmaps that record
// which of them hold initialized ticks.
//
// A pool's own bitmap covers TickArrayBitmapSize tick arrays on each side of
// tick zero. Tick arrays beyond that range are tracked in the pool's
// TickArrayBitmapExtension account.
package tickbitmap

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickmath"
)

const (
	TickArraySize       = model.TickArraySize
	TickArrayBitmapSize = 512
	ExtensionBitmapSize = model.ExtensionBitmapSize
)

const (
	positionSeed        = "position"
	tickArraySeed       = "tick_array"
	bitmapExtensionSeed = "pool_tick_array_bitmap_extension"
	defaultBitmapWords  = 16
)

// TickCount is the number of ticks spanned by one tick array.
func TickCount(tickSpacing uint16) int64 {
	return int64(tickSpacing) * TickArraySize
}

// MaxTickInBitmap is the number of ticks covered by one 512-bit bitmap.
func MaxTickInBitmap(tickSpacing uint16) int64 {
	return TickArrayBitmapSize * TickCount(tickSpacing)
}

// ArrayStartIndex returns the start tick of the tick array containing tick.
func ArrayStartIndex(tick int32, tickSpacing uint16) int32 {
	count := TickCount(tickSpacing)
	start := int64(tick) / count
	if tick < 0 && int64(tick)%count != 0 {
		start--
	}
	return int32(start * count)
}

// CheckValidStartIndex reports whether start can begin a tick array.
func CheckValidStartIndex(start int32, tickSpacing uint16) bool {
	if start < tickmath.MinTick || start > tickmath.MaxTick {
		if start > tickmath.MaxTick {
			return false
		}
		return start == ArrayStartIndex(tickmath.MinTick, tickSpacing)
	}
	return int64(start)%TickCount(tickSpacing) == 0
}

// TickRange returns the half-open range [min, max) of tick array start
// indexes covered by the pool's default bitmap.
func TickRange(tickSpacing uint16) (minBoundary, maxBoundary int64) {
	maxBoundary = MaxTickInBitmap(tickSpacing)
	minBoundary = -maxBoundary
	if maxBoundary > int64(tickmath.MaxTick) {
		maxBoundary = int64(ArrayStartIndex(tickmath.MaxTick, tickSpacing)) + TickCount(tickSpacing)
	}
	if minBoundary < int64(tickmath.MinTick) {
		minBoundary = int64(ArrayStartIndex(tickmath.MinTick, tickSpacing))
	}
	return minBoundary, maxBoundary
}

// IsOverflowDefaultTickArrayBitmap reports whether the tick array of any of
// ticks lies outside the default bitmap, which means the bitmap extension
// account is required.
func IsOverflowDefaultTickArrayBitmap(tickSpacing uint16, ticks ...int32) bool {
	minBoundary, maxBoundary := TickRange(tickSpacing)
	for _, tick := range ticks {
		start := int64(ArrayStartIndex(tick, tickSpacing))
		if start >= maxBoundary || start < minBoundary {
			return true
		}
	}
	return false
}

// ExtensionAddress derives the bitmap extension account of pool.
func ExtensionAddress(programID, pool solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(bitmapExtensionSeed),
		pool.Bytes(),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive bitmap extension: %w", err)
	}
	return addr, nil
}

// ProtocolPositionAddress derives the protocol position account of a tick range.
func ProtocolPositionAddress(programID, pool solana.PublicKey, tickLower, tickUpper int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(positionSeed),
		pool.Bytes(),
		i32BE(tickLower),
		i32BE(tickUpper),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive protocol position: %w", err)
	}
	return addr, nil
}

// TickArrayAddress derives the tick array account starting at start.
func TickArrayAddress(programID, pool solana.PublicKey, start int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(tickArraySeed),
		pool.Bytes(),
		i32BE(start),
	}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive tick array: %w", err)
	}
	return addr, nil
}

func i32BE(v int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

func defaultOffset(start int32, tickSpacing uint16) (int, error) {
	if !CheckValidStartIndex(start, tickSpacing) {
		return 0, fmt.Errorf("tick array start %d with spacing %d: %w", start, tickSpacing, errcode.ErrInvalidTick)
	}
	return int(int64(start)/TickCount(tickSpacing)) + TickArrayBitmapSize, nil
}

// FlipDefault toggles the bit for the tick array starting at start in the
// pool's default bitmap.
func FlipDefault(bitmap *[defaultBitmapWords]uint64, start int32, tickSpacing uint16) error {
	offset, err := defaultOffset(start, tickSpacing)
	if err != nil {
		return err
	}
	if offset < 0 || offset >= defaultBitmapWords*64 {
		return fmt.Errorf("tick array start %d outside default bitmap: %w", start, errcode.ErrInvalidTick)
	}
	bitmap[offset/64] ^= 1 << uint(offset%64)
	return nil
}

// ExtensionOffset returns which of the extension's bitmaps holds the tick
// array starting at start, and the bit within it.
func ExtensionOffset(start int32, tickSpacing uint16) (bitmap, bit int, err error) {
	if !CheckValidStartIndex(start, tickSpacing) {
		return 0, 0, fmt.Errorf("tick array start %d with spacing %d: %w", start, tickSpacing, errcode.ErrInvalidTick)
	}
	perBitmap := MaxTickInBitmap(tickSpacing)
	s := int64(start)
	if s >= -perBitmap && s < perBitmap {
		return 0, 0, fmt.Errorf("tick array start %d inside default bitmap: %w", start, errcode.ErrInvalidTick)
	}

	abs := s
	if abs < 0 {
		abs = -abs
	}
	offset := abs/perBitmap - 1
	if s < 0 && abs%perBitmap == 0 {
		offset--
	}
	if offset < 0 || offset >= ExtensionBitmapSize {
		return 0, 0, fmt.Errorf("tick array start %d beyond extension: %w", start, errcode.ErrInvalidTick)
	}

	m := abs % perBitmap
	pos := m / TickCount(tickSpacing)
	if s < 0 && m != 0 {
		pos = TickArrayBitmapSize - pos
	}
	return int(offset), int(pos), nil
}

// FlipExtension toggles the bit for the tick array starting at start in ext.
func FlipExtension(ext *model.TickArrayBitmapExtension, start int32, tickSpacing uint16) error {
	offset, bit, err := ExtensionOffset(start, tickSpacing)
	if err != nil {
		return err
	}
	words := &ext.PositiveTickArrayBitmap[offset]
	if start < 0 {
		words = &ext.NegativeTickArrayBitmap[offset]
	}
	words[bit/64] ^= 1 << uint(bit%64)
	return nil
}

// Flip toggles the bit for the tick array starting at start in whichever
// bitmap covers it. ext may be nil when the array is inside the default
// bitmap.
func Flip(pool *model.PoolState, ext *model.TickArrayBitmapExtension, start int32) error {
	if !IsOverflowDefaultTickArrayBitmap(pool.TickSpacing, start) {
		return FlipDefault(&pool.TickArrayBitmap, start, pool.TickSpacing)
	}
	if ext == nil {
		return fmt.Errorf("tick array %d: %w", start, errcode.ErrMissingBitmapExtension)
	}
	return FlipExtension(ext, start, pool.TickSpacing)
}

// IsInitialized reports whether the tick array starting at start is marked in
// the bitmaps. ext may be nil, in which case arrays it would cover read as
// uninitialized.
func IsInitialized(pool *model.PoolState, ext *model.TickArrayBitmapExtension, start int32) (bool, error) {
	if !IsOverflowDefaultTickArrayBitmap(pool.TickSpacing, start) {
		offset, err := defaultOffset(start, pool.TickSpacing)
		if err != nil {
			return false, err
		}
		return pool.TickArrayBitmap[offset/64]&(1<<uint(offset%64)) != 0, nil
	}
	if ext == nil {
		return false, nil
	}
	offset, bit, err := ExtensionOffset(start, pool.TickSpacing)
	if err != nil {
		return false, err
	}
	words := ext.PositiveTickArrayBitmap[offset]
	if start < 0 {
		words = ext.NegativeTickArrayBitmap[offset]
	}
	return words[bit/64]&(1<<uint(bit%64)) != 0, nil
}
