package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
)

// Resolution is the number of fractional bits in a Q64.64 value.
const Resolution = 64

var (
	// Q64 is 1.0 in Q64.64.
	Q64 = uint128.New(0, 1)

	ErrDivideByZero   = errors.New("divide by zero")
	ErrMulDivOverflow = fmt.Errorf("mul div result exceeds 128 bits: %w", errcode.ErrOverflow)
)

// WrappingSub returns a - b modulo 2^128.
func WrappingSub(a, b uint128.Uint128) uint128.Uint128 {
	return a.SubWrap(b)
}

// MulDivFloor returns floor(a * b / d) using a 256-bit intermediate product.
func MulDivFloor(a, b, d uint128.Uint128) (uint128.Uint128, error) {
	q, _, err := mulDiv(a, b, d)
	return q, err
}

// MulDivCeil returns ceil(a * b / d) using a 256-bit intermediate product.
func MulDivCeil(a, b, d uint128.Uint128) (uint128.Uint128, error) {
	q, exact, err := mulDiv(a, b, d)
	if err != nil {
		return uint128.Zero, err
	}
	if exact {
		return q, nil
	}
	return CheckedAdd128(q, uint128.From64(1))
}

func mulDiv(a, b, d uint128.Uint128) (uint128.Uint128, bool, error) {
	if d.IsZero() {
		return uint128.Zero, false, ErrDivideByZero
	}
	if a.IsZero() || b.IsZero() {
		return uint128.Zero, true, nil
	}

	x, y, den := ToUint256(a), ToUint256(b), ToUint256(d)
	quotient, overflow := new(uint256.Int).MulDivOverflow(x, y, den)
	if overflow {
		return uint128.Zero, false, ErrMulDivOverflow
	}
	q, err := FromUint256(quotient)
	if err != nil {
		return uint128.Zero, false, err
	}

	product := new(uint256.Int).Mul(x, y)
	back := new(uint256.Int).Mul(quotient, den)
	return q, product.Eq(back), nil
}

// ToUint256 widens a 128-bit value.
func ToUint256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

// FromUint256 narrows a 256-bit value, failing if it does not fit in 128 bits.
func FromUint256(v *uint256.Int) (uint128.Uint128, error) {
	if v[2] != 0 || v[3] != 0 {
		return uint128.Zero, ErrMulDivOverflow
	}
	return uint128.New(v[0], v[1]), nil
}

// ToUint64 narrows a 128-bit value to 64 bits.
func ToUint64(v uint128.Uint128) (uint64, error) {
	if v.Hi != 0 {
		return 0, fmt.Errorf("value %s exceeds 64 bits: %w", v, errcode.ErrOverflow)
	}
	return v.Lo, nil
}

// CheckedAdd64 returns a + b or an overflow error.
func CheckedAdd64(a, b uint64) (uint64, error) {
	sum, overflow := math.SafeAdd(a, b)
	if overflow {
		return 0, fmt.Errorf("%d + %d: %w", a, b, errcode.ErrOverflow)
	}
	return sum, nil
}

// CheckedSub64 returns a - b or an overflow error when b > a.
func CheckedSub64(a, b uint64) (uint64, error) {
	diff, overflow := math.SafeSub(a, b)
	if overflow {
		return 0, fmt.Errorf("%d - %d: %w", a, b, errcode.ErrOverflow)
	}
	return diff, nil
}

// CheckedAdd128 returns a + b or an overflow error.
func CheckedAdd128(a, b uint128.Uint128) (uint128.Uint128, error) {
	sum := a.AddWrap(b)
	if sum.Cmp(a) < 0 {
		return uint128.Zero, fmt.Errorf("%s + %s: %w", a, b, errcode.ErrOverflow)
	}
	return sum, nil
}

// CheckedSub128 returns a - b or an overflow error when b > a.
func CheckedSub128(a, b uint128.Uint128) (uint128.Uint128, error) {
	if a.Cmp(b) < 0 {
		return uint128.Zero, fmt.Errorf("%s - %s: %w", a, b, errcode.ErrOverflow)
	}
	return a.Sub(b), nil
}
