package tickmath

import (
	"fmt"

	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
)

const (
	MinTick int32 = -443636
	MaxTick int32 = 443636
)

var (
	// MinSqrtPriceX64 is SqrtPriceAtTick(MinTick).
	MinSqrtPriceX64 = uint128.From64(4295048016)
	// MaxSqrtPriceX64 is SqrtPriceAtTick(MaxTick).
	MaxSqrtPriceX64 = uint128.New(0x845c1aa94e69579b, 0xfffec4b1)
)

// ratios[i] is 2^64 / sqrt(1.0001)^(2^(i+1)), truncated.
var ratios = [...]uint64{
	18444899583751176192,
	18443055278223355904,
	18439367220385607680,
	18431993317065453568,
	18417254355718170624,
	18387811781193609216,
	18329067761203558400,
	18212142134806163456,
	17980523815641700352,
	17526086738831433728,
	16651378430235570176,
	15030750278694412288,
	12247334978884435968,
	8131365268886854656,
	3584323654725218816,
	696457651848324352,
	26294789957507116,
	37481735321082,
}

// SqrtPriceAtTick returns sqrt(1.0001^tick) in Q64.64.
func SqrtPriceAtTick(tick int32) (uint128.Uint128, error) {
	if tick < MinTick || tick > MaxTick {
		return uint128.Zero, fmt.Errorf("tick %d outside [%d, %d]: %w", tick, MinTick, MaxTick, errcode.ErrInvalidTick)
	}
	abs := uint32(tick)
	if tick < 0 {
		abs = uint32(-tick)
	}

	ratio := uint128.New(0, 1)
	if abs&1 != 0 {
		ratio = uint128.From64(18445821805675395072)
	}
	for i, r := range ratios {
		if abs&(2<<i) != 0 {
			ratio = ratio.Mul64(r).Rsh(64)
		}
	}

	if tick > 0 {
		ratio = uint128.Max.Div(ratio)
	}
	return ratio, nil
}
