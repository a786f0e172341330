package model

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"clmmLedger/internal/fixedpoint"
)

// ProtocolPosition is the shared accrual record of one pool tick range.
type ProtocolPosition struct {
	ID                      solana.PublicKey
	PoolID                  solana.PublicKey
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               uint128.Uint128
	FeeGrowthInside0LastX64 uint128.Uint128
	FeeGrowthInside1LastX64 uint128.Uint128
	TokenFeesOwed0          uint64
	TokenFeesOwed1          uint64
	RewardGrowthInside      [RewardNum]uint128.Uint128
}

// Clone returns a copy that shares no memory with p.
func (p *ProtocolPosition) Clone() *ProtocolPosition {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// PositionRewardInfo is a personal position's checkpoint for one reward slot.
type PositionRewardInfo struct {
	GrowthInsideLastX64 uint128.Uint128
	RewardAmountOwed    uint64
}

// PersonalPosition is an owner's claim on a ProtocolPosition, keyed by its NFT mint.
type PersonalPosition struct {
	ID                      solana.PublicKey
	NftMint                 solana.PublicKey
	PoolID                  solana.PublicKey
	TickLowerIndex          int32
	TickUpperIndex          int32
	Liquidity               uint128.Uint128
	FeeGrowthInside0LastX64 uint128.Uint128
	FeeGrowthInside1LastX64 uint128.Uint128
	TokenFeesOwed0          uint64
	TokenFeesOwed1          uint64
	RewardInfos             [RewardNum]PositionRewardInfo
}

// Clone returns a copy that shares no memory with p.
func (p *PersonalPosition) Clone() *PersonalPosition {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// UpdateRewards moves every reward checkpoint to growthInside. When
// updateOwed is set, the growth elapsed since the previous checkpoint is
// accrued against the liquidity currently held, so it must run before
// liquidity changes. Nothing is written if any slot overflows.
func (p *PersonalPosition) UpdateRewards(growthInside [RewardNum]uint128.Uint128, updateOwed bool) error {
	next := p.RewardInfos
	for i := range next {
		current := growthInside[i]
		if updateOwed {
			delta := fixedpoint.WrappingSub(current, next[i].GrowthInsideLastX64)
			accrued, err := fixedpoint.MulDivFloor(delta, p.Liquidity, fixedpoint.Q64)
			if err != nil {
				return fmt.Errorf("reward %d growth: %w", i, err)
			}
			amount, err := fixedpoint.ToUint64(accrued)
			if err != nil {
				return fmt.Errorf("reward %d delta: %w", i, err)
			}
			owed, err := fixedpoint.CheckedAdd64(next[i].RewardAmountOwed, amount)
			if err != nil {
				return fmt.Errorf("reward %d owed: %w", i, err)
			}
			next[i].RewardAmountOwed = owed
		}
		next[i].GrowthInsideLastX64 = current
	}
	p.RewardInfos = next
	return nil
}
