package model

import (
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// RewardNum is the number of reward slots carried by a pool and its positions.
const RewardNum = 3

// PoolStatusBit indexes a bit of PoolState.Status.
type PoolStatusBit uint8

const (
	OpenPositionOrIncreaseLiquidity PoolStatusBit = iota
	DecreaseLiquidity
	CollectFee
	CollectReward
	Swap
)

// RewardInfo is a pool-level reward stream.
type RewardInfo struct {
	RewardState           uint8
	OpenTime              uint64
	EndTime               uint64
	LastUpdateTime        uint64
	EmissionsPerSecondX64 uint128.Uint128
	RewardTotalEmissioned uint64
	RewardClaimed         uint64
	TokenMint             solana.PublicKey
	TokenVault            solana.PublicKey
	Authority             solana.PublicKey
	RewardGrowthGlobalX64 uint128.Uint128
}

// Initialized reports whether the reward slot is in use.
func (r RewardInfo) Initialized() bool {
	return !r.TokenMint.IsZero()
}

// PoolState is the global state of one CLMM pool.
type PoolState struct {
	ID            solana.PublicKey
	AmmConfig     solana.PublicKey
	TokenMint0    solana.PublicKey
	TokenMint1    solana.PublicKey
	TokenVault0   solana.PublicKey
	TokenVault1   solana.PublicKey
	MintDecimals0 uint8
	MintDecimals1 uint8
	TickSpacing   uint16

	Liquidity           uint128.Uint128
	SqrtPriceX64        uint128.Uint128
	TickCurrent         int32
	FeeGrowthGlobal0X64 uint128.Uint128
	FeeGrowthGlobal1X64 uint128.Uint128

	// Status is a permission bitmask indexed by PoolStatusBit.
	Status uint8

	RewardInfos     [RewardNum]RewardInfo
	TickArrayBitmap [16]uint64
}

// StatusAllows reports whether the operation guarded by bit is enabled.
func (p *PoolState) StatusAllows(bit PoolStatusBit) bool {
	return p.Status&(1<<uint8(bit)) != 0
}

// SetStatus enables or disables the operation guarded by bit.
func (p *PoolState) SetStatus(bit PoolStatusBit, enabled bool) {
	if enabled {
		p.Status |= 1 << uint8(bit)
		return
	}
	p.Status &^= 1 << uint8(bit)
}

// RewardGrowthsGlobal returns the global reward growth of each slot.
func (p *PoolState) RewardGrowthsGlobal() [RewardNum]uint128.Uint128 {
	var out [RewardNum]uint128.Uint128
	for i, info := range p.RewardInfos {
		out[i] = info.RewardGrowthGlobalX64
	}
	return out
}

// Clone returns a copy that shares no memory with p.
func (p *PoolState) Clone() *PoolState {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
