// Package liquidity adds liquidity to a tick range of a pool: it sizes the
// deposit, moves ticks and bitmaps, refreshes the protocol position, and
// transfers tokens into the pool vaults.
package liquidity

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"clmmLedger/internal/accrual"
	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickbitmap"
	"clmmLedger/internal/tickmath"
)

// AddParams is the input of Engine.AddLiquidity. Every pointer field is
// mutated in place.
type AddParams struct {
	Owner            solana.PublicKey
	Pool             *model.PoolState
	ProtocolPosition *model.ProtocolPosition
	TickArrayLower   *model.TickArrayState
	TickArrayUpper   *model.TickArrayState
	// BitmapExtension is nil unless one of the tick arrays lies outside the
	// pool's default bitmap.
	BitmapExtension *model.TickArrayBitmapExtension
	TokenAccount0   *model.TokenAccount
	TokenAccount1   *model.TokenAccount
	Vault0          *model.TokenAccount
	Vault1          *model.TokenAccount
	Standard        model.TokenStandard

	Liquidity  uint128.Uint128
	Amount0Max uint64
	Amount1Max uint64
	// BaseFlag sizes liquidity from Amount0Max (true) or Amount1Max (false)
	// when Liquidity is zero.
	BaseFlag  *bool
	TickLower int32
	TickUpper int32
	// Timestamp drives reward emissions, in unix seconds.
	Timestamp uint64
}

// AddResult reports what AddLiquidity deposited.
type AddResult struct {
	Liquidity          uint128.Uint128
	Amount0            uint64
	Amount1            uint64
	Amount0TransferFee uint64
	Amount1TransferFee uint64
}

// Engine is the reference add-liquidity implementation.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an Engine. A nil logger disables logging.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// AddLiquidity deposits liquidity into [p.TickLower, p.TickUpper). It is not
// atomic: on error the accounts in p may be partly updated, so callers pass
// copies they can discard.
func (e *Engine) AddLiquidity(p *AddParams) (AddResult, error) {
	pool := p.Pool
	if err := checkTickRange(p.TickLower, p.TickUpper, pool.TickSpacing); err != nil {
		return AddResult{}, err
	}
	for _, arr := range []*model.TickArrayState{p.TickArrayLower, p.TickArrayUpper} {
		if arr.PoolID != pool.ID {
			return AddResult{}, fmt.Errorf("tick array %s pool %s: %w", arr.ID, arr.PoolID, errcode.ErrAccountMismatch)
		}
	}
	mint0, mint1 := model.VaultMints(p.Standard)

	liquidity, err := e.sizeLiquidity(p, mint0, mint1)
	if err != nil {
		return AddResult{}, err
	}
	if liquidity.Hi>>63 != 0 {
		return AddResult{}, fmt.Errorf("liquidity %s exceeds i128: %w", liquidity, errcode.ErrOverflow)
	}
	liquidityBefore := pool.Liquidity

	lower, err := tickState(p.TickArrayLower, p.TickLower, pool.TickSpacing)
	if err != nil {
		return AddResult{}, fmt.Errorf("tick lower: %w", err)
	}
	upper, err := tickState(p.TickArrayUpper, p.TickUpper, pool.TickSpacing)
	if err != nil {
		return AddResult{}, fmt.Errorf("tick upper: %w", err)
	}
	if lower.Tick == 0 {
		lower.Tick = p.TickLower
	}
	if upper.Tick == 0 {
		upper.Tick = p.TickUpper
	}

	amount0, amount1, err := e.modifyPosition(p, lower, upper, liquidity)
	if err != nil {
		return AddResult{}, err
	}
	if amount0 == 0 && amount1 == 0 {
		return AddResult{}, fmt.Errorf("both deposit amounts are zero: %w", errcode.ErrZeroLiquidity)
	}

	fee0, err := TransferInverseFee(mint0, amount0)
	if err != nil {
		return AddResult{}, fmt.Errorf("token 0 transfer fee: %w", err)
	}
	fee1, err := TransferInverseFee(mint1, amount1)
	if err != nil {
		return AddResult{}, fmt.Errorf("token 1 transfer fee: %w", err)
	}
	e.logger.Debug("liquidity calculated",
		zap.String("liquidity", liquidity.String()),
		zap.Uint64("amount0", amount0),
		zap.Uint64("amount1", amount1),
		zap.Uint64("amount0_transfer_fee", fee0),
		zap.Uint64("amount1_transfer_fee", fee1),
	)

	gross0, err := checkSlippage(amount0, fee0, p.Amount0Max)
	if err != nil {
		return AddResult{}, fmt.Errorf("token 0: %w", err)
	}
	gross1, err := checkSlippage(amount1, fee1, p.Amount1Max)
	if err != nil {
		return AddResult{}, fmt.Errorf("token 1: %w", err)
	}

	if err := transfer(p.Owner, p.TokenAccount0, p.Vault0, mint0, gross0); err != nil {
		return AddResult{}, fmt.Errorf("token 0: %w", err)
	}
	if err := transfer(p.Owner, p.TokenAccount1, p.Vault1, mint1, gross1); err != nil {
		return AddResult{}, fmt.Errorf("token 1: %w", err)
	}

	e.logger.Debug("liquidity changed",
		zap.Stringer("pool", pool.ID),
		zap.Int32("tick", pool.TickCurrent),
		zap.Int32("tick_lower", p.TickLower),
		zap.Int32("tick_upper", p.TickUpper),
		zap.String("liquidity_before", liquidityBefore.String()),
		zap.String("liquidity_after", pool.Liquidity.String()),
	)

	return AddResult{
		Liquidity:          liquidity,
		Amount0:            amount0,
		Amount1:            amount1,
		Amount0TransferFee: fee0,
		Amount1TransferFee: fee1,
	}, nil
}

func (e *Engine) sizeLiquidity(p *AddParams, mint0, mint1 *model.Mint) (uint128.Uint128, error) {
	if !p.Liquidity.IsZero() {
		return p.Liquidity, nil
	}
	if p.BaseFlag == nil {
		return uint128.Zero, errcode.ErrZeroLiquidity
	}

	sqrtLower, err := tickmath.SqrtPriceAtTick(p.TickLower)
	if err != nil {
		return uint128.Zero, err
	}
	sqrtUpper, err := tickmath.SqrtPriceAtTick(p.TickUpper)
	if err != nil {
		return uint128.Zero, err
	}

	var liquidity uint128.Uint128
	if *p.BaseFlag {
		fee := TransferFee(mint0, p.Amount0Max)
		liquidity, err = LiquidityFromSingleAmount0(p.Pool.SqrtPriceX64, sqrtLower, sqrtUpper, p.Amount0Max-fee)
	} else {
		fee := TransferFee(mint1, p.Amount1Max)
		liquidity, err = LiquidityFromSingleAmount1(p.Pool.SqrtPriceX64, sqrtLower, sqrtUpper, p.Amount1Max-fee)
	}
	if err != nil {
		return uint128.Zero, fmt.Errorf("size liquidity: %w", err)
	}
	if liquidity.IsZero() {
		return uint128.Zero, errcode.ErrZeroLiquidity
	}
	return liquidity, nil
}

// modifyPosition updates ticks, bitmaps, the protocol position and the pool's
// active liquidity, and returns the token amounts owed to the pool.
func (e *Engine) modifyPosition(p *AddParams, lower, upper *model.TickState, liquidity uint128.Uint128) (uint64, uint64, error) {
	pool := p.Pool
	if err := UpdateRewardInfos(pool, p.Timestamp); err != nil {
		return 0, 0, err
	}

	flippedLower, err := updateTick(lower, pool, liquidity, false)
	if err != nil {
		return 0, 0, err
	}
	flippedUpper, err := updateTick(upper, pool, liquidity, true)
	if err != nil {
		return 0, 0, err
	}

	inside0, inside1 := feeGrowthInside(pool, lower, upper)
	rewardsInside := rewardGrowthsInside(pool, lower, upper)
	if err := updateProtocolPosition(p.ProtocolPosition, p.TickLower, p.TickUpper, liquidity, inside0, inside1, rewardsInside); err != nil {
		return 0, 0, err
	}

	if flippedLower {
		if err := e.markInitialized(p, p.TickArrayLower); err != nil {
			return 0, 0, err
		}
	}
	if flippedUpper {
		if err := e.markInitialized(p, p.TickArrayUpper); err != nil {
			return 0, 0, err
		}
	}

	amount0, amount1, err := GetDeltaAmounts(pool.TickCurrent, pool.SqrtPriceX64, lower.Tick, upper.Tick, liquidity)
	if err != nil {
		return 0, 0, err
	}
	if pool.TickCurrent >= lower.Tick && pool.TickCurrent < upper.Tick {
		active, err := fixedpoint.CheckedAdd128(pool.Liquidity, liquidity)
		if err != nil {
			return 0, 0, fmt.Errorf("pool liquidity: %w", err)
		}
		pool.Liquidity = active
	}
	return amount0, amount1, nil
}

// markInitialized counts a newly initialized tick in arr and flips the array's
// bitmap bit when it is the array's first.
func (e *Engine) markInitialized(p *AddParams, arr *model.TickArrayState) error {
	before := arr.InitializedTickCount
	if before == model.TickArraySize {
		return fmt.Errorf("tick array %d initialized tick count: %w", arr.StartTickIndex, errcode.ErrOverflow)
	}
	arr.InitializedTickCount++
	if before != 0 {
		return nil
	}
	e.logger.Debug("tick array initialized", zap.Int32("start_tick_index", arr.StartTickIndex))
	return tickbitmap.Flip(p.Pool, p.BitmapExtension, arr.StartTickIndex)
}

// updateProtocolPosition accrues fees owed to the tick range since its last
// checkpoint, then records the new growth values and adds liquidity.
func updateProtocolPosition(pos *model.ProtocolPosition, tickLower, tickUpper int32, liquidityDelta, inside0, inside1 uint128.Uint128, rewardsInside [model.RewardNum]uint128.Uint128) error {
	if pos.Liquidity.IsZero() && liquidityDelta.IsZero() {
		return nil
	}
	owed0, err := accrual.CalculateLatestTokenFees(pos.TokenFeesOwed0, pos.FeeGrowthInside0LastX64, inside0, pos.Liquidity)
	if err != nil {
		return fmt.Errorf("protocol position token 0: %w", err)
	}
	owed1, err := accrual.CalculateLatestTokenFees(pos.TokenFeesOwed1, pos.FeeGrowthInside1LastX64, inside1, pos.Liquidity)
	if err != nil {
		return fmt.Errorf("protocol position token 1: %w", err)
	}
	liquidity, err := fixedpoint.CheckedAdd128(pos.Liquidity, liquidityDelta)
	if err != nil {
		return fmt.Errorf("protocol position liquidity: %w", err)
	}

	pos.Liquidity = liquidity
	pos.TokenFeesOwed0 = owed0
	pos.TokenFeesOwed1 = owed1
	pos.FeeGrowthInside0LastX64 = inside0
	pos.FeeGrowthInside1LastX64 = inside1
	pos.RewardGrowthInside = rewardsInside
	pos.TickLowerIndex = tickLower
	pos.TickUpperIndex = tickUpper
	return nil
}

func checkSlippage(amount, fee, limit uint64) (uint64, error) {
	gross, err := fixedpoint.CheckedAdd64(amount, fee)
	if err != nil {
		return 0, err
	}
	if gross > limit {
		return 0, fmt.Errorf("need %d (fee %d), max %d: %w", gross, fee, limit, errcode.ErrPriceSlippage)
	}
	return gross, nil
}

// transfer moves amount from src to vault. The vault receives amount less the
// fee the mint withholds.
func transfer(owner solana.PublicKey, src, vault *model.TokenAccount, mint *model.Mint, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if src.Owner != owner {
		return fmt.Errorf("token account %s owner %s: %w", src.Address, src.Owner, errcode.ErrUnauthorized)
	}
	if src.Amount < amount {
		return fmt.Errorf("token account %s holds %d, need %d: %w", src.Address, src.Amount, amount, errcode.ErrInsufficientFunds)
	}
	received := amount - TransferFee(mint, amount)
	balance, err := fixedpoint.CheckedAdd64(vault.Amount, received)
	if err != nil {
		return fmt.Errorf("vault %s balance: %w", vault.Address, err)
	}
	src.Amount -= amount
	vault.Amount = balance
	return nil
}
