// Package increase adds liquidity to an existing personal position.
//
// An increase runs on private copies of the accounts it may touch. The
// caller's accounts are overwritten only after every step has succeeded, so a
// failed increase leaves them exactly as they were.
package increase

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"lukechampine.com/uint128"

	"clmmLedger/internal/accrual"
	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/liquidity"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickbitmap"
)

// LiquidityAdder converts a liquidity request into token amounts, updates
// ticks, bitmaps and the protocol position, and moves the tokens.
type LiquidityAdder interface {
	AddLiquidity(p *liquidity.AddParams) (liquidity.AddResult, error)
}

// Emitter receives committed increase events.
type Emitter interface {
	Emit(ev model.IncreaseLiquidityEvent)
}

// Params is the caller's request.
type Params struct {
	Liquidity  uint128.Uint128
	Amount0Max uint64
	Amount1Max uint64
	BaseFlag   *bool
	// Timestamp is the unix time the increase executes at.
	Timestamp uint64
}

type Increaser struct {
	programID solana.PublicKey
	adder     LiquidityAdder
	emitter   Emitter
	logger    *zap.Logger
}

// New builds an Increaser for the CLMM program programID. emitter and logger
// may be nil.
func New(programID solana.PublicKey, adder LiquidityAdder, emitter Emitter, logger *zap.Logger) *Increaser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Increaser{
		programID: programID,
		adder:     adder,
		emitter:   emitter,
		logger:    logger,
	}
}

// Increase adds liquidity to accts.PersonalPosition. accts must already have
// passed Validate.
func (in *Increaser) Increase(accts *Accounts, standard model.TokenStandard, params Params) (model.IncreaseLiquidityEvent, error) {
	if !accts.Pool.StatusAllows(model.OpenPositionOrIncreaseLiquidity) {
		return model.IncreaseLiquidityEvent{}, fmt.Errorf("pool %s: %w", accts.Pool.ID, errcode.ErrNotApproved)
	}

	w := accts.clone()
	tickLower := w.PersonalPosition.TickLowerIndex
	tickUpper := w.PersonalPosition.TickUpperIndex

	ext, err := in.bitmapExtension(w, tickLower, tickUpper)
	if err != nil {
		return model.IncreaseLiquidityEvent{}, err
	}

	res, err := in.adder.AddLiquidity(&liquidity.AddParams{
		Owner:            w.Owner,
		Pool:             w.Pool,
		ProtocolPosition: w.ProtocolPosition,
		TickArrayLower:   w.TickArrayLower,
		TickArrayUpper:   w.TickArrayUpper,
		BitmapExtension:  ext,
		TokenAccount0:    w.TokenAccount0,
		TokenAccount1:    w.TokenAccount1,
		Vault0:           w.Vault0,
		Vault1:           w.Vault1,
		Standard:         standard,
		Liquidity:        params.Liquidity,
		Amount0Max:       params.Amount0Max,
		Amount1Max:       params.Amount1Max,
		BaseFlag:         params.BaseFlag,
		TickLower:        tickLower,
		TickUpper:        tickUpper,
		Timestamp:        params.Timestamp,
	})
	if err != nil {
		return model.IncreaseLiquidityEvent{}, fmt.Errorf("add liquidity: %w", err)
	}

	personal := w.PersonalPosition
	protocol := w.ProtocolPosition
	in.logger.Debug("calculate latest token fees",
		zap.Stringer("position", personal.NftMint),
		zap.String("liquidity", personal.Liquidity.String()),
		zap.String("fee_growth_inside_0_last_x64", personal.FeeGrowthInside0LastX64.String()),
		zap.String("fee_growth_inside_0_latest_x64", protocol.FeeGrowthInside0LastX64.String()),
		zap.String("fee_growth_inside_1_last_x64", personal.FeeGrowthInside1LastX64.String()),
		zap.String("fee_growth_inside_1_latest_x64", protocol.FeeGrowthInside1LastX64.String()),
	)
	if err := accrual.Synchronize(personal, protocol); err != nil {
		return model.IncreaseLiquidityEvent{}, fmt.Errorf("synchronize position: %w", err)
	}

	total, err := fixedpoint.CheckedAdd128(personal.Liquidity, res.Liquidity)
	if err != nil {
		return model.IncreaseLiquidityEvent{}, fmt.Errorf("position liquidity: %w", err)
	}
	personal.Liquidity = total

	accts.commit(w)

	ev := model.IncreaseLiquidityEvent{
		PositionNftMint:    personal.NftMint,
		PoolID:             w.Pool.ID,
		Liquidity:          res.Liquidity,
		Amount0:            res.Amount0,
		Amount1:            res.Amount1,
		Amount0TransferFee: res.Amount0TransferFee,
		Amount1TransferFee: res.Amount1TransferFee,
	}
	in.logger.Info("liquidity increased",
		zap.Stringer("position", ev.PositionNftMint),
		zap.Stringer("pool", ev.PoolID),
		zap.String("liquidity", ev.Liquidity.String()),
		zap.Uint64("amount0", ev.Amount0),
		zap.Uint64("amount1", ev.Amount1),
	)
	if in.emitter != nil {
		in.emitter.Emit(ev)
	}
	return ev, nil
}

// bitmapExtension returns the extension to hand to the adder: nil when both
// ticks are inside the default bitmap, otherwise the supplied account after
// checking its address.
func (in *Increaser) bitmapExtension(w *Accounts, tickLower, tickUpper int32) (*model.TickArrayBitmapExtension, error) {
	if !tickbitmap.IsOverflowDefaultTickArrayBitmap(w.Pool.TickSpacing, tickLower, tickUpper) {
		if w.Bitmap != nil {
			in.logger.Debug("ignoring unused tick array bitmap extension", zap.Stringer("address", w.Bitmap.Address))
		}
		return nil, nil
	}
	if w.Bitmap == nil || w.Bitmap.Extension == nil {
		return nil, fmt.Errorf("ticks [%d, %d]: %w", tickLower, tickUpper, errcode.ErrMissingBitmapExtension)
	}
	want, err := tickbitmap.ExtensionAddress(in.programID, w.Pool.ID)
	if err != nil {
		return nil, err
	}
	if w.Bitmap.Address != want {
		return nil, fmt.Errorf("got %s, want %s: %w", w.Bitmap.Address, want, errcode.ErrBitmapKeyMismatch)
	}
	if w.Bitmap.Extension.PoolID != w.Pool.ID {
		return nil, mismatch("tick array bitmap extension pool", w.Bitmap.Extension.PoolID, w.Pool.ID)
	}
	return w.Bitmap.Extension, nil
}
