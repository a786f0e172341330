package liquidity

import (
	"fmt"

	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/model"
)

func feeConfig(mint *model.Mint) *model.TransferFeeConfig {
	if mint == nil {
		return nil
	}
	return mint.TransferFee
}

func ceilDiv(num uint128.Uint128, den uint64) uint128.Uint128 {
	q, r := num.QuoRem64(den)
	if r != 0 {
		q = q.Add64(1)
	}
	return q
}

// TransferFee returns the fee withheld when amount is sent from mint.
func TransferFee(mint *model.Mint, amount uint64) uint64 {
	cfg := feeConfig(mint)
	if cfg == nil || cfg.BasisPoints == 0 || amount == 0 {
		return 0
	}
	fee := ceilDiv(uint128.From64(amount).Mul64(uint64(cfg.BasisPoints)), model.MaxFeeBasisPoints).Lo
	if fee > cfg.MaximumFee {
		return cfg.MaximumFee
	}
	return fee
}

// TransferInverseFee returns the fee to add on top of postFeeAmount so that
// postFeeAmount arrives after the mint withholds its fee.
func TransferInverseFee(mint *model.Mint, postFeeAmount uint64) (uint64, error) {
	cfg := feeConfig(mint)
	if cfg == nil || cfg.BasisPoints == 0 || postFeeAmount == 0 {
		return 0, nil
	}
	if cfg.BasisPoints >= model.MaxFeeBasisPoints {
		return cfg.MaximumFee, nil
	}

	raw := ceilDiv(
		uint128.From64(postFeeAmount).Mul64(model.MaxFeeBasisPoints),
		model.MaxFeeBasisPoints-uint64(cfg.BasisPoints),
	)
	var pre uint64
	if raw.Sub64(postFeeAmount).Cmp64(cfg.MaximumFee) >= 0 {
		sum, err := fixedpoint.CheckedAdd64(postFeeAmount, cfg.MaximumFee)
		if err != nil {
			return 0, fmt.Errorf("pre-fee amount: %w", err)
		}
		pre = sum
	} else {
		if raw.Hi != 0 {
			return 0, fmt.Errorf("pre-fee amount %s: %w", raw, errcode.ErrOverflow)
		}
		pre = raw.Lo
	}
	return TransferFee(mint, pre), nil
}
