package aggregate

import "math/big"

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(abs, denom).FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// transferFeeRate is fee over the gross amount that left the owner, amount
// plus fee. It is nil when nothing moved.
func transferFeeRate(amount, fee *big.Int) *string {
	if amount == nil || fee == nil {
		return nil
	}
	gross := new(big.Int).Add(amount, fee)
	if gross.Sign() == 0 {
		return nil
	}
	rate := new(big.Rat).SetFrac(fee, gross).FloatString(ratioScale)
	return &rate
}
