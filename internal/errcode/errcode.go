package errcode

import "errors"

var (
	// Authorization and account binding failures.
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAccountMismatch = errors.New("account mismatch")

	// ErrNotApproved is returned when the pool status disallows the operation.
	ErrNotApproved = errors.New("not approved")

	ErrBitmapKeyMismatch      = errors.New("tick array bitmap extension key mismatch")
	ErrMissingBitmapExtension = errors.New("missing tick array bitmap extension account")

	ErrPriceSlippage     = errors.New("price slippage check")
	ErrZeroLiquidity     = errors.New("liquidity must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidTick       = errors.New("invalid tick")

	ErrInvalidTimestamp   = errors.New("timestamp before last reward update")
	ErrInvalidTransferFee = errors.New("invalid transfer fee config")

	ErrOverflow = errors.New("arithmetic overflow")
)

// Category groups errors by how a caller can react to them.
type Category string

const (
	CategoryNone       Category = ""
	CategoryValidation Category = "validation"
	CategoryGate       Category = "operational_gate"
	CategoryBitmap     Category = "bitmap_key"
	CategoryAmount     Category = "amount_bound"
	CategoryOverflow   Category = "overflow"
	CategoryInternal   Category = "internal"
)

// Classify maps an error onto its category.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrAccountMismatch), errors.Is(err, ErrInvalidTick),
		errors.Is(err, ErrInvalidTimestamp), errors.Is(err, ErrInvalidTransferFee):
		return CategoryValidation
	case errors.Is(err, ErrNotApproved):
		return CategoryGate
	case errors.Is(err, ErrBitmapKeyMismatch), errors.Is(err, ErrMissingBitmapExtension):
		return CategoryBitmap
	case errors.Is(err, ErrPriceSlippage), errors.Is(err, ErrZeroLiquidity), errors.Is(err, ErrInsufficientFunds):
		return CategoryAmount
	case errors.Is(err, ErrOverflow):
		return CategoryOverflow
	default:
		return CategoryInternal
	}
}

// Retryable reports whether resubmitting later, unchanged, may succeed.
func Retryable(err error) bool {
	return Classify(err) == CategoryGate
}
