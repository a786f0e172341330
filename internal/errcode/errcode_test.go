package errcode

import (
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{nil, CategoryNone},
		{fmt.Errorf("nft account: %w", ErrUnauthorized), CategoryValidation},
		{fmt.Errorf("reward 0: %w", ErrInvalidTimestamp), CategoryValidation},
		{fmt.Errorf("vault 0 mint: %w", ErrInvalidTransferFee), CategoryValidation},
		{fmt.Errorf("pool: %w", ErrNotApproved), CategoryGate},
		{ErrMissingBitmapExtension, CategoryBitmap},
		{fmt.Errorf("amount 0: %w", ErrPriceSlippage), CategoryAmount},
		{fmt.Errorf("fees owed: %w", ErrOverflow), CategoryOverflow},
		{fmt.Errorf("boom"), CategoryInternal},
	}

	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("classify %v: got %q want %q", tc.err, got, tc.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("status: %w", ErrNotApproved)) {
		t.Fatalf("gate errors should be retryable")
	}
	if Retryable(ErrOverflow) {
		t.Fatalf("overflow must not be retryable")
	}
}
