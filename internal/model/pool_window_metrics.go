package model

import "time"

// PoolWindowMetrics stores aggregated liquidity-increase activity for a pool window.
type PoolWindowMetrics struct {
	PoolID             string
	WindowSizeSecs     int64
	WindowStart        time.Time
	WindowEnd          time.Time
	IncreaseCount      uint64
	Positions          uint64
	LiquidityAdded     string
	Amount0            string
	Amount1            string
	Amount0TransferFee string
	Amount1TransferFee string
	// TransferFeeRate0 is the share of gross token 0 deposits withheld by the
	// mint, nil when nothing was deposited.
	TransferFeeRate0 *string
	TransferFeeRate1 *string
	TVL0             *string
	TVL1             *string
	TVLMethod        string
}
