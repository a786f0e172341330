package model

import (
	"strconv"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// IncreaseLiquidityEvent is emitted after a committed liquidity increase.
type IncreaseLiquidityEvent struct {
	PositionNftMint    solana.PublicKey
	PoolID             solana.PublicKey
	Liquidity          uint128.Uint128
	Amount0            uint64
	Amount1            uint64
	Amount0TransferFee uint64
	Amount1TransferFee uint64
}

// IncreaseLiquidityEventData is the JSON payload of an IncreaseLiquidityEvent.
type IncreaseLiquidityEventData struct {
	PositionNftMint    string `json:"position_nft_mint"`
	PoolID             string `json:"pool_id"`
	Liquidity          string `json:"liquidity"`
	Amount0            string `json:"amount0"`
	Amount1            string `json:"amount1"`
	Amount0TransferFee string `json:"amount0_transfer_fee"`
	Amount1TransferFee string `json:"amount1_transfer_fee"`
}

// EventRecord is an emitted event as stored by sinks.
type EventRecord struct {
	EventName string                     `json:"event_name"`
	Timestamp uint64                     `json:"timestamp"`
	Decoded   IncreaseLiquidityEventData `json:"decoded"`
}

// Data renders e with decimal string amounts.
func (e IncreaseLiquidityEvent) Data() IncreaseLiquidityEventData {
	return IncreaseLiquidityEventData{
		PositionNftMint:    e.PositionNftMint.String(),
		PoolID:             e.PoolID.String(),
		Liquidity:          e.Liquidity.String(),
		Amount0:            strconv.FormatUint(e.Amount0, 10),
		Amount1:            strconv.FormatUint(e.Amount1, 10),
		Amount0TransferFee: strconv.FormatUint(e.Amount0TransferFee, 10),
		Amount1TransferFee: strconv.FormatUint(e.Amount1TransferFee, 10),
	}
}

// Record wraps e for storage.
func (e IncreaseLiquidityEvent) Record(timestamp uint64) EventRecord {
	return EventRecord{
		EventName: "IncreaseLiquidity",
		Timestamp: timestamp,
		Decoded:   e.Data(),
	}
}
