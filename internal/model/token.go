package model

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"clmmLedger/internal/errcode"
)

var (
	TokenProgramID     = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// MaxFeeBasisPoints is 100% expressed in basis points.
const MaxFeeBasisPoints = 10_000

// TransferFeeConfig is the Token-2022 transfer fee extension of a mint.
type TransferFeeConfig struct {
	BasisPoints uint16 `json:"basis_points"`
	MaximumFee  uint64 `json:"maximum_fee"`
}

// Validate rejects a fee above 100%.
func (c *TransferFeeConfig) Validate() error {
	if c != nil && c.BasisPoints > MaxFeeBasisPoints {
		return fmt.Errorf("transfer fee %d bps above %d: %w", c.BasisPoints, MaxFeeBasisPoints, errcode.ErrInvalidTransferFee)
	}
	return nil
}

// Mint is the subset of mint state liquidity operations need.
type Mint struct {
	Address     solana.PublicKey
	Decimals    uint8
	TransferFee *TransferFeeConfig
}

// TokenAccount is an SPL token balance.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// Clone returns a copy that shares no memory with a.
func (a *TokenAccount) Clone() *TokenAccount {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// TokenStandard selects how vault tokens are moved. It is either LegacyToken
// or Token2022.
type TokenStandard interface {
	tokenStandard()
}

// LegacyToken moves both vault tokens through the classic SPL token program.
type LegacyToken struct{}

// Token2022 carries the Token-2022 program and the vault mints so transfer
// fees can be accounted for.
type Token2022 struct {
	Program    solana.PublicKey
	Vault0Mint *Mint
	Vault1Mint *Mint
}

func (LegacyToken) tokenStandard() {}
func (Token2022) tokenStandard()   {}

// VaultMints returns the vault mints of s, nil for LegacyToken.
func VaultMints(s TokenStandard) (*Mint, *Mint) {
	if t, ok := s.(Token2022); ok {
		return t.Vault0Mint, t.Vault1Mint
	}
	return nil, nil
}
