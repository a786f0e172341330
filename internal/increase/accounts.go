package increase

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickbitmap"
)

// BitmapHandle is the optional tick array bitmap extension account, with the
// address it was loaded from.
type BitmapHandle struct {
	Address   solana.PublicKey
	Extension *model.TickArrayBitmapExtension
}

// Accounts is the account set of one liquidity increase. Owner is the signer.
type Accounts struct {
	Owner            solana.PublicKey
	NftAccount       *model.TokenAccount
	Pool             *model.PoolState
	ProtocolPosition *model.ProtocolPosition
	PersonalPosition *model.PersonalPosition
	TickArrayLower   *model.TickArrayState
	TickArrayUpper   *model.TickArrayState
	TokenAccount0    *model.TokenAccount
	TokenAccount1    *model.TokenAccount
	Vault0           *model.TokenAccount
	Vault1           *model.TokenAccount
	// Bitmap may be nil when neither tick array lies outside the pool's
	// default bitmap.
	Bitmap *BitmapHandle
}

func mismatch(what string, got, want solana.PublicKey) error {
	return fmt.Errorf("%s: got %s, want %s: %w", what, got, want, errcode.ErrAccountMismatch)
}

func missing(what string) error {
	return fmt.Errorf("%s: missing account: %w", what, errcode.ErrAccountMismatch)
}

// Validate checks ownership and the bindings between the accounts of a.
func (a *Accounts) Validate(programID solana.PublicKey, standard model.TokenStandard) error {
	switch {
	case a.NftAccount == nil:
		return missing("nft account")
	case a.Pool == nil:
		return missing("pool")
	case a.ProtocolPosition == nil:
		return missing("protocol position")
	case a.PersonalPosition == nil:
		return missing("personal position")
	case a.TickArrayLower == nil:
		return missing("tick array lower")
	case a.TickArrayUpper == nil:
		return missing("tick array upper")
	case a.TokenAccount0 == nil:
		return missing("token account 0")
	case a.TokenAccount1 == nil:
		return missing("token account 1")
	case a.Vault0 == nil:
		return missing("token vault 0")
	case a.Vault1 == nil:
		return missing("token vault 1")
	}

	pool := a.Pool
	personal := a.PersonalPosition

	if a.NftAccount.Mint != personal.NftMint {
		return mismatch("nft account mint", a.NftAccount.Mint, personal.NftMint)
	}
	if a.NftAccount.Owner != a.Owner {
		return fmt.Errorf("nft account %s owned by %s, signer %s: %w", a.NftAccount.Address, a.NftAccount.Owner, a.Owner, errcode.ErrUnauthorized)
	}
	if a.NftAccount.Amount == 0 {
		return fmt.Errorf("nft account %s holds no position token: %w", a.NftAccount.Address, errcode.ErrUnauthorized)
	}

	if personal.PoolID != pool.ID {
		return mismatch("personal position pool", personal.PoolID, pool.ID)
	}
	wantProtocol, err := tickbitmap.ProtocolPositionAddress(programID, pool.ID, personal.TickLowerIndex, personal.TickUpperIndex)
	if err != nil {
		return err
	}
	if a.ProtocolPosition.ID != wantProtocol {
		return mismatch("protocol position", a.ProtocolPosition.ID, wantProtocol)
	}
	if a.ProtocolPosition.PoolID != pool.ID {
		return mismatch("protocol position pool", a.ProtocolPosition.PoolID, pool.ID)
	}
	if a.TickArrayLower.PoolID != pool.ID {
		return mismatch("tick array lower pool", a.TickArrayLower.PoolID, pool.ID)
	}
	if a.TickArrayUpper.PoolID != pool.ID {
		return mismatch("tick array upper pool", a.TickArrayUpper.PoolID, pool.ID)
	}

	if a.Vault0.Address != pool.TokenVault0 {
		return mismatch("token vault 0", a.Vault0.Address, pool.TokenVault0)
	}
	if a.Vault1.Address != pool.TokenVault1 {
		return mismatch("token vault 1", a.Vault1.Address, pool.TokenVault1)
	}
	if a.TokenAccount0.Mint != a.Vault0.Mint {
		return mismatch("token account 0 mint", a.TokenAccount0.Mint, a.Vault0.Mint)
	}
	if a.TokenAccount1.Mint != a.Vault1.Mint {
		return mismatch("token account 1 mint", a.TokenAccount1.Mint, a.Vault1.Mint)
	}

	switch s := standard.(type) {
	case model.LegacyToken:
	case model.Token2022:
		if s.Program != model.Token2022ProgramID {
			return mismatch("token program 2022", s.Program, model.Token2022ProgramID)
		}
		if s.Vault0Mint == nil {
			return missing("vault 0 mint")
		}
		if s.Vault1Mint == nil {
			return missing("vault 1 mint")
		}
		if s.Vault0Mint.Address != a.Vault0.Mint {
			return mismatch("vault 0 mint", s.Vault0Mint.Address, a.Vault0.Mint)
		}
		if s.Vault1Mint.Address != a.Vault1.Mint {
			return mismatch("vault 1 mint", s.Vault1Mint.Address, a.Vault1.Mint)
		}
		if err := s.Vault0Mint.TransferFee.Validate(); err != nil {
			return fmt.Errorf("vault 0 mint: %w", err)
		}
		if err := s.Vault1Mint.TransferFee.Validate(); err != nil {
			return fmt.Errorf("vault 1 mint: %w", err)
		}
	default:
		return fmt.Errorf("unknown token standard %T: %w", standard, errcode.ErrAccountMismatch)
	}
	return nil
}

// clone deep-copies every account an increase may write. Tick array handles
// that alias the same account keep aliasing in the copy.
func (a *Accounts) clone() *Accounts {
	cp := *a
	cp.Pool = a.Pool.Clone()
	cp.ProtocolPosition = a.ProtocolPosition.Clone()
	cp.PersonalPosition = a.PersonalPosition.Clone()
	cp.TickArrayLower = a.TickArrayLower.Clone()
	if a.TickArrayUpper == a.TickArrayLower {
		cp.TickArrayUpper = cp.TickArrayLower
	} else {
		cp.TickArrayUpper = a.TickArrayUpper.Clone()
	}
	cp.TokenAccount0 = a.TokenAccount0.Clone()
	cp.TokenAccount1 = a.TokenAccount1.Clone()
	cp.Vault0 = a.Vault0.Clone()
	cp.Vault1 = a.Vault1.Clone()
	if a.Bitmap != nil {
		cp.Bitmap = &BitmapHandle{Address: a.Bitmap.Address, Extension: a.Bitmap.Extension.Clone()}
	}
	return &cp
}

// commit writes the working copy w back into the caller's accounts.
func (a *Accounts) commit(w *Accounts) {
	*a.Pool = *w.Pool
	*a.ProtocolPosition = *w.ProtocolPosition
	*a.PersonalPosition = *w.PersonalPosition
	*a.TickArrayLower = *w.TickArrayLower
	*a.TickArrayUpper = *w.TickArrayUpper
	*a.TokenAccount0 = *w.TokenAccount0
	*a.TokenAccount1 = *w.TokenAccount1
	*a.Vault0 = *w.Vault0
	*a.Vault1 = *w.Vault1
	if a.Bitmap != nil && a.Bitmap.Extension != nil {
		*a.Bitmap.Extension = *w.Bitmap.Extension
	}
}
