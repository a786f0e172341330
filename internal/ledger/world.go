// Package ledger holds the account set the CLI operates on and converts it to
// and from JSON.
package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/model"
)

// ErrAccountNotFound is returned when a referenced account is not in the World.
var ErrAccountNotFound = fmt.Errorf("account not found: %w", errcode.ErrAccountMismatch)

// World is an in-memory account set keyed by base58 address.
type World struct {
	Pools             map[string]*model.PoolState
	ProtocolPositions map[string]*model.ProtocolPosition
	PersonalPositions map[string]*model.PersonalPosition
	TickArrays        map[string]*model.TickArrayState
	BitmapExtensions  map[string]*model.TickArrayBitmapExtension
	TokenAccounts     map[string]*model.TokenAccount
	Mints             map[string]*model.Mint
}

func NewWorld() *World {
	return &World{
		Pools:             make(map[string]*model.PoolState),
		ProtocolPositions: make(map[string]*model.ProtocolPosition),
		PersonalPositions: make(map[string]*model.PersonalPosition),
		TickArrays:        make(map[string]*model.TickArrayState),
		BitmapExtensions:  make(map[string]*model.TickArrayBitmapExtension),
		TokenAccounts:     make(map[string]*model.TokenAccount),
		Mints:             make(map[string]*model.Mint),
	}
}

func notFound(kind string, addr solana.PublicKey) error {
	return fmt.Errorf("%s %s: %w", kind, addr, ErrAccountNotFound)
}

func (w *World) Pool(addr solana.PublicKey) (*model.PoolState, error) {
	if p, ok := w.Pools[addr.String()]; ok {
		return p, nil
	}
	return nil, notFound("pool", addr)
}

func (w *World) TokenAccount(addr solana.PublicKey) (*model.TokenAccount, error) {
	if a, ok := w.TokenAccounts[addr.String()]; ok {
		return a, nil
	}
	return nil, notFound("token account", addr)
}

// PersonalPositionByNft finds the personal position minted as nftMint.
func (w *World) PersonalPositionByNft(nftMint solana.PublicKey) (*model.PersonalPosition, error) {
	for _, p := range w.PersonalPositions {
		if p.NftMint == nftMint {
			return p, nil
		}
	}
	return nil, notFound("personal position for nft", nftMint)
}

// TickArray finds the tick array of pool starting at start.
func (w *World) TickArray(pool solana.PublicKey, start int32) (*model.TickArrayState, error) {
	for _, arr := range w.TickArrays {
		if arr.PoolID == pool && arr.StartTickIndex == start {
			return arr, nil
		}
	}
	return nil, fmt.Errorf("tick array %d of pool %s: %w", start, pool, ErrAccountNotFound)
}

// Put stores an account under its address, replacing any previous one.
func (w *World) Put(addr solana.PublicKey, account any) error {
	key := addr.String()
	switch a := account.(type) {
	case *model.PoolState:
		a.ID = addr
		w.Pools[key] = a
	case *model.ProtocolPosition:
		a.ID = addr
		w.ProtocolPositions[key] = a
	case *model.PersonalPosition:
		a.ID = addr
		w.PersonalPositions[key] = a
	case *model.TickArrayState:
		a.ID = addr
		w.TickArrays[key] = a
	case *model.TickArrayBitmapExtension:
		w.BitmapExtensions[key] = a
	case *model.TokenAccount:
		a.Address = addr
		w.TokenAccounts[key] = a
	case *model.Mint:
		a.Address = addr
		w.Mints[key] = a
	default:
		return fmt.Errorf("unsupported account type %T", account)
	}
	return nil
}
