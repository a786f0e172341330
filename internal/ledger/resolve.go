package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"clmmLedger/internal/increase"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickbitmap"
)

// Request names the accounts a caller supplies for an increase. The rest are
// derived from the position and its pool.
type Request struct {
	ProgramID     solana.PublicKey
	Owner         solana.PublicKey
	NftAccount    solana.PublicKey
	TokenAccount0 solana.PublicKey
	TokenAccount1 solana.PublicKey
	// Token2022 selects the extended token program and loads both vault mints.
	Token2022 bool
}

// Accounts resolves req against w. The returned accounts point into w, so a
// committed increase updates w in place.
func (w *World) Accounts(req Request) (*increase.Accounts, model.TokenStandard, error) {
	nftAccount, err := w.TokenAccount(req.NftAccount)
	if err != nil {
		return nil, nil, err
	}
	personal, err := w.PersonalPositionByNft(nftAccount.Mint)
	if err != nil {
		return nil, nil, err
	}
	pool, err := w.Pool(personal.PoolID)
	if err != nil {
		return nil, nil, err
	}

	protocolAddr, err := tickbitmap.ProtocolPositionAddress(req.ProgramID, pool.ID, personal.TickLowerIndex, personal.TickUpperIndex)
	if err != nil {
		return nil, nil, fmt.Errorf("derive protocol position: %w", err)
	}
	protocol, ok := w.ProtocolPositions[protocolAddr.String()]
	if !ok {
		return nil, nil, notFound("protocol position", protocolAddr)
	}

	lower, err := w.TickArray(pool.ID, tickbitmap.ArrayStartIndex(personal.TickLowerIndex, pool.TickSpacing))
	if err != nil {
		return nil, nil, err
	}
	upper, err := w.TickArray(pool.ID, tickbitmap.ArrayStartIndex(personal.TickUpperIndex, pool.TickSpacing))
	if err != nil {
		return nil, nil, err
	}

	accts := &increase.Accounts{
		Owner:            req.Owner,
		NftAccount:       nftAccount,
		Pool:             pool,
		ProtocolPosition: protocol,
		PersonalPosition: personal,
		TickArrayLower:   lower,
		TickArrayUpper:   upper,
	}
	if accts.TokenAccount0, err = w.TokenAccount(req.TokenAccount0); err != nil {
		return nil, nil, err
	}
	if accts.TokenAccount1, err = w.TokenAccount(req.TokenAccount1); err != nil {
		return nil, nil, err
	}
	if accts.Vault0, err = w.TokenAccount(pool.TokenVault0); err != nil {
		return nil, nil, err
	}
	if accts.Vault1, err = w.TokenAccount(pool.TokenVault1); err != nil {
		return nil, nil, err
	}

	extAddr, err := tickbitmap.ExtensionAddress(req.ProgramID, pool.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("derive bitmap extension: %w", err)
	}
	if ext, ok := w.BitmapExtensions[extAddr.String()]; ok {
		accts.Bitmap = &increase.BitmapHandle{Address: extAddr, Extension: ext}
	}

	if !req.Token2022 {
		return accts, model.LegacyToken{}, nil
	}
	mint0, ok := w.Mints[pool.TokenMint0.String()]
	if !ok {
		return nil, nil, notFound("vault 0 mint", pool.TokenMint0)
	}
	mint1, ok := w.Mints[pool.TokenMint1.String()]
	if !ok {
		return nil, nil, notFound("vault 1 mint", pool.TokenMint1)
	}
	return accts, model.Token2022{Program: model.Token2022ProgramID, Vault0Mint: mint0, Vault1Mint: mint1}, nil
}
