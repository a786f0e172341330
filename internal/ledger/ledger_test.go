package ledger

import (
	"encoding/json"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/increase"
	"clmmLedger/internal/liquidity"
	"clmmLedger/internal/model"
	"clmmLedger/internal/tickbitmap"
)

var (
	programID  = solana.MustPublicKeyFromBase58("CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK")
	poolID     = solana.PublicKey{1}
	owner      = solana.PublicKey{2}
	vault0     = solana.PublicKey{3}
	vault1     = solana.PublicKey{4}
	mint0      = solana.PublicKey{5}
	mint1      = solana.PublicKey{6}
	nftMint    = solana.PublicKey{7}
	nftAccount = solana.PublicKey{8}
	user0      = solana.PublicKey{9}
	user1      = solana.PublicKey{10}
	personalID = solana.PublicKey{11}
)

func fixture(t *testing.T, tickLower, tickUpper int32) (*World, Request) {
	t.Helper()
	w := NewWorld()
	put := func(addr solana.PublicKey, account any) {
		require.NoError(t, w.Put(addr, account))
	}

	pool := &model.PoolState{
		TokenMint0:   mint0,
		TokenMint1:   mint1,
		TokenVault0:  vault0,
		TokenVault1:  vault1,
		TickSpacing:  10,
		SqrtPriceX64: fixedpoint.Q64,
	}
	pool.SetStatus(model.OpenPositionOrIncreaseLiquidity, true)
	put(poolID, pool)

	protocolID, err := tickbitmap.ProtocolPositionAddress(programID, poolID, tickLower, tickUpper)
	require.NoError(t, err)
	put(protocolID, &model.ProtocolPosition{PoolID: poolID, TickLowerIndex: tickLower, TickUpperIndex: tickUpper})
	put(personalID, &model.PersonalPosition{NftMint: nftMint, PoolID: poolID, TickLowerIndex: tickLower, TickUpperIndex: tickUpper})

	for _, tick := range []int32{tickLower, tickUpper} {
		start := tickbitmap.ArrayStartIndex(tick, 10)
		addr, err := tickbitmap.TickArrayAddress(programID, poolID, start)
		require.NoError(t, err)
		if _, ok := w.TickArrays[addr.String()]; !ok {
			put(addr, &model.TickArrayState{PoolID: poolID, StartTickIndex: start})
		}
	}

	put(nftAccount, &model.TokenAccount{Mint: nftMint, Owner: owner, Amount: 1})
	put(user0, &model.TokenAccount{Mint: mint0, Owner: owner, Amount: 100_000_000})
	put(user1, &model.TokenAccount{Mint: mint1, Owner: owner, Amount: 100_000_000})
	put(vault0, &model.TokenAccount{Mint: mint0, Owner: poolID})
	put(vault1, &model.TokenAccount{Mint: mint1, Owner: poolID})
	put(mint0, &model.Mint{Decimals: 6, TransferFee: &model.TransferFeeConfig{BasisPoints: 100, MaximumFee: 1 << 60}})
	put(mint1, &model.Mint{Decimals: 9})

	return w, Request{
		ProgramID:     programID,
		Owner:         owner,
		NftAccount:    nftAccount,
		TokenAccount0: user0,
		TokenAccount1: user1,
	}
}

func TestAccountsResolvesAndIncreaseUpdatesWorld(t *testing.T) {
	w, req := fixture(t, -600, 600)

	accts, standard, err := w.Accounts(req)
	require.NoError(t, err)
	assert.Equal(t, model.LegacyToken{}, standard)
	assert.Nil(t, accts.Bitmap)
	require.NoError(t, accts.Validate(programID, standard))

	inc := increase.New(programID, liquidity.NewEngine(nil), nil, nil)
	ev, err := inc.IncreaseLiquidityV1(accts, increase.Params{
		Liquidity:  uint128.From64(1_000_000_000),
		Amount0Max: 30_000_000,
		Amount1Max: 30_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, poolID, ev.PoolID)

	personal := w.PersonalPositions[personalID.String()]
	assert.Equal(t, uint128.From64(1_000_000_000), personal.Liquidity)
	assert.Equal(t, uint64(29553011), w.TokenAccounts[vault0.String()].Amount)
	assert.Equal(t, uint64(100_000_000-29553011), w.TokenAccounts[user1.String()].Amount)
}

func TestAccountsToken2022(t *testing.T) {
	w, req := fixture(t, -600, 600)
	req.Token2022 = true

	accts, standard, err := w.Accounts(req)
	require.NoError(t, err)
	require.NoError(t, accts.Validate(programID, standard))

	s, ok := standard.(model.Token2022)
	require.True(t, ok)
	assert.Equal(t, mint0, s.Vault0Mint.Address)
	assert.Equal(t, uint16(100), s.Vault0Mint.TransferFee.BasisPoints)
}

func TestAccountsAttachesExtension(t *testing.T) {
	w, req := fixture(t, -600, 600)
	extAddr, err := tickbitmap.ExtensionAddress(programID, poolID)
	require.NoError(t, err)
	require.NoError(t, w.Put(extAddr, &model.TickArrayBitmapExtension{PoolID: poolID}))

	accts, _, err := w.Accounts(req)
	require.NoError(t, err)
	require.NotNil(t, accts.Bitmap)
	assert.Equal(t, extAddr, accts.Bitmap.Address)
}

func TestAccountsMissing(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(w *World, req *Request)
	}{
		{"nft account", func(_ *World, req *Request) { req.NftAccount = solana.PublicKey{99} }},
		{"token account", func(_ *World, req *Request) { req.TokenAccount1 = solana.PublicKey{99} }},
		{"pool", func(w *World, _ *Request) { delete(w.Pools, poolID.String()) }},
		{"vault", func(w *World, _ *Request) { delete(w.TokenAccounts, vault0.String()) }},
		{"tick array", func(w *World, _ *Request) {
			for k := range w.TickArrays {
				delete(w.TickArrays, k)
			}
		}},
		{"mint", func(w *World, req *Request) {
			req.Token2022 = true
			delete(w.Mints, mint1.String())
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, req := fixture(t, -600, 600)
			tc.mutate(w, &req)

			_, _, err := w.Accounts(req)
			assert.ErrorIs(t, err, ErrAccountNotFound)
			assert.ErrorIs(t, err, errcode.ErrAccountMismatch)
		})
	}
}

func TestWorldJSONRoundTrip(t *testing.T) {
	w, req := fixture(t, -600, 600)
	accts, standard, err := w.Accounts(req)
	require.NoError(t, err)
	_, err = increase.New(programID, liquidity.NewEngine(nil), nil, nil).Increase(accts, standard, increase.Params{
		Liquidity:  uint128.From64(1_000_000_000),
		Amount0Max: 1 << 40,
		Amount1Max: 1 << 40,
	})
	require.NoError(t, err)
	w.Pools[poolID.String()].FeeGrowthGlobal0X64 = uint128.Max

	data, err := json.Marshal(w)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"transfer_fee":{`)
	assert.Contains(t, string(data), `"basis_points":100`)
	assert.NotContains(t, string(data), "BasisPoints")

	var got World
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, w, &got)
}

func TestWorldDocumentsRoundTrip(t *testing.T) {
	w, _ := fixture(t, -600, 600)

	docs, err := w.Documents()
	require.NoError(t, err)
	require.Len(t, docs, 1+1+1+2+5+2)
	for i := 1; i < len(docs); i++ {
		assert.LessOrEqual(t, docs[i-1].Kind, docs[i].Kind)
	}

	got, err := FromDocuments(docs)
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestWorldDecodeErrors(t *testing.T) {
	var w World
	err := json.Unmarshal([]byte(`{"pools":{"`+poolID.String()+`":{"liquidity":"not-a-number"}}}`), &w)
	assert.ErrorContains(t, err, "liquidity")

	err = json.Unmarshal([]byte(`{"mints":{"0OIl":{}}}`), &w)
	assert.ErrorContains(t, err, "address")

	_, err = FromDocuments([]Document{{Address: poolID.String(), Kind: "vault", Data: []byte(`{}`)}})
	assert.ErrorContains(t, err, "unknown account kind")
}

func TestWorldRejectsTransferFeeAboveFull(t *testing.T) {
	data := []byte(`{"decimals":6,"transfer_fee":{"basis_points":20000,"maximum_fee":5}}`)

	var w World
	err := json.Unmarshal([]byte(`{"mints":{"`+mint0.String()+`":`+string(data)+`}}`), &w)
	assert.ErrorIs(t, err, errcode.ErrInvalidTransferFee)

	_, err = FromDocuments([]Document{{Address: mint0.String(), Kind: KindMint, Data: data}})
	assert.ErrorIs(t, err, errcode.ErrInvalidTransferFee)

	full := []byte(`{"decimals":6,"transfer_fee":{"basis_points":10000,"maximum_fee":5}}`)
	_, err = FromDocuments([]Document{{Address: mint0.String(), Kind: KindMint, Data: full}})
	assert.NoError(t, err)
}
