package ledger

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"clmmLedger/internal/model"
)

// Account kinds as stored in documents.
const (
	KindPool             = "pool"
	KindProtocolPosition = "protocol_position"
	KindPersonalPosition = "personal_position"
	KindTickArray        = "tick_array"
	KindBitmapExtension  = "bitmap_extension"
	KindTokenAccount     = "token_account"
	KindMint             = "mint"
)

// Document is one account in serialized form.
type Document struct {
	Address string
	Kind    string
	Data    json.RawMessage
}

type rewardInfoJSON struct {
	RewardState           uint8            `json:"reward_state"`
	OpenTime              uint64           `json:"open_time"`
	EndTime               uint64           `json:"end_time"`
	LastUpdateTime        uint64           `json:"last_update_time"`
	EmissionsPerSecondX64 string           `json:"emissions_per_second_x64"`
	RewardTotalEmissioned uint64           `json:"reward_total_emissioned"`
	RewardClaimed         uint64           `json:"reward_claimed"`
	TokenMint             solana.PublicKey `json:"token_mint"`
	TokenVault            solana.PublicKey `json:"token_vault"`
	Authority             solana.PublicKey `json:"authority"`
	RewardGrowthGlobalX64 string           `json:"reward_growth_global_x64"`
}

type poolJSON struct {
	AmmConfig           solana.PublicKey                `json:"amm_config"`
	TokenMint0          solana.PublicKey                `json:"token_mint_0"`
	TokenMint1          solana.PublicKey                `json:"token_mint_1"`
	TokenVault0         solana.PublicKey                `json:"token_vault_0"`
	TokenVault1         solana.PublicKey                `json:"token_vault_1"`
	MintDecimals0       uint8                           `json:"mint_decimals_0"`
	MintDecimals1       uint8                           `json:"mint_decimals_1"`
	TickSpacing         uint16                          `json:"tick_spacing"`
	Liquidity           string                          `json:"liquidity"`
	SqrtPriceX64        string                          `json:"sqrt_price_x64"`
	TickCurrent         int32                           `json:"tick_current"`
	FeeGrowthGlobal0X64 string                          `json:"fee_growth_global_0_x64"`
	FeeGrowthGlobal1X64 string                          `json:"fee_growth_global_1_x64"`
	Status              uint8                           `json:"status"`
	RewardInfos         [model.RewardNum]rewardInfoJSON `json:"reward_infos"`
	TickArrayBitmap     [16]uint64                      `json:"tick_array_bitmap"`
}

type protocolPositionJSON struct {
	PoolID                  solana.PublicKey        `json:"pool_id"`
	TickLowerIndex          int32                   `json:"tick_lower_index"`
	TickUpperIndex          int32                   `json:"tick_upper_index"`
	Liquidity               string                  `json:"liquidity"`
	FeeGrowthInside0LastX64 string                  `json:"fee_growth_inside_0_last_x64"`
	FeeGrowthInside1LastX64 string                  `json:"fee_growth_inside_1_last_x64"`
	TokenFeesOwed0          uint64                  `json:"token_fees_owed_0"`
	TokenFeesOwed1          uint64                  `json:"token_fees_owed_1"`
	RewardGrowthInside      [model.RewardNum]string `json:"reward_growth_inside"`
}

type positionRewardJSON struct {
	GrowthInsideLastX64 string `json:"growth_inside_last_x64"`
	RewardAmountOwed    uint64 `json:"reward_amount_owed"`
}

type personalPositionJSON struct {
	NftMint                 solana.PublicKey                    `json:"nft_mint"`
	PoolID                  solana.PublicKey                    `json:"pool_id"`
	TickLowerIndex          int32                               `json:"tick_lower_index"`
	TickUpperIndex          int32                               `json:"tick_upper_index"`
	Liquidity               string                              `json:"liquidity"`
	FeeGrowthInside0LastX64 string                              `json:"fee_growth_inside_0_last_x64"`
	FeeGrowthInside1LastX64 string                              `json:"fee_growth_inside_1_last_x64"`
	TokenFeesOwed0          uint64                              `json:"token_fees_owed_0"`
	TokenFeesOwed1          uint64                              `json:"token_fees_owed_1"`
	RewardInfos             [model.RewardNum]positionRewardJSON `json:"reward_infos"`
}

type tickJSON struct {
	Offset                  int                     `json:"offset"`
	Tick                    int32                   `json:"tick"`
	LiquidityNet            string                  `json:"liquidity_net"`
	LiquidityGross          string                  `json:"liquidity_gross"`
	FeeGrowthOutside0X64    string                  `json:"fee_growth_outside_0_x64"`
	FeeGrowthOutside1X64    string                  `json:"fee_growth_outside_1_x64"`
	RewardGrowthsOutsideX64 [model.RewardNum]string `json:"reward_growths_outside_x64"`
}

type tickArrayJSON struct {
	PoolID               solana.PublicKey `json:"pool_id"`
	StartTickIndex       int32            `json:"start_tick_index"`
	InitializedTickCount uint8            `json:"initialized_tick_count"`
	// Ticks lists only the non-empty slots.
	Ticks []tickJSON `json:"ticks"`
}

type bitmapExtensionJSON struct {
	PoolID                  solana.PublicKey                     `json:"pool_id"`
	PositiveTickArrayBitmap [model.ExtensionBitmapSize][8]uint64 `json:"positive_tick_array_bitmap"`
	NegativeTickArrayBitmap [model.ExtensionBitmapSize][8]uint64 `json:"negative_tick_array_bitmap"`
}

type tokenAccountJSON struct {
	Mint   solana.PublicKey `json:"mint"`
	Owner  solana.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

type mintJSON struct {
	Decimals    uint8                    `json:"decimals"`
	TransferFee *model.TransferFeeConfig `json:"transfer_fee,omitempty"`
}

// worldJSON is the state file layout: kind, then address, then account.
type worldJSON struct {
	Pools             map[string]poolJSON             `json:"pools"`
	ProtocolPositions map[string]protocolPositionJSON `json:"protocol_positions"`
	PersonalPositions map[string]personalPositionJSON `json:"personal_positions"`
	TickArrays        map[string]tickArrayJSON        `json:"tick_arrays"`
	BitmapExtensions  map[string]bitmapExtensionJSON  `json:"bitmap_extensions"`
	TokenAccounts     map[string]tokenAccountJSON     `json:"token_accounts"`
	Mints             map[string]mintJSON             `json:"mints"`
}

func u128(v uint128.Uint128) string { return v.String() }

// decoder parses string fields and keeps the first error.
type decoder struct {
	err error
}

func (d *decoder) u128(field, s string) uint128.Uint128 {
	if d.err != nil || s == "" {
		return uint128.Zero
	}
	v, err := uint128.FromString(s)
	if err != nil {
		d.err = fmt.Errorf("%s %q: %w", field, s, err)
	}
	return v
}

func (d *decoder) key(s string) solana.PublicKey {
	if d.err != nil {
		return solana.PublicKey{}
	}
	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		d.err = fmt.Errorf("address %q: %w", s, err)
	}
	return k
}

func encodePool(p *model.PoolState) poolJSON {
	out := poolJSON{
		AmmConfig:           p.AmmConfig,
		TokenMint0:          p.TokenMint0,
		TokenMint1:          p.TokenMint1,
		TokenVault0:         p.TokenVault0,
		TokenVault1:         p.TokenVault1,
		MintDecimals0:       p.MintDecimals0,
		MintDecimals1:       p.MintDecimals1,
		TickSpacing:         p.TickSpacing,
		Liquidity:           u128(p.Liquidity),
		SqrtPriceX64:        u128(p.SqrtPriceX64),
		TickCurrent:         p.TickCurrent,
		FeeGrowthGlobal0X64: u128(p.FeeGrowthGlobal0X64),
		FeeGrowthGlobal1X64: u128(p.FeeGrowthGlobal1X64),
		Status:              p.Status,
		TickArrayBitmap:     p.TickArrayBitmap,
	}
	for i, r := range p.RewardInfos {
		out.RewardInfos[i] = rewardInfoJSON{
			RewardState:           r.RewardState,
			OpenTime:              r.OpenTime,
			EndTime:               r.EndTime,
			LastUpdateTime:        r.LastUpdateTime,
			EmissionsPerSecondX64: u128(r.EmissionsPerSecondX64),
			RewardTotalEmissioned: r.RewardTotalEmissioned,
			RewardClaimed:         r.RewardClaimed,
			TokenMint:             r.TokenMint,
			TokenVault:            r.TokenVault,
			Authority:             r.Authority,
			RewardGrowthGlobalX64: u128(r.RewardGrowthGlobalX64),
		}
	}
	return out
}

func (d *decoder) mint(addr string, in mintJSON) *model.Mint {
	if d.err == nil {
		if err := in.TransferFee.Validate(); err != nil {
			d.err = fmt.Errorf("mint %s: %w", addr, err)
		}
	}
	return &model.Mint{Decimals: in.Decimals, TransferFee: in.TransferFee}
}

func (d *decoder) pool(in poolJSON) *model.PoolState {
	p := &model.PoolState{
		AmmConfig:           in.AmmConfig,
		TokenMint0:          in.TokenMint0,
		TokenMint1:          in.TokenMint1,
		TokenVault0:         in.TokenVault0,
		TokenVault1:         in.TokenVault1,
		MintDecimals0:       in.MintDecimals0,
		MintDecimals1:       in.MintDecimals1,
		TickSpacing:         in.TickSpacing,
		Liquidity:           d.u128("liquidity", in.Liquidity),
		SqrtPriceX64:        d.u128("sqrt_price_x64", in.SqrtPriceX64),
		TickCurrent:         in.TickCurrent,
		FeeGrowthGlobal0X64: d.u128("fee_growth_global_0_x64", in.FeeGrowthGlobal0X64),
		FeeGrowthGlobal1X64: d.u128("fee_growth_global_1_x64", in.FeeGrowthGlobal1X64),
		Status:              in.Status,
		TickArrayBitmap:     in.TickArrayBitmap,
	}
	for i, r := range in.RewardInfos {
		p.RewardInfos[i] = model.RewardInfo{
			RewardState:           r.RewardState,
			OpenTime:              r.OpenTime,
			EndTime:               r.EndTime,
			LastUpdateTime:        r.LastUpdateTime,
			EmissionsPerSecondX64: d.u128("emissions_per_second_x64", r.EmissionsPerSecondX64),
			RewardTotalEmissioned: r.RewardTotalEmissioned,
			RewardClaimed:         r.RewardClaimed,
			TokenMint:             r.TokenMint,
			TokenVault:            r.TokenVault,
			Authority:             r.Authority,
			RewardGrowthGlobalX64: d.u128("reward_growth_global_x64", r.RewardGrowthGlobalX64),
		}
	}
	return p
}

func encodeProtocolPosition(p *model.ProtocolPosition) protocolPositionJSON {
	out := protocolPositionJSON{
		PoolID:                  p.PoolID,
		TickLowerIndex:          p.TickLowerIndex,
		TickUpperIndex:          p.TickUpperIndex,
		Liquidity:               u128(p.Liquidity),
		FeeGrowthInside0LastX64: u128(p.FeeGrowthInside0LastX64),
		FeeGrowthInside1LastX64: u128(p.FeeGrowthInside1LastX64),
		TokenFeesOwed0:          p.TokenFeesOwed0,
		TokenFeesOwed1:          p.TokenFeesOwed1,
	}
	for i, g := range p.RewardGrowthInside {
		out.RewardGrowthInside[i] = u128(g)
	}
	return out
}

func (d *decoder) protocolPosition(in protocolPositionJSON) *model.ProtocolPosition {
	p := &model.ProtocolPosition{
		PoolID:                  in.PoolID,
		TickLowerIndex:          in.TickLowerIndex,
		TickUpperIndex:          in.TickUpperIndex,
		Liquidity:               d.u128("liquidity", in.Liquidity),
		FeeGrowthInside0LastX64: d.u128("fee_growth_inside_0_last_x64", in.FeeGrowthInside0LastX64),
		FeeGrowthInside1LastX64: d.u128("fee_growth_inside_1_last_x64", in.FeeGrowthInside1LastX64),
		TokenFeesOwed0:          in.TokenFeesOwed0,
		TokenFeesOwed1:          in.TokenFeesOwed1,
	}
	for i, g := range in.RewardGrowthInside {
		p.RewardGrowthInside[i] = d.u128("reward_growth_inside", g)
	}
	return p
}

func encodePersonalPosition(p *model.PersonalPosition) personalPositionJSON {
	out := personalPositionJSON{
		NftMint:                 p.NftMint,
		PoolID:                  p.PoolID,
		TickLowerIndex:          p.TickLowerIndex,
		TickUpperIndex:          p.TickUpperIndex,
		Liquidity:               u128(p.Liquidity),
		FeeGrowthInside0LastX64: u128(p.FeeGrowthInside0LastX64),
		FeeGrowthInside1LastX64: u128(p.FeeGrowthInside1LastX64),
		TokenFeesOwed0:          p.TokenFeesOwed0,
		TokenFeesOwed1:          p.TokenFeesOwed1,
	}
	for i, r := range p.RewardInfos {
		out.RewardInfos[i] = positionRewardJSON{
			GrowthInsideLastX64: u128(r.GrowthInsideLastX64),
			RewardAmountOwed:    r.RewardAmountOwed,
		}
	}
	return out
}

func (d *decoder) personalPosition(in personalPositionJSON) *model.PersonalPosition {
	p := &model.PersonalPosition{
		NftMint:                 in.NftMint,
		PoolID:                  in.PoolID,
		TickLowerIndex:          in.TickLowerIndex,
		TickUpperIndex:          in.TickUpperIndex,
		Liquidity:               d.u128("liquidity", in.Liquidity),
		FeeGrowthInside0LastX64: d.u128("fee_growth_inside_0_last_x64", in.FeeGrowthInside0LastX64),
		FeeGrowthInside1LastX64: d.u128("fee_growth_inside_1_last_x64", in.FeeGrowthInside1LastX64),
		TokenFeesOwed0:          in.TokenFeesOwed0,
		TokenFeesOwed1:          in.TokenFeesOwed1,
	}
	for i, r := range in.RewardInfos {
		p.RewardInfos[i] = model.PositionRewardInfo{
			GrowthInsideLastX64: d.u128("growth_inside_last_x64", r.GrowthInsideLastX64),
			RewardAmountOwed:    r.RewardAmountOwed,
		}
	}
	return p
}

func encodeTickArray(a *model.TickArrayState) tickArrayJSON {
	out := tickArrayJSON{
		PoolID:               a.PoolID,
		StartTickIndex:       a.StartTickIndex,
		InitializedTickCount: a.InitializedTickCount,
		Ticks:                []tickJSON{},
	}
	for i, t := range a.Ticks {
		if t == (model.TickState{}) {
			continue
		}
		tj := tickJSON{
			Offset:               i,
			Tick:                 t.Tick,
			LiquidityNet:         u128(t.LiquidityNet),
			LiquidityGross:       u128(t.LiquidityGross),
			FeeGrowthOutside0X64: u128(t.FeeGrowthOutside0X64),
			FeeGrowthOutside1X64: u128(t.FeeGrowthOutside1X64),
		}
		for j, g := range t.RewardGrowthsOutsideX64 {
			tj.RewardGrowthsOutsideX64[j] = u128(g)
		}
		out.Ticks = append(out.Ticks, tj)
	}
	return out
}

func (d *decoder) tickArray(in tickArrayJSON) *model.TickArrayState {
	a := &model.TickArrayState{
		PoolID:               in.PoolID,
		StartTickIndex:       in.StartTickIndex,
		InitializedTickCount: in.InitializedTickCount,
	}
	for _, tj := range in.Ticks {
		if tj.Offset < 0 || tj.Offset >= model.TickArraySize {
			if d.err == nil {
				d.err = fmt.Errorf("tick offset %d out of range", tj.Offset)
			}
			continue
		}
		t := &a.Ticks[tj.Offset]
		t.Tick = tj.Tick
		t.LiquidityNet = d.u128("liquidity_net", tj.LiquidityNet)
		t.LiquidityGross = d.u128("liquidity_gross", tj.LiquidityGross)
		t.FeeGrowthOutside0X64 = d.u128("fee_growth_outside_0_x64", tj.FeeGrowthOutside0X64)
		t.FeeGrowthOutside1X64 = d.u128("fee_growth_outside_1_x64", tj.FeeGrowthOutside1X64)
		for j, g := range tj.RewardGrowthsOutsideX64 {
			t.RewardGrowthsOutsideX64[j] = d.u128("reward_growths_outside_x64", g)
		}
	}
	return a
}

func encodeBitmapExtension(e *model.TickArrayBitmapExtension) bitmapExtensionJSON {
	return bitmapExtensionJSON{
		PoolID:                  e.PoolID,
		PositiveTickArrayBitmap: e.PositiveTickArrayBitmap,
		NegativeTickArrayBitmap: e.NegativeTickArrayBitmap,
	}
}

func decodeBitmapExtension(in bitmapExtensionJSON) *model.TickArrayBitmapExtension {
	return &model.TickArrayBitmapExtension{
		PoolID:                  in.PoolID,
		PositiveTickArrayBitmap: in.PositiveTickArrayBitmap,
		NegativeTickArrayBitmap: in.NegativeTickArrayBitmap,
	}
}

// MarshalJSON encodes the World in the state file layout.
func (w *World) MarshalJSON() ([]byte, error) {
	out := worldJSON{
		Pools:             make(map[string]poolJSON, len(w.Pools)),
		ProtocolPositions: make(map[string]protocolPositionJSON, len(w.ProtocolPositions)),
		PersonalPositions: make(map[string]personalPositionJSON, len(w.PersonalPositions)),
		TickArrays:        make(map[string]tickArrayJSON, len(w.TickArrays)),
		BitmapExtensions:  make(map[string]bitmapExtensionJSON, len(w.BitmapExtensions)),
		TokenAccounts:     make(map[string]tokenAccountJSON, len(w.TokenAccounts)),
		Mints:             make(map[string]mintJSON, len(w.Mints)),
	}
	for k, v := range w.Pools {
		out.Pools[k] = encodePool(v)
	}
	for k, v := range w.ProtocolPositions {
		out.ProtocolPositions[k] = encodeProtocolPosition(v)
	}
	for k, v := range w.PersonalPositions {
		out.PersonalPositions[k] = encodePersonalPosition(v)
	}
	for k, v := range w.TickArrays {
		out.TickArrays[k] = encodeTickArray(v)
	}
	for k, v := range w.BitmapExtensions {
		out.BitmapExtensions[k] = encodeBitmapExtension(v)
	}
	for k, v := range w.TokenAccounts {
		out.TokenAccounts[k] = tokenAccountJSON{Mint: v.Mint, Owner: v.Owner, Amount: v.Amount}
	}
	for k, v := range w.Mints {
		out.Mints[k] = mintJSON{Decimals: v.Decimals, TransferFee: v.TransferFee}
	}
	return json.MarshalIndent(out, "", "  ")
}

// UnmarshalJSON decodes the state file layout into w.
func (w *World) UnmarshalJSON(data []byte) error {
	var in worldJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*w = *NewWorld()
	d := &decoder{}
	for k, v := range in.Pools {
		w.put(d, k, d.pool(v))
	}
	for k, v := range in.ProtocolPositions {
		w.put(d, k, d.protocolPosition(v))
	}
	for k, v := range in.PersonalPositions {
		w.put(d, k, d.personalPosition(v))
	}
	for k, v := range in.TickArrays {
		w.put(d, k, d.tickArray(v))
	}
	for k, v := range in.BitmapExtensions {
		w.put(d, k, decodeBitmapExtension(v))
	}
	for k, v := range in.TokenAccounts {
		w.put(d, k, &model.TokenAccount{Mint: v.Mint, Owner: v.Owner, Amount: v.Amount})
	}
	for k, v := range in.Mints {
		w.put(d, k, d.mint(k, v))
	}
	return d.err
}

func (w *World) put(d *decoder, key string, account any) {
	addr := d.key(key)
	if d.err != nil {
		return
	}
	if err := w.Put(addr, account); err != nil {
		d.err = err
	}
}

// Documents returns every account as a standalone document, sorted by kind
// and address.
func (w *World) Documents() ([]Document, error) {
	var docs []Document
	add := func(kind, addr string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", kind, addr, err)
		}
		docs = append(docs, Document{Address: addr, Kind: kind, Data: data})
		return nil
	}

	for k, v := range w.Pools {
		if err := add(KindPool, k, encodePool(v)); err != nil {
			return nil, err
		}
	}
	for k, v := range w.ProtocolPositions {
		if err := add(KindProtocolPosition, k, encodeProtocolPosition(v)); err != nil {
			return nil, err
		}
	}
	for k, v := range w.PersonalPositions {
		if err := add(KindPersonalPosition, k, encodePersonalPosition(v)); err != nil {
			return nil, err
		}
	}
	for k, v := range w.TickArrays {
		if err := add(KindTickArray, k, encodeTickArray(v)); err != nil {
			return nil, err
		}
	}
	for k, v := range w.BitmapExtensions {
		if err := add(KindBitmapExtension, k, encodeBitmapExtension(v)); err != nil {
			return nil, err
		}
	}
	for k, v := range w.TokenAccounts {
		if err := add(KindTokenAccount, k, tokenAccountJSON{Mint: v.Mint, Owner: v.Owner, Amount: v.Amount}); err != nil {
			return nil, err
		}
	}
	for k, v := range w.Mints {
		if err := add(KindMint, k, mintJSON{Decimals: v.Decimals, TransferFee: v.TransferFee}); err != nil {
			return nil, err
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Kind != docs[j].Kind {
			return docs[i].Kind < docs[j].Kind
		}
		return docs[i].Address < docs[j].Address
	})
	return docs, nil
}

// FromDocuments rebuilds a World from documents produced by Documents.
func FromDocuments(docs []Document) (*World, error) {
	w := NewWorld()
	d := &decoder{}
	for _, doc := range docs {
		account, err := decodeDocument(d, doc)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", doc.Kind, doc.Address, err)
		}
		w.put(d, doc.Address, account)
		if d.err != nil {
			return nil, fmt.Errorf("%s %s: %w", doc.Kind, doc.Address, d.err)
		}
	}
	return w, nil
}

func decodeDocument(d *decoder, doc Document) (any, error) {
	switch doc.Kind {
	case KindPool:
		var v poolJSON
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, err
		}
		return d.pool(v), nil
	case KindProtocolPosition:
		var v protocolPositionJSON
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, err
		}
		return d.protocolPosition(v), nil
	case KindPersonalPosition:
		var v personalPositionJSON
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, err
		}
		return d.personalPosition(v), nil
	case KindTickArray:
		var v tickArrayJSON
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, err
		}
		return d.tickArray(v), nil
	case KindBitmapExtension:
		var v bitmapExtensionJSON
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, err
		}
		return decodeBitmapExtension(v), nil
	case KindTokenAccount:
		var v tokenAccountJSON
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, err
		}
		return &model.TokenAccount{Mint: v.Mint, Owner: v.Owner, Amount: v.Amount}, nil
	case KindMint:
		var v mintJSON
		if err := json.Unmarshal(doc.Data, &v); err != nil {
			return nil, err
		}
		return d.mint(doc.Address, v), nil
	default:
		return nil, fmt.Errorf("unknown account kind %q", doc.Kind)
	}
}
