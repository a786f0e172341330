package increase

import (
	"github.com/gagliardetto/solana-go"

	"clmmLedger/internal/model"
)

// IncreaseLiquidityV1 increases liquidity on a pool whose vaults hold legacy
// SPL tokens.
func (in *Increaser) IncreaseLiquidityV1(accts *Accounts, params Params) (model.IncreaseLiquidityEvent, error) {
	return in.run(accts, model.LegacyToken{}, params)
}

// IncreaseLiquidityV2 increases liquidity on a pool whose vaults may hold
// Token-2022 tokens. vault0Mint and vault1Mint supply transfer fee settings.
func (in *Increaser) IncreaseLiquidityV2(accts *Accounts, tokenProgram2022 solana.PublicKey, vault0Mint, vault1Mint *model.Mint, params Params) (model.IncreaseLiquidityEvent, error) {
	return in.run(accts, model.Token2022{
		Program:    tokenProgram2022,
		Vault0Mint: vault0Mint,
		Vault1Mint: vault1Mint,
	}, params)
}

func (in *Increaser) run(accts *Accounts, standard model.TokenStandard, params Params) (model.IncreaseLiquidityEvent, error) {
	if err := accts.Validate(in.programID, standard); err != nil {
		return model.IncreaseLiquidityEvent{}, err
	}
	return in.Increase(accts, standard, params)
}
