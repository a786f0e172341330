package aggregate

import "math/big"

const (
	tvlMethodVaultLatest = "vault_balance_latest"
	tvlMethodNone        = "unavailable"
)

// poolTVL reports the vault balances known for a pool. Balances are those of
// the loaded account set, not of the window being flushed.
func poolTVL(info PoolInfo, ok bool) (tvl0, tvl1 *big.Int, method string) {
	if !ok || (info.Vault0Balance == nil && info.Vault1Balance == nil) {
		return nil, nil, tvlMethodNone
	}
	if info.Vault0Balance != nil {
		tvl0 = new(big.Int).SetUint64(*info.Vault0Balance)
	}
	if info.Vault1Balance != nil {
		tvl1 = new(big.Int).SetUint64(*info.Vault1Balance)
	}
	return tvl0, tvl1, tvlMethodVaultLatest
}
