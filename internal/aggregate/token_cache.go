package aggregate

import (
	"sync"

	"clmmLedger/internal/ledger"
)

// PoolInfo is what the aggregator needs to know about a pool beyond its
// events.
type PoolInfo struct {
	Decimals0 uint8
	Decimals1 uint8
	// Vault balances at the time the info was captured, nil if the vault
	// account was unknown.
	Vault0Balance *uint64
	Vault1Balance *uint64
}

// PoolInfoCache caches pool info by base58 pool address.
type PoolInfoCache struct {
	mu   sync.RWMutex
	data map[string]PoolInfo
}

func NewPoolInfoCache() *PoolInfoCache {
	return &PoolInfoCache{data: make(map[string]PoolInfo)}
}

func (c *PoolInfoCache) Get(pool string) (PoolInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.data[pool]
	return info, ok
}

func (c *PoolInfoCache) Set(pool string, info PoolInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[pool] = info
}

// LoadPoolInfo captures decimals and vault balances of every pool in w.
func LoadPoolInfo(w *ledger.World) *PoolInfoCache {
	cache := NewPoolInfoCache()
	if w == nil {
		return cache
	}
	for key, pool := range w.Pools {
		info := PoolInfo{Decimals0: pool.MintDecimals0, Decimals1: pool.MintDecimals1}
		if v, ok := w.TokenAccounts[pool.TokenVault0.String()]; ok {
			amount := v.Amount
			info.Vault0Balance = &amount
		}
		if v, ok := w.TokenAccounts[pool.TokenVault1.String()]; ok {
			amount := v.Amount
			info.Vault1Balance = &amount
		}
		cache.Set(key, info)
	}
	return cache
}
