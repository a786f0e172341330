package liquidity

import (
	"fmt"

	"lukechampine.com/uint128"

	"clmmLedger/internal/errcode"
	"clmmLedger/internal/fixedpoint"
	"clmmLedger/internal/model"
)

// UpdateRewardInfos advances every initialized reward stream of pool to now,
// growing RewardGrowthGlobalX64 by the emissions since its last update spread
// over the active liquidity.
func UpdateRewardInfos(pool *model.PoolState, now uint64) error {
	for i := range pool.RewardInfos {
		info := &pool.RewardInfos[i]
		if !info.Initialized() || now <= info.OpenTime {
			continue
		}
		latest := now
		if info.EndTime < latest {
			latest = info.EndTime
		}
		if latest < info.LastUpdateTime {
			return fmt.Errorf("reward %d: update at %d before last update %d: %w", i, latest, info.LastUpdateTime, errcode.ErrInvalidTimestamp)
		}

		if !pool.Liquidity.IsZero() && info.OpenTime < latest && latest != info.LastUpdateTime {
			elapsed := uint128.From64(latest - info.LastUpdateTime)
			growthDelta, err := fixedpoint.MulDivFloor(elapsed, info.EmissionsPerSecondX64, pool.Liquidity)
			if err != nil {
				return fmt.Errorf("reward %d growth: %w", i, err)
			}
			growth, err := fixedpoint.CheckedAdd128(info.RewardGrowthGlobalX64, growthDelta)
			if err != nil {
				return fmt.Errorf("reward %d growth: %w", i, err)
			}
			emitted, err := fixedpoint.MulDivCeil(elapsed, info.EmissionsPerSecondX64, fixedpoint.Q64)
			if err != nil {
				return fmt.Errorf("reward %d emissions: %w", i, err)
			}
			emitted64, err := fixedpoint.ToUint64(emitted)
			if err != nil {
				return fmt.Errorf("reward %d emissions: %w", i, err)
			}
			total, err := fixedpoint.CheckedAdd64(info.RewardTotalEmissioned, emitted64)
			if err != nil {
				return fmt.Errorf("reward %d emissions: %w", i, err)
			}
			info.RewardGrowthGlobalX64 = growth
			info.RewardTotalEmissioned = total
		}
		info.LastUpdateTime = latest
	}
	return nil
}
