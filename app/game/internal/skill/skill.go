// Package skill 采集技能的产出计算，纯函数，无 IO。
package skill

import (
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/random"
)

// CalculateYield 计算一次采集的产出。
// 工具序号为 t 时解锁前 t+1 种资源：基础资源产出 1+IntN(t+1)，
// 第 i 种资源产出 IntN(t-i+2)，产出为 0 的资源不出现在结果中。
func CalculateYield(src random.Source, sk model.Skill, tier string) (map[string]int64, error) {
	t, ok := sk.TierIndex(tier)
	if !ok {
		return nil, errcode.InvalidInput("unknown %s tool tier %q", sk, tier)
	}

	resources := sk.Resources()
	out := make(map[string]int64, t+1)
	out[resources[0]] = int64(1 + src.IntN(t+1))
	for i := 1; i <= t; i++ {
		if n := src.IntN(t - i + 2); n > 0 {
			out[resources[i]] = int64(n)
		}
	}
	return out, nil
}

// Accumulate 连续采集 rolls 次并合并产出
func Accumulate(src random.Source, sk model.Skill, tier string, rolls int) (map[string]int64, error) {
	total := make(map[string]int64)
	for range rolls {
		y, err := CalculateYield(src, sk, tier)
		if err != nil {
			return nil, err
		}
		for res, n := range y {
			total[res] += n
		}
	}
	return total, nil
}

// UpgradeCost 升级到下一级工具的花费：金币与基础资源
func UpgradeCost(sk model.Skill, tier string) (gold int64, resource string, amount int64, ok bool) {
	t, known := sk.TierIndex(tier)
	if !known {
		return 0, "", 0, false
	}
	if _, hasNext := sk.NextTier(tier); !hasNext {
		return 0, "", 0, false
	}
	return 5000 * int64(t+1), sk.Resources()[0], 50 * int64(t+1), true
}
