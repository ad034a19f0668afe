package loot

import (
	"math"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/random"
)

// EnhanceChance 强化成功率随潜能等级递减，最低 10%
func EnhanceChance(potentialLevel int) float64 {
	return math.Max(0.1, 0.9-0.08*float64(potentialLevel))
}

// Enhance 消耗一次潜能尝试强化。成功时首次获得被动，之后提升潜能等级；
// 无论成败剩余潜能减一。
func Enhance(src random.Source, item *model.Item) (bool, error) {
	if item.PotentialRemaining <= 0 {
		return false, errcode.InvalidInput("%s has no potential left", item.Name)
	}

	success := random.Chance(src, EnhanceChance(item.PotentialLevel))
	if success {
		if item.Passive == "" || item.Passive == model.PassiveNone {
			item.Passive = random.Choice(src, model.ItemPassives[item.Kind])
		} else {
			item.PotentialLevel++
		}
	}
	item.PotentialRemaining--
	return success, nil
}
