// Package slayer 猎杀玩法：任务分配、击杀掉落与纹章槽位的觉醒、升级、重铸。
package slayer

import (
	"slices"
	"sort"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
	"github.com/lk2023060901/ascend/pkg/random"
)

const (
	// MaxMonsterLevel 图鉴最高等级
	MaxMonsterLevel = 110
	// SkipCost 跳过任务花费的猎杀点数
	SkipCost = 15

	minTaskAmount = 5
	maxTaskAmount = 50
)

// XPForLevel 从 level 升到下一级所需经验
func XPForLevel(level int) int64 {
	return int64(level) * 1000
}

// LevelFromXP 累计经验换算等级，逐级扣减阈值
func LevelFromXP(xp int64) int {
	level := 1
	for xp >= XPForLevel(level) {
		xp -= XPForLevel(level)
		level++
	}
	return level
}

// TaskBand 任务怪物的等级区间
func TaskBand(playerLevel int) (lo, hi int) {
	return max(1, playerLevel-20), min(MaxMonsterLevel, playerLevel+10)
}

// Task 分配的任务
type Task struct {
	Species string
	Amount  int
}

// AssignTask 从等级区间内的怪物中均匀选取一个物种，数量按该物种占比换算
func AssignTask(src random.Source, catalog []tables.Monster, playerLevel int) (Task, error) {
	lo, hi := TaskBand(playerLevel)

	freq := make(map[string]int)
	total := 0
	for _, m := range catalog {
		if m.Level >= lo && m.Level <= hi {
			freq[m.Species]++
			total++
		}
	}
	if total == 0 {
		return Task{}, errcode.InvalidInput("no monsters between level %d and %d", lo, hi)
	}

	species := make([]string, 0, len(freq))
	for s := range freq {
		species = append(species, s)
	}
	sort.Strings(species)

	pick := random.Choice(src, species)
	amount := 50 * freq[pick] / total
	amount = min(max(amount, minTaskAmount), maxTaskAmount)
	return Task{Species: pick, Amount: amount}, nil
}

// CompletionReward 完成任务的经验与点数
func CompletionReward(amount int) (xp, points int64) {
	return 50 * int64(amount), int64(amount)
}

// RollDrops 击杀一只怪物的材料掉落，两者独立判定
func RollDrops(src random.Source, monsterLevel int) (essence, heart int64) {
	if random.Chance(src, 0.10+0.001*float64(monsterLevel)) {
		essence = 1
	}
	if random.Chance(src, 0.01+0.0001*float64(monsterLevel)) {
		heart = 1
	}
	return essence, heart
}

// HuntResult 一次狩猎的结果
type HuntResult struct {
	Kills     []tables.Monster
	Essence   int64
	Hearts    int64
	Completed bool
	XP        int64
	Points    int64
}

// Hunt 为当前任务击杀 kills 只怪物，直接修改 profile
func Hunt(src random.Source, p *model.SlayerProfile, catalog []tables.Monster, kills int) (HuntResult, error) {
	if !p.HasTask() {
		return HuntResult{}, errcode.InvalidInput("you have no active slayer task")
	}
	if kills <= 0 {
		return HuntResult{}, errcode.InvalidInput("kill count must be positive")
	}

	var pool []tables.Monster
	for _, m := range catalog {
		if m.Species == p.TaskSpecies {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		return HuntResult{}, errcode.InvalidInput("no %s left to hunt", p.TaskSpecies)
	}

	kills = min(kills, p.TaskAmount-p.TaskProgress)
	var res HuntResult
	for range kills {
		m := random.Choice(src, pool)
		e, h := RollDrops(src, m.Level)
		res.Kills = append(res.Kills, m)
		res.Essence += e
		res.Hearts += h
	}

	p.TaskProgress += kills
	p.ViolentEssence += res.Essence
	p.ImbuedHeart += res.Hearts

	if p.TaskProgress >= p.TaskAmount {
		res.Completed = true
		res.XP, res.Points = CompletionReward(p.TaskAmount)
		p.XP += res.XP
		p.Points += res.Points
		p.Level = LevelFromXP(p.XP)
		p.TaskSpecies, p.TaskAmount, p.TaskProgress = "", 0, 0
	}
	return res, nil
}

// SlotOp 纹章槽位操作
type SlotOp string

const (
	OpAwaken  SlotOp = "awaken"
	OpUpgrade SlotOp = "upgrade"
	OpReroll  SlotOp = "reroll"
)

// ParseSlotOp 解析槽位操作
func ParseSlotOp(s string) (SlotOp, bool) {
	op := SlotOp(s)
	switch op {
	case OpAwaken, OpUpgrade, OpReroll:
		return op, true
	}
	return "", false
}

// Material 操作消耗的材料，每次 1 个
func (op SlotOp) Material() model.SlayerMaterial {
	if op == OpReroll {
		return model.MaterialHeart
	}
	return model.MaterialEssence
}

// Check 校验槽位操作的前置条件，不消耗随机数
func Check(e *model.Emblem, level, n int, op SlotOp) error {
	slot, ok := e.Slot(n)
	if !ok {
		return errcode.InvalidInput("slot %d does not exist", n)
	}
	if n > model.UnlockedSlots(level) {
		return errcode.InvalidInput("slot %d is locked until a higher slayer level", n)
	}
	switch op {
	case OpAwaken:
		if !slot.Empty() {
			return errcode.InvalidInput("slot %d is already awakened", n)
		}
	case OpUpgrade:
		if slot.Empty() {
			return errcode.InvalidInput("slot %d must be awakened first", n)
		}
		if slot.Tier >= model.EmblemMaxTier {
			return errcode.InvalidInput("slot %d is already at max tier", n)
		}
	case OpReroll:
		if slot.Empty() {
			return errcode.InvalidInput("slot %d must be awakened first", n)
		}
	default:
		return errcode.InvalidInput("unknown slot operation %q", op)
	}
	return nil
}

// Outcome 槽位操作的结果
type Outcome struct {
	Op         SlotOp           `json:"op"`
	Before     model.EmblemSlot `json:"before"`
	After      model.EmblemSlot `json:"after"`
	Success    bool             `json:"success"`
	Downgraded bool             `json:"downgraded"`
}

// Apply 执行槽位操作并修改纹章，调用前须已通过 Check 并扣除材料
func Apply(src random.Source, e *model.Emblem, level, n int, op SlotOp) (Outcome, error) {
	if err := Check(e, level, n, op); err != nil {
		return Outcome{}, err
	}

	slot := &e.Slots[n-1]
	out := Outcome{Op: op, Before: *slot}

	switch op {
	case OpAwaken:
		slot.Type = random.Choice(src, model.PassivePool)
		slot.Tier = 1
		out.Success = true

	case OpUpgrade:
		if random.Chance(src, UpgradeChance(slot.Tier)) {
			slot.Tier++
			out.Success = true
		} else if random.Chance(src, DowngradeChance(slot.Tier)) {
			slot.Tier = max(1, slot.Tier-1)
			out.Downgraded = true
		}

	case OpReroll:
		others := slices.DeleteFunc(slices.Clone(model.PassivePool), func(p string) bool {
			return p == slot.Type
		})
		slot.Type = random.Choice(src, others)
		out.Success = true
	}

	out.After = *slot
	return out, nil
}

// UpgradeChance 升级成功率 1−0.2·tier
func UpgradeChance(tier int) float64 {
	return 1 - 0.20*float64(tier)
}

// DowngradeChance 升级失败后的降级率 0.2·(tier−1)
func DowngradeChance(tier int) float64 {
	return 0.20 * float64(tier-1)
}
