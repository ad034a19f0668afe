// Package delve 深潜玩法状态机：逐层钻探，承受地层危害，在燃料与稳定度耗尽前撤离。
package delve

import (
	"math"
	"slices"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/random"
)

// Hazard 地层危害
type Hazard string

const (
	HazardSafe   Hazard = "Safe"
	HazardGravel Hazard = "Gravel"
	HazardGas    Hazard = "Gas Pocket"
	HazardMagma  Hazard = "Magma Flow"
)

// State 深潜状态
type State string

const (
	StateActive    State = "active"
	StateCollapsed State = "collapsed"
	StateFueledOut State = "fueled_out"
	StateExtracted State = "extracted"
)

// Terminal 是否已结束
func (s State) Terminal() bool { return s != StateActive }

// Action 玩家操作
type Action string

const (
	ActionDrill     Action = "drill"
	ActionSurvey    Action = "survey"
	ActionReinforce Action = "reinforce"
	ActionExtract   Action = "extract"
)

// Actions 展示顺序
var Actions = []Action{ActionDrill, ActionSurvey, ActionReinforce, ActionExtract}

// ParseAction 解析操作名
func ParseAction(s string) (Action, bool) {
	a := Action(s)
	return a, slices.Contains(Actions, a)
}

// 燃料消耗
const (
	DrillCost     = 1
	SurveyCost    = 2
	ReinforceCost = 5

	MaxStability = 100
	// lookahead 钻探后保证已生成的地层数
	lookahead = 10
)

// Cost 操作的燃料消耗
func (a Action) Cost() int {
	switch a {
	case ActionDrill:
		return DrillCost
	case ActionSurvey:
		return SurveyCost
	case ActionReinforce:
		return ReinforceCost
	}
	return 0
}

var baseDamage = map[Hazard]int{
	HazardSafe:   0,
	HazardGravel: 15,
	HazardGas:    30,
	HazardMagma:  50,
}

var mitigation = map[string]float64{
	"iron":     0.0,
	"steel":    0.1,
	"gold":     0.2,
	"platinum": 0.35,
	"ideal":    0.5,
}

// Mitigation 镐子等级的减伤系数，未知等级不减伤
func Mitigation(pickaxeTier string) float64 {
	return mitigation[pickaxeTier]
}

// Damage 危害对稳定度的伤害：⌊base·(1−m)⌋
func Damage(h Hazard, pickaxeTier string) int {
	return int(math.Floor(float64(baseDamage[h]) * (1 - Mitigation(pickaxeTier))))
}

// GenerateLayer 生成深度 depth 的地层
func GenerateLayer(src random.Source, depth int) Hazard {
	danger := math.Min(0.90, float64(depth)*0.03)
	safe := math.Max(0.1, 0.8-danger)
	if src.Float64() <= safe {
		return HazardSafe
	}
	magma := math.Min(0.6, float64(depth)*0.02)
	v := src.Float64()
	switch {
	case v < magma:
		return HazardMagma
	case v < 0.6:
		return HazardGas
	default:
		return HazardGravel
	}
}

// CheckRewards 到达 depth 时的奖励：每 25 层一个珍奇（50 层起两个），
// 15 层以下按概率获得 1-2 块黑曜石碎片
func CheckRewards(src random.Source, depth int) (curios, shards int) {
	if depth > 0 && depth%25 == 0 {
		curios = 1
		if depth >= 50 {
			curios = 2
		}
	}
	if depth > 15 {
		chance := math.Min(0.30, float64(depth-10)*0.005)
		if random.Chance(src, chance) {
			shards = random.Between(src, 1, 2)
		}
	}
	return curios, shards
}

// SurveyRange 勘测可揭示的层数
func SurveyRange(sensorLevel int) int {
	switch {
	case sensorLevel < 4:
		return 1
	case sensorLevel < 8:
		return 2
	default:
		return 3
	}
}

// ReinforcePower 一次加固恢复的稳定度
func ReinforcePower(structLevel int) int {
	return 15 + 5*(structLevel-1)
}

// MaxFuel 燃料上限
func MaxFuel(fuelLevel int) int {
	return 50 + 10*(fuelLevel-1)
}

// EntryCost 下潜的金币费用
func EntryCost(fuelLevel int) int64 {
	return 1000 + 500*int64(fuelLevel)
}

// UpgradeCost 属性从 level 升级的碎片花费，满级返回 false
func UpgradeCost(level int) (int64, bool) {
	if level >= model.DelveMaxLevel {
		return 0, false
	}
	return 5 * int64(level), true
}

// Run 一次深潜的临时状态，只归属于一个会话
type Run struct {
	Depth       int      `json:"depth"`
	CurrentFuel int      `json:"current_fuel"`
	MaxFuel     int      `json:"max_fuel"`
	Stability   int      `json:"stability"`
	PickaxeTier string   `json:"pickaxe_tier"`
	CuriosFound int      `json:"curios_found"`
	ShardsFound int      `json:"shards_found"`
	Hazards     []Hazard `json:"-"`
	Revealed    []int    `json:"revealed_indices"`
	State       State    `json:"state"`

	SensorLevel int `json:"sensor_level"`
	StructLevel int `json:"struct_level"`
}

// NewRun 以档案与镐子等级开始一次深潜，seed 为预置地层（可为空）
func NewRun(src random.Source, p *model.DelveProfile, pickaxeTier string, seed ...Hazard) *Run {
	r := &Run{
		MaxFuel:     MaxFuel(p.FuelLevel),
		Stability:   MaxStability,
		PickaxeTier: pickaxeTier,
		Hazards:     append([]Hazard(nil), seed...),
		State:       StateActive,
		SensorLevel: p.SensorLevel,
		StructLevel: p.StructLevel,
	}
	r.CurrentFuel = r.MaxFuel
	r.extend(src)
	return r
}

// extend 补齐地层直到 len ≥ depth+lookahead
func (r *Run) extend(src random.Source) {
	for len(r.Hazards) < r.Depth+lookahead {
		r.Hazards = append(r.Hazards, GenerateLayer(src, len(r.Hazards)+1))
	}
}

// Allowed 当前是否可执行该操作
func (r *Run) Allowed(a Action) bool {
	if r.State.Terminal() {
		return false
	}
	switch a {
	case ActionReinforce:
		return r.Stability < MaxStability && r.CurrentFuel >= ReinforceCost
	case ActionExtract:
		return r.Depth > 0
	default:
		return r.CurrentFuel >= a.Cost()
	}
}

// Step 一次操作的结果
type Step struct {
	Action Action `json:"action"`
	Hazard Hazard `json:"hazard,omitempty"`
	Damage int    `json:"damage,omitempty"`
	Curios int    `json:"curios,omitempty"`
	Shards int    `json:"shards,omitempty"`
	// Revealed 勘测揭示的层：深度 → 危害
	Revealed map[int]Hazard `json:"revealed,omitempty"`
	Restored int            `json:"restored,omitempty"`
	State    State          `json:"state"`
}

// Apply 执行一次操作
func (r *Run) Apply(src random.Source, a Action) (Step, error) {
	if r.State.Terminal() {
		return Step{}, errcode.InvalidInput("the delve has already ended")
	}
	if !r.Allowed(a) {
		return Step{}, errcode.InvalidInput("%s is not available right now", a)
	}

	step := Step{Action: a}
	switch a {
	case ActionDrill:
		r.CurrentFuel -= DrillCost
		r.Depth++
		r.extend(src)
		step.Hazard = r.Hazards[r.Depth-1]
		step.Damage = Damage(step.Hazard, r.PickaxeTier)
		r.Stability = max(0, r.Stability-step.Damage)
		step.Curios, step.Shards = CheckRewards(src, r.Depth)
		r.CuriosFound += step.Curios
		r.ShardsFound += step.Shards

	case ActionSurvey:
		r.CurrentFuel -= SurveyCost
		n := SurveyRange(r.SensorLevel)
		for len(r.Hazards) < r.Depth+n {
			r.Hazards = append(r.Hazards, GenerateLayer(src, len(r.Hazards)+1))
		}
		step.Revealed = make(map[int]Hazard, n)
		for i := r.Depth; i < r.Depth+n; i++ {
			step.Revealed[i+1] = r.Hazards[i]
			if !slices.Contains(r.Revealed, i) {
				r.Revealed = append(r.Revealed, i)
			}
		}

	case ActionReinforce:
		r.CurrentFuel -= ReinforceCost
		before := r.Stability
		r.Stability = min(MaxStability, r.Stability+ReinforcePower(r.StructLevel))
		step.Restored = r.Stability - before

	case ActionExtract:
		r.State = StateExtracted
		step.State = r.State
		return step, nil
	}

	// 坍塌优先于燃料耗尽
	switch {
	case r.Stability <= 0:
		r.State = StateCollapsed
	case r.CurrentFuel <= 0:
		r.State = StateFueledOut
	}
	if r.State == StateCollapsed || r.State == StateFueledOut {
		r.CuriosFound, r.ShardsFound = 0, 0
	}
	step.State = r.State
	return step, nil
}

// IsRevealed 深度 depth 的地层是否已勘测
func (r *Run) IsRevealed(depth int) bool {
	return slices.Contains(r.Revealed, depth-1)
}

// Payout 撤离时结算的奖励
type Payout struct {
	Curios int64 `json:"curios"`
	Shards int64 `json:"shards"`
	XP     int64 `json:"xp"`
}

// Payout 只有撤离成功才有奖励
func (r *Run) Payout() Payout {
	if r.State != StateExtracted {
		return Payout{}
	}
	return Payout{Curios: int64(r.CuriosFound), Shards: int64(r.ShardsFound), XP: int64(r.Depth)}
}
