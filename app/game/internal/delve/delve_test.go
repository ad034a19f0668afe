package delve

import (
	"testing"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseProfile() *model.DelveProfile {
	return model.NewDelveProfile("u1", "s1")
}

func TestRun_Collapse(t *testing.T) {
	src := random.New(11)
	r := NewRun(src, baseProfile(), "iron", HazardSafe, HazardMagma, HazardMagma, HazardMagma)
	require.Equal(t, 50, r.CurrentFuel)

	step, err := r.Apply(src, ActionDrill)
	require.NoError(t, err)
	assert.Equal(t, HazardSafe, step.Hazard)
	assert.Equal(t, 100, r.Stability)

	_, err = r.Apply(src, ActionDrill)
	require.NoError(t, err)
	assert.Equal(t, 50, r.Stability)

	step, err = r.Apply(src, ActionDrill)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Stability)
	assert.Equal(t, StateCollapsed, step.State)
	assert.Equal(t, Payout{}, r.Payout())

	_, err = r.Apply(src, ActionDrill)
	assert.Equal(t, errcode.KindInvalidInput, errcode.KindOf(err))
}

func TestRun_Extract(t *testing.T) {
	src := random.New(3)
	seed := make([]Hazard, 10)
	for i := range seed {
		seed[i] = HazardSafe
	}
	r := NewRun(src, baseProfile(), "iron", seed...)

	assert.False(t, r.Allowed(ActionExtract), "extract is disabled at depth 0")
	for range 5 {
		_, err := r.Apply(src, ActionDrill)
		require.NoError(t, err)
	}
	step, err := r.Apply(src, ActionExtract)
	require.NoError(t, err)

	assert.Equal(t, StateExtracted, step.State)
	assert.Equal(t, 5, r.Depth)
	assert.Equal(t, Payout{Curios: 0, Shards: 0, XP: 5}, r.Payout())
}

func TestRun_FuelOut(t *testing.T) {
	src := random.New(5)
	p := baseProfile()
	r := NewRun(src, p, "ideal", HazardSafe)
	r.CurrentFuel = 2
	r.CuriosFound = 3

	prev := r.CurrentFuel
	step, err := r.Apply(src, ActionSurvey)
	require.NoError(t, err)
	assert.Less(t, r.CurrentFuel, prev)
	assert.Equal(t, StateFueledOut, step.State)
	assert.Zero(t, r.CuriosFound)
}

func TestRun_CollapseBeatsFuelOut(t *testing.T) {
	src := random.New(5)
	r := NewRun(src, baseProfile(), "iron", HazardMagma)
	r.CurrentFuel = 1
	r.Stability = 40

	step, err := r.Apply(src, ActionDrill)
	require.NoError(t, err)
	assert.Equal(t, StateCollapsed, step.State)
}

func TestRun_Reinforce(t *testing.T) {
	src := random.New(1)
	p := baseProfile()
	p.StructLevel = 3
	r := NewRun(src, p, "iron", HazardGas)

	assert.False(t, r.Allowed(ActionReinforce), "disabled at full stability")
	_, err := r.Apply(src, ActionReinforce)
	assert.Error(t, err)

	_, err = r.Apply(src, ActionDrill)
	require.NoError(t, err)
	require.Equal(t, 70, r.Stability)

	step, err := r.Apply(src, ActionReinforce)
	require.NoError(t, err)
	assert.Equal(t, 25, step.Restored)
	assert.Equal(t, 95, r.Stability)

	step, err = r.Apply(src, ActionReinforce)
	require.NoError(t, err)
	assert.Equal(t, 5, step.Restored)
	assert.Equal(t, MaxStability, r.Stability)
	assert.Equal(t, 50-1-5-5, r.CurrentFuel)
}

func TestRun_Survey(t *testing.T) {
	src := random.New(2)
	p := baseProfile()
	p.SensorLevel = 8
	r := NewRun(src, p, "iron", HazardSafe, HazardGravel, HazardGas)

	step, err := r.Apply(src, ActionSurvey)
	require.NoError(t, err)
	assert.Equal(t, map[int]Hazard{1: HazardSafe, 2: HazardGravel, 3: HazardGas}, step.Revealed)
	assert.True(t, r.IsRevealed(3))
	assert.False(t, r.IsRevealed(4))
	assert.Equal(t, 0, r.Depth)
	assert.Equal(t, 48, r.CurrentFuel)
}

func TestRun_Invariants(t *testing.T) {
	src := random.New(99)
	for range 50 {
		r := NewRun(src, baseProfile(), "steel")
		for !r.State.Terminal() {
			var a Action
			switch {
			case r.Allowed(ActionReinforce) && r.Stability < 40:
				a = ActionReinforce
			case r.Allowed(ActionSurvey) && src.IntN(4) == 0:
				a = ActionSurvey
			default:
				a = ActionDrill
			}
			fuel, depth := r.CurrentFuel, r.Depth
			_, err := r.Apply(src, a)
			require.NoError(t, err)

			assert.Less(t, r.CurrentFuel, fuel)
			assert.LessOrEqual(t, r.Stability, MaxStability)
			assert.GreaterOrEqual(t, r.Stability, 0)
			if a == ActionDrill {
				assert.Equal(t, depth+1, r.Depth)
			} else {
				assert.Equal(t, depth, r.Depth)
			}
			assert.GreaterOrEqual(t, len(r.Hazards), r.Depth+lookahead)
		}
	}
}

func TestGenerateLayer_DepthZero(t *testing.T) {
	assert.Equal(t, HazardSafe, GenerateLayer(random.NewScripted().Floats(0.8), 0))
	assert.Equal(t, HazardGravel, GenerateLayer(random.NewScripted().Floats(0.81, 0.7), 0))
	// 深度 0 时熔岩概率为 0
	assert.Equal(t, HazardGas, GenerateLayer(random.NewScripted().Floats(0.9, 0.0), 0))

	src := random.New(123)
	safe := 0
	const n = 20000
	for range n {
		if GenerateLayer(src, 0) == HazardSafe {
			safe++
		}
	}
	assert.InDelta(t, 0.8, float64(safe)/n, 0.02)
}

func TestGenerateLayer_Deep(t *testing.T) {
	// depth 30：safe=0.1，magma=0.6
	assert.Equal(t, HazardMagma, GenerateLayer(random.NewScripted().Floats(0.5, 0.59), 30))
	assert.Equal(t, HazardGravel, GenerateLayer(random.NewScripted().Floats(0.5, 0.6), 30))
}

func TestDamage(t *testing.T) {
	assert.Equal(t, 50, Damage(HazardMagma, "iron"))
	assert.Equal(t, 45, Damage(HazardMagma, "steel"))
	assert.Equal(t, 19, Damage(HazardGas, "platinum"))
	assert.Equal(t, 7, Damage(HazardGravel, "ideal"))
	assert.Equal(t, 0, Damage(HazardSafe, "iron"))
}

func TestCheckRewards(t *testing.T) {
	c, s := CheckRewards(random.New(1), 10)
	assert.Zero(t, c)
	assert.Zero(t, s)

	c, _ = CheckRewards(random.NewScripted().Floats(0.99), 25)
	assert.Equal(t, 1, c)

	c, s = CheckRewards(random.NewScripted().Floats(0.0).Ints(1), 50)
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, s)
}

func TestConstants(t *testing.T) {
	assert.Equal(t, []int{1, 1, 1, 2, 2, 2, 2, 3, 3, 3}, []int{
		SurveyRange(1), SurveyRange(2), SurveyRange(3), SurveyRange(4), SurveyRange(5),
		SurveyRange(6), SurveyRange(7), SurveyRange(8), SurveyRange(9), SurveyRange(10),
	})
	assert.Equal(t, 15, ReinforcePower(1))
	assert.Equal(t, 60, ReinforcePower(10))
	assert.Equal(t, 140, MaxFuel(10))
	assert.Equal(t, int64(1500), EntryCost(1))

	cost, ok := UpgradeCost(9)
	assert.True(t, ok)
	assert.Equal(t, int64(45), cost)
	_, ok = UpgradeCost(10)
	assert.False(t, ok)
}
