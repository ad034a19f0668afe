package skill

import (
	"testing"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateYield_LowestTierOnlyBase(t *testing.T) {
	src := random.New(1)
	for range 200 {
		y, err := CalculateYield(src, model.SkillMining, "iron")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"iron": 1}, y)
	}
}

func TestCalculateYield_TierGatesResources(t *testing.T) {
	src := random.New(7)
	for range 500 {
		y, err := CalculateYield(src, model.SkillFishing, "sturdy")
		require.NoError(t, err)
		for res, n := range y {
			assert.Contains(t, []string{"desiccated_bones", "regular_bones", "sturdy_bones"}, res)
			assert.Positive(t, n)
		}
		assert.GreaterOrEqual(t, y["desiccated_bones"], int64(1))
		assert.LessOrEqual(t, y["desiccated_bones"], int64(3))
		assert.LessOrEqual(t, y["sturdy_bones"], int64(1))
	}
}

func TestCalculateYield_Scripted(t *testing.T) {
	// ideal: t=4，base=1+IntN(5)，coal IntN(5)，gold IntN(4)，platinum IntN(3)，idea IntN(2)
	src := random.NewScripted().Ints(4, 4, 0, 2, 1)
	y, err := CalculateYield(src, model.SkillMining, "ideal")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"iron": 5, "coal": 4, "platinum": 2, "idea": 1}, y)
}

func TestCalculateYield_UnknownTier(t *testing.T) {
	_, err := CalculateYield(random.New(1), model.SkillWoodcutting, "iron")
	assert.Equal(t, errcode.KindInvalidInput, errcode.KindOf(err))
}

func TestAccumulate(t *testing.T) {
	total, err := Accumulate(random.New(3), model.SkillWoodcutting, "flimsy", 25)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"oak_logs": 25}, total)
}

func TestUpgradeCost(t *testing.T) {
	gold, res, amount, ok := UpgradeCost(model.SkillMining, "steel")
	require.True(t, ok)
	assert.Equal(t, int64(10000), gold)
	assert.Equal(t, "iron", res)
	assert.Equal(t, int64(100), amount)

	_, _, _, ok = UpgradeCost(model.SkillMining, "ideal")
	assert.False(t, ok)
}
