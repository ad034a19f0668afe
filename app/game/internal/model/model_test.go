package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnlockedSlots(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 19: 1, 20: 2, 39: 2, 40: 3, 59: 3, 60: 4, 79: 4, 80: 5, 110: 5}
	for level, want := range cases {
		assert.Equal(t, want, UnlockedSlots(level), "level %d", level)
	}
}

func TestParseItemKind(t *testing.T) {
	tests := []struct {
		in   string
		want ItemKind
		ok   bool
	}{
		{"Weapon", KindWeapon, true},
		{"Gloves", KindGlove, true},
		{"Boots", KindBoot, true},
		{"Helmet", KindHelmet, true},
		{"accessories", KindAccessory, true},
		{"shield", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseItemKind(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "accessories", KindAccessory.Table())
	assert.Equal(t, "gloves", KindGlove.Table())
}

func TestSkillTiers(t *testing.T) {
	idx, ok := SkillMining.TierIndex("platinum")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	next, ok := SkillFishing.NextTier("desiccated")
	assert.True(t, ok)
	assert.Equal(t, "regular", next)

	_, ok = SkillWoodcutting.NextTier("felling")
	assert.False(t, ok)

	assert.True(t, SkillMining.IsResource("coal"))
	assert.False(t, SkillMining.IsResource("gold; DROP TABLE users"))

	sk, ok := SkillForResource("magic_logs")
	assert.True(t, ok)
	assert.Equal(t, SkillWoodcutting, sk)
}

func TestItemStats(t *testing.T) {
	it := &Item{}
	it.AddStat(StatWard, 3)
	it.AddStat(StatAttack, 5)

	assert.Equal(t, []StatValue{{StatAttack, 5}, {StatWard, 3}}, it.Stats())
}

func TestViewClose(t *testing.T) {
	v := NewView("t", "d").Option("Drill", IntentDelveAction, map[string]string{"action": "drill"})
	assert.True(t, v.HasOption(IntentDelveAction))

	v.Close()
	assert.True(t, v.Closed)
	assert.False(t, v.HasOption(IntentDelveAction))
}
