package tables

import (
	"testing"
	"testing/fstest"

	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/gameconfig"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	tb := Defaults()

	assert.Len(t, tb.Curios, 16)
	assert.NotEmpty(t, tb.Monsters)
	assert.Len(t, tb.PortraitsFor("Male"), 5)
	for _, kind := range model.ItemKinds {
		assert.NotEmpty(t, tb.Names[kind].Bases, kind)
	}

	low := tb.MonstersBetween(1, 11)
	require.NotEmpty(t, low)
	for _, m := range low {
		assert.LessOrEqual(t, m.Level, 11)
	}
	high := tb.MonstersBetween(90, 110)
	require.NotEmpty(t, high)
}

func TestLoad_OverridesFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		CuriosFile:   {Data: []byte("reward,weight\n10k Gold,1\n")},
		MonstersFile: {Data: []byte("name,species,level\nSlime,Slime,1\n")},
	}
	loader, err := gameconfig.NewLoader(fsys, logger.NewNoop())
	require.NoError(t, err)

	tb, err := Load(loader)
	require.NoError(t, err)
	assert.Equal(t, []CurioReward{{Reward: "10k Gold", Weight: 1}}, tb.Curios)
	assert.Equal(t, []Monster{{Name: "Slime", Species: "slime", Level: 1}}, tb.Monsters)
	// 未提供的表回退到内置默认
	assert.NotEmpty(t, tb.Portraits)
}

func TestLoad_Rejects(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"bad level":    {MonstersFile: {Data: []byte("name,species,level\nSlime,slime,x\n")}},
		"bad weight":   {CuriosFile: {Data: []byte("reward,weight\nOre,-1\n")}},
		"unknown kind": {NamesFile: {Data: []byte("shield:\n  prefixes: [a]\n  bases: [b]\n  suffixes: [c]\n")}},
	}
	for name, fsys := range tests {
		t.Run(name, func(t *testing.T) {
			loader, err := gameconfig.NewLoader(fsys, logger.NewNoop())
			require.NoError(t, err)
			_, err = Load(loader)
			assert.Error(t, err)
		})
	}
}
