package gameconfig

import (
	"testing"
	"testing/fstest"

	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_CSV(t *testing.T) {
	fsys := fstest.MapFS{
		"monsters.csv": {Data: []byte("Name, Level\n# comment\nGoblin, 3\nOrc,12\n")},
	}
	l, err := NewLoader(fsys, logger.NewNoop())
	require.NoError(t, err)

	recs, err := l.CSV("monsters.csv", nil)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, Record{"name": "Goblin", "level": "3"}, recs[0])
	assert.Equal(t, "12", recs[1]["level"])
}

func TestLoader_Fallback(t *testing.T) {
	l, err := NewLoader(fstest.MapFS{}, logger.NewNoop())
	require.NoError(t, err)

	recs, err := l.CSV("curios.csv", []byte("reward,weight\n10k Gold,20\n"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "20", recs[0]["weight"])

	var names struct {
		Weapon []string `yaml:"weapon"`
	}
	require.NoError(t, l.YAML("names.yaml", &names, []byte("weapon: [Sword, Axe]\n")))
	assert.Equal(t, []string{"Sword", "Axe"}, names.Weapon)

	noFS, err := NewLoader(nil, logger.NewNoop())
	require.NoError(t, err)
	recs, err = noFS.CSV("x.csv", []byte("a\n1\n"))
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = NewLoader(nil, nil)
	assert.Error(t, err)
}

func TestParseCSV(t *testing.T) {
	recs, err := ParseCSV(nil)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = ParseCSV([]byte("a,b\n\"unterminated\n"))
	assert.Error(t, err)

	// 缺列时只填已有字段
	recs, err = ParseCSV([]byte("a,b\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, Record{"a": "1"}, recs[0])
}
