package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileConfig struct {
	Database struct {
		Driver string `mapstructure:"driver"`
		SQLite struct {
			Path string `mapstructure:"path"`
		} `mapstructure:"sqlite"`
	} `mapstructure:"database"`
	Game struct {
		DuelTimeout time.Duration `mapstructure:"duel_timeout"`
		Channels    []string      `mapstructure:"channels"`
	} `mapstructure:"game"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestManager_LoadAndUnmarshal(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  sqlite:
    path: data/ascend.db
game:
  duel_timeout: 3m
  channels: general,events
`)

	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(path))

	var cfg fileConfig
	require.NoError(t, mgr.Unmarshal(&cfg))

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/ascend.db", cfg.Database.SQLite.Path)
	assert.Equal(t, 3*time.Minute, cfg.Game.DuelTimeout)
	assert.Equal(t, []string{"general", "events"}, cfg.Game.Channels)
	assert.True(t, mgr.IsSet("database.sqlite.path"))
}

func TestManager_EnvOverride(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n")
	t.Setenv("ASCENDTEST_DATABASE_DRIVER", "postgres")

	mgr := NewManager(WithEnvPrefix("ASCENDTEST"))
	require.NoError(t, mgr.LoadFile(path))

	assert.Equal(t, "postgres", mgr.GetString("database.driver"))
}

func TestManager_Defaults(t *testing.T) {
	path := writeConfig(t, "database:\n  driver: sqlite\n")

	mgr := NewManager(WithDefaults(map[string]any{"game.duel_timeout": "180s"}))
	require.NoError(t, mgr.LoadFile(path))

	var cfg fileConfig
	require.NoError(t, mgr.UnmarshalKey("game", &cfg.Game))
	assert.Equal(t, 180*time.Second, cfg.Game.DuelTimeout)
}

func TestManager_MissingFile(t *testing.T) {
	err := NewManager().LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}
