package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/ascend/pkg/config"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type blockingServer struct {
	rec  *recorder
	stop chan struct{}
}

func (s *blockingServer) Start(ctx context.Context) error {
	s.rec.add("start")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return nil
	}
}

func (s *blockingServer) Stop() error {
	s.rec.add("stop")
	return nil
}

func TestBaseApp_RunAndShutdown(t *testing.T) {
	rec := &recorder{}
	a := NewBaseApp(WithLogger(logger.NewNoop()), WithName("test"), WithStopTimeout(time.Second))
	a.AppendServer(&blockingServer{rec: rec, stop: make(chan struct{})})
	a.AppendCloser(
		CloserFunc(func() error { rec.add("close-db"); return nil }),
		CloserFunc(func() error { rec.add("close-redis"); return errors.New("ignored") }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.list()) > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.Equal(t, []string{"start", "stop", "close-redis", "close-db"}, rec.list())
	assert.ErrorIs(t, a.Run(context.Background()), ErrAppAlreadyRunning)
	assert.NoError(t, a.Shutdown())
}

func TestBaseApp_ServerExit(t *testing.T) {
	rec := &recorder{}
	srv := &blockingServer{rec: rec, stop: make(chan struct{})}
	a := NewBaseApp(WithLogger(logger.NewNoop()))
	a.AppendServer(srv)

	close(srv.stop)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, rec.list(), "stop")
}

type testConfig struct {
	Name string `mapstructure:"name"`
	Log  struct {
		OutputPath string `mapstructure:"output_path"`
		EnableFile bool   `mapstructure:"enable_file"`
	} `mapstructure:"log"`
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\nlog:\n  output_path: "+filepath.Join(dir, "a.log")+"\n"), 0o644))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	ConfigFlags(fs)
	logPath := filepath.Join(dir, "logs", "b.log")
	require.NoError(t, fs.Parse([]string{"--config", path, "--log.path", logPath}))

	t.Setenv("ASCEND_NAME", "from-env")

	var cfg testConfig
	used, err := LoadConfig(fs, &cfg)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "from-env", cfg.Name)
	assert.Equal(t, logPath, cfg.Log.OutputPath)
	assert.True(t, cfg.Log.EnableFile)
	assert.DirExists(t, filepath.Join(dir, "logs"))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	ConfigFlags(fs)
	require.NoError(t, fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}))

	var cfg testConfig
	_, err := LoadConfig(fs, &cfg)
	assert.ErrorIs(t, err, config.ErrConfigFileNotFound)

	// 默认路径不存在时只使用默认值
	t.Setenv("ASCEND_CONFIG", "")
	t.Chdir(t.TempDir())
	fs2 := pflag.NewFlagSet("test", pflag.ContinueOnError)
	ConfigFlags(fs2)
	used, err := LoadConfig(fs2, &cfg, config.WithDefaults(map[string]any{"name": "default"}))
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, "default", cfg.Name)
}

func TestGetInfo_LdflagsWin(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	t.Cleanup(func() { Version = old })

	info := GetInfo()
	assert.Equal(t, "v9.9.9", info.Version)
	assert.NotEmpty(t, info.GitCommit)
	assert.NotEmpty(t, info.BuildDate)
	assert.Contains(t, info.String(), "ascend v9.9.9")
}

func TestNewBaseApp_ID(t *testing.T) {
	a := NewBaseApp(WithLogger(logger.NewNoop()), WithID("ascend-3"))
	assert.Equal(t, "ascend-3", a.ID())
	assert.NotEmpty(t, NewBaseApp(WithLogger(logger.NewNoop())).ID())
}
