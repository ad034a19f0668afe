package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level Level) (*BaseLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(&Config{Level: level, Format: JSONFormat}, WithWriter(&buf))
	require.NoError(t, err)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

// TestNew 测试创建 Logger
func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config uses default", config: nil},
		{name: "json console", config: &Config{Level: InfoLevel, Format: JSONFormat, EnableConsole: true}},
		{name: "file enabled without path", config: &Config{EnableFile: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOutputPath)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	l, buf := newBufferLogger(t, WarnLevel)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown", "user_id", "u1")
	l.Error("failed", "error", errors.New("boom"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, "u1", lines[0]["user_id"])
	assert.Equal(t, "boom", lines[1]["error"])
}

func TestLogger_NamedAndFields(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	l.Named("service").Named("curio").WithFields("server_id", "s1").Info("opened", "amount", 3)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "service.curio", lines[0]["logger"])
	assert.Equal(t, "s1", lines[0]["server_id"])
	assert.EqualValues(t, 3, lines[0]["amount"])
}

func TestLogger_ContextFields(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	ctx := WithRequest(context.Background(), "u1", "s1", "bulk_curios")
	l.InfoContext(ctx, "intent handled")
	l.InfoContext(context.Background(), "no request")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "u1", lines[0]["user_id"])
	assert.Equal(t, "s1", lines[0]["server_id"])
	assert.Equal(t, "bulk_curios", lines[0]["intent"])
	assert.NotContains(t, lines[1], "user_id")
}

func TestLogger_OddKeyValues(t *testing.T) {
	l, buf := newBufferLogger(t, InfoLevel)

	l.Info("odd", "dangling")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "dangling", lines[0]["!BADKEY"])
}

func TestLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "game.log")
	l, err := New(&Config{Format: JSONFormat, EnableFile: true, OutputPath: path})
	require.NoError(t, err)

	l.Info("written to file")
	_ = l.Sync()
	assert.FileExists(t, path)
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NewNoop()
	l.Named("x").WithFields("a", 1).Info("nothing")
	assert.NoError(t, l.Sync())
}
