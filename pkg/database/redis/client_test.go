package redis

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{name: "nil", cfg: nil, wantErr: ErrNilConfig},
		{name: "no mode", cfg: &Config{}, wantErr: ErrInvalidConfig},
		{
			name: "both modes",
			cfg: &Config{
				Standalone: &NodeConfig{Host: "localhost", Port: 6379},
				Cluster:    &ClusterConfig{Addrs: []string{"a:1"}},
			},
			wantErr: ErrInvalidConfig,
		},
		{name: "empty host", cfg: &Config{Standalone: &NodeConfig{Port: 6379}}, wantErr: ErrInvalidConfig},
		{name: "empty cluster", cfg: &Config{Cluster: &ClusterConfig{}}, wantErr: ErrInvalidConfig},
		{name: "standalone", cfg: &Config{Standalone: &NodeConfig{Host: "localhost", Port: 6379}}},
		{name: "cluster", cfg: &Config{Cluster: &ClusterConfig{Addrs: []string{"a:1", "b:2"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_Key(t *testing.T) {
	c, err := NewClient(&Config{Standalone: &NodeConfig{Host: "localhost", Port: 6379}, KeyPrefix: "ascend"})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "ascend:session:u1", c.Key("session", "u1"))

	c.cfg.KeyPrefix = ""
	assert.Equal(t, "event:x", c.Key("event", "x"))
}

// 集成测试：需要设置 ASCEND_TEST_REDIS_ADDR（host:port）
func newTestClient(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	addr := os.Getenv("ASCEND_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ASCEND_TEST_REDIS_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c, err := NewClient(&Config{
		Standalone: &NodeConfig{Host: host, Port: port},
		KeyPrefix:  "ascend-test-" + uuid.NewString(),
	})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_Commands(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	key := c.Key("str")
	require.NoError(t, c.Set(ctx, key, "v", time.Minute))
	v, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	_, err = c.Del(ctx, key)
	require.NoError(t, err)
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNil)

	set := c.Key("claims")
	n, err := c.SAdd(ctx, set, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.SAdd(ctx, set, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	ok, err := c.SIsMember(ctx, set, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	board := c.Key("board")
	_, err = c.ZAdd(ctx, board, ZItem{Member: "a", Score: 1}, ZItem{Member: "b", Score: 5})
	require.NoError(t, err)
	_, err = c.ZIncrBy(ctx, board, 10, "a")
	require.NoError(t, err)
	items, err := c.ZRevRangeWithScores(ctx, board, 0, -1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].Member)
	assert.Equal(t, float64(11), items[0].Score)

	_, _ = c.Del(ctx, set, board)
}

func TestClient_SetWithTTL(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	set := c.Key("claims", uuid.NewString())
	defer func() { _, _ = c.Del(ctx, set) }()

	n, err := c.SAddWithTTL(ctx, set, time.Minute, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = c.SAddWithTTL(ctx, set, time.Minute, "u1")
	require.NoError(t, err)
	assert.Zero(t, n)

	ttl, err := c.rdb.TTL(ctx, set).Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	removed, err := c.SRem(ctx, set, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	n, err = c.SAddWithTTL(ctx, set, time.Minute, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestLock(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	key := c.Key("lock")

	l1 := NewLock(c, key, time.Second*5)
	l2 := NewLock(c, key, time.Second*5)

	require.NoError(t, l1.Lock(ctx))
	assert.ErrorIs(t, l2.Lock(ctx), ErrLockFailed)
	assert.ErrorIs(t, l2.Unlock(ctx), ErrLockNotHeld)
	require.NoError(t, l1.Refresh(ctx))
	require.NoError(t, l1.Unlock(ctx))

	ok, err := l2.TryLock(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, l2.Unlock(ctx))
}
