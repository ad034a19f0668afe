package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client Redis 客户端（隐藏 go-redis 类型）
type Client struct {
	rdb redis.UniversalClient
	cfg *Config
}

// NewClient 创建 Redis 客户端
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool := cfg.Pool
	if pool == (PoolConfig{}) {
		pool = DefaultPoolConfig()
	}

	c := &Client{cfg: cfg}
	if cfg.IsStandalone() {
		c.rdb = redis.NewClient(&redis.Options{
			Addr:            fmt.Sprintf("%s:%d", cfg.Standalone.Host, cfg.Standalone.Port),
			Password:        cfg.Standalone.Password,
			DB:              cfg.Standalone.DB,
			MaxIdleConns:    pool.MaxIdleConns,
			MaxActiveConns:  pool.MaxOpenConns,
			ConnMaxLifetime: pool.ConnMaxLifetime,
			ConnMaxIdleTime: pool.ConnMaxIdleTime,
			DialTimeout:     pool.DialTimeout,
			ReadTimeout:     pool.ReadTimeout,
			WriteTimeout:    pool.WriteTimeout,
			PoolTimeout:     pool.PoolTimeout,
		})
		return c, nil
	}

	c.rdb = redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:           cfg.Cluster.Addrs,
		Password:        cfg.Cluster.Password,
		MaxIdleConns:    pool.MaxIdleConns,
		ConnMaxLifetime: pool.ConnMaxLifetime,
		ConnMaxIdleTime: pool.ConnMaxIdleTime,
		DialTimeout:     pool.DialTimeout,
		ReadTimeout:     pool.ReadTimeout,
		WriteTimeout:    pool.WriteTimeout,
		PoolTimeout:     pool.PoolTimeout,
	})
	return c, nil
}

// Key 拼接键前缀
func (c *Client) Key(parts ...string) string {
	key := c.cfg.KeyPrefix
	for _, p := range parts {
		if key != "" {
			key += ":"
		}
		key += p
	}
	return key
}

// Ping 测试连接
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// PoolStats 获取连接池统计信息
func (c *Client) PoolStats() PoolStats {
	stats := c.rdb.PoolStats()
	return PoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
		StaleConns: stats.StaleConns,
	}
}

// Close 关闭客户端
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("failed to close redis: %w", err)
	}
	return nil
}
