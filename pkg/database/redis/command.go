package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ==================== String 操作 ====================

// Get 获取字符串值
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNil
		}
		return "", fmt.Errorf("get failed: %w", err)
	}
	return val, nil
}

// Set 设置字符串值
func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, expiration).Err(); err != nil {
		return fmt.Errorf("set failed: %w", err)
	}
	return nil
}

// SetNX 仅当键不存在时设置
func (c *Client) SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, value, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("del failed: %w", err)
	}
	return n, nil
}

// Expire 设置键的过期时间
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	ok, err := c.rdb.Expire(ctx, key, expiration).Result()
	if err != nil {
		return false, fmt.Errorf("expire failed: %w", err)
	}
	return ok, nil
}

// ==================== Set 操作 ====================

// SAdd 添加集合成员，返回新增数量
func (c *Client) SAdd(ctx context.Context, key string, members ...any) (int64, error) {
	n, err := c.rdb.SAdd(ctx, key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("sadd failed: %w", err)
	}
	return n, nil
}

// SAddWithTTL 在同一个 MULTI 中 SADD 并设置过期时间，返回新增数量
func (c *Client) SAddWithTTL(ctx context.Context, key string, ttl time.Duration, members ...any) (int64, error) {
	var added *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		added = p.SAdd(ctx, key, members...)
		p.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sadd with ttl failed: %w", err)
	}
	return added.Val(), nil
}

// SRem 移除集合成员，返回移除数量
func (c *Client) SRem(ctx context.Context, key string, members ...any) (int64, error) {
	n, err := c.rdb.SRem(ctx, key, members...).Result()
	if err != nil {
		return 0, fmt.Errorf("srem failed: %w", err)
	}
	return n, nil
}

// SIsMember 判断是否为集合成员
func (c *Client) SIsMember(ctx context.Context, key string, member any) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("sismember failed: %w", err)
	}
	return ok, nil
}

// SMembers 获取集合全部成员
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers failed: %w", err)
	}
	return members, nil
}

// ==================== Sorted Set 操作 ====================

// ZAdd 添加有序集合成员
func (c *Client) ZAdd(ctx context.Context, key string, items ...ZItem) (int64, error) {
	zs := make([]redis.Z, len(items))
	for i, it := range items {
		zs[i] = redis.Z{Score: it.Score, Member: it.Member}
	}
	n, err := c.rdb.ZAdd(ctx, key, zs...).Result()
	if err != nil {
		return 0, fmt.Errorf("zadd failed: %w", err)
	}
	return n, nil
}

// ZIncrBy 增加成员分数
func (c *Client) ZIncrBy(ctx context.Context, key string, increment float64, member string) (float64, error) {
	score, err := c.rdb.ZIncrBy(ctx, key, increment, member).Result()
	if err != nil {
		return 0, fmt.Errorf("zincrby failed: %w", err)
	}
	return score, nil
}

// ZRevRangeWithScores 按分数从高到低获取区间成员
func (c *Client) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZItem, error) {
	zs, err := c.rdb.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}
	items := make([]ZItem, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		items = append(items, ZItem{Member: member, Score: z.Score})
	}
	return items, nil
}
