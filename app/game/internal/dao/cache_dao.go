package dao

import (
	"context"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database/redis"
	"github.com/lk2023060901/ascend/pkg/logger"
)

const (
	// Redis key 前缀
	leaderboardKeyPrefix = "leaderboard:ideology"
	eventClaimKeyPrefix  = "event:claimed"
)

// CacheDAO Redis 侧数据：教派排行榜 ZSET、事件领取集合
type CacheDAO struct {
	redis   *redis.Client
	logger  logger.Logger
	metrics *metrics.GameMetrics
}

// NewCacheDAO 创建缓存 DAO
func NewCacheDAO(rdb *redis.Client, l logger.Logger, m *metrics.GameMetrics) *CacheDAO {
	return &CacheDAO{
		redis:   rdb,
		logger:  l.Named("dao.cache"),
		metrics: m,
	}
}

func (d *CacheDAO) observe(op string, start time.Time, err error) {
	d.metrics.RecordDBQuery("redis_"+op, err == nil, time.Since(start).Seconds())
}

// SetFollowers 写入教派信徒数
func (d *CacheDAO) SetFollowers(ctx context.Context, i *model.Ideology) (err error) {
	start := time.Now()
	defer func() { d.observe("zadd", start, err) }()

	key := d.redis.Key(leaderboardKeyPrefix, i.ServerID)
	if _, err = d.redis.ZAdd(ctx, key, redis.ZItem{Member: i.Name, Score: float64(i.Followers)}); err != nil {
		d.logger.WarnContext(ctx, "failed to update leaderboard",
			"server_id", i.ServerID,
			"ideology", i.Name,
			"error", err,
		)
		return err
	}
	return nil
}

// TopIdeologies 排行榜前 limit 名
func (d *CacheDAO) TopIdeologies(ctx context.Context, serverID string, limit int) (out []*model.Ideology, err error) {
	start := time.Now()
	defer func() { d.observe("zrevrange", start, err) }()

	key := d.redis.Key(leaderboardKeyPrefix, serverID)
	items, err := d.redis.ZRevRangeWithScores(ctx, key, 0, int64(limit-1))
	if err != nil {
		d.logger.WarnContext(ctx, "failed to read leaderboard", "server_id", serverID, "error", err)
		return nil, err
	}

	out = make([]*model.Ideology, 0, len(items))
	for _, it := range items {
		out = append(out, &model.Ideology{
			ServerID:  serverID,
			Name:      it.Member,
			Followers: int64(it.Score),
		})
	}
	return out, nil
}

// ClaimEvent 记录领取，首次领取返回 true。SADD 与 EXPIRE 同一事务提交，集合随事件一起过期
func (d *CacheDAO) ClaimEvent(ctx context.Context, eventID, userID string, ttl time.Duration) (claimed bool, err error) {
	start := time.Now()
	defer func() { d.observe("sadd", start, err) }()

	key := d.redis.Key(eventClaimKeyPrefix, eventID)
	added, err := d.redis.SAddWithTTL(ctx, key, ttl, userID)
	if err != nil {
		d.logger.WarnContext(ctx, "failed to record event claim",
			"event_id", eventID,
			"user_id", userID,
			"error", err,
		)
		return false, err
	}
	return added > 0, nil
}

// UnclaimEvent 发放失败时撤销领取记录，使玩家可以重试
func (d *CacheDAO) UnclaimEvent(ctx context.Context, eventID, userID string) (err error) {
	start := time.Now()
	defer func() { d.observe("srem", start, err) }()

	key := d.redis.Key(eventClaimKeyPrefix, eventID)
	if _, err = d.redis.SRem(ctx, key, userID); err != nil {
		d.logger.WarnContext(ctx, "failed to revoke event claim",
			"event_id", eventID,
			"user_id", userID,
			"error", err,
		)
		return err
	}
	return nil
}
