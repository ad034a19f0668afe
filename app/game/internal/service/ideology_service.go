package service

import (
	"context"
	"math"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
)

const (
	// PropagateCooldown 传教冷却
	PropagateCooldown = 18 * time.Hour

	growthBase   = 10.0
	growthFactor = 1.5
	growthScale  = 100
	growthCapAt  = 1000
	growthCapInc = 100.0
	workerBonus  = 0.0005

	// LeaderboardSize 排行榜展示条数
	LeaderboardSize = 10
)

// IdeologyService 教派、传教与排行榜
type IdeologyService struct {
	logger  logger.Logger
	dao     *dao.DAO
	cache   *dao.CacheDAO
	rand    random.Source
	metrics *metrics.GameMetrics
	now     func() time.Time
}

// NewIdeologyService cache 为 nil 时排行榜直接查库
func NewIdeologyService(l logger.Logger, d *dao.DAO, cache *dao.CacheDAO, src random.Source, m *metrics.GameMetrics) *IdeologyService {
	return &IdeologyService{
		logger:  l.Named("service.ideology"),
		dao:     d,
		cache:   cache,
		rand:    src,
		metrics: m,
		now:     time.Now,
	}
}

// Growth 一次传教增加的信徒数
func Growth(src random.Source, followers, templeWorkers int64) int64 {
	inc := growthCapInc
	if followers <= growthCapAt {
		inc = growthBase * math.Pow(growthFactor, float64(followers/growthScale))
	}
	inc *= random.Uniform(src, 0.9, 1.1)
	inc *= 1 + workerBonus*float64(templeWorkers)
	return int64(math.Round(inc))
}

// Info 玩家所属教派与排行榜
func (s *IdeologyService) Info(ctx context.Context, userID, serverID string) (*model.Ideology, []*model.Ideology, error) {
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return nil, nil, err
	}
	mine, err := s.dao.Ideology.Get(ctx, serverID, u.IdeologyName)
	if err != nil && !dao.IsNotFound(err) {
		return nil, nil, err
	}
	top, err := s.Leaderboard(ctx, serverID)
	if err != nil {
		return nil, nil, err
	}
	return mine, top, nil
}

// Leaderboard 优先读 Redis，失败或为空时回落到 SQL
func (s *IdeologyService) Leaderboard(ctx context.Context, serverID string) ([]*model.Ideology, error) {
	if s.cache != nil {
		top, err := s.cache.TopIdeologies(ctx, serverID, LeaderboardSize)
		if err == nil && len(top) > 0 {
			s.metrics.RecordLeaderboardRead("redis")
			return top, nil
		}
	}

	top, err := s.dao.Ideology.Top(ctx, serverID, LeaderboardSize)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordLeaderboardRead("sql")

	// 回填缓存
	for _, i := range top {
		s.sync(ctx, i)
	}
	return top, nil
}

// Propagate 传教：18 小时冷却，按公式增长信徒
func (s *IdeologyService) Propagate(ctx context.Context, userID, serverID string) (*model.Ideology, int64, error) {
	// 1. 冷却
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	if !u.LastPropagateAt.IsZero() {
		if elapsed := now.Sub(u.LastPropagateAt); elapsed < PropagateCooldown {
			remaining := (PropagateCooldown - elapsed).Round(time.Minute)
			return nil, 0, errcode.CooldownActive("propagate", remaining)
		}
	}

	ideology, err := s.dao.Ideology.Get(ctx, serverID, u.IdeologyName)
	if err != nil {
		return nil, 0, notFoundAs(err, errcode.InvalidInput("you do not follow an ideology"))
	}

	// 2. 增长并记录时间
	gained := Growth(s.rand, ideology.Followers, u.TempleWorkers)
	err = s.dao.WithTx(ctx, func(ctx context.Context) error {
		if err := s.dao.Ideology.AddFollowers(ctx, serverID, ideology.Name, gained); err != nil {
			return err
		}
		return s.dao.Users.SetLastPropagate(ctx, userID, serverID, now)
	})
	if err != nil {
		return nil, 0, err
	}
	ideology.Followers += gained

	// 3. 排行榜，失败只记日志
	s.sync(ctx, ideology)

	s.logger.InfoContext(ctx, "ideology propagated",
		"user_id", userID,
		"ideology", ideology.Name,
		"gained", gained,
		"followers", ideology.Followers,
	)
	return ideology, gained, nil
}

// join 加入已有教派或以 1 名信徒创立新教派，须在事务内调用
func (s *IdeologyService) join(ctx context.Context, userID, serverID, name string) (*model.Ideology, bool, error) {
	existing, err := s.dao.Ideology.Get(ctx, serverID, name)
	switch {
	case err == nil:
		if err := s.dao.Ideology.AddFollowers(ctx, serverID, name, 1); err != nil {
			return nil, false, err
		}
		existing.Followers++
		return existing, false, nil
	case dao.IsNotFound(err):
		i := &model.Ideology{ServerID: serverID, Name: name, FounderUser: userID, Followers: 1}
		if err := s.dao.Ideology.Create(ctx, i); err != nil {
			return nil, false, err
		}
		return i, true, nil
	default:
		return nil, false, err
	}
}

// sync 更新排行榜缓存
func (s *IdeologyService) sync(ctx context.Context, i *model.Ideology) {
	if s.cache == nil || i == nil {
		return
	}
	// 失败由 DAO 记录，排行榜在下次变更时补齐
	s.cache.SetFollowers(ctx, i)
}
