package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/delve"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
)

// DelveService 深潜：入场扣费、推进状态机、撤离结算、属性商店
type DelveService struct {
	logger  logger.Logger
	dao     *dao.DAO
	rand    random.Source
	metrics *metrics.GameMetrics
}

func NewDelveService(l logger.Logger, d *dao.DAO, src random.Source, m *metrics.GameMetrics) *DelveService {
	return &DelveService{
		logger:  l.Named("service.delve"),
		dao:     d,
		rand:    src,
		metrics: m,
	}
}

// Profile 读取深潜档案
func (s *DelveService) Profile(ctx context.Context, userID, serverID string) (*model.DelveProfile, error) {
	p, err := s.dao.Delve.Get(ctx, userID, serverID)
	if err != nil {
		return nil, notFoundAs(err, errcode.NotRegistered(userID))
	}
	return p, nil
}

// Start 扣除入场费并开始一次深潜，seed 为预置地层
func (s *DelveService) Start(ctx context.Context, userID, serverID string, seed ...delve.Hazard) (*delve.Run, error) {
	// 1. 档案与镐子
	p, err := s.Profile(ctx, userID, serverID)
	if err != nil {
		return nil, err
	}
	mining, err := s.dao.Skills.Get(ctx, userID, serverID, model.SkillMining)
	if err != nil {
		return nil, notFoundAs(err, errcode.NotRegistered(userID))
	}

	// 2. 入场费
	cost := delve.EntryCost(p.FuelLevel)
	ok, err := s.dao.Users.Consume(ctx, userID, serverID, model.ColGold, cost)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errcode.InsufficientFunds(cost)
	}

	run := delve.NewRun(s.rand, p, mining.ToolTier, seed...)
	s.logger.InfoContext(ctx, "delve started",
		"user_id", userID,
		"entry_cost", cost,
		"pickaxe", mining.ToolTier,
		"max_fuel", run.MaxFuel,
	)
	return run, nil
}

// Act 执行一次操作；进入终态时结算，只有撤离会写入奖励
func (s *DelveService) Act(ctx context.Context, userID, serverID string, run *delve.Run, a delve.Action) (delve.Step, error) {
	step, err := run.Apply(s.rand, a)
	if err != nil {
		return step, err
	}
	if !run.State.Terminal() {
		return step, nil
	}

	if run.State == delve.StateExtracted {
		pay := run.Payout()
		err = s.dao.WithTx(ctx, func(ctx context.Context) error {
			if pay.Curios > 0 {
				if err := s.dao.Users.Modify(ctx, userID, serverID, model.ColCurios, pay.Curios); err != nil {
					return err
				}
			}
			return s.dao.Delve.AddRewards(ctx, userID, serverID, pay.Shards, pay.XP)
		})
		if err != nil {
			return step, err
		}
	}

	s.metrics.RecordDelveOutcome(string(run.State))
	s.logger.InfoContext(ctx, "delve finished",
		"user_id", userID,
		"state", run.State,
		"depth", run.Depth,
		"curios", run.CuriosFound,
		"shards", run.ShardsFound,
	)
	return step, nil
}

// Upgrade 花费碎片提升一项属性
func (s *DelveService) Upgrade(ctx context.Context, userID, serverID string, stat model.DelveStat) (*model.DelveProfile, int64, error) {
	p, err := s.Profile(ctx, userID, serverID)
	if err != nil {
		return nil, 0, err
	}

	level := p.Level(stat)
	cost, ok := delve.UpgradeCost(level)
	if !ok {
		return nil, 0, errcode.InvalidInput("%s is already at max level", stat)
	}
	if p.Shards < cost {
		return nil, 0, errcode.InsufficientMaterial("obsidian_shards", cost)
	}

	done, err := s.dao.Delve.Upgrade(ctx, userID, serverID, stat, level, cost)
	if err != nil {
		return nil, 0, err
	}
	if !done {
		return nil, 0, errcode.InsufficientMaterial("obsidian_shards", cost)
	}

	p, err = s.Profile(ctx, userID, serverID)
	if err != nil {
		return nil, 0, err
	}
	s.logger.InfoContext(ctx, "delve stat upgraded", "user_id", userID, "stat", stat, "level", p.Level(stat))
	return p, cost, nil
}
