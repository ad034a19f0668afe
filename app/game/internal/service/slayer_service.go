package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/slayer"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
)

// SlayerService 猎杀任务与纹章
type SlayerService struct {
	logger   logger.Logger
	dao      *dao.DAO
	monsters []tables.Monster
	rand     random.Source
}

func NewSlayerService(l logger.Logger, d *dao.DAO, monsters []tables.Monster, src random.Source) *SlayerService {
	return &SlayerService{
		logger:   l.Named("service.slayer"),
		dao:      d,
		monsters: monsters,
		rand:     src,
	}
}

// Profile 读取猎杀档案
func (s *SlayerService) Profile(ctx context.Context, userID, serverID string) (*model.SlayerProfile, error) {
	p, err := s.dao.Slayer.Get(ctx, userID, serverID)
	if err != nil {
		return nil, notFoundAs(err, errcode.NotRegistered(userID))
	}
	return p, nil
}

// Emblem 读取纹章
func (s *SlayerService) Emblem(ctx context.Context, userID, serverID string) (*model.Emblem, error) {
	e, err := s.dao.Slayer.GetEmblem(ctx, userID, serverID)
	if err != nil {
		return nil, notFoundAs(err, errcode.NotRegistered(userID))
	}
	return e, nil
}

// NewTask 按玩家等级分配任务
func (s *SlayerService) NewTask(ctx context.Context, userID, serverID string) (slayer.Task, error) {
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return slayer.Task{}, err
	}
	p, err := s.Profile(ctx, userID, serverID)
	if err != nil {
		return slayer.Task{}, err
	}
	if p.HasTask() {
		return slayer.Task{}, errcode.InvalidInput("you already have a task: %d %s", p.TaskAmount, p.TaskSpecies)
	}

	task, err := slayer.AssignTask(s.rand, s.monsters, int(u.Level))
	if err != nil {
		return slayer.Task{}, err
	}
	if err := s.dao.Slayer.SetTask(ctx, userID, serverID, task.Species, task.Amount); err != nil {
		return slayer.Task{}, err
	}

	s.logger.InfoContext(ctx, "slayer task assigned",
		"user_id", userID,
		"species", task.Species,
		"amount", task.Amount,
	)
	return task, nil
}

// Skip 花费点数放弃当前任务
func (s *SlayerService) Skip(ctx context.Context, userID, serverID string) error {
	p, err := s.Profile(ctx, userID, serverID)
	if err != nil {
		return err
	}
	if !p.HasTask() {
		return errcode.InvalidInput("you have no active slayer task")
	}
	if p.Points < slayer.SkipCost {
		return errcode.InsufficientMaterial(string(model.MaterialPoints), slayer.SkipCost)
	}

	ok, err := s.dao.Slayer.SkipTask(ctx, userID, serverID, slayer.SkipCost)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.InsufficientMaterial(string(model.MaterialPoints), slayer.SkipCost)
	}
	s.logger.InfoContext(ctx, "slayer task skipped", "user_id", userID, "species", p.TaskSpecies)
	return nil
}

// Hunt 为当前任务击杀 kills 只怪物并写回进度与掉落
func (s *SlayerService) Hunt(ctx context.Context, userID, serverID string, kills int) (*model.SlayerProfile, slayer.HuntResult, error) {
	p, err := s.Profile(ctx, userID, serverID)
	if err != nil {
		return nil, slayer.HuntResult{}, err
	}

	res, err := slayer.Hunt(s.rand, p, s.monsters, kills)
	if err != nil {
		return nil, res, err
	}

	err = s.dao.Slayer.ApplyHunt(ctx, userID, serverID, dao.HuntDelta{
		XP:       res.XP,
		Points:   res.Points,
		Essence:  res.Essence,
		Hearts:   res.Hearts,
		Level:    p.Level,
		Progress: p.TaskProgress,
		Complete: res.Completed,
	})
	if err != nil {
		return nil, res, err
	}

	s.logger.InfoContext(ctx, "slayer hunt",
		"user_id", userID,
		"kills", len(res.Kills),
		"essence", res.Essence,
		"hearts", res.Hearts,
		"completed", res.Completed,
	)
	return p, res, nil
}

// SlotOp 纹章槽位操作：先校验与条件扣除材料，扣除成功后才掷骰
func (s *SlayerService) SlotOp(ctx context.Context, userID, serverID string, n int, op slayer.SlotOp) (slayer.Outcome, error) {
	p, err := s.Profile(ctx, userID, serverID)
	if err != nil {
		return slayer.Outcome{}, err
	}
	e, err := s.Emblem(ctx, userID, serverID)
	if err != nil {
		return slayer.Outcome{}, err
	}
	if err := slayer.Check(e, p.Level, n, op); err != nil {
		return slayer.Outcome{}, err
	}

	var out slayer.Outcome
	err = s.dao.WithTx(ctx, func(ctx context.Context) error {
		mat := op.Material()
		ok, err := s.dao.Slayer.ConsumeMaterial(ctx, userID, serverID, mat, 1)
		if err != nil {
			return err
		}
		if !ok {
			return errcode.InsufficientMaterial(string(mat), 1)
		}

		out, err = slayer.Apply(s.rand, e, p.Level, n, op)
		if err != nil {
			return err
		}
		return s.dao.Slayer.SaveSlot(ctx, userID, serverID, n, out.After)
	})
	if err != nil {
		return slayer.Outcome{}, err
	}

	s.logger.InfoContext(ctx, "emblem slot changed",
		"user_id", userID,
		"slot", n,
		"op", op,
		"before", out.Before,
		"after", out.After,
		"success", out.Success,
		"downgraded", out.Downgraded,
	)
	return out, nil
}
