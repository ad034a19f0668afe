package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/loot"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/skill"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
)

// ItemService 装备强化、丢弃、穿戴与采集工具升级
type ItemService struct {
	logger logger.Logger
	dao    *dao.DAO
	rand   random.Source
}

func NewItemService(l logger.Logger, d *dao.DAO, src random.Source) *ItemService {
	return &ItemService{
		logger: l.Named("service.item"),
		dao:    d,
		rand:   src,
	}
}

// ToolUpgradeResult 工具升级结果
type ToolUpgradeResult struct {
	Skill    model.Skill
	From     string
	To       string
	Gold     int64
	Resource string
	Amount   int64
}

// UpgradeTool 升级采集工具：金币与基础资源两条扣减同一事务
func (s *ItemService) UpgradeTool(ctx context.Context, userID, serverID string, sk model.Skill) (*ToolUpgradeResult, error) {
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return nil, err
	}
	row, err := s.dao.Skills.Get(ctx, userID, serverID, sk)
	if err != nil {
		return nil, notFoundAs(err, errcode.NotRegistered(userID))
	}

	next, ok := sk.NextTier(row.ToolTier)
	if !ok {
		return nil, errcode.InvalidInput("your %s tool is already at the highest tier", sk)
	}
	gold, resource, amount, _ := skill.UpgradeCost(sk, row.ToolTier)
	if u.Gold < gold {
		return nil, errcode.InsufficientFunds(gold)
	}
	if row.Resources[resource] < amount {
		return nil, errcode.InsufficientMaterial(resource, amount)
	}

	err = s.dao.Skills.UpgradeTool(ctx, userID, serverID, dao.ToolUpgrade{
		Skill:    sk,
		From:     row.ToolTier,
		To:       next,
		Resource: resource,
		Amount:   amount,
		Gold:     gold,
	})
	if err != nil {
		return nil, err
	}
	return &ToolUpgradeResult{Skill: sk, From: row.ToolTier, To: next, Gold: gold, Resource: resource, Amount: amount}, nil
}

// Enhance 消耗一枚潜能符文强化装备
func (s *ItemService) Enhance(ctx context.Context, userID, serverID string, kind model.ItemKind, itemID int64) (*model.Item, bool, error) {
	it, err := s.dao.Items.Owned(ctx, userID, serverID, kind, itemID)
	if err != nil {
		return nil, false, err
	}
	if it.PotentialRemaining <= 0 {
		return nil, false, errcode.InvalidInput("%s has no potential left", it.Name)
	}

	var success bool
	err = s.dao.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.dao.Users.Consume(ctx, userID, serverID, model.ColPotentialRunes, 1)
		if err != nil {
			return err
		}
		if !ok {
			return errcode.InsufficientMaterial(string(model.ColPotentialRunes), 1)
		}
		if success, err = loot.Enhance(s.rand, it); err != nil {
			return err
		}
		return s.dao.Items.UpdatePotential(ctx, it)
	})
	if err != nil {
		return nil, false, err
	}

	s.logger.InfoContext(ctx, "item enhanced",
		"user_id", userID,
		"kind", kind,
		"item_id", itemID,
		"success", success,
		"passive", it.Passive,
		"potential_level", it.PotentialLevel,
	)
	return it, success, nil
}

// Discard 丢弃未装备的装备
func (s *ItemService) Discard(ctx context.Context, userID, serverID string, kind model.ItemKind, itemID int64) error {
	it, err := s.dao.Items.Owned(ctx, userID, serverID, kind, itemID)
	if err != nil {
		return err
	}
	if it.Equipped {
		return errcode.EquippedBlock(string(kind), itemID)
	}
	ok, err := s.dao.Items.Delete(ctx, userID, serverID, kind, itemID)
	if err != nil {
		return err
	}
	if !ok {
		return errcode.EquippedBlock(string(kind), itemID)
	}
	s.logger.InfoContext(ctx, "item discarded", "user_id", userID, "kind", kind, "item_id", itemID)
	return nil
}

// Equip 装备，同类已装备的物品自动卸下
func (s *ItemService) Equip(ctx context.Context, userID, serverID string, kind model.ItemKind, itemID int64) (*model.Item, error) {
	it, err := s.dao.Items.Owned(ctx, userID, serverID, kind, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.dao.Items.Equip(ctx, userID, serverID, kind, itemID); err != nil {
		return nil, err
	}
	it.Equipped = true
	return it, nil
}

// List 某类装备
func (s *ItemService) List(ctx context.Context, userID, serverID string, kind model.ItemKind) ([]*model.Item, error) {
	return s.dao.Items.List(ctx, userID, serverID, kind)
}
