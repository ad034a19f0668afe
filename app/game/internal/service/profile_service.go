package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// Profile 玩家总览
type Profile struct {
	User      *model.User
	Skills    []*model.SkillRow
	Delve     *model.DelveProfile
	Slayer    *model.SlayerProfile
	Inventory map[model.ItemKind]int
	// InventoryCap 每类装备上限，与发放侧一致
	InventoryCap int
}

// ProfileService 玩家总览与个人开关
type ProfileService struct {
	logger logger.Logger
	dao    *dao.DAO
	invCap int
}

// NewProfileService inventoryCap <= 0 时取 model.InventoryCap
func NewProfileService(l logger.Logger, d *dao.DAO, inventoryCap int) *ProfileService {
	if inventoryCap <= 0 {
		inventoryCap = model.InventoryCap
	}
	return &ProfileService{
		logger: l.Named("service.profile"),
		dao:    d,
		invCap: inventoryCap,
	}
}

// InventoryCap 每类装备上限
func (s *ProfileService) InventoryCap() int { return s.invCap }

// Get 汇总玩家各项档案
func (s *ProfileService) Get(ctx context.Context, userID, serverID string) (*Profile, error) {
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return nil, err
	}
	p := &Profile{User: u, InventoryCap: s.invCap}

	for _, sk := range model.Skills {
		row, err := s.dao.Skills.Get(ctx, userID, serverID, sk)
		if err != nil {
			return nil, notFoundAs(err, errcode.NotRegistered(userID))
		}
		p.Skills = append(p.Skills, row)
	}
	if p.Delve, err = s.dao.Delve.Get(ctx, userID, serverID); err != nil {
		return nil, notFoundAs(err, errcode.NotRegistered(userID))
	}
	if p.Slayer, err = s.dao.Slayer.Get(ctx, userID, serverID); err != nil {
		return nil, notFoundAs(err, errcode.NotRegistered(userID))
	}
	if p.Inventory, err = s.dao.Items.CountAll(ctx, userID, serverID); err != nil {
		return nil, err
	}
	return p, nil
}

// ToggleDoors 切换随机门开关，返回新状态
func (s *ProfileService) ToggleDoors(ctx context.Context, userID, serverID string) (bool, error) {
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return false, err
	}
	enabled := !u.DoorsEnabled
	if err := s.dao.Users.SetDoors(ctx, userID, serverID, enabled); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "doors toggled", "user_id", userID, "enabled", enabled)
	return enabled, nil
}
