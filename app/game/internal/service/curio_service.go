package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/curio"
	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/loot"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/skill"
	"github.com/lk2023060901/ascend/pkg/idgen"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
)

// CurioService 珍奇开启：掉落、路由到各奖励落点、扣除珍奇
type CurioService struct {
	logger  logger.Logger
	dao     *dao.DAO
	table   *curio.Table
	gen     *loot.Generator
	ids     idgen.Generator
	rand    random.Source
	metrics *metrics.GameMetrics
	invCap  int
}

func NewCurioService(
	l logger.Logger,
	d *dao.DAO,
	table *curio.Table,
	gen *loot.Generator,
	ids idgen.Generator,
	src random.Source,
	m *metrics.GameMetrics,
	inventoryCap int,
) *CurioService {
	if inventoryCap <= 0 {
		inventoryCap = model.InventoryCap
	}
	return &CurioService{
		logger:  l.Named("service.curio"),
		dao:     d,
		table:   table,
		gen:     gen,
		ids:     ids,
		rand:    src,
		metrics: m,
		invCap:  inventoryCap,
	}
}

// Balance 当前珍奇数量
func (s *CurioService) Balance(ctx context.Context, userID, serverID string) (int64, error) {
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return 0, err
	}
	return u.Curios, nil
}

// CheckInventory 任一装备类别超过上限时返回 InventoryFull
func (s *CurioService) CheckInventory(ctx context.Context, userID, serverID string) error {
	counts, err := s.dao.Items.CountAll(ctx, userID, serverID)
	if err != nil {
		return err
	}
	for _, kind := range model.ItemKinds {
		if counts[kind] > s.invCap {
			return errcode.InventoryFull(string(kind), s.invCap)
		}
	}
	return nil
}

// ProcessOpen 开启 amount 个珍奇。余额不足时不做任何修改；
// 扣除与全部奖励写入在同一事务内，任一步失败整体回滚。
func (s *CurioService) ProcessOpen(ctx context.Context, userID, serverID string, amount int) (*curio.Summary, error) {
	if amount <= 0 {
		return nil, errcode.InvalidInput("amount must be positive")
	}

	// 1. 前置检查
	u, err := loadUser(ctx, s.dao, userID, serverID)
	if err != nil {
		return nil, err
	}
	if u.Curios < int64(amount) {
		return nil, errcode.InsufficientMaterial("curios", int64(amount))
	}
	if err := s.CheckInventory(ctx, userID, serverID); err != nil {
		return nil, err
	}

	// 2. 加权抽取并聚合
	summary := curio.NewSummary(amount, s.table.Roll(s.rand, amount))

	// 3. 扣除与落地
	err = s.dao.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.dao.Users.Consume(ctx, userID, serverID, model.ColCurios, int64(amount))
		if err != nil {
			return err
		}
		if !ok {
			return errcode.InsufficientMaterial("curios", int64(amount))
		}

		for _, b := range summary.Buckets {
			if err := s.route(ctx, userID, serverID, b, summary); err != nil {
				return err
			}
		}
		return s.dao.Users.AddMany(ctx, userID, serverID, currencyDeltas(summary))
	})
	if err != nil {
		s.logger.WarnContext(ctx, "curio open rolled back",
			"user_id", userID,
			"amount", amount,
			"error", err,
		)
		return nil, err
	}

	s.metrics.RecordCuriosOpened(amount)
	s.logger.InfoContext(ctx, "curios opened",
		"user_id", userID,
		"amount", amount,
		"items", len(summary.Items),
		"gold", summary.Gold,
	)
	return summary, nil
}

// route 按奖励类型落地一个聚合桶，货币类只累加到 summary，最后统一写入
func (s *CurioService) route(ctx context.Context, userID, serverID string, b curio.Bucket, summary *curio.Summary) error {
	switch b.Reward.Route {
	case curio.RouteItem:
		for range b.Count {
			res, err := s.gen.Generate(s.rand, b.Reward.Kind, curio.ItemLevel, true)
			if err != nil {
				return err
			}
			if res.Rune {
				summary.Runes[model.ColPotentialRunes]++
				continue
			}
			id, err := s.ids.NextID()
			if err != nil {
				return errcode.Transient(err, "generate item id")
			}
			res.Item.ItemID, res.Item.UserID, res.Item.ServerID = id, userID, serverID
			if err := s.dao.Items.Insert(ctx, res.Item); err != nil {
				return err
			}
			summary.Items = append(summary.Items, res.Item)
		}

	case curio.RouteRune:
		summary.Runes[b.Reward.Column] += int64(b.Count)

	case curio.RouteGold:
		summary.Gold += b.Reward.Gold * int64(b.Count)

	case curio.RouteSkill:
		row, err := s.dao.Skills.Get(ctx, userID, serverID, b.Reward.Skill)
		if err != nil {
			return notFoundAs(err, errcode.NotRegistered(userID))
		}
		yield, err := skill.Accumulate(s.rand, b.Reward.Skill, row.ToolTier, b.Count*curio.SkillRolls)
		if err != nil {
			return err
		}
		if err := s.dao.Skills.UpdateBatch(ctx, userID, serverID, b.Reward.Skill, yield); err != nil {
			return err
		}
		for res, n := range yield {
			summary.Materials[res] += n
		}
	}
	return nil
}

func currencyDeltas(summary *curio.Summary) map[model.Column]int64 {
	out := make(map[model.Column]int64, len(summary.Runes)+1)
	for col, n := range summary.Runes {
		out[col] += n
	}
	if summary.Gold > 0 {
		out[model.ColGold] += summary.Gold
	}
	return out
}
