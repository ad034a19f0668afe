package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// TransferService 玩家之间转赠金币、装备、材料与钥匙
type TransferService struct {
	logger logger.Logger
	dao    *dao.DAO
	invCap int
}

func NewTransferService(l logger.Logger, d *dao.DAO, inventoryCap int) *TransferService {
	if inventoryCap <= 0 {
		inventoryCap = model.InventoryCap
	}
	return &TransferService{
		logger: l.Named("service.transfer"),
		dao:    d,
		invCap: inventoryCap,
	}
}

// checkParties 拒绝转赠给自己，双方都须已注册
func (s *TransferService) checkParties(ctx context.Context, from, to, serverID string) error {
	if to == "" {
		return errcode.InvalidInput("a receiver is required")
	}
	if from == to {
		return errcode.InvalidInput("you cannot send to yourself")
	}
	if _, err := loadUser(ctx, s.dao, from, serverID); err != nil {
		return err
	}
	if _, err := loadUser(ctx, s.dao, to, serverID); err != nil {
		return err
	}
	return nil
}

// moveColumn users 计数列：发送方条件扣减、接收方增加，同一事务
func (s *TransferService) moveColumn(ctx context.Context, from, to, serverID string, col model.Column, amount int64) error {
	return s.dao.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.dao.Users.Consume(ctx, from, serverID, col, amount)
		if err != nil {
			return err
		}
		if !ok {
			return insufficient(col, amount)
		}
		return s.dao.Users.Modify(ctx, to, serverID, col, amount)
	})
}

func insufficient(col model.Column, amount int64) error {
	if col == model.ColGold {
		return errcode.InsufficientFunds(amount)
	}
	return errcode.InsufficientMaterial(string(col), amount)
}

// SendGold 转赠金币
func (s *TransferService) SendGold(ctx context.Context, from, to, serverID string, amount int64) error {
	if amount <= 0 {
		return errcode.InvalidInput("amount must be positive")
	}
	if err := s.checkParties(ctx, from, to, serverID); err != nil {
		return err
	}
	if err := s.moveColumn(ctx, from, to, serverID, model.ColGold, amount); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "gold sent", "from", from, "to", to, "amount", amount)
	return nil
}

// SendItem 转赠一件未装备的装备，接收方该类背包未满
func (s *TransferService) SendItem(ctx context.Context, from, to, serverID string, kind model.ItemKind, itemID int64) (*model.Item, error) {
	if err := s.checkParties(ctx, from, to, serverID); err != nil {
		return nil, err
	}

	it, err := s.dao.Items.Owned(ctx, from, serverID, kind, itemID)
	if err != nil {
		return nil, err
	}
	if it.Equipped {
		return nil, errcode.EquippedBlock(string(kind), itemID)
	}

	n, err := s.dao.Items.Count(ctx, to, serverID, kind)
	if err != nil {
		return nil, err
	}
	if n >= s.invCap {
		return nil, errcode.InventoryFull(string(kind), s.invCap)
	}

	ok, err := s.dao.Items.Transfer(ctx, kind, itemID, serverID, from, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 读取后被装备或转走
		return nil, errcode.EquippedBlock(string(kind), itemID)
	}

	it.UserID = to
	s.logger.InfoContext(ctx, "item sent", "from", from, "to", to, "kind", kind, "item_id", itemID)
	return it, nil
}

// SendMaterial 转赠材料：users 表可转赠列或采集资源列
func (s *TransferService) SendMaterial(ctx context.Context, from, to, serverID, material string, amount int64) error {
	if amount <= 0 {
		return errcode.InvalidInput("amount must be positive")
	}

	col := model.Column(material)
	transferable := false
	for _, c := range model.Transferable {
		if c == col {
			transferable = true
			break
		}
	}
	sk, isResource := model.SkillForResource(material)
	if !transferable && !isResource {
		return errcode.InvalidInput("unknown material %q", material)
	}

	if err := s.checkParties(ctx, from, to, serverID); err != nil {
		return err
	}

	if transferable {
		if err := s.moveColumn(ctx, from, to, serverID, col, amount); err != nil {
			return err
		}
	} else {
		err := s.dao.WithTx(ctx, func(ctx context.Context) error {
			ok, err := s.dao.Skills.ConsumeResource(ctx, from, serverID, sk, material, amount)
			if err != nil {
				return err
			}
			if !ok {
				return errcode.InsufficientMaterial(material, amount)
			}
			return s.dao.Skills.UpdateBatch(ctx, to, serverID, sk, map[string]int64{material: amount})
		})
		if err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "material sent", "from", from, "to", to, "material", material, "amount", amount)
	return nil
}

// SendKey 转赠钥匙
func (s *TransferService) SendKey(ctx context.Context, from, to, serverID, kind string, amount int64) error {
	col, ok := model.KeyColumn(kind)
	if !ok {
		return errcode.InvalidInput("unknown key kind %q", kind)
	}
	if amount <= 0 {
		return errcode.InvalidInput("amount must be positive")
	}
	if err := s.checkParties(ctx, from, to, serverID); err != nil {
		return err
	}
	if err := s.moveColumn(ctx, from, to, serverID, col, amount); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "key sent", "from", from, "to", to, "key", col, "amount", amount)
	return nil
}
