package service

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/pvp"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
)

// 决斗结算原因
const (
	SettleKnockout = "knockout"
	SettleForfeit  = "forfeit"
)

// DuelService 决斗：赌注校验、回合推进、结算
type DuelService struct {
	logger  logger.Logger
	dao     *dao.DAO
	rand    random.Source
	metrics *metrics.GameMetrics
}

func NewDuelService(l logger.Logger, d *dao.DAO, src random.Source, m *metrics.GameMetrics) *DuelService {
	return &DuelService{
		logger:  l.Named("service.duel"),
		dao:     d,
		rand:    src,
		metrics: m,
	}
}

// Verify 校验双方均已注册且钱包足以支付赌注
func (s *DuelService) Verify(ctx context.Context, challenger, target, serverID string, wager int64) error {
	if wager <= 0 {
		return errcode.InvalidInput("wager must be positive")
	}
	if challenger == target {
		return errcode.InvalidInput("you cannot duel yourself")
	}

	c, err := loadUser(ctx, s.dao, challenger, serverID)
	if err != nil {
		return err
	}
	if c.Gold < wager {
		return errcode.InsufficientFunds(wager)
	}

	t, err := loadUser(ctx, s.dao, target, serverID)
	if err != nil {
		return err
	}
	if t.Gold < wager {
		return errcode.InvalidInput("%s cannot cover a wager of %d gold", t.Name, wager)
	}
	return nil
}

// Start 创建决斗并随机先手
func (s *DuelService) Start(challenger, target string, wager int64) *pvp.Duel {
	return pvp.New(s.rand, challenger, target, wager)
}

// Act 当前玩家执行一回合
func (s *DuelService) Act(d *pvp.Duel, userID string, a pvp.Action) (pvp.TurnResult, error) {
	return d.Act(s.rand, userID, a)
}

// Settle 赌注结算：败者条件扣除、胜者增加，同一事务提交
func (s *DuelService) Settle(ctx context.Context, serverID string, d *pvp.Duel, reason string) error {
	if !d.Finished() {
		return errcode.InvalidInput("the duel is not finished")
	}
	winner, loser := d.WinnerID(), d.LoserID()

	err := s.dao.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.dao.Users.Consume(ctx, loser, serverID, model.ColGold, d.Wager)
		if err != nil {
			return err
		}
		if !ok {
			return errcode.InsufficientFunds(d.Wager)
		}
		return s.dao.Users.Modify(ctx, winner, serverID, model.ColGold, d.Wager)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "duel settlement failed",
			"winner", winner,
			"loser", loser,
			"wager", d.Wager,
			"error", err,
		)
		return err
	}

	s.metrics.RecordDuelSettlement(reason)
	s.logger.InfoContext(ctx, "duel settled",
		"winner", winner,
		"loser", loser,
		"wager", d.Wager,
		"rounds", d.Rounds,
		"reason", reason,
	)
	return nil
}
