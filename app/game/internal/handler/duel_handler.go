package handler

import (
	"context"
	"fmt"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/pvp"
	"github.com/lk2023060901/ascend/app/game/internal/service"
)

func (c *Controller) handleDuel(ctx context.Context, in *model.Intent) (*model.View, error) {
	target := in.Arg("opponent")
	wager, ok := in.IntArg("amount")
	if target == "" || !ok {
		return nil, errcode.InvalidInput("a duel needs an opponent and a wager")
	}

	// 1. 双方钱包与状态
	if err := c.svc.Duel.Verify(ctx, in.UserID, target, in.ServerID, wager); err != nil {
		return nil, err
	}
	if kind, busy := c.sessions.IsActive(target); busy {
		return nil, errcode.AlreadyBusy(target, kind)
	}

	// 2. 挑战者上锁并登记邀请
	f, err := c.begin(ctx, in, flowDuel)
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	f.duel = &duelState{challenger: in.UserID, target: target, wager: wager}
	c.mu.Lock()
	if _, pending := c.invites[target]; pending {
		c.mu.Unlock()
		c.end(ctx, f)
		return nil, errcode.InvalidInput("%s already has a pending challenge", target)
	}
	c.invites[target] = f
	c.mu.Unlock()

	c.arm(f, c.cfg.Timeouts.Duel, c.duelTimeout)
	c.logger.InfoContext(ctx, "duel challenge sent", "target", target, "wager", wager)
	return duelInviteView(in.UserID, target, wager), nil
}

func (c *Controller) handleDuelResponse(ctx context.Context, in *model.Intent) (*model.View, error) {
	c.mu.Lock()
	f := c.invites[in.UserID]
	c.mu.Unlock()
	if f == nil {
		return nil, errcode.InvalidInput("you have no pending duel challenge")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.duel
	if f.ended || d.match != nil {
		return nil, errcode.InvalidInput("you have no pending duel challenge")
	}

	switch in.Arg("answer") {
	case "decline":
		c.end(ctx, f)
		return model.NewView("Duel Declined", fmt.Sprintf("%s declined the challenge from %s.", d.target, d.challenger)).Close(), nil

	case "accept":
		// 接受时重新校验，挑战期间钱包可能变化
		if err := c.svc.Duel.Verify(ctx, d.challenger, d.target, f.serverID, d.wager); err != nil {
			c.end(ctx, f)
			return nil, err
		}
		if err := c.join(ctx, f, in); err != nil {
			return nil, err
		}
		c.mu.Lock()
		delete(c.invites, in.UserID)
		c.mu.Unlock()

		d.match = c.svc.Duel.Start(d.challenger, d.target, d.wager)
		c.arm(f, c.cfg.Timeouts.Duel, c.duelTimeout)
		return duelView(d.match, nil), nil
	}
	return nil, errcode.InvalidInput("answer with accept or decline")
}

func (c *Controller) handleDuelAction(ctx context.Context, in *model.Intent) (*model.View, error) {
	a, ok := pvp.ParseAction(in.Arg("action"))
	if !ok {
		return nil, errcode.InvalidInput("unknown duel action %q", in.Arg("action"))
	}

	return c.within(ctx, in, flowDuel, func(f *flow) (*model.View, error) {
		d := f.duel
		if d.match == nil {
			return nil, errcode.InvalidInput("the duel has not started yet")
		}
		res, err := c.svc.Duel.Act(d.match, in.UserID, a)
		if err != nil {
			return nil, err
		}

		if !d.match.Finished() {
			c.arm(f, c.cfg.Timeouts.Duel, c.duelTimeout)
			return duelView(d.match, &res), nil
		}

		err = c.svc.Duel.Settle(ctx, f.serverID, d.match, service.SettleKnockout)
		c.end(ctx, f)
		if err != nil {
			return nil, err
		}
		return duelView(d.match, &res), nil
	})
}

// duelTimeout 未回应的邀请过期；对局中超时的一方判负并结算
func (c *Controller) duelTimeout(ctx context.Context, f *flow) *model.View {
	d := f.duel
	if d.match == nil {
		return model.NewView("Duel Expired", fmt.Sprintf("%s did not answer the challenge.", d.target))
	}

	stalled := d.match.Current()
	if err := d.match.Forfeit(stalled); err != nil {
		return errorView(err)
	}
	if err := c.svc.Duel.Settle(ctx, f.serverID, d.match, service.SettleForfeit); err != nil {
		c.logger.ErrorContext(ctx, "forfeit settlement failed", "stalled", stalled, "error", err)
		return errorView(err)
	}
	v := duelView(d.match, nil)
	v.Description = fmt.Sprintf("%s stopped responding and forfeits. %s wins %s.", stalled, d.match.WinnerID(), gold(d.wager))
	return v
}
