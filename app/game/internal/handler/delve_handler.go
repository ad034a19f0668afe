package handler

import (
	"context"
	"fmt"

	"github.com/lk2023060901/ascend/app/game/internal/delve"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
)

func (c *Controller) handleDelve(ctx context.Context, in *model.Intent) (*model.View, error) {
	f, err := c.begin(ctx, in, flowDelve)
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	run, err := c.svc.Delve.Start(ctx, in.UserID, in.ServerID)
	if err != nil {
		c.end(ctx, f)
		return nil, err
	}
	f.run = run
	c.arm(f, c.cfg.Timeouts.Delve, delveTimeout)
	return delveRunView(run, nil), nil
}

// delveTimeout 超时视为放弃，货物不结算
func delveTimeout(_ context.Context, f *flow) *model.View {
	return model.NewView("Delve Abandoned",
		fmt.Sprintf("You stopped responding at depth %d. Your cargo is lost.", f.run.Depth))
}

func (c *Controller) handleDelveAction(ctx context.Context, in *model.Intent) (*model.View, error) {
	a, ok := delve.ParseAction(in.Arg("action"))
	if !ok {
		return nil, errcode.InvalidInput("unknown delve action %q", in.Arg("action"))
	}

	return c.within(ctx, in, flowDelve, func(f *flow) (*model.View, error) {
		step, err := c.svc.Delve.Act(ctx, in.UserID, in.ServerID, f.run, a)
		if err != nil {
			return nil, err
		}
		if f.run.State.Terminal() {
			c.end(ctx, f)
		} else {
			c.arm(f, c.cfg.Timeouts.Delve, delveTimeout)
		}
		return delveRunView(f.run, &step), nil
	})
}

func (c *Controller) handleDelveShop(ctx context.Context, in *model.Intent) (*model.View, error) {
	p, err := c.svc.Delve.Profile(ctx, in.UserID, in.ServerID)
	if err != nil {
		return nil, err
	}
	return delveShopView(p), nil
}

func (c *Controller) handleDelveUpgrade(ctx context.Context, in *model.Intent) (*model.View, error) {
	stat, ok := model.ParseDelveStat(in.Arg("stat"))
	if !ok {
		return nil, errcode.InvalidInput("unknown delve stat %q", in.Arg("stat"))
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		p, cost, err := c.svc.Delve.Upgrade(ctx, in.UserID, in.ServerID, stat)
		if err != nil {
			return nil, err
		}
		return delveShopView(p).Field("Upgraded", fmt.Sprintf("%s is now level %d for %d shards", stat, p.Level(stat), cost)), nil
	})
}
