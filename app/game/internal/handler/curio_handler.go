package handler

import (
	"context"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
)

func (c *Controller) handleCurios(ctx context.Context, in *model.Intent) (*model.View, error) {
	balance, err := c.svc.Curio.Balance(ctx, in.UserID, in.ServerID)
	if err != nil {
		return nil, err
	}

	f, err := c.begin(ctx, in, flowCurio)
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	f.push(screen{name: "curios", render: func(ctx context.Context) (*model.View, error) {
		n, err := c.svc.Curio.Balance(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		return curioMenuView(n), nil
	}})
	c.arm(f, c.cfg.Timeouts.Curio, nil)
	return curioMenuView(balance), nil
}

// handleBulkCurios 在珍奇菜单中开启，或不经菜单直接开启
func (c *Controller) handleBulkCurios(ctx context.Context, in *model.Intent) (*model.View, error) {
	amount, ok := in.IntArg("amount")
	if !ok || amount <= 0 {
		return nil, errcode.InvalidInput("amount must be a positive number")
	}

	open := func() (*model.View, error) {
		summary, err := c.svc.Curio.ProcessOpen(ctx, in.UserID, in.ServerID, int(amount))
		if err != nil {
			return nil, err
		}
		return curioSummaryView(summary), nil
	}

	if f := c.lookup(in.UserID); f != nil && f.kind == flowCurio {
		return c.within(ctx, in, flowCurio, func(f *flow) (*model.View, error) {
			v, err := open()
			if err != nil {
				return nil, err
			}
			c.end(ctx, f)
			return v, nil
		})
	}
	return c.exclusive(ctx, in, open)
}
