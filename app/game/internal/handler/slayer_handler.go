package handler

import (
	"context"
	"fmt"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/slayer"
)

// dashboard 猎杀主页，始终位于视图栈底
func (c *Controller) dashboard(in *model.Intent, note string) screen {
	return screen{name: "dashboard", render: func(ctx context.Context) (*model.View, error) {
		p, err := c.svc.Slayer.Profile(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		return slayerView(p, note), nil
	}}
}

func (c *Controller) emblem(in *model.Intent) screen {
	return screen{name: "emblem", render: func(ctx context.Context) (*model.View, error) {
		p, err := c.svc.Slayer.Profile(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		e, err := c.svc.Slayer.Emblem(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		return emblemView(e, p.Level), nil
	}}
}

func (c *Controller) slot(in *model.Intent, n int, out *slayer.Outcome) screen {
	return screen{name: "slot", render: func(ctx context.Context) (*model.View, error) {
		p, err := c.svc.Slayer.Profile(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		e, err := c.svc.Slayer.Emblem(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		return slotView(e, p, n, out), nil
	}}
}

// home 回到主页并显示提示
func (c *Controller) home(ctx context.Context, f *flow, in *model.Intent, note string) (*model.View, error) {
	f.stack = f.stack[:0]
	s := c.dashboard(in, note)
	f.push(s)
	c.arm(f, c.cfg.Timeouts.Slayer, nil)
	return s.render(ctx)
}

func (c *Controller) handleSlayer(ctx context.Context, in *model.Intent) (*model.View, error) {
	f, err := c.begin(ctx, in, flowSlayer)
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	v, err := c.home(ctx, f, in, "")
	if err != nil {
		c.end(ctx, f)
		return nil, err
	}
	return v, nil
}

func (c *Controller) handleSlayerTask(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.within(ctx, in, flowSlayer, func(f *flow) (*model.View, error) {
		task, err := c.svc.Slayer.NewTask(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		return c.home(ctx, f, in, fmt.Sprintf("New task: slay %d %s.", task.Amount, task.Species))
	})
}

func (c *Controller) handleSlayerSkip(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.within(ctx, in, flowSlayer, func(f *flow) (*model.View, error) {
		if err := c.svc.Slayer.Skip(ctx, in.UserID, in.ServerID); err != nil {
			return nil, err
		}
		return c.home(ctx, f, in, fmt.Sprintf("Task skipped for %d points.", slayer.SkipCost))
	})
}

func (c *Controller) handleSlayerHunt(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.within(ctx, in, flowSlayer, func(f *flow) (*model.View, error) {
		kills, ok := in.IntArg("kills")
		if !ok {
			p, err := c.svc.Slayer.Profile(ctx, in.UserID, in.ServerID)
			if err != nil {
				return nil, err
			}
			kills = int64(p.TaskAmount - p.TaskProgress)
		}

		_, res, err := c.svc.Slayer.Hunt(ctx, in.UserID, in.ServerID, int(kills))
		if err != nil {
			return nil, err
		}
		note := fmt.Sprintf("You slew %d monsters, found %d essence and %d hearts.", len(res.Kills), res.Essence, res.Hearts)
		if res.Completed {
			note += fmt.Sprintf(" Task complete: +%d xp, +%d points.", res.XP, res.Points)
		}
		return c.home(ctx, f, in, note)
	})
}

func (c *Controller) handleSlayerEmblem(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.within(ctx, in, flowSlayer, func(f *flow) (*model.View, error) {
		s := c.emblem(in)
		v, err := s.render(ctx)
		if err != nil {
			return nil, err
		}
		f.replace(s)
		c.arm(f, c.cfg.Timeouts.Slayer, nil)
		return v, nil
	})
}

func (c *Controller) handleSlayerSlot(ctx context.Context, in *model.Intent) (*model.View, error) {
	n, ok := in.IntArg("slot")
	if !ok {
		return nil, errcode.InvalidInput("choose a slot")
	}

	return c.within(ctx, in, flowSlayer, func(f *flow) (*model.View, error) {
		var out *slayer.Outcome
		if name := in.Arg("op"); name != "" {
			op, ok := slayer.ParseSlotOp(name)
			if !ok {
				return nil, errcode.InvalidInput("unknown slot operation %q", name)
			}
			res, err := c.svc.Slayer.SlotOp(ctx, in.UserID, in.ServerID, int(n), op)
			if err != nil {
				return nil, err
			}
			out = &res
		}

		s := c.slot(in, int(n), out)
		v, err := s.render(ctx)
		if err != nil {
			return nil, err
		}
		if top, ok := f.top(); !ok || top.name != "emblem" && top.name != "slot" {
			f.push(c.emblem(in))
		}
		f.replace(s)
		c.arm(f, c.cfg.Timeouts.Slayer, nil)
		return v, nil
	})
}
