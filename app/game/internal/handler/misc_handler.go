package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
)

// timeout 各会话种类的超时
func (c *Controller) timeout(kind string) time.Duration {
	t := c.cfg.Timeouts
	switch kind {
	case flowRegister:
		return t.Register
	case flowDelve:
		return t.Delve
	case flowDuel:
		return t.Duel
	case flowSlayer:
		return t.Slayer
	default:
		return t.Curio
	}
}

// handleBack 弹出视图栈；栈空时结束会话
func (c *Controller) handleBack(ctx context.Context, in *model.Intent) (*model.View, error) {
	f := c.lookup(in.UserID)
	if f == nil {
		return nil, errcode.InvalidInput("nothing to go back to")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ended || len(f.stack) == 0 {
		return nil, errcode.InvalidInput("nothing to go back to")
	}

	f.stack = f.stack[:len(f.stack)-1]
	s, ok := f.top()
	if !ok {
		c.end(ctx, f)
		return model.NewView("Closed", "").Close(), nil
	}

	v, err := s.render(ctx)
	if err != nil {
		if !errcode.UserFacing(err) {
			c.end(ctx, f)
		}
		return nil, err
	}
	c.arm(f, c.timeout(f.kind), f.onTimeout)
	return v, nil
}

// handleProfile 玩家总览，带 kind 参数时列出该类装备
func (c *Controller) handleProfile(ctx context.Context, in *model.Intent) (*model.View, error) {
	if name := in.Arg("kind"); name != "" {
		kind, ok := model.ParseItemKind(name)
		if !ok {
			return nil, errcode.InvalidInput("unknown item kind %q", name)
		}
		items, err := c.svc.Item.List(ctx, in.UserID, in.ServerID, kind)
		if err != nil {
			return nil, err
		}
		v := model.NewView(title(string(kind))+"s", fmt.Sprintf("%d/%d", len(items), c.svc.Profile.InventoryCap()))
		for _, it := range items {
			v.Field(it.Name, itemLine(it))
		}
		return v, nil
	}

	p, err := c.svc.Profile.Get(ctx, in.UserID, in.ServerID)
	if err != nil {
		return nil, err
	}
	return profileView(p), nil
}

// 转账

func recipient(in *model.Intent) (string, error) {
	to := in.Arg("to")
	if to == "" {
		return "", errcode.InvalidInput("choose who to send to")
	}
	return to, nil
}

func positive(in *model.Intent, name string, def int64) (int64, error) {
	if in.Arg(name) == "" && def > 0 {
		return def, nil
	}
	n, ok := in.IntArg(name)
	if !ok || n <= 0 {
		return 0, errcode.InvalidInput("%s must be a positive number", name)
	}
	return n, nil
}

func (c *Controller) handleSendGold(ctx context.Context, in *model.Intent) (*model.View, error) {
	to, err := recipient(in)
	if err != nil {
		return nil, err
	}
	amount, err := positive(in, "amount", 0)
	if err != nil {
		return nil, err
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		if err := c.svc.Transfer.SendGold(ctx, in.UserID, to, in.ServerID, amount); err != nil {
			return nil, err
		}
		return model.NewView("Gold Sent", fmt.Sprintf("You sent %s gold to %s.", gold(amount), to)), nil
	})
}

func (c *Controller) handleSendItem(kind model.ItemKind) intentHandler {
	return func(ctx context.Context, in *model.Intent) (*model.View, error) {
		to, err := recipient(in)
		if err != nil {
			return nil, err
		}
		id, err := positive(in, "id", 0)
		if err != nil {
			return nil, err
		}
		return c.exclusive(ctx, in, func() (*model.View, error) {
			it, err := c.svc.Transfer.SendItem(ctx, in.UserID, to, in.ServerID, kind, id)
			if err != nil {
				return nil, err
			}
			return model.NewView(title(string(kind))+" Sent", fmt.Sprintf("You sent %s to %s.", it.Name, to)).
				Field("Item", itemLine(it)), nil
		})
	}
}

func (c *Controller) handleSendMaterial(ctx context.Context, in *model.Intent) (*model.View, error) {
	to, err := recipient(in)
	if err != nil {
		return nil, err
	}
	material := in.Arg("material")
	if material == "" {
		return nil, errcode.InvalidInput("choose a material")
	}
	amount, err := positive(in, "amount", 0)
	if err != nil {
		return nil, err
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		if err := c.svc.Transfer.SendMaterial(ctx, in.UserID, to, in.ServerID, material, amount); err != nil {
			return nil, err
		}
		return model.NewView("Material Sent", fmt.Sprintf("You sent %d %s to %s.", amount, title(material), to)), nil
	})
}

func (c *Controller) handleSendKey(ctx context.Context, in *model.Intent) (*model.View, error) {
	to, err := recipient(in)
	if err != nil {
		return nil, err
	}
	kind := in.Arg("kind")
	amount, err := positive(in, "amount", 1)
	if err != nil {
		return nil, err
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		if err := c.svc.Transfer.SendKey(ctx, in.UserID, to, in.ServerID, kind, amount); err != nil {
			return nil, err
		}
		return model.NewView("Keys Sent", fmt.Sprintf("You sent %d %s keys to %s.", amount, kind, to)), nil
	})
}

// 教派

func (c *Controller) handleIdeology(ctx context.Context, in *model.Intent) (*model.View, error) {
	mine, top, err := c.svc.Ideology.Info(ctx, in.UserID, in.ServerID)
	if err != nil {
		return nil, err
	}
	return ideologyView(mine, top), nil
}

func (c *Controller) handlePropagate(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.exclusive(ctx, in, func() (*model.View, error) {
		i, gained, err := c.svc.Ideology.Propagate(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		top, err := c.svc.Ideology.Leaderboard(ctx, in.ServerID)
		if err != nil {
			return nil, err
		}
		v := ideologyView(i, top)
		v.Title = "Propagated"
		return v.IntField("Gained", gained), nil
	})
}

func (c *Controller) handleDoorsToggle(ctx context.Context, in *model.Intent) (*model.View, error) {
	enabled, err := c.svc.Profile.ToggleDoors(ctx, in.UserID, in.ServerID)
	if err != nil {
		return nil, err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return model.NewView("Doors", "Doors are now "+state+"."), nil
}

// 事件

func (c *Controller) handleSetupEvents(ctx context.Context, in *model.Intent) (*model.View, error) {
	channel := in.ChannelID
	if channel == "" {
		channel = in.Arg("channel")
	}
	if in.ServerID == "" || channel == "" {
		return nil, errcode.InvalidInput("events need a server and a channel")
	}

	created, err := c.svc.Event.Setup(ctx, in.ServerID, channel)
	if err != nil {
		return nil, err
	}
	if c.channels != nil && in.Sink != nil {
		c.channels.Attach(model.EventChannel{ServerID: in.ServerID, ChannelID: channel}, in.Sink)
	}

	desc := "Events will appear in this channel."
	if !created {
		desc = "Events already appear in this channel."
	}
	return model.NewView("Events", desc), nil
}

func (c *Controller) handleClaimEvent(ctx context.Context, in *model.Intent) (*model.View, error) {
	id := in.Arg("instance")
	if id == "" {
		return nil, errcode.InvalidInput("choose an event to claim")
	}
	inst, grant, err := c.svc.Event.Claim(ctx, in.UserID, in.ServerID, id)
	if err != nil {
		return nil, err
	}
	return claimView(inst, grant), nil
}

// 装备与工具

func itemRef(in *model.Intent) (model.ItemKind, int64, error) {
	kind, ok := model.ParseItemKind(in.Arg("kind"))
	if !ok {
		return "", 0, errcode.InvalidInput("unknown item kind %q", in.Arg("kind"))
	}
	id, ok := in.IntArg("id")
	if !ok || id <= 0 {
		return "", 0, errcode.InvalidInput("choose an item")
	}
	return kind, id, nil
}

func (c *Controller) handleUpgradeTool(ctx context.Context, in *model.Intent) (*model.View, error) {
	sk, ok := model.ParseSkill(in.Arg("skill"))
	if !ok {
		return nil, errcode.InvalidInput("unknown skill %q", in.Arg("skill"))
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		res, err := c.svc.Item.UpgradeTool(ctx, in.UserID, in.ServerID, sk)
		if err != nil {
			return nil, err
		}
		return model.NewView("Tool Upgraded",
			fmt.Sprintf("Your %s tool is now %s.", res.Skill, title(res.To))).
			Inline("Gold", gold(res.Gold)).
			IntField(title(res.Resource), res.Amount), nil
	})
}

func (c *Controller) handleEnhanceItem(ctx context.Context, in *model.Intent) (*model.View, error) {
	kind, id, err := itemRef(in)
	if err != nil {
		return nil, err
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		it, ok, err := c.svc.Item.Enhance(ctx, in.UserID, in.ServerID, kind, id)
		if err != nil {
			return nil, err
		}
		head := "Enhancement Failed"
		if ok {
			head = "Enhanced"
		}
		return itemView(head, it), nil
	})
}

func (c *Controller) handleDiscardItem(ctx context.Context, in *model.Intent) (*model.View, error) {
	kind, id, err := itemRef(in)
	if err != nil {
		return nil, err
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		if err := c.svc.Item.Discard(ctx, in.UserID, in.ServerID, kind, id); err != nil {
			return nil, err
		}
		return model.NewView("Discarded", fmt.Sprintf("%s #%d is gone.", title(string(kind)), id)), nil
	})
}

func (c *Controller) handleEquipItem(ctx context.Context, in *model.Intent) (*model.View, error) {
	kind, id, err := itemRef(in)
	if err != nil {
		return nil, err
	}
	return c.exclusive(ctx, in, func() (*model.View, error) {
		it, err := c.svc.Item.Equip(ctx, in.UserID, in.ServerID, kind, id)
		if err != nil {
			return nil, err
		}
		return itemView("Equipped", it), nil
	})
}
