package handler

import (
	"context"
	"slices"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/service"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
)

func (c *Controller) handleRegister(ctx context.Context, in *model.Intent) (*model.View, error) {
	ok, err := c.svc.Register.IsRegistered(ctx, in.UserID, in.ServerID)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, errcode.InvalidInput("you are already registered")
	}

	f, err := c.begin(ctx, in, flowRegister)
	if err != nil {
		return nil, err
	}
	defer f.mu.Unlock()

	name := in.Arg("name")
	if name == "" {
		name = in.UserID
	}
	f.reg = &service.Registration{UserID: in.UserID, ServerID: in.ServerID, Name: name}
	f.push(screen{name: "gender", render: func(context.Context) (*model.View, error) {
		return genderView(), nil
	}})
	c.arm(f, c.cfg.Timeouts.Register, nil)
	return genderView(), nil
}

func (c *Controller) handleRegisterGender(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.within(ctx, in, flowRegister, func(f *flow) (*model.View, error) {
		g := in.Arg("gender")
		if !service.ValidGender(g) {
			return nil, errcode.InvalidInput("unknown gender %q", g)
		}
		f.reg.Gender = g

		portraits := c.svc.Register.Portraits(g)
		f.replace(screen{name: "portrait", render: func(context.Context) (*model.View, error) {
			return portraitView(portraits), nil
		}})
		c.arm(f, c.cfg.Timeouts.Register, nil)
		return portraitView(portraits), nil
	})
}

func (c *Controller) handleRegisterPortrait(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.within(ctx, in, flowRegister, func(f *flow) (*model.View, error) {
		if f.reg.Gender == "" {
			return nil, errcode.InvalidInput("choose a gender first")
		}
		url := in.Arg("portrait")
		portraits := c.svc.Register.Portraits(f.reg.Gender)
		if len(portraits) > 0 && !slices.ContainsFunc(portraits, func(p tables.Portrait) bool { return p.URL == url }) {
			return nil, errcode.InvalidInput("unknown portrait")
		}
		f.reg.Portrait = url

		f.replace(screen{name: "ideology", render: func(context.Context) (*model.View, error) {
			return ideologyPromptView(), nil
		}})
		c.arm(f, c.cfg.Timeouts.Register, nil)
		return ideologyPromptView(), nil
	})
}

func (c *Controller) handleRegisterIdeology(ctx context.Context, in *model.Intent) (*model.View, error) {
	return c.within(ctx, in, flowRegister, func(f *flow) (*model.View, error) {
		if f.reg.Portrait == "" && len(c.svc.Register.Portraits(f.reg.Gender)) > 0 {
			return nil, errcode.InvalidInput("choose a portrait first")
		}
		name := in.Arg("name")
		if name == "" {
			name = in.Arg("ideology")
		}
		r := *f.reg
		r.Ideology = name

		u, founded, err := c.svc.Register.Register(ctx, r)
		if err != nil {
			return nil, err
		}
		c.end(ctx, f)
		return welcomeView(u, founded), nil
	})
}
