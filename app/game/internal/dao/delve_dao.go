package dao

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
)

// DelveDAO delve_progress 表访问
type DelveDAO struct {
	base
}

// Get 读取深潜档案
func (d *DelveDAO) Get(ctx context.Context, userID, serverID string) (*model.DelveProfile, error) {
	p := &model.DelveProfile{UserID: userID, ServerID: serverID}
	q := d.sb.Select("delve_xp", "obsidian_shards", "fuel_level", "struct_level", "sensor_level").
		From("delve_progress").
		Where(owner(userID, serverID))
	if err := d.scanOne(ctx, q, &p.XP, &p.Shards, &p.FuelLevel, &p.StructLevel, &p.SensorLevel); err != nil {
		return nil, err
	}
	return p, nil
}

// Create 写入初始档案
func (d *DelveDAO) Create(ctx context.Context, p *model.DelveProfile) error {
	q := d.sb.Insert("delve_progress").
		Columns("user_id", "server_id", "delve_xp", "obsidian_shards", "fuel_level", "struct_level", "sensor_level").
		Values(p.UserID, p.ServerID, p.XP, p.Shards, p.FuelLevel, p.StructLevel, p.SensorLevel)
	_, err := d.exec(ctx, "delve_create", q)
	return err
}

// Upgrade 扣碎片并升一级。以当前等级和碎片余额为条件，未生效返回 false
func (d *DelveDAO) Upgrade(ctx context.Context, userID, serverID string, stat model.DelveStat, current int, cost int64) (bool, error) {
	if _, ok := model.ParseDelveStat(string(stat)); !ok {
		return false, errcode.InvalidInput("unknown delve stat %q", stat)
	}
	col := stat.Column()
	q := d.sb.Update("delve_progress").
		Set("obsidian_shards", decr("obsidian_shards", cost)).
		Set(col, incr(col, 1)).
		Where(owner(userID, serverID)).
		Where(squirrel.Eq{col: current}).
		Where(squirrel.Lt{col: model.DelveMaxLevel}).
		Where(squirrel.GtOrEq{"obsidian_shards": cost})
	n, err := d.exec(ctx, "delve_upgrade", q)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AddRewards 提取成功后写入碎片与经验
func (d *DelveDAO) AddRewards(ctx context.Context, userID, serverID string, shards, xp int64) error {
	if shards < 0 || xp < 0 {
		return errcode.InvalidInput("negative delve reward")
	}
	if shards == 0 && xp == 0 {
		return nil
	}
	q := d.sb.Update("delve_progress").
		Set("obsidian_shards", incr("obsidian_shards", shards)).
		Set("delve_xp", incr("delve_xp", xp)).
		Where(owner(userID, serverID))
	_, err := d.exec(ctx, "delve_add_rewards", q)
	return err
}
