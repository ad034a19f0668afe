package dao

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database"
)

// IdeologyDAO ideologies 表访问
type IdeologyDAO struct {
	base
}

// Get 按名称读取
func (d *IdeologyDAO) Get(ctx context.Context, serverID, name string) (*model.Ideology, error) {
	i := &model.Ideology{}
	q := d.sb.Select("server_id", "name", "founder_user", "followers").
		From("ideologies").
		Where(squirrel.Eq{"server_id": serverID, "name": name})
	if err := d.scanOne(ctx, q, &i.ServerID, &i.Name, &i.FounderUser, &i.Followers); err != nil {
		return nil, err
	}
	return i, nil
}

// Create 创建教派
func (d *IdeologyDAO) Create(ctx context.Context, i *model.Ideology) error {
	q := d.sb.Insert("ideologies").
		Columns("server_id", "name", "founder_user", "followers").
		Values(i.ServerID, i.Name, i.FounderUser, i.Followers)
	_, err := d.exec(ctx, "ideology_create", q)
	return err
}

// AddFollowers 原子增加信徒数
func (d *IdeologyDAO) AddFollowers(ctx context.Context, serverID, name string, delta int64) error {
	q := d.sb.Update("ideologies").
		Set("followers", incr("followers", delta)).
		Where(squirrel.Eq{"server_id": serverID, "name": name})
	if delta < 0 {
		q = q.Where(squirrel.GtOrEq{"followers": -delta})
	}
	n, err := d.exec(ctx, "ideology_add_followers", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Top 按信徒数降序
func (d *IdeologyDAO) Top(ctx context.Context, serverID string, limit int) ([]*model.Ideology, error) {
	var out []*model.Ideology
	q := d.sb.Select("server_id", "name", "founder_user", "followers").
		From("ideologies").
		Where(squirrel.Eq{"server_id": serverID}).
		OrderBy("followers DESC", "name").
		Limit(uint64(limit))
	err := d.scanAll(ctx, q, func(rows database.Rows) error {
		i := &model.Ideology{}
		if err := rows.Scan(&i.ServerID, &i.Name, &i.FounderUser, &i.Followers); err != nil {
			return err
		}
		out = append(out, i)
		return nil
	})
	return out, err
}
