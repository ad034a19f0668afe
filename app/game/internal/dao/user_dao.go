package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database"
)

// UserDAO users 表访问
type UserDAO struct {
	base
}

var userColumns = []string{
	"user_id", "server_id", "name", "gender", "portrait_url", "ideology_name",
	"level", "xp", "attack", "defence", "max_hp", "ascension_count", "passive_points",
	"gold", "potions", "curios", "dragon_keys", "angel_keys", "soul_cores", "void_frags",
	"balance_fragments", "refinement_runes", "potential_runes", "imbue_runes", "shatter_runes",
	"temple_workers", "last_propagate_at", "doors_enabled", "created_at",
}

// Get 读取玩家快照，不存在返回 ErrNotFound
func (d *UserDAO) Get(ctx context.Context, userID, serverID string) (*model.User, error) {
	var (
		u         model.User
		propagate int64
		created   int64
	)
	q := d.sb.Select(userColumns...).From("users").Where(owner(userID, serverID))
	err := d.scanOne(ctx, q,
		&u.UserID, &u.ServerID, &u.Name, &u.Gender, &u.PortraitURL, &u.IdeologyName,
		&u.Level, &u.XP, &u.Attack, &u.Defence, &u.MaxHP, &u.AscensionCount, &u.PassivePoints,
		&u.Gold, &u.Potions, &u.Curios, &u.DragonKeys, &u.AngelKeys, &u.SoulCores, &u.VoidFrags,
		&u.BalanceFragments, &u.RefinementRunes, &u.PotentialRunes, &u.ImbueRunes, &u.ShatterRunes,
		&u.TempleWorkers, &propagate, &u.DoorsEnabled, &created,
	)
	if err != nil {
		return nil, err
	}
	u.LastPropagateAt = fromUnix(propagate)
	u.CreatedAt = fromUnix(created)
	return &u, nil
}

// Exists 是否已注册
func (d *UserDAO) Exists(ctx context.Context, userID, serverID string) (bool, error) {
	var n int64
	q := d.sb.Select("COUNT(*)").From("users").Where(owner(userID, serverID))
	if err := d.scanOne(ctx, q, &n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create 插入新玩家
func (d *UserDAO) Create(ctx context.Context, u *model.User) error {
	q := d.sb.Insert("users").Columns(userColumns...).Values(
		u.UserID, u.ServerID, u.Name, u.Gender, u.PortraitURL, u.IdeologyName,
		u.Level, u.XP, u.Attack, u.Defence, u.MaxHP, u.AscensionCount, u.PassivePoints,
		u.Gold, u.Potions, u.Curios, u.DragonKeys, u.AngelKeys, u.SoulCores, u.VoidFrags,
		u.BalanceFragments, u.RefinementRunes, u.PotentialRunes, u.ImbueRunes, u.ShatterRunes,
		u.TempleWorkers, unix(u.LastPropagateAt), u.DoorsEnabled, unix(u.CreatedAt),
	)
	if _, err := d.exec(ctx, "user_create", q); err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "user created", "user_id", u.UserID, "server_id", u.ServerID)
	return nil
}

// Modify 计数列原子增减。delta 为负时带 col >= -delta 条件，余额不足返回 InsufficientMaterial
func (d *UserDAO) Modify(ctx context.Context, userID, serverID string, col model.Column, delta int64) error {
	if !model.IsUserCounter(col) {
		return errcode.InvalidInput("unknown column %q", col)
	}
	if delta == 0 {
		return nil
	}
	if delta < 0 {
		ok, err := d.Consume(ctx, userID, serverID, col, -delta)
		if err != nil {
			return err
		}
		if !ok {
			return insufficient(col, -delta)
		}
		return nil
	}

	q := d.sb.Update("users").Set(string(col), incr(string(col), delta)).Where(owner(userID, serverID))
	n, err := d.exec(ctx, "user_modify", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return errcode.NotRegistered(userID)
	}
	return nil
}

// Consume 条件扣减：仅当 col >= amount 时更新，返回是否扣减成功
func (d *UserDAO) Consume(ctx context.Context, userID, serverID string, col model.Column, amount int64) (bool, error) {
	if !model.IsUserCounter(col) {
		return false, errcode.InvalidInput("unknown column %q", col)
	}
	if amount <= 0 {
		return false, errcode.InvalidInput("amount must be positive")
	}
	q := d.sb.Update("users").
		Set(string(col), decr(string(col), amount)).
		Where(owner(userID, serverID)).
		Where(squirrel.GtOrEq{string(col): amount})
	n, err := d.exec(ctx, "user_consume", q)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// AddMany 多列增加合并为一条 UPDATE，负值视为非法
func (d *UserDAO) AddMany(ctx context.Context, userID, serverID string, deltas map[model.Column]int64) error {
	q := d.sb.Update("users").Where(owner(userID, serverID))
	cols := 0
	for _, col := range sortedColumns(deltas) {
		delta := deltas[col]
		if !model.IsUserCounter(col) {
			return errcode.InvalidInput("unknown column %q", col)
		}
		if delta < 0 {
			return errcode.InvalidInput("negative delta for %s", col)
		}
		if delta == 0 {
			continue
		}
		q = q.Set(string(col), incr(string(col), delta))
		cols++
	}
	if cols == 0 {
		return nil
	}

	n, err := d.exec(ctx, "user_add_many", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return errcode.NotRegistered(userID)
	}
	return nil
}

// SetLastPropagate 记录传教时间
func (d *UserDAO) SetLastPropagate(ctx context.Context, userID, serverID string, at time.Time) error {
	q := d.sb.Update("users").Set("last_propagate_at", unix(at)).Where(owner(userID, serverID))
	_, err := d.exec(ctx, "user_set_propagate", q)
	return err
}

// SetDoors 设置随机门开关
func (d *UserDAO) SetDoors(ctx context.Context, userID, serverID string, enabled bool) error {
	q := d.sb.Update("users").Set("doors_enabled", enabled).Where(owner(userID, serverID))
	_, err := d.exec(ctx, "user_set_doors", q)
	return err
}

// SetIdeology 更换所属教派
func (d *UserDAO) SetIdeology(ctx context.Context, userID, serverID, name string) error {
	q := d.sb.Update("users").Set("ideology_name", name).Where(owner(userID, serverID))
	_, err := d.exec(ctx, "user_set_ideology", q)
	return err
}

// ListServer 服务器内全部玩家 ID，按注册顺序
func (d *UserDAO) ListServer(ctx context.Context, serverID string) ([]string, error) {
	var ids []string
	q := d.sb.Select("user_id").From("users").
		Where(squirrel.Eq{"server_id": serverID}).
		OrderBy("created_at", "user_id")
	err := d.scanAll(ctx, q, func(rows database.Rows) error {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	return ids, err
}

func insufficient(col model.Column, need int64) error {
	if col == model.ColGold {
		return errcode.InsufficientFunds(need)
	}
	return errcode.InsufficientMaterial(string(col), need)
}

// IsNotFound 判断记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
