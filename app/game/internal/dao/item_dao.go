package dao

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database"
)

// ItemDAO 六张装备表访问，表名由 ItemKind 决定
type ItemDAO struct {
	base
}

var itemColumns = []string{
	"item_id", "user_id", "server_id", "item_name", "item_level",
	"attack", "defence", "rarity", "ward", "crit", "block", "evasion",
	"passive", "potential_remaining", "potential_level", "is_equipped",
}

func table(kind model.ItemKind) (string, error) {
	if _, ok := model.ParseItemKind(string(kind)); !ok {
		return "", errcode.InvalidInput("unknown item kind %q", kind)
	}
	return kind.Table(), nil
}

func scanItem(row database.Row, kind model.ItemKind) (*model.Item, error) {
	it := &model.Item{Kind: kind}
	err := row.Scan(&it.ItemID, &it.UserID, &it.ServerID, &it.Name, &it.Level,
		&it.Attack, &it.Defence, &it.Rarity, &it.Ward, &it.Crit, &it.Block, &it.Evasion,
		&it.Passive, &it.PotentialRemaining, &it.PotentialLevel, &it.Equipped)
	if err != nil {
		return nil, err
	}
	return it, nil
}

// Insert 写入新装备，ItemID 由调用方生成
func (d *ItemDAO) Insert(ctx context.Context, it *model.Item) error {
	tbl, err := table(it.Kind)
	if err != nil {
		return err
	}
	q := d.sb.Insert(tbl).Columns(append(itemColumns, "created_at")...).Values(
		it.ItemID, it.UserID, it.ServerID, it.Name, it.Level,
		it.Attack, it.Defence, it.Rarity, it.Ward, it.Crit, it.Block, it.Evasion,
		it.Passive, it.PotentialRemaining, it.PotentialLevel, it.Equipped, time.Now().Unix(),
	)
	_, err = d.exec(ctx, "item_insert", q)
	return err
}

// Get 按 ID 读取装备，不校验归属
func (d *ItemDAO) Get(ctx context.Context, kind model.ItemKind, itemID int64) (*model.Item, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, err
	}

	var it *model.Item
	q := d.sb.Select(itemColumns...).From(tbl).Where(squirrel.Eq{"item_id": itemID})
	err = d.scanAll(ctx, q, func(rows database.Rows) error {
		var err error
		it, err = scanItem(rows, kind)
		return err
	})
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrNotFound
	}
	return it, nil
}

// Owned 读取并校验归属，不属于该玩家返回 NotOwned
func (d *ItemDAO) Owned(ctx context.Context, userID, serverID string, kind model.ItemKind, itemID int64) (*model.Item, error) {
	it, err := d.Get(ctx, kind, itemID)
	if IsNotFound(err) {
		return nil, errcode.NotOwned(string(kind), itemID)
	}
	if err != nil {
		return nil, err
	}
	if it.UserID != userID || it.ServerID != serverID {
		return nil, errcode.NotOwned(string(kind), itemID)
	}
	return it, nil
}

// Count 某类装备数量
func (d *ItemDAO) Count(ctx context.Context, userID, serverID string, kind model.ItemKind) (int, error) {
	tbl, err := table(kind)
	if err != nil {
		return 0, err
	}
	var n int
	q := d.sb.Select("COUNT(*)").From(tbl).Where(owner(userID, serverID))
	if err := d.scanOne(ctx, q, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountAll 各类装备数量
func (d *ItemDAO) CountAll(ctx context.Context, userID, serverID string) (map[model.ItemKind]int, error) {
	out := make(map[model.ItemKind]int, len(model.ItemKinds))
	for _, kind := range model.ItemKinds {
		n, err := d.Count(ctx, userID, serverID, kind)
		if err != nil {
			return nil, err
		}
		out[kind] = n
	}
	return out, nil
}

// List 某类装备，按等级降序
func (d *ItemDAO) List(ctx context.Context, userID, serverID string, kind model.ItemKind) ([]*model.Item, error) {
	tbl, err := table(kind)
	if err != nil {
		return nil, err
	}
	var out []*model.Item
	q := d.sb.Select(itemColumns...).From(tbl).
		Where(owner(userID, serverID)).
		OrderBy("item_level DESC", "item_id")
	err = d.scanAll(ctx, q, func(rows database.Rows) error {
		it, err := scanItem(rows, kind)
		if err != nil {
			return err
		}
		out = append(out, it)
		return nil
	})
	return out, err
}

// Transfer 转移归属，仅当属于 from 且未装备时生效
func (d *ItemDAO) Transfer(ctx context.Context, kind model.ItemKind, itemID int64, serverID, from, to string) (bool, error) {
	tbl, err := table(kind)
	if err != nil {
		return false, err
	}
	q := d.sb.Update(tbl).
		Set("user_id", to).
		Where(squirrel.Eq{"item_id": itemID, "user_id": from, "server_id": serverID, "is_equipped": false})
	n, err := d.exec(ctx, "item_transfer", q)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete 丢弃未装备的装备
func (d *ItemDAO) Delete(ctx context.Context, userID, serverID string, kind model.ItemKind, itemID int64) (bool, error) {
	tbl, err := table(kind)
	if err != nil {
		return false, err
	}
	q := d.sb.Delete(tbl).
		Where(owner(userID, serverID)).
		Where(squirrel.Eq{"item_id": itemID, "is_equipped": false})
	n, err := d.exec(ctx, "item_delete", q)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UpdatePotential 写回强化结果
func (d *ItemDAO) UpdatePotential(ctx context.Context, it *model.Item) error {
	tbl, err := table(it.Kind)
	if err != nil {
		return err
	}
	q := d.sb.Update(tbl).
		Set("passive", it.Passive).
		Set("potential_remaining", it.PotentialRemaining).
		Set("potential_level", it.PotentialLevel).
		Where(owner(it.UserID, it.ServerID)).
		Where(squirrel.Eq{"item_id": it.ItemID})
	n, err := d.exec(ctx, "item_update_potential", q)
	if err != nil {
		return err
	}
	if n == 0 {
		return errcode.NotOwned(string(it.Kind), it.ItemID)
	}
	return nil
}

// Equip 卸下同类已装备物品后装备 itemID，同一事务内完成
func (d *ItemDAO) Equip(ctx context.Context, userID, serverID string, kind model.ItemKind, itemID int64) error {
	tbl, err := table(kind)
	if err != nil {
		return err
	}
	return runTx(ctx, d.db, func(ctx context.Context) error {
		off := d.sb.Update(tbl).
			Set("is_equipped", false).
			Where(owner(userID, serverID)).
			Where(squirrel.Eq{"is_equipped": true})
		if _, err := d.exec(ctx, "item_unequip", off); err != nil {
			return err
		}

		on := d.sb.Update(tbl).
			Set("is_equipped", true).
			Where(owner(userID, serverID)).
			Where(squirrel.Eq{"item_id": itemID})
		n, err := d.exec(ctx, "item_equip", on)
		if err != nil {
			return err
		}
		if n == 0 {
			return errcode.NotOwned(string(kind), itemID)
		}
		return nil
	})
}
