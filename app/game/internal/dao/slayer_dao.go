package dao

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database"
)

// SlayerDAO slayer_profiles 与 slayer_emblems 表访问
type SlayerDAO struct {
	base
}

// Get 读取猎杀档案
func (d *SlayerDAO) Get(ctx context.Context, userID, serverID string) (*model.SlayerProfile, error) {
	var species *string
	p := &model.SlayerProfile{UserID: userID, ServerID: serverID}
	q := d.sb.Select("level", "xp", "points", "violent_essence", "imbued_heart",
		"active_task_species", "active_task_amount", "active_task_progress").
		From("slayer_profiles").
		Where(owner(userID, serverID))
	err := d.scanOne(ctx, q, &p.Level, &p.XP, &p.Points, &p.ViolentEssence, &p.ImbuedHeart,
		&species, &p.TaskAmount, &p.TaskProgress)
	if err != nil {
		return nil, err
	}
	if species != nil {
		p.TaskSpecies = *species
	}
	return p, nil
}

// Create 写入初始档案与五个空纹章槽
func (d *SlayerDAO) Create(ctx context.Context, userID, serverID string) error {
	return runTx(ctx, d.db, func(ctx context.Context) error {
		q := d.sb.Insert("slayer_profiles").
			Columns("user_id", "server_id", "level").
			Values(userID, serverID, 1)
		if _, err := d.exec(ctx, "slayer_create", q); err != nil {
			return err
		}

		slots := d.sb.Insert("slayer_emblems").Columns("user_id", "server_id", "slot", "passive_type", "tier")
		for n := 1; n <= model.EmblemSlots; n++ {
			slots = slots.Values(userID, serverID, n, model.PassiveNone, 1)
		}
		_, err := d.exec(ctx, "slayer_create_emblem", slots)
		return err
	})
}

// SetTask 分配新任务，进度清零
func (d *SlayerDAO) SetTask(ctx context.Context, userID, serverID, species string, amount int) error {
	q := d.sb.Update("slayer_profiles").
		Set("active_task_species", species).
		Set("active_task_amount", amount).
		Set("active_task_progress", 0).
		Where(owner(userID, serverID))
	_, err := d.exec(ctx, "slayer_set_task", q)
	return err
}

// SkipTask 花费点数放弃任务。无任务或点数不足时返回 false
func (d *SlayerDAO) SkipTask(ctx context.Context, userID, serverID string, cost int64) (bool, error) {
	q := d.sb.Update("slayer_profiles").
		Set("points", decr("points", cost)).
		Set("active_task_species", nil).
		Set("active_task_amount", 0).
		Set("active_task_progress", 0).
		Where(owner(userID, serverID)).
		Where(squirrel.NotEq{"active_task_species": nil}).
		Where(squirrel.GtOrEq{"points": cost})
	n, err := d.exec(ctx, "slayer_skip_task", q)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ConsumeMaterial 条件扣减猎杀材料，余额不足返回 false 且不修改
func (d *SlayerDAO) ConsumeMaterial(ctx context.Context, userID, serverID string, m model.SlayerMaterial, amount int64) (bool, error) {
	if !model.IsSlayerMaterial(m) {
		return false, errcode.InvalidInput("unknown slayer material %q", m)
	}
	if amount <= 0 {
		return false, errcode.InvalidInput("amount must be positive")
	}
	col := string(m)
	q := d.sb.Update("slayer_profiles").
		Set(col, decr(col, amount)).
		Where(owner(userID, serverID)).
		Where(squirrel.GtOrEq{col: amount})
	n, err := d.exec(ctx, "slayer_consume", q)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ModifyMaterial 增加猎杀材料
func (d *SlayerDAO) ModifyMaterial(ctx context.Context, userID, serverID string, m model.SlayerMaterial, delta int64) error {
	if !model.IsSlayerMaterial(m) {
		return errcode.InvalidInput("unknown slayer material %q", m)
	}
	if delta < 0 {
		ok, err := d.ConsumeMaterial(ctx, userID, serverID, m, -delta)
		if err != nil {
			return err
		}
		if !ok {
			return errcode.InsufficientMaterial(string(m), -delta)
		}
		return nil
	}
	col := string(m)
	q := d.sb.Update("slayer_profiles").Set(col, incr(col, delta)).Where(owner(userID, serverID))
	_, err := d.exec(ctx, "slayer_modify", q)
	return err
}

// HuntDelta 一次狩猎要写入的增量与任务状态
type HuntDelta struct {
	XP       int64
	Points   int64
	Essence  int64
	Hearts   int64
	Level    int
	Progress int
	Complete bool
}

// ApplyHunt 计数列按增量更新，等级与任务进度按结果覆盖
func (d *SlayerDAO) ApplyHunt(ctx context.Context, userID, serverID string, h HuntDelta) error {
	q := d.sb.Update("slayer_profiles").
		Set("xp", incr("xp", h.XP)).
		Set("points", incr("points", h.Points)).
		Set("violent_essence", incr("violent_essence", h.Essence)).
		Set("imbued_heart", incr("imbued_heart", h.Hearts)).
		Set("level", h.Level).
		Where(owner(userID, serverID))
	if h.Complete {
		q = q.Set("active_task_species", nil).
			Set("active_task_amount", 0).
			Set("active_task_progress", 0)
	} else {
		q = q.Set("active_task_progress", h.Progress)
	}
	_, err := d.exec(ctx, "slayer_apply_hunt", q)
	return err
}

// GetEmblem 读取五个纹章槽
func (d *SlayerDAO) GetEmblem(ctx context.Context, userID, serverID string) (*model.Emblem, error) {
	e := model.NewEmblem(userID, serverID)
	found := 0
	q := d.sb.Select("slot", "passive_type", "tier").
		From("slayer_emblems").
		Where(owner(userID, serverID)).
		OrderBy("slot")
	err := d.scanAll(ctx, q, func(rows database.Rows) error {
		var (
			slot int
			s    model.EmblemSlot
		)
		if err := rows.Scan(&slot, &s.Type, &s.Tier); err != nil {
			return err
		}
		if slot >= 1 && slot <= model.EmblemSlots {
			e.Slots[slot-1] = s
			found++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == 0 {
		return nil, ErrNotFound
	}
	return e, nil
}

// SaveSlot 覆盖单个槽位
func (d *SlayerDAO) SaveSlot(ctx context.Context, userID, serverID string, n int, s model.EmblemSlot) error {
	if n < 1 || n > model.EmblemSlots {
		return errcode.InvalidInput("slot %d out of range", n)
	}
	q := d.sb.Update("slayer_emblems").
		Set("passive_type", s.Type).
		Set("tier", s.Tier).
		Where(owner(userID, serverID)).
		Where(squirrel.Eq{"slot": n})
	_, err := d.exec(ctx, "slayer_save_slot", q)
	return err
}
