package dao

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
)

// SkillDAO mining / woodcutting / fishing 三张表访问，列名只取自 model 白名单
type SkillDAO struct {
	base
}

// Get 读取技能行
func (d *SkillDAO) Get(ctx context.Context, userID, serverID string, sk model.Skill) (*model.SkillRow, error) {
	if _, ok := model.ParseSkill(string(sk)); !ok {
		return nil, errcode.InvalidInput("unknown skill %q", sk)
	}

	resources := sk.Resources()
	cols := append([]string{"tool_tier"}, resources...)
	values := make([]int64, len(resources))

	row := &model.SkillRow{
		UserID:    userID,
		ServerID:  serverID,
		Skill:     sk,
		Resources: make(map[string]int64, len(resources)),
	}
	dest := []any{&row.ToolTier}
	for i := range values {
		dest = append(dest, &values[i])
	}

	q := d.sb.Select(cols...).From(sk.Table()).Where(owner(userID, serverID))
	if err := d.scanOne(ctx, q, dest...); err != nil {
		return nil, err
	}
	for i, r := range resources {
		row.Resources[r] = values[i]
	}
	return row, nil
}

// Create 注册时发放最低级工具
func (d *SkillDAO) Create(ctx context.Context, userID, serverID string, sk model.Skill) error {
	q := d.sb.Insert(sk.Table()).
		Columns("user_id", "server_id", "tool_tier").
		Values(userID, serverID, sk.LowestTier())
	_, err := d.exec(ctx, "skill_create", q)
	return err
}

// UpdateBatch 单条 UPDATE 批量增减资源。不在白名单的列被忽略；
// 负增量附带 col >= 条件，任一不足时整条语句不生效并返回 InsufficientMaterial。
func (d *SkillDAO) UpdateBatch(ctx context.Context, userID, serverID string, sk model.Skill, deltas map[string]int64) error {
	q := d.sb.Update(sk.Table()).Where(owner(userID, serverID))
	var (
		cols      int
		short     string
		shortNeed int64
	)
	for _, col := range sortedKeys(deltas) {
		delta := deltas[col]
		if delta == 0 {
			continue
		}
		if !sk.IsResource(col) {
			d.logger.WarnContext(ctx, "ignoring unknown resource", "skill", sk, "column", col)
			continue
		}
		q = q.Set(col, incr(col, delta))
		if delta < 0 {
			q = q.Where(squirrel.GtOrEq{col: -delta})
			if short == "" {
				short, shortNeed = col, -delta
			}
		}
		cols++
	}
	if cols == 0 {
		return nil
	}

	n, err := d.exec(ctx, "skill_update_batch", q)
	if err != nil {
		return err
	}
	if n == 0 {
		if short == "" {
			return errcode.NotRegistered(userID)
		}
		return errcode.InsufficientMaterial(short, shortNeed)
	}
	return nil
}

// ConsumeResource 条件扣减单个资源
func (d *SkillDAO) ConsumeResource(ctx context.Context, userID, serverID string, sk model.Skill, col string, amount int64) (bool, error) {
	if !sk.IsResource(col) {
		return false, errcode.InvalidInput("unknown resource %q", col)
	}
	if amount <= 0 {
		return false, errcode.InvalidInput("amount must be positive")
	}
	q := d.sb.Update(sk.Table()).
		Set(col, decr(col, amount)).
		Where(owner(userID, serverID)).
		Where(squirrel.GtOrEq{col: amount})
	n, err := d.exec(ctx, "skill_consume", q)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ToolUpgrade 工具升级参数
type ToolUpgrade struct {
	Skill    model.Skill
	From     string
	To       string
	Resource string
	Amount   int64
	Gold     int64
}

// UpgradeTool 技能表扣资源并换工具、users 表扣金币，两条语句同一事务提交
func (d *SkillDAO) UpgradeTool(ctx context.Context, userID, serverID string, up ToolUpgrade) error {
	if !up.Skill.IsResource(up.Resource) {
		return errcode.InvalidInput("unknown resource %q", up.Resource)
	}

	return runTx(ctx, d.db, func(ctx context.Context) error {
		// 1. 资源扣减与换工具，旧等级作为乐观条件
		q := d.sb.Update(up.Skill.Table()).
			Set("tool_tier", up.To).
			Set(up.Resource, decr(up.Resource, up.Amount)).
			Where(owner(userID, serverID)).
			Where(squirrel.Eq{"tool_tier": up.From}).
			Where(squirrel.GtOrEq{up.Resource: up.Amount})
		n, err := d.exec(ctx, "skill_upgrade_tool", q)
		if err != nil {
			return err
		}
		if n == 0 {
			return errcode.InsufficientMaterial(up.Resource, up.Amount)
		}

		// 2. 金币扣减
		g := d.sb.Update("users").
			Set("gold", decr("gold", up.Gold)).
			Where(owner(userID, serverID)).
			Where(squirrel.GtOrEq{"gold": up.Gold})
		n, err = d.exec(ctx, "skill_upgrade_gold", g)
		if err != nil {
			return err
		}
		if n == 0 {
			return errcode.InsufficientFunds(up.Gold)
		}

		d.logger.InfoContext(ctx, "tool upgraded",
			"user_id", userID, "skill", up.Skill, "from", up.From, "to", up.To)
		return nil
	})
}
