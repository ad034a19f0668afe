package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/curio"
	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/delve"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/loot"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/slayer"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
	"github.com/lk2023060901/ascend/pkg/database"
	"github.com/lk2023060901/ascend/pkg/database/sqlite"
	"github.com/lk2023060901/ascend/pkg/idgen"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const srv = "srv"

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type env struct {
	db       database.DB
	dao      *dao.DAO
	ideology *IdeologyService
	register *RegisterService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.New(ctx, &sqlite.Config{Path: filepath.Join(t.TempDir(), "game.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = dao.Migrate(ctx, db, logger.NewNoop())
	require.NoError(t, err)

	d := dao.New(db, logger.NewNoop(), nil)
	ideo := NewIdeologyService(logger.NewNoop(), d, nil, random.New(1), nil)
	reg := NewRegisterService(logger.NewNoop(), d, ideo, tables.Defaults().Portraits)
	reg.now = func() time.Time { return epoch }
	return &env{db: db, dao: d, ideology: ideo, register: reg}
}

func (e *env) user(t *testing.T, userID string, gold int64) {
	t.Helper()
	ctx := context.Background()
	_, _, err := e.register.Register(ctx, Registration{
		UserID:   userID,
		ServerID: srv,
		Name:     userID,
		Gender:   "male",
		Ideology: "Order",
	})
	require.NoError(t, err)
	if delta := gold - model.StarterGold; delta != 0 {
		require.NoError(t, e.dao.Users.Modify(ctx, userID, srv, model.ColGold, delta))
	}
}

func (e *env) get(t *testing.T, userID string) *model.User {
	t.Helper()
	u, err := e.dao.Users.Get(context.Background(), userID, srv)
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	u, founded, err := e.register.Register(ctx, Registration{
		UserID: "u1", ServerID: srv, Name: "Ada", Gender: "female", Ideology: "  Sun Cult ",
	})
	require.NoError(t, err)
	assert.True(t, founded)
	assert.Equal(t, "Sun Cult", u.IdeologyName)

	for _, sk := range model.Skills {
		row, err := e.dao.Skills.Get(ctx, "u1", srv, sk)
		require.NoError(t, err)
		assert.Equal(t, sk.LowestTier(), row.ToolTier)
	}
	e2, err := e.dao.Slayer.GetEmblem(ctx, "u1", srv)
	require.NoError(t, err)
	assert.True(t, e2.Slots[0].Empty())

	_, founded, err = e.register.Register(ctx, Registration{
		UserID: "u2", ServerID: srv, Name: "Bo", Gender: "male", Ideology: "Sun Cult",
	})
	require.NoError(t, err)
	assert.False(t, founded)
	i, err := e.dao.Ideology.Get(ctx, srv, "Sun Cult")
	require.NoError(t, err)
	assert.Equal(t, int64(2), i.Followers)
	assert.Equal(t, "u1", i.FounderUser)
}

func TestRegister_Rejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)

	cases := []Registration{
		{UserID: "u1", ServerID: srv, Gender: "male", Ideology: "Order"},
		{UserID: "u2", ServerID: srv, Gender: "robot", Ideology: "Order"},
		{UserID: "u3", ServerID: srv, Gender: "male", Ideology: "no-dashes!"},
		{UserID: "u4", ServerID: srv, Gender: "male", Ideology: "this name is much too long to fit"},
	}
	for _, r := range cases {
		_, _, err := e.register.Register(ctx, r)
		assert.ErrorIs(t, err, errcode.ErrInvalidInput, r.UserID)
	}
	ok, err := e.register.IsRegistered(ctx, "u2", srv)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, e.register.Portraits("female"))
}

func newCurioService(t *testing.T, e *env, src random.Source) *CurioService {
	t.Helper()
	tbl := tables.Defaults()
	table, err := curio.NewTable(tbl.Curios)
	require.NoError(t, err)
	gen, err := loot.NewGenerator(tbl.Names)
	require.NoError(t, err)
	return NewCurioService(logger.NewNoop(), e.dao, table, gen, idgen.NewSequence(1), src, nil, 0)
}

func TestCurio_BulkOpenExactBalance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	require.NoError(t, e.dao.Users.Modify(ctx, "u1", srv, model.ColCurios, 10))

	svc := newCurioService(t, e, random.New(42))
	sum, err := svc.ProcessOpen(ctx, "u1", srv, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, sum.Picks())

	u := e.get(t, "u1")
	assert.Zero(t, u.Curios)
	assert.Equal(t, model.StarterGold+sum.Gold, u.Gold)
	assert.Equal(t, sum.Runes[model.ColPotentialRunes], u.PotentialRunes)
	assert.Equal(t, sum.Runes[model.ColRefinementRunes], u.RefinementRunes)

	counts, err := e.dao.Items.CountAll(ctx, "u1", srv)
	require.NoError(t, err)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, len(sum.Items), total)
	for _, it := range sum.Items {
		assert.Equal(t, curio.ItemLevel, it.Level)
	}
}

func TestCurio_InsufficientLeavesStateUntouched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	require.NoError(t, e.dao.Users.Modify(ctx, "u1", srv, model.ColCurios, 3))

	src := random.NewScripted()
	svc := newCurioService(t, e, src)
	_, err := svc.ProcessOpen(ctx, "u1", srv, 5)
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)

	u := e.get(t, "u1")
	assert.Equal(t, int64(3), u.Curios)
	assert.Equal(t, int64(model.StarterGold), u.Gold)
	counts, err := e.dao.Items.CountAll(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Empty(t, counts[model.KindWeapon])

	_, err = svc.ProcessOpen(ctx, "u1", srv, 0)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
	_, err = svc.ProcessOpen(ctx, "ghost", srv, 1)
	assert.ErrorIs(t, err, errcode.ErrNotRegistered)
}

func TestDelve_CollapseForfeitsRewards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 2000)

	svc := NewDelveService(logger.NewNoop(), e.dao, random.NewScripted(), nil)
	run, err := svc.Start(ctx, "u1", srv, delve.HazardMagma, delve.HazardMagma)
	require.NoError(t, err)
	assert.Equal(t, int64(500), e.get(t, "u1").Gold)

	step, err := svc.Act(ctx, "u1", srv, run, delve.ActionDrill)
	require.NoError(t, err)
	assert.Equal(t, 50, step.Damage)
	assert.Equal(t, delve.StateActive, step.State)

	step, err = svc.Act(ctx, "u1", srv, run, delve.ActionDrill)
	require.NoError(t, err)
	assert.Equal(t, delve.StateCollapsed, step.State)
	assert.Zero(t, run.Payout())

	p, err := svc.Profile(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Zero(t, p.XP)
	assert.Zero(t, e.get(t, "u1").Curios)

	_, err = svc.Act(ctx, "u1", srv, run, delve.ActionExtract)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}

func TestDelve_ExtractPaysOut(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 1500)

	// 脚本耗尽后 Float64 恒为 0：地层全安全，15 层以下每层 1 块碎片
	svc := NewDelveService(logger.NewNoop(), e.dao, random.NewScripted(), nil)
	run, err := svc.Start(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Zero(t, e.get(t, "u1").Gold)

	for range 25 {
		_, err := svc.Act(ctx, "u1", srv, run, delve.ActionDrill)
		require.NoError(t, err)
	}
	step, err := svc.Act(ctx, "u1", srv, run, delve.ActionExtract)
	require.NoError(t, err)
	assert.Equal(t, delve.StateExtracted, step.State)

	p, err := svc.Profile(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Equal(t, int64(25), p.XP)
	assert.Equal(t, int64(10), p.Shards)
	assert.Equal(t, int64(1), e.get(t, "u1").Curios)
}

func TestDelve_EntryNeedsGold(t *testing.T) {
	e := newEnv(t)
	e.user(t, "u1", 1499)
	svc := NewDelveService(logger.NewNoop(), e.dao, random.NewScripted(), nil)
	_, err := svc.Start(context.Background(), "u1", srv)
	assert.ErrorIs(t, err, errcode.ErrInsufficientFunds)
	assert.Equal(t, int64(1499), e.get(t, "u1").Gold)
}

func TestDelve_Upgrade(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	svc := NewDelveService(logger.NewNoop(), e.dao, random.NewScripted(), nil)

	_, _, err := svc.Upgrade(ctx, "u1", srv, model.DelveSensor)
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)

	require.NoError(t, e.dao.Delve.AddRewards(ctx, "u1", srv, 7, 0))
	p, cost, err := svc.Upgrade(ctx, "u1", srv, model.DelveSensor)
	require.NoError(t, err)
	assert.Equal(t, int64(5), cost)
	assert.Equal(t, 2, p.SensorLevel)
	assert.Equal(t, int64(2), p.Shards)
}

func TestSlayer_UpgradeFailureDowngrades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	require.NoError(t, e.dao.Slayer.SaveSlot(ctx, "u1", srv, 1, model.EmblemSlot{Type: "gold_find", Tier: 3}))
	require.NoError(t, e.dao.Slayer.ModifyMaterial(ctx, "u1", srv, model.MaterialEssence, 1))

	// 升级判定 0.5 ≥ 0.4 失败，降级判定 0.1 < 0.4 降级
	src := random.NewScripted().Floats(0.5, 0.1)
	svc := NewSlayerService(logger.NewNoop(), e.dao, tables.Defaults().Monsters, src)
	out, err := svc.SlotOp(ctx, "u1", srv, 1, slayer.OpUpgrade)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.True(t, out.Downgraded)
	assert.Equal(t, 2, out.After.Tier)

	em, err := svc.Emblem(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Equal(t, model.EmblemSlot{Type: "gold_find", Tier: 2}, em.Slots[0])
	p, err := svc.Profile(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Zero(t, p.ViolentEssence)

	// 材料不足时不掷骰
	_, err = svc.SlotOp(ctx, "u1", srv, 1, slayer.OpUpgrade)
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)
	floats, _ := src.Remaining()
	assert.Zero(t, floats)

	_, err = svc.SlotOp(ctx, "u1", srv, 2, slayer.OpAwaken)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}

func TestSlayer_TaskLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	svc := NewSlayerService(logger.NewNoop(), e.dao, tables.Defaults().Monsters, random.New(3))

	task, err := svc.NewTask(ctx, "u1", srv)
	require.NoError(t, err)
	assert.NotEmpty(t, task.Species)

	_, err = svc.NewTask(ctx, "u1", srv)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)

	err = svc.Skip(ctx, "u1", srv)
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)

	p, res, err := svc.Hunt(ctx, "u1", srv, task.Amount)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.False(t, p.HasTask())
	assert.Positive(t, p.XP)
}

func TestDuel_SettleKnockout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "a", 100)
	e.user(t, "b", 100)

	// 先手 a；命中判定 0.9 不落空；伤害取上限 25
	src := random.NewScripted().Ints(0, 24).Floats(0.9)
	svc := NewDuelService(logger.NewNoop(), e.dao, src, nil)
	require.NoError(t, svc.Verify(ctx, "a", "b", srv, 50))

	d := svc.Start("a", "b", 50)
	d.HP[1] = 10
	res, err := svc.Act(d, "a", "attack")
	require.NoError(t, err)
	assert.Equal(t, 25, res.Damage)
	require.True(t, res.Finished)

	require.NoError(t, svc.Settle(ctx, srv, d, SettleKnockout))
	assert.Equal(t, int64(150), e.get(t, "a").Gold)
	assert.Equal(t, int64(50), e.get(t, "b").Gold)
}

func TestDuel_SettleForfeit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "a", 100)
	e.user(t, "b", 100)
	svc := NewDuelService(logger.NewNoop(), e.dao, random.NewScripted(), nil)

	d := svc.Start("a", "b", 50)
	assert.ErrorIs(t, svc.Settle(ctx, srv, d, SettleForfeit), errcode.ErrInvalidInput)

	require.NoError(t, d.Forfeit("a"))
	require.NoError(t, svc.Settle(ctx, srv, d, SettleForfeit))
	assert.Equal(t, int64(50), e.get(t, "a").Gold)
	assert.Equal(t, int64(150), e.get(t, "b").Gold)
}

func TestDuel_Verify(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "a", 100)
	e.user(t, "b", 10)
	svc := NewDuelService(logger.NewNoop(), e.dao, random.NewScripted(), nil)

	assert.ErrorIs(t, svc.Verify(ctx, "a", "a", srv, 10), errcode.ErrInvalidInput)
	assert.ErrorIs(t, svc.Verify(ctx, "a", "b", srv, 0), errcode.ErrInvalidInput)
	assert.ErrorIs(t, svc.Verify(ctx, "a", "b", srv, 500), errcode.ErrInsufficientFunds)
	assert.ErrorIs(t, svc.Verify(ctx, "a", "b", srv, 50), errcode.ErrInvalidInput)
	assert.ErrorIs(t, svc.Verify(ctx, "a", "ghost", srv, 50), errcode.ErrNotRegistered)
}

func TestIdeology_PropagateCooldown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)

	src := random.NewScripted().Floats(0.5)
	svc := NewIdeologyService(logger.NewNoop(), e.dao, nil, src, nil)
	svc.now = func() time.Time { return epoch }

	require.NoError(t, e.dao.Users.SetLastPropagate(ctx, "u1", srv, epoch.Add(-17*time.Hour-59*time.Minute)))
	_, _, err := svc.Propagate(ctx, "u1", srv)
	assert.ErrorIs(t, err, errcode.ErrCooldownActive)
	assert.Contains(t, errcode.Message(err), "1m")

	require.NoError(t, e.dao.Users.SetLastPropagate(ctx, "u1", srv, epoch.Add(-18*time.Hour-time.Minute)))
	i, gained, err := svc.Propagate(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Equal(t, int64(10), gained)
	assert.Equal(t, int64(11), i.Followers)
	assert.Equal(t, epoch.Unix(), e.get(t, "u1").LastPropagateAt.Unix())

	_, _, err = svc.Propagate(ctx, "u1", srv)
	assert.ErrorIs(t, err, errcode.ErrCooldownActive)
}

func TestIdeology_Growth(t *testing.T) {
	mid := random.NewScripted().Floats(0.5, 0.5, 0.5)
	assert.Equal(t, int64(10), Growth(mid, 99, 0))
	assert.Equal(t, int64(15), Growth(mid, 100, 0))
	assert.Equal(t, int64(100), Growth(mid, 5000, 0))
	assert.Equal(t, int64(11), Growth(random.NewScripted().Floats(1), 1, 0))
	assert.Equal(t, int64(15), Growth(random.NewScripted().Floats(0.5), 0, 1000))
}

func TestIdeology_Leaderboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	_, _, err := e.register.Register(ctx, Registration{UserID: "u2", ServerID: srv, Gender: "male", Ideology: "Chaos"})
	require.NoError(t, err)
	_, _, err = e.register.Register(ctx, Registration{UserID: "u3", ServerID: srv, Gender: "male", Ideology: "Chaos"})
	require.NoError(t, err)

	mine, top, err := e.ideology.Info(ctx, "u1", srv)
	require.NoError(t, err)
	assert.Equal(t, "Order", mine.Name)
	require.Len(t, top, 2)
	assert.Equal(t, "Chaos", top[0].Name)
	assert.Equal(t, int64(2), top[0].Followers)
}

func TestTransfer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "a", 100)
	e.user(t, "b", 0)
	svc := NewTransferService(logger.NewNoop(), e.dao, 1)

	assert.ErrorIs(t, svc.SendGold(ctx, "a", "a", srv, 10), errcode.ErrInvalidInput)
	assert.ErrorIs(t, svc.SendGold(ctx, "a", "ghost", srv, 10), errcode.ErrNotRegistered)
	assert.ErrorIs(t, svc.SendGold(ctx, "a", "b", srv, 101), errcode.ErrInsufficientFunds)
	require.NoError(t, svc.SendGold(ctx, "a", "b", srv, 40))
	assert.Equal(t, int64(60), e.get(t, "a").Gold)
	assert.Equal(t, int64(40), e.get(t, "b").Gold)

	require.NoError(t, e.dao.Users.Modify(ctx, "a", srv, model.ColDragonKeys, 2))
	require.NoError(t, svc.SendKey(ctx, "a", "b", srv, "dragon", 1))
	assert.Equal(t, int64(1), e.get(t, "b").DragonKeys)
	assert.ErrorIs(t, svc.SendKey(ctx, "a", "b", srv, "angel", 1), errcode.ErrInsufficientMaterial)

	require.NoError(t, svc.SendMaterial(ctx, "a", "b", srv, string(model.ColPotions), 3))
	assert.Equal(t, int64(model.StarterPotions+3), e.get(t, "b").Potions)
	assert.ErrorIs(t, svc.SendMaterial(ctx, "a", "b", srv, "gold", 1), errcode.ErrInvalidInput)
}

func TestTransfer_Items(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "a", 100)
	e.user(t, "b", 100)
	svc := NewTransferService(logger.NewNoop(), e.dao, 1)

	insert := func(id int64, owner string, equipped bool) {
		require.NoError(t, e.dao.Items.Insert(ctx, &model.Item{
			ItemID: id, UserID: owner, ServerID: srv, Kind: model.KindWeapon,
			Name: "Blade", Level: 10, PotentialRemaining: model.InitialPotential, Equipped: equipped,
		}))
	}
	insert(1, "a", true)
	insert(2, "a", false)
	insert(3, "a", false)

	_, err := svc.SendItem(ctx, "a", "b", srv, model.KindWeapon, 1)
	assert.ErrorIs(t, err, errcode.ErrEquippedBlock)
	_, err = svc.SendItem(ctx, "b", "a", srv, model.KindWeapon, 2)
	assert.ErrorIs(t, err, errcode.ErrNotOwned)

	it, err := svc.SendItem(ctx, "a", "b", srv, model.KindWeapon, 2)
	require.NoError(t, err)
	assert.Equal(t, "b", it.UserID)

	_, err = svc.SendItem(ctx, "a", "b", srv, model.KindWeapon, 3)
	assert.ErrorIs(t, err, errcode.ErrInventoryFull)
}

func TestItem_EnhanceAndDiscard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	require.NoError(t, e.dao.Items.Insert(ctx, &model.Item{
		ItemID: 9, UserID: "u1", ServerID: srv, Kind: model.KindWeapon,
		Name: "Blade", Level: 10, PotentialRemaining: model.InitialPotential,
	}))
	svc := NewItemService(logger.NewNoop(), e.dao, random.NewScripted())

	_, _, err := svc.Enhance(ctx, "u1", srv, model.KindWeapon, 9)
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)

	require.NoError(t, e.dao.Users.Modify(ctx, "u1", srv, model.ColPotentialRunes, 1))
	it, _, err := svc.Enhance(ctx, "u1", srv, model.KindWeapon, 9)
	require.NoError(t, err)
	assert.Equal(t, model.InitialPotential-1, it.PotentialRemaining)
	assert.Zero(t, e.get(t, "u1").PotentialRunes)

	_, err = svc.Equip(ctx, "u1", srv, model.KindWeapon, 9)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Discard(ctx, "u1", srv, model.KindWeapon, 9), errcode.ErrEquippedBlock)
}

func TestItem_UpgradeTool(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 4000)
	svc := NewItemService(logger.NewNoop(), e.dao, random.NewScripted())
	base := model.SkillMining.Resources()[0]

	_, err := svc.UpgradeTool(ctx, "u1", srv, model.SkillMining)
	assert.ErrorIs(t, err, errcode.ErrInsufficientFunds)

	require.NoError(t, e.dao.Users.Modify(ctx, "u1", srv, model.ColGold, 1000))
	_, err = svc.UpgradeTool(ctx, "u1", srv, model.SkillMining)
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)
	assert.Equal(t, int64(5000), e.get(t, "u1").Gold)

	require.NoError(t, e.dao.Skills.UpdateBatch(ctx, "u1", srv, model.SkillMining, map[string]int64{base: 60}))
	res, err := svc.UpgradeTool(ctx, "u1", srv, model.SkillMining)
	require.NoError(t, err)
	assert.Equal(t, model.SkillMining.LowestTier(), res.From)
	assert.Equal(t, model.SkillMining.Tiers()[1], res.To)
	assert.Zero(t, e.get(t, "u1").Gold)

	row, err := e.dao.Skills.Get(ctx, "u1", srv, model.SkillMining)
	require.NoError(t, err)
	assert.Equal(t, res.To, row.ToolTier)
	assert.Equal(t, int64(10), row.Resources[base])
}

func TestProfile_ToggleDoors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 200)
	svc := NewProfileService(logger.NewNoop(), e.dao, 25)

	p, err := svc.Get(ctx, "u1", srv)
	require.NoError(t, err)
	assert.True(t, p.User.DoorsEnabled)
	assert.Len(t, p.Skills, len(model.Skills))
	assert.Equal(t, 25, p.InventoryCap)
	assert.Equal(t, model.InventoryCap, NewProfileService(logger.NewNoop(), e.dao, 0).InventoryCap())

	on, err := svc.ToggleDoors(ctx, "u1", srv)
	require.NoError(t, err)
	assert.False(t, on)

	_, err = svc.Get(ctx, "ghost", srv)
	assert.ErrorIs(t, err, errcode.ErrNotRegistered)
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	views map[model.EventChannel]*model.View
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, channels []model.EventChannel, view func(model.EventChannel) *model.View) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.views == nil {
		b.views = make(map[model.EventChannel]*model.View)
	}
	for _, ch := range channels {
		b.views[ch] = view(ch)
	}
	return len(channels)
}

func TestEvent_TickAndClaim(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 0)

	// 门限 0.2 通过；事件取第 0 个（宝箱）；金币取下限 10000
	src := random.NewScripted().Floats(0.2).Ints(0, 0)
	pub := &recordingBroadcaster{}
	svc := NewEventService(logger.NewNoop(), e.dao, nil, pub, src, nil, DefaultEventConfig())
	now := epoch
	svc.now = func() time.Time { return now }

	added, err := svc.Setup(ctx, srv, "general")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = svc.Setup(ctx, srv, "general")
	require.NoError(t, err)
	assert.False(t, added)

	out, err := svc.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	inst := out[0]
	assert.Equal(t, model.EventTreasureChest, inst.Type)

	v := pub.views[model.EventChannel{ServerID: srv, ChannelID: "general"}]
	require.NotNil(t, v)
	assert.True(t, v.HasOption(model.IntentClaimEvent))
	assert.Equal(t, 10*time.Minute, v.Lifetime)

	_, grant, err := svc.Claim(ctx, "u1", srv, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), grant[model.ColGold])
	assert.Equal(t, int64(10000), e.get(t, "u1").Gold)

	_, _, err = svc.Claim(ctx, "u1", srv, inst.ID)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)

	now = now.Add(10 * time.Minute)
	_, _, err = svc.Claim(ctx, "u1", srv, inst.ID)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
	assert.Zero(t, svc.Active())
}

// memoryClaims 以内存集合模拟 Redis 领取记录
type memoryClaims struct {
	mu      sync.Mutex
	sets    map[string]map[string]bool
	failAdd error
}

func (m *memoryClaims) ClaimEvent(_ context.Context, eventID, userID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAdd != nil {
		return false, m.failAdd
	}
	if ttl <= 0 {
		return false, errors.New("claim without ttl")
	}
	if m.sets == nil {
		m.sets = make(map[string]map[string]bool)
	}
	if m.sets[eventID] == nil {
		m.sets[eventID] = make(map[string]bool)
	}
	if m.sets[eventID][userID] {
		return false, nil
	}
	m.sets[eventID][userID] = true
	return true, nil
}

func (m *memoryClaims) UnclaimEvent(_ context.Context, eventID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[eventID], userID)
	return nil
}

func (m *memoryClaims) has(eventID, userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets[eventID][userID]
}

func TestEvent_ClaimRetryAfterFailedGrant(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.user(t, "u1", 0)

	src := random.NewScripted().Floats(0.2).Ints(0, 0, 0)
	svc := NewEventService(logger.NewNoop(), e.dao, nil, &recordingBroadcaster{}, src, nil, DefaultEventConfig())
	claims := &memoryClaims{}
	svc.claims = claims
	now := epoch
	svc.now = func() time.Time { return now }

	_, err := svc.Setup(ctx, srv, "general")
	require.NoError(t, err)
	out, err := svc.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	id := out[0].ID

	// 1. 记录领取失败：不发放，可重试
	claims.failAdd = errors.New("redis down")
	_, _, err = svc.Claim(ctx, "u1", srv, id)
	assert.ErrorIs(t, err, errcode.ErrTransient)
	claims.failAdd = nil

	// 2. 发放失败：撤销 Redis 记录
	_, err = e.db.Exec(ctx, `CREATE TRIGGER block_grant BEFORE UPDATE ON users BEGIN SELECT RAISE(ABORT, 'grant blocked'); END`)
	require.NoError(t, err)
	_, _, err = svc.Claim(ctx, "u1", srv, id)
	require.Error(t, err)
	assert.False(t, claims.has(id, "u1"))
	assert.Zero(t, e.get(t, "u1").Gold)

	// 3. 恢复后重试成功，之后重复领取被拒绝
	_, err = e.db.Exec(ctx, `DROP TRIGGER block_grant`)
	require.NoError(t, err)
	_, grant, err := svc.Claim(ctx, "u1", srv, id)
	require.NoError(t, err)
	assert.Equal(t, Grant{model.ColGold: 10000}, grant)
	assert.True(t, claims.has(id, "u1"))
	assert.Equal(t, int64(10000), e.get(t, "u1").Gold)

	_, _, err = svc.Claim(ctx, "u1", srv, id)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}

func TestEvent_GateSkips(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	pub := &recordingBroadcaster{}
	svc := NewEventService(logger.NewNoop(), e.dao, nil, pub, random.NewScripted().Floats(0.7), nil, DefaultEventConfig())
	_, err := svc.Setup(ctx, srv, "general")
	require.NoError(t, err)

	out, err := svc.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, pub.views)
}

func TestEvent_Rewards(t *testing.T) {
	svc := &EventService{rand: random.NewScripted().Ints(2)}
	assert.Equal(t, Grant{model.ColCurios: 3}, svc.Roll(model.EventWanderingMerchant))
	assert.Equal(t, Grant{model.ColRefinementRunes: 1, model.ColPotentialRunes: 1}, svc.Roll(model.EventFallenStar))
	assert.Equal(t, Grant{model.ColDragonKeys: 1}, svc.Roll(model.EventDragonsHoard))
	assert.Equal(t, Grant{model.ColAngelKeys: 1}, svc.Roll(model.EventAngelicBlessing))
}

func TestNotFoundAs(t *testing.T) {
	assert.Nil(t, notFoundAs(nil, errcode.ErrNotRegistered))
	other := errors.New("boom")
	assert.Equal(t, other, notFoundAs(other, errcode.ErrNotRegistered))
}
