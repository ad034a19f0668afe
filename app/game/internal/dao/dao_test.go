package dao

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/database/sqlite"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDAO(t *testing.T) *DAO {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.New(ctx, &sqlite.Config{Path: filepath.Join(t.TempDir(), "game.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = Migrate(ctx, db, logger.NewNoop())
	require.NoError(t, err)
	return New(db, logger.NewNoop(), nil)
}

func seedUser(t *testing.T, d *DAO, userID string, gold int64) {
	t.Helper()
	u := model.NewUser(userID, "srv", userID, "male", "", "Order", time.Unix(1700000000, 0))
	u.Gold = gold
	require.NoError(t, d.Users.Create(context.Background(), u))
}

func TestMigrate_Idempotent(t *testing.T) {
	d := newTestDAO(t)
	applied, err := Migrate(context.Background(), d.DB(), logger.NewNoop())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("CREATE TABLE a (x INT);\n\n CREATE INDEX i ON a (x) ;\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, got)
}

func TestUserDAO_GetCreate(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()

	_, err := d.Users.Get(ctx, "u1", "srv")
	assert.True(t, IsNotFound(err))

	seedUser(t, d, "u1", 200)
	u, err := d.Users.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, int64(200), u.Gold)
	assert.Equal(t, int64(model.StarterPotions), u.Potions)
	assert.True(t, u.DoorsEnabled)
	assert.Equal(t, int64(1700000000), u.CreatedAt.Unix())
	assert.True(t, u.LastPropagateAt.IsZero())

	ok, err := d.Users.Exists(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = d.Users.Exists(ctx, "u1", "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserDAO_ConsumeModifyRoundTrip(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 100)

	ok, err := d.Users.Consume(ctx, "u1", "srv", model.ColGold, 40)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, d.Users.Modify(ctx, "u1", "srv", model.ColGold, 40))

	u, err := d.Users.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.Gold)
}

func TestUserDAO_ConsumeInsufficient(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 10)

	ok, err := d.Users.Consume(ctx, "u1", "srv", model.ColGold, 11)
	require.NoError(t, err)
	assert.False(t, ok)

	err = d.Users.Modify(ctx, "u1", "srv", model.ColCurios, -1)
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)

	err = d.Users.Modify(ctx, "u1", "srv", model.ColGold, -11)
	assert.ErrorIs(t, err, errcode.ErrInsufficientFunds)

	u, err := d.Users.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, int64(10), u.Gold)
	assert.Zero(t, u.Curios)
}

func TestUserDAO_Whitelist(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 10)

	err := d.Users.Modify(ctx, "u1", "srv", model.Column("gold = 0; --"), 1)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)

	err = d.Users.AddMany(ctx, "u1", "srv", map[model.Column]int64{model.Column("name"): 1})
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}

func TestUserDAO_AddMany(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 0)

	err := d.Users.AddMany(ctx, "u1", "srv", map[model.Column]int64{
		model.ColGold:            5000,
		model.ColRefinementRunes: 2,
		model.ColPotentialRunes:  0,
	})
	require.NoError(t, err)

	u, err := d.Users.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), u.Gold)
	assert.Equal(t, int64(2), u.RefinementRunes)

	err = d.Users.AddMany(ctx, "ghost", "srv", map[model.Column]int64{model.ColGold: 1})
	assert.ErrorIs(t, err, errcode.ErrNotRegistered)
}

func TestUserDAO_Flags(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 0)

	at := time.Unix(1700003600, 0)
	require.NoError(t, d.Users.SetLastPropagate(ctx, "u1", "srv", at))
	require.NoError(t, d.Users.SetDoors(ctx, "u1", "srv", false))

	u, err := d.Users.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, at.Unix(), u.LastPropagateAt.Unix())
	assert.False(t, u.DoorsEnabled)
}

func TestDAO_WithTxRollback(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 100)

	boom := errors.New("boom")
	err := d.WithTx(ctx, func(ctx context.Context) error {
		ok, err := d.Users.Consume(ctx, "u1", "srv", model.ColGold, 100)
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := d.Users.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, int64(100), u.Gold)
}

func TestSkillDAO(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 10000)
	for _, sk := range model.Skills {
		require.NoError(t, d.Skills.Create(ctx, "u1", "srv", sk))
	}

	row, err := d.Skills.Get(ctx, "u1", "srv", model.SkillMining)
	require.NoError(t, err)
	assert.Equal(t, "iron", row.ToolTier)
	assert.Len(t, row.Resources, 5)

	err = d.Skills.UpdateBatch(ctx, "u1", "srv", model.SkillMining, map[string]int64{
		"iron":     60,
		"coal":     3,
		"oak_logs": 99, // 不属于 mining，忽略
	})
	require.NoError(t, err)

	row, err = d.Skills.Get(ctx, "u1", "srv", model.SkillMining)
	require.NoError(t, err)
	assert.Equal(t, int64(60), row.Resources["iron"])
	assert.Equal(t, int64(3), row.Resources["coal"])

	err = d.Skills.UpdateBatch(ctx, "u1", "srv", model.SkillMining, map[string]int64{"coal": -4, "iron": 1})
	assert.ErrorIs(t, err, errcode.ErrInsufficientMaterial)

	ok, err := d.Skills.ConsumeResource(ctx, "u1", "srv", model.SkillMining, "coal", 3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSkillDAO_UpgradeTool(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	seedUser(t, d, "u1", 1000)
	require.NoError(t, d.Skills.Create(ctx, "u1", "srv", model.SkillMining))
	require.NoError(t, d.Skills.UpdateBatch(ctx, "u1", "srv", model.SkillMining, map[string]int64{"iron": 50}))

	up := ToolUpgrade{Skill: model.SkillMining, From: "iron", To: "steel", Resource: "iron", Amount: 50, Gold: 5000}

	// 金币不足，资源扣减回滚
	err := d.Skills.UpgradeTool(ctx, "u1", "srv", up)
	assert.ErrorIs(t, err, errcode.ErrInsufficientFunds)
	row, err := d.Skills.Get(ctx, "u1", "srv", model.SkillMining)
	require.NoError(t, err)
	assert.Equal(t, "iron", row.ToolTier)
	assert.Equal(t, int64(50), row.Resources["iron"])

	require.NoError(t, d.Users.Modify(ctx, "u1", "srv", model.ColGold, 4000))
	require.NoError(t, d.Skills.UpgradeTool(ctx, "u1", "srv", up))

	row, err = d.Skills.Get(ctx, "u1", "srv", model.SkillMining)
	require.NoError(t, err)
	assert.Equal(t, "steel", row.ToolTier)
	assert.Zero(t, row.Resources["iron"])
	u, err := d.Users.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Zero(t, u.Gold)
}

func TestDelveDAO(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	require.NoError(t, d.Delve.Create(ctx, model.NewDelveProfile("u1", "srv")))
	require.NoError(t, d.Delve.AddRewards(ctx, "u1", "srv", 7, 12))

	ok, err := d.Delve.Upgrade(ctx, "u1", "srv", model.DelveFuel, 1, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	// 等级已变化，旧条件不再生效
	ok, err = d.Delve.Upgrade(ctx, "u1", "srv", model.DelveFuel, 1, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	// 碎片不足
	ok, err = d.Delve.Upgrade(ctx, "u1", "srv", model.DelveFuel, 2, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	p, err := d.Delve.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, 2, p.FuelLevel)
	assert.Equal(t, int64(2), p.Shards)
	assert.Equal(t, int64(12), p.XP)
}

func TestSlayerDAO(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	require.NoError(t, d.Slayer.Create(ctx, "u1", "srv"))

	p, err := d.Slayer.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Level)
	assert.False(t, p.HasTask())

	e, err := d.Slayer.GetEmblem(ctx, "u1", "srv")
	require.NoError(t, err)
	for _, s := range e.Slots {
		assert.True(t, s.Empty())
		assert.Equal(t, 1, s.Tier)
	}

	require.NoError(t, d.Slayer.SaveSlot(ctx, "u1", "srv", 1, model.EmblemSlot{Type: "slayer_dmg", Tier: 3}))
	e, err = d.Slayer.GetEmblem(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, model.EmblemSlot{Type: "slayer_dmg", Tier: 3}, e.Slots[0])

	ok, err := d.Slayer.ConsumeMaterial(ctx, "u1", "srv", model.MaterialEssence, 1)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, d.Slayer.ModifyMaterial(ctx, "u1", "srv", model.MaterialEssence, 1))
	ok, err = d.Slayer.ConsumeMaterial(ctx, "u1", "srv", model.MaterialEssence, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = d.Slayer.ConsumeMaterial(ctx, "u1", "srv", model.SlayerMaterial("level"), 1)
	assert.ErrorIs(t, err, errcode.ErrInvalidInput)
}

func TestSlayerDAO_TaskLifecycle(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	require.NoError(t, d.Slayer.Create(ctx, "u1", "srv"))

	// 无任务不能跳过
	ok, err := d.Slayer.SkipTask(ctx, "u1", "srv", 15)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Slayer.SetTask(ctx, "u1", "srv", "goblin", 20))
	require.NoError(t, d.Slayer.ApplyHunt(ctx, "u1", "srv", HuntDelta{Essence: 1, Level: 1, Progress: 4}))

	p, err := d.Slayer.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.Equal(t, "goblin", p.TaskSpecies)
	assert.Equal(t, 4, p.TaskProgress)
	assert.Equal(t, int64(1), p.ViolentEssence)

	// 点数不足
	ok, err = d.Slayer.SkipTask(ctx, "u1", "srv", 15)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Slayer.ModifyMaterial(ctx, "u1", "srv", model.MaterialPoints, 20))
	ok, err = d.Slayer.SkipTask(ctx, "u1", "srv", 15)
	require.NoError(t, err)
	assert.True(t, ok)

	p, err = d.Slayer.Get(ctx, "u1", "srv")
	require.NoError(t, err)
	assert.False(t, p.HasTask())
	assert.Equal(t, int64(5), p.Points)
}

func TestIdeologyDAO(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	require.NoError(t, d.Ideology.Create(ctx, &model.Ideology{ServerID: "srv", Name: "Order", FounderUser: "u1", Followers: 1}))
	require.NoError(t, d.Ideology.Create(ctx, &model.Ideology{ServerID: "srv", Name: "Chaos", FounderUser: "u2", Followers: 5}))
	require.NoError(t, d.Ideology.AddFollowers(ctx, "srv", "Order", 10))

	assert.ErrorIs(t, d.Ideology.AddFollowers(ctx, "srv", "Nope", 1), ErrNotFound)

	top, err := d.Ideology.Top(ctx, "srv", 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Order", top[0].Name)
	assert.Equal(t, int64(11), top[0].Followers)
}

func TestItemDAO(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()

	for i, kind := range model.ItemKinds {
		it := &model.Item{
			ItemID: int64(i + 1), UserID: "u1", ServerID: "srv", Kind: kind,
			Name: "Test Item", Level: 100, Attack: 7, Passive: model.PassiveNone,
			PotentialRemaining: model.InitialPotential,
		}
		require.NoError(t, d.Items.Insert(ctx, it))
	}

	counts, err := d.Items.CountAll(ctx, "u1", "srv")
	require.NoError(t, err)
	for _, kind := range model.ItemKinds {
		assert.Equal(t, 1, counts[kind], kind)
	}

	it, err := d.Items.Owned(ctx, "u1", "srv", model.KindWeapon, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(7), it.Attack)
	assert.False(t, it.Equipped)

	_, err = d.Items.Owned(ctx, "u2", "srv", model.KindWeapon, 1)
	assert.ErrorIs(t, err, errcode.ErrNotOwned)

	// 装备后不可转移或丢弃
	require.NoError(t, d.Items.Equip(ctx, "u1", "srv", model.KindWeapon, 1))
	ok, err := d.Items.Transfer(ctx, model.KindWeapon, 1, "srv", "u1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = d.Items.Delete(ctx, "u1", "srv", model.KindWeapon, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.Items.Transfer(ctx, model.KindArmor, 2, "srv", "u1", "u2")
	require.NoError(t, err)
	assert.True(t, ok)
	list, err := d.Items.List(ctx, "u2", "srv", model.KindArmor)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ItemID)

	it.Passive, it.PotentialRemaining, it.PotentialLevel = "burning", 9, 0
	require.NoError(t, d.Items.UpdatePotential(ctx, it))
	got, err := d.Items.Get(ctx, model.KindWeapon, 1)
	require.NoError(t, err)
	assert.Equal(t, "burning", got.Passive)
	assert.Equal(t, 9, got.PotentialRemaining)
	assert.True(t, got.Equipped)
}

func TestItemDAO_EquipSwapsSlot(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()
	for id := int64(1); id <= 2; id++ {
		require.NoError(t, d.Items.Insert(ctx, &model.Item{
			ItemID: id, UserID: "u1", ServerID: "srv", Kind: model.KindHelmet,
			Name: "Helm", Level: 100, Passive: model.PassiveNone,
		}))
	}

	require.NoError(t, d.Items.Equip(ctx, "u1", "srv", model.KindHelmet, 1))
	require.NoError(t, d.Items.Equip(ctx, "u1", "srv", model.KindHelmet, 2))

	list, err := d.Items.List(ctx, "u1", "srv", model.KindHelmet)
	require.NoError(t, err)
	equipped := 0
	for _, it := range list {
		if it.Equipped {
			equipped++
			assert.Equal(t, int64(2), it.ItemID)
		}
	}
	assert.Equal(t, 1, equipped)

	err = d.Items.Equip(ctx, "u1", "srv", model.KindHelmet, 99)
	assert.ErrorIs(t, err, errcode.ErrNotOwned)
}

func TestEventDAO(t *testing.T) {
	d := newTestDAO(t)
	ctx := context.Background()

	added, err := d.Events.AddChannel(ctx, model.EventChannel{ServerID: "srv", ChannelID: "general"})
	require.NoError(t, err)
	assert.True(t, added)
	added, err = d.Events.AddChannel(ctx, model.EventChannel{ServerID: "srv", ChannelID: "general"})
	require.NoError(t, err)
	assert.False(t, added)

	chs, err := d.Events.Channels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.EventChannel{{ServerID: "srv", ChannelID: "general"}}, chs)
}
