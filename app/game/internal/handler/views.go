package handler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lk2023060901/ascend/app/game/internal/curio"
	"github.com/lk2023060901/ascend/app/game/internal/delve"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/pvp"
	"github.com/lk2023060901/ascend/app/game/internal/service"
	"github.com/lk2023060901/ascend/app/game/internal/slayer"
	"github.com/lk2023060901/ascend/app/game/internal/tables"
)

var errorTitles = map[errcode.Kind]string{
	errcode.KindNotRegistered:        "Not Registered",
	errcode.KindAlreadyBusy:          "Already Busy",
	errcode.KindInsufficientFunds:    "Insufficient Gold",
	errcode.KindInsufficientMaterial: "Insufficient Materials",
	errcode.KindInvalidInput:         "Invalid Action",
	errcode.KindNotOwned:             "Not Owned",
	errcode.KindEquippedBlock:        "Item Equipped",
	errcode.KindInventoryFull:        "Inventory Full",
	errcode.KindCooldownActive:       "On Cooldown",
	errcode.KindTimeout:              "Timed Out",
}

func errorView(err error) *model.View {
	kind := errcode.KindOf(err)
	title, ok := errorTitles[kind]
	if !ok {
		title = "Error"
	}
	v := model.NewView(title, errcode.Message(err))
	v.Error = string(kind)
	if kind == errcode.KindNotRegistered {
		v.Option("Register", model.IntentRegister, nil)
	}
	return v
}

func gold(n int64) string {
	return humanize.Comma(n) + " gold"
}

func title(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// 注册

func genderView() *model.View {
	v := model.NewView("Registration", "Choose your character's gender.")
	for _, g := range service.Genders {
		v.Option(title(g), model.IntentRegisterGender, map[string]string{"gender": g})
	}
	return v.Option("Back", model.IntentBack, nil)
}

func portraitView(portraits []tables.Portrait) *model.View {
	v := model.NewView("Registration", "Choose a portrait.")
	for i, p := range portraits {
		v.Option(fmt.Sprintf("Portrait %d", i+1), model.IntentRegisterPortrait, map[string]string{"portrait": p.URL})
	}
	if len(portraits) == 0 {
		v.Option("Skip", model.IntentRegisterPortrait, map[string]string{"portrait": ""})
	}
	return v.Option("Back", model.IntentBack, nil)
}

func ideologyPromptView() *model.View {
	return model.NewView("Registration", "Name the ideology you follow. Letters, digits and spaces, at most 24 characters. "+
		"Naming a new ideology founds it.").
		Option("Back", model.IntentBack, nil)
}

func welcomeView(u *model.User, founded bool) *model.View {
	desc := fmt.Sprintf("Welcome, %s. You joined %s.", u.Name, u.IdeologyName)
	if founded {
		desc = fmt.Sprintf("Welcome, %s. You founded %s.", u.Name, u.IdeologyName)
	}
	v := model.NewView("Registered", desc).
		Inline("Gold", gold(u.Gold)).
		IntField("Potions", u.Potions)
	v.Thumbnail = u.PortraitURL
	return v.Option("Profile", model.IntentProfile, nil).Close()
}

// 总览

func profileView(p *service.Profile) *model.View {
	u := p.User
	v := model.NewView(u.Name, fmt.Sprintf("Level %d, follower of %s", u.Level, u.IdeologyName)).
		IntField("XP", u.XP).
		Inline("Gold", gold(u.Gold)).
		IntField("Curios", u.Curios).
		IntField("Potions", u.Potions).
		IntField("Attack", u.Attack).
		IntField("Defence", u.Defence).
		IntField("Max HP", u.MaxHP).
		IntField("Dragon Keys", u.DragonKeys).
		IntField("Angel Keys", u.AngelKeys)

	var runes []string
	for _, col := range []model.Column{model.ColRefinementRunes, model.ColPotentialRunes, model.ColImbueRunes, model.ColShatterRunes} {
		runes = append(runes, fmt.Sprintf("%s: %d", title(string(col)), u.Counter(col)))
	}
	v.Field("Runes", strings.Join(runes, "\n"))

	for _, row := range p.Skills {
		v.Inline(title(string(row.Skill)), fmt.Sprintf("%s tool", title(row.ToolTier)))
	}
	if p.Delve != nil {
		v.Inline("Delve", fmt.Sprintf("%d xp, %d shards", p.Delve.XP, p.Delve.Shards))
	}
	if p.Slayer != nil {
		v.Inline("Slayer", fmt.Sprintf("level %d", p.Slayer.Level))
	}

	var inv []string
	for _, k := range model.ItemKinds {
		inv = append(inv, fmt.Sprintf("%s: %d/%d", title(string(k)), p.Inventory[k], p.InventoryCap))
	}
	v.Field("Inventory", strings.Join(inv, "\n"))
	v.Thumbnail = u.PortraitURL

	doors := "Disable doors"
	if !u.DoorsEnabled {
		doors = "Enable doors"
	}
	return v.Option(doors, model.IntentDoorsToggle, nil)
}

// 珍奇

var openAmounts = []int64{1, 5, 10}

func curioMenuView(balance int64) *model.View {
	v := model.NewView("Curios", fmt.Sprintf("You have %d curios.", balance))
	for _, n := range openAmounts {
		v.OptionIf(balance >= n, fmt.Sprintf("Open %d", n), model.IntentBulkCurios, map[string]string{"amount": strconv.FormatInt(n, 10)})
	}
	return v.
		OptionIf(balance > 0, "Open all", model.IntentBulkCurios, map[string]string{"amount": strconv.FormatInt(balance, 10)}).
		Option("Close", model.IntentBack, nil)
}

func curioSummaryView(s *curio.Summary) *model.View {
	v := model.NewView("Curios Opened", fmt.Sprintf("You opened %d curios.", s.Opened))
	if s.Gold > 0 {
		v.Inline("Gold", gold(s.Gold))
	}
	for _, col := range sortedColumns(s.Runes) {
		v.IntField(title(string(col)), s.Runes[col])
	}
	for _, res := range sortedKeys(s.Materials) {
		v.IntField(title(res), s.Materials[res])
	}
	for _, it := range s.Items {
		v.Field(it.Name, itemLine(it))
	}
	return v.Close()
}

func sortedColumns(m map[model.Column]int64) []model.Column {
	out := make([]model.Column, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedKeys(m map[string]int64) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// 装备

func itemLine(it *model.Item) string {
	parts := []string{fmt.Sprintf("#%d %s level %d", it.ItemID, it.Kind, it.Level)}
	for _, sv := range it.Stats() {
		parts = append(parts, fmt.Sprintf("%s +%d", sv.Stat, sv.Value))
	}
	if it.Passive != "" && it.Passive != model.PassiveNone {
		parts = append(parts, "passive "+it.Passive)
	}
	parts = append(parts, fmt.Sprintf("potential %d left", it.PotentialRemaining))
	if it.Equipped {
		parts = append(parts, "equipped")
	}
	return strings.Join(parts, ", ")
}

func itemView(head string, it *model.Item) *model.View {
	args := map[string]string{"kind": string(it.Kind), "id": strconv.FormatInt(it.ItemID, 10)}
	return model.NewView(head, it.Name).
		Field("Item", itemLine(it)).
		OptionIf(it.PotentialRemaining > 0, "Enhance", model.IntentEnhanceItem, args).
		OptionIf(!it.Equipped, "Equip", model.IntentEquipItem, args).
		OptionIf(!it.Equipped, "Discard", model.IntentDiscardItem, args)
}

// 深潜

func delveRunView(run *delve.Run, step *delve.Step) *model.View {
	v := model.NewView("Delve", fmt.Sprintf("Depth %d", run.Depth)).
		Inline("Fuel", fmt.Sprintf("%d/%d", run.CurrentFuel, run.MaxFuel)).
		Inline("Stability", fmt.Sprintf("%d/%d", run.Stability, delve.MaxStability)).
		Inline("Cargo", fmt.Sprintf("%d curios, %d shards", run.CuriosFound, run.ShardsFound))

	if step != nil {
		switch step.Action {
		case delve.ActionDrill:
			v.Field("Drilled", fmt.Sprintf("%s, %d damage", step.Hazard, step.Damage))
		case delve.ActionSurvey:
			depths := make([]int, 0, len(step.Revealed))
			for d := range step.Revealed {
				depths = append(depths, d)
			}
			sort.Ints(depths)
			lines := make([]string, 0, len(depths))
			for _, d := range depths {
				lines = append(lines, fmt.Sprintf("Layer %d: %s", d, step.Revealed[d]))
			}
			v.Field("Survey", strings.Join(lines, "\n"))
		case delve.ActionReinforce:
			v.Field("Reinforced", fmt.Sprintf("+%d stability", step.Restored))
		}
	}
	if run.IsRevealed(run.Depth + 1) {
		v.Field("Next layer", string(run.Hazards[run.Depth]))
	}

	switch run.State {
	case delve.StateCollapsed:
		v.Description = fmt.Sprintf("The tunnel collapsed at depth %d. Your cargo is lost.", run.Depth)
		return v.Close()
	case delve.StateFueledOut:
		v.Description = fmt.Sprintf("You ran out of fuel at depth %d. Your cargo is lost.", run.Depth)
		return v.Close()
	case delve.StateExtracted:
		pay := run.Payout()
		v.Description = fmt.Sprintf("You extracted from depth %d.", run.Depth)
		v.IntField("Curios", pay.Curios).IntField("Shards", pay.Shards).IntField("XP", pay.XP)
		return v.Close()
	}

	for _, a := range delve.Actions {
		label := title(string(a))
		if cost := a.Cost(); cost > 0 {
			label = fmt.Sprintf("%s (%d fuel)", label, cost)
		}
		v.OptionIf(run.Allowed(a), label, model.IntentDelveAction, map[string]string{"action": string(a)})
	}
	return v
}

func delveShopView(p *model.DelveProfile) *model.View {
	v := model.NewView("Delve Shop", fmt.Sprintf("You have %d obsidian shards.", p.Shards)).
		IntField("Delve XP", p.XP).
		Inline("Entry cost", gold(delve.EntryCost(p.FuelLevel)))
	for _, stat := range model.DelveStats {
		level := p.Level(stat)
		cost, ok := delve.UpgradeCost(level)
		label := fmt.Sprintf("%s %d (max)", title(string(stat)), level)
		if ok {
			label = fmt.Sprintf("%s %d → %d (%d shards)", title(string(stat)), level, level+1, cost)
		}
		v.OptionIf(ok && p.Shards >= cost, label, model.IntentDelveUpgrade, map[string]string{"stat": string(stat)})
	}
	return v
}

// 决斗

func duelInviteView(challenger, target string, wager int64) *model.View {
	args := map[string]string{"challenger": challenger}
	v := model.NewView("Duel Challenge", fmt.Sprintf("%s challenges %s for %s.", challenger, target, gold(wager))).
		Option("Accept", model.IntentDuelResponse, merge(args, "answer", "accept")).
		Option("Decline", model.IntentDuelResponse, merge(args, "answer", "decline"))
	v.Recipient = target
	return v
}

func merge(args map[string]string, k, val string) map[string]string {
	out := make(map[string]string, len(args)+1)
	for key, v := range args {
		out[key] = v
	}
	out[k] = val
	return out
}

func duelView(d *pvp.Duel, res *pvp.TurnResult) *model.View {
	v := model.NewView("Duel", fmt.Sprintf("Wager: %s", gold(d.Wager))).
		Inline(d.Players[0], fmt.Sprintf("%d HP", d.HP[0])).
		Inline(d.Players[1], fmt.Sprintf("%d HP", d.HP[1]))

	if res != nil {
		switch {
		case res.Action == pvp.ActionHeal:
			v.Field("Last turn", fmt.Sprintf("%s healed %d", res.Actor, res.Healed))
		case res.Missed:
			v.Field("Last turn", fmt.Sprintf("%s missed", res.Actor))
		default:
			v.Field("Last turn", fmt.Sprintf("%s hit for %d", res.Actor, res.Damage))
		}
	}

	if d.Finished() {
		v.Description = fmt.Sprintf("%s wins %s.", d.WinnerID(), gold(d.Wager))
		return v.Close()
	}
	v.Field("Turn", d.Current())
	v.Option("Attack", model.IntentDuelAction, map[string]string{"action": string(pvp.ActionAttack)})
	v.OptionIf(d.HP[d.Turn] < pvp.MaxHP, "Heal", model.IntentDuelAction, map[string]string{"action": string(pvp.ActionHeal)})
	return v
}

// 猎杀

func slayerView(p *model.SlayerProfile, note string) *model.View {
	v := model.NewView("Slayer", note).
		IntField("Level", int64(p.Level)).
		IntField("XP", p.XP).
		IntField("Points", p.Points).
		IntField("Violent Essence", p.ViolentEssence).
		IntField("Imbued Hearts", p.ImbuedHeart)
	if p.HasTask() {
		v.Field("Task", fmt.Sprintf("%s %d/%d", p.TaskSpecies, p.TaskProgress, p.TaskAmount))
	} else {
		v.Field("Task", "none")
	}
	return v.
		OptionIf(!p.HasTask(), "New task", model.IntentSlayerTask, nil).
		OptionIf(p.HasTask(), "Hunt", model.IntentSlayerHunt, nil).
		OptionIf(p.HasTask() && p.Points >= slayer.SkipCost, fmt.Sprintf("Skip (%d points)", slayer.SkipCost), model.IntentSlayerSkip, nil).
		Option("Emblem", model.IntentSlayerEmblem, nil).
		Option("Close", model.IntentBack, nil)
}

func emblemView(e *model.Emblem, level int) *model.View {
	unlocked := model.UnlockedSlots(level)
	v := model.NewView("Slayer Emblem", fmt.Sprintf("%d of %d slots unlocked.", unlocked, model.EmblemSlots))
	for i, s := range e.Slots {
		n := i + 1
		val := "locked"
		switch {
		case n > unlocked:
		case s.Empty():
			val = "empty"
		default:
			val = fmt.Sprintf("%s tier %d", s.Type, s.Tier)
		}
		v.Inline(fmt.Sprintf("Slot %d", n), val)
		v.OptionIf(n <= unlocked, fmt.Sprintf("Slot %d", n), model.IntentSlayerSlot, map[string]string{"slot": strconv.Itoa(n)})
	}
	return v.Option("Back", model.IntentBack, nil)
}

func slotView(e *model.Emblem, p *model.SlayerProfile, n int, out *slayer.Outcome) *model.View {
	s, _ := e.Slot(n)
	desc := "empty"
	if !s.Empty() {
		desc = fmt.Sprintf("%s tier %d", s.Type, s.Tier)
	}
	v := model.NewView(fmt.Sprintf("Emblem Slot %d", n), desc).
		IntField("Violent Essence", p.ViolentEssence).
		IntField("Imbued Hearts", p.ImbuedHeart)

	if out != nil {
		switch {
		case out.Op == slayer.OpUpgrade && out.Success:
			v.Field("Result", fmt.Sprintf("Upgraded to tier %d", out.After.Tier))
		case out.Downgraded:
			v.Field("Result", fmt.Sprintf("Upgrade failed, downgraded to tier %d", out.After.Tier))
		case out.Op == slayer.OpUpgrade:
			v.Field("Result", "Upgrade failed")
		default:
			v.Field("Result", fmt.Sprintf("Passive is now %s", out.After.Type))
		}
	}

	slot := strconv.Itoa(n)
	args := func(op slayer.SlotOp) map[string]string { return map[string]string{"slot": slot, "op": string(op)} }
	return v.
		OptionIf(s.Empty() && p.ViolentEssence > 0, "Awaken (1 essence)", model.IntentSlayerSlot, args(slayer.OpAwaken)).
		OptionIf(!s.Empty() && s.Tier < model.EmblemMaxTier && p.ViolentEssence > 0,
			fmt.Sprintf("Upgrade (%.0f%%, 1 essence)", slayer.UpgradeChance(s.Tier)*100), model.IntentSlayerSlot, args(slayer.OpUpgrade)).
		OptionIf(!s.Empty() && p.ImbuedHeart > 0, "Reroll (1 heart)", model.IntentSlayerSlot, args(slayer.OpReroll)).
		Option("Back", model.IntentBack, nil)
}

// 教派

func ideologyView(mine *model.Ideology, top []*model.Ideology) *model.View {
	v := model.NewView("Ideology", "")
	if mine != nil {
		v.Description = fmt.Sprintf("%s has %s followers.", mine.Name, humanize.Comma(mine.Followers))
	}
	lines := make([]string, 0, len(top))
	for i, t := range top {
		lines = append(lines, fmt.Sprintf("%d. %s: %s", i+1, t.Name, humanize.Comma(t.Followers)))
	}
	if len(lines) > 0 {
		v.Field("Leaderboard", strings.Join(lines, "\n"))
	}
	return v.Option("Propagate", model.IntentPropagate, nil)
}

// 事件

func claimView(inst *model.EventInstance, grant service.Grant) *model.View {
	v := model.NewView(inst.Type.Title(), "You claimed the event.")
	for _, col := range sortedColumns(grant) {
		if col == model.ColGold {
			v.Inline("Gold", gold(grant[col]))
			continue
		}
		v.IntField(title(string(col)), grant[col])
	}
	return v.Close()
}
