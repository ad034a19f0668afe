// Package pvp 一对一回合制决斗。
package pvp

import (
	"math"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/pkg/random"
)

const (
	MaxHP      = 100
	HealAmount = 20
	MissChance = 0.30
	minMaxHit  = 25
)

// Action 回合操作
type Action string

const (
	ActionAttack Action = "attack"
	ActionHeal   Action = "heal"
)

// ParseAction 解析回合操作
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionAttack, ActionHeal:
		return Action(s), true
	}
	return "", false
}

// MaxHit 攻击上限随攻击者损失的血量上升
func MaxHit(attackerHP int) int {
	return max(minMaxHit, int(math.Floor(120*float64(MaxHP-attackerHP)/100)))
}

// Duel 决斗状态，下标 0 为挑战者
type Duel struct {
	Players [2]string `json:"players"`
	HP      [2]int    `json:"hp"`
	Wager   int64     `json:"wager"`
	Turn    int       `json:"turn"`
	Winner  int       `json:"winner"`
	Rounds  int       `json:"rounds"`
}

// New 创建决斗并随机决定先手
func New(src random.Source, challenger, target string, wager int64) *Duel {
	return &Duel{
		Players: [2]string{challenger, target},
		HP:      [2]int{MaxHP, MaxHP},
		Wager:   wager,
		Turn:    src.IntN(2),
		Winner:  -1,
	}
}

// Finished 是否已分出胜负
func (d *Duel) Finished() bool { return d.Winner >= 0 }

// Current 当前行动的玩家
func (d *Duel) Current() string { return d.Players[d.Turn] }

// Index 玩家下标，不在决斗中返回 -1
func (d *Duel) Index(userID string) int {
	for i, p := range d.Players {
		if p == userID {
			return i
		}
	}
	return -1
}

// Opponent 对手
func (d *Duel) Opponent(userID string) string {
	switch d.Index(userID) {
	case 0:
		return d.Players[1]
	case 1:
		return d.Players[0]
	}
	return ""
}

// WinnerID 胜者，未结束返回空串
func (d *Duel) WinnerID() string {
	if !d.Finished() {
		return ""
	}
	return d.Players[d.Winner]
}

// LoserID 败者，未结束返回空串
func (d *Duel) LoserID() string {
	if !d.Finished() {
		return ""
	}
	return d.Players[1-d.Winner]
}

// TurnResult 一回合的结果
type TurnResult struct {
	Actor    string `json:"actor"`
	Action   Action `json:"action"`
	Missed   bool   `json:"missed,omitempty"`
	Damage   int    `json:"damage,omitempty"`
	Healed   int    `json:"healed,omitempty"`
	Finished bool   `json:"finished"`
}

// Act 当前玩家执行操作，之后轮到对手
func (d *Duel) Act(src random.Source, userID string, a Action) (TurnResult, error) {
	if d.Finished() {
		return TurnResult{}, errcode.InvalidInput("the duel is over")
	}
	if d.Index(userID) < 0 {
		return TurnResult{}, errcode.InvalidInput("you are not part of this duel")
	}
	if d.Current() != userID {
		return TurnResult{}, errcode.InvalidInput("it is not your turn")
	}

	res := TurnResult{Actor: userID, Action: a}
	me, other := d.Turn, 1-d.Turn

	switch a {
	case ActionAttack:
		if random.Chance(src, MissChance) {
			res.Missed = true
			break
		}
		res.Damage = random.Between(src, 1, MaxHit(d.HP[me]))
		d.HP[other] -= res.Damage
		if d.HP[other] <= 0 {
			d.Winner = me
		}
	case ActionHeal:
		before := d.HP[me]
		d.HP[me] = min(MaxHP, d.HP[me]+HealAmount)
		res.Healed = d.HP[me] - before
	default:
		return TurnResult{}, errcode.InvalidInput("unknown duel action %q", a)
	}

	d.Rounds++
	d.Turn = other
	res.Finished = d.Finished()
	return res, nil
}

// Forfeit 超时未操作的玩家判负
func (d *Duel) Forfeit(stalled string) error {
	i := d.Index(stalled)
	if i < 0 {
		return errcode.InvalidInput("%s is not part of this duel", stalled)
	}
	if !d.Finished() {
		d.Winner = 1 - i
	}
	return nil
}
