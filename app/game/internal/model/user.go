package model

import "time"

// User 玩家档案，对应 users 表，主键 (user_id, server_id)
type User struct {
	UserID   string `db:"user_id" json:"user_id"`
	ServerID string `db:"server_id" json:"server_id"`

	// 基础信息
	Name         string `db:"name" json:"name"`
	Gender       string `db:"gender" json:"gender"`
	PortraitURL  string `db:"portrait_url" json:"portrait_url"`
	IdeologyName string `db:"ideology_name" json:"ideology_name"`

	// 成长
	Level          int64 `db:"level" json:"level"`
	XP             int64 `db:"xp" json:"xp"`
	Attack         int64 `db:"attack" json:"attack"`
	Defence        int64 `db:"defence" json:"defence"`
	MaxHP          int64 `db:"max_hp" json:"max_hp"`
	AscensionCount int64 `db:"ascension_count" json:"ascension_count"`
	PassivePoints  int64 `db:"passive_points" json:"passive_points"`

	// 货币与材料
	Gold             int64 `db:"gold" json:"gold"`
	Potions          int64 `db:"potions" json:"potions"`
	Curios           int64 `db:"curios" json:"curios"`
	DragonKeys       int64 `db:"dragon_keys" json:"dragon_keys"`
	AngelKeys        int64 `db:"angel_keys" json:"angel_keys"`
	SoulCores        int64 `db:"soul_cores" json:"soul_cores"`
	VoidFrags        int64 `db:"void_frags" json:"void_frags"`
	BalanceFragments int64 `db:"balance_fragments" json:"balance_fragments"`
	RefinementRunes  int64 `db:"refinement_runes" json:"refinement_runes"`
	PotentialRunes   int64 `db:"potential_runes" json:"potential_runes"`
	ImbueRunes       int64 `db:"imbue_runes" json:"imbue_runes"`
	ShatterRunes     int64 `db:"shatter_runes" json:"shatter_runes"`

	TempleWorkers   int64     `db:"temple_workers" json:"temple_workers"`
	LastPropagateAt time.Time `db:"last_propagate_at" json:"last_propagate_at"`
	DoorsEnabled    bool      `db:"doors_enabled" json:"doors_enabled"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Column users 表中可原子增减的计数列
type Column string

const (
	ColGold             Column = "gold"
	ColPotions          Column = "potions"
	ColCurios           Column = "curios"
	ColXP               Column = "xp"
	ColDragonKeys       Column = "dragon_keys"
	ColAngelKeys        Column = "angel_keys"
	ColSoulCores        Column = "soul_cores"
	ColVoidFrags        Column = "void_frags"
	ColBalanceFragments Column = "balance_fragments"
	ColRefinementRunes  Column = "refinement_runes"
	ColPotentialRunes   Column = "potential_runes"
	ColImbueRunes       Column = "imbue_runes"
	ColShatterRunes     Column = "shatter_runes"
	ColPassivePoints    Column = "passive_points"
	ColTempleWorkers    Column = "temple_workers"
)

// userCounters 白名单：动态列名只能取自这里
var userCounters = map[Column]struct{}{
	ColGold: {}, ColPotions: {}, ColCurios: {}, ColXP: {},
	ColDragonKeys: {}, ColAngelKeys: {}, ColSoulCores: {}, ColVoidFrags: {},
	ColBalanceFragments: {}, ColRefinementRunes: {}, ColPotentialRunes: {},
	ColImbueRunes: {}, ColShatterRunes: {}, ColPassivePoints: {}, ColTempleWorkers: {},
}

// IsUserCounter 判断列是否在 users 计数列白名单中
func IsUserCounter(c Column) bool {
	_, ok := userCounters[c]
	return ok
}

// Transferable 可通过 send_material 转赠的材料，名称即列名
var Transferable = []Column{
	ColPotions, ColSoulCores, ColVoidFrags, ColBalanceFragments,
	ColRefinementRunes, ColPotentialRunes, ColImbueRunes, ColShatterRunes,
}

// KeyColumn send_key 的钥匙种类
func KeyColumn(kind string) (Column, bool) {
	switch kind {
	case "dragon", "dragon_key", "dragon_keys":
		return ColDragonKeys, true
	case "angel", "angel_key", "angel_keys":
		return ColAngelKeys, true
	}
	return "", false
}

// Counter 读取快照中的计数列
func (u *User) Counter(c Column) int64 {
	switch c {
	case ColGold:
		return u.Gold
	case ColPotions:
		return u.Potions
	case ColCurios:
		return u.Curios
	case ColXP:
		return u.XP
	case ColDragonKeys:
		return u.DragonKeys
	case ColAngelKeys:
		return u.AngelKeys
	case ColSoulCores:
		return u.SoulCores
	case ColVoidFrags:
		return u.VoidFrags
	case ColBalanceFragments:
		return u.BalanceFragments
	case ColRefinementRunes:
		return u.RefinementRunes
	case ColPotentialRunes:
		return u.PotentialRunes
	case ColImbueRunes:
		return u.ImbueRunes
	case ColShatterRunes:
		return u.ShatterRunes
	case ColPassivePoints:
		return u.PassivePoints
	case ColTempleWorkers:
		return u.TempleWorkers
	}
	return 0
}

// 注册初始值
const (
	StarterGold    = 200
	StarterPotions = 10
)

// NewUser 创建新玩家
func NewUser(userID, serverID, name, gender, portrait, ideology string, now time.Time) *User {
	return &User{
		UserID:       userID,
		ServerID:     serverID,
		Name:         name,
		Gender:       gender,
		PortraitURL:  portrait,
		IdeologyName: ideology,
		Level:        1,
		Attack:       1,
		Defence:      1,
		MaxHP:        10,
		Gold:         StarterGold,
		Potions:      StarterPotions,
		DoorsEnabled: true,
		CreatedAt:    now,
	}
}
