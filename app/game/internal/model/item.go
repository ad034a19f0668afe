package model

import "strings"

// ItemKind 装备种类
type ItemKind string

const (
	KindWeapon    ItemKind = "weapon"
	KindArmor     ItemKind = "armor"
	KindAccessory ItemKind = "accessory"
	KindGlove     ItemKind = "glove"
	KindBoot      ItemKind = "boot"
	KindHelmet    ItemKind = "helmet"
)

// ItemKinds 全部装备种类
var ItemKinds = []ItemKind{KindWeapon, KindArmor, KindAccessory, KindGlove, KindBoot, KindHelmet}

// InventoryCap 每类装备的背包上限
const InventoryCap = 60

// ParseItemKind 解析装备种类，接受单复数与大小写（Gloves → glove，Boots → boot）
func ParseItemKind(s string) (ItemKind, bool) {
	k := strings.ToLower(strings.TrimSpace(s))
	switch k {
	case "weapon", "weapons":
		return KindWeapon, true
	case "armor", "armors", "armour":
		return KindArmor, true
	case "accessory", "accessories":
		return KindAccessory, true
	case "glove", "gloves":
		return KindGlove, true
	case "boot", "boots":
		return KindBoot, true
	case "helmet", "helmets":
		return KindHelmet, true
	}
	return "", false
}

// Table 装备表名
func (k ItemKind) Table() string {
	switch k {
	case KindAccessory:
		return "accessories"
	default:
		return string(k) + "s"
	}
}

// Stat 装备属性轴
type Stat string

const (
	StatAttack  Stat = "attack"
	StatDefence Stat = "defence"
	StatRarity  Stat = "rarity"
	StatWard    Stat = "ward"
	StatCrit    Stat = "crit"
	StatBlock   Stat = "block"
	StatEvasion Stat = "evasion"
)

// Item 装备实例
type Item struct {
	ItemID   int64    `json:"item_id"`
	UserID   string   `json:"user_id"`
	ServerID string   `json:"server_id"`
	Kind     ItemKind `json:"kind"`
	Name     string   `json:"item_name"`
	Level    int      `json:"item_level"`

	Attack  int64 `json:"attack"`
	Defence int64 `json:"defence"`
	Rarity  int64 `json:"rarity"`
	Ward    int64 `json:"ward"`
	Crit    int64 `json:"crit"`
	Block   int64 `json:"block"`
	Evasion int64 `json:"evasion"`

	Passive            string `json:"passive"`
	PotentialRemaining int    `json:"potential_remaining"`
	PotentialLevel     int    `json:"potential_level"`
	Equipped           bool   `json:"is_equipped"`
}

// 新装备的潜能初始值
const InitialPotential = 10

// AddStat 按属性轴累加数值
func (it *Item) AddStat(s Stat, v int64) {
	switch s {
	case StatAttack:
		it.Attack += v
	case StatDefence:
		it.Defence += v
	case StatRarity:
		it.Rarity += v
	case StatWard:
		it.Ward += v
	case StatCrit:
		it.Crit += v
	case StatBlock:
		it.Block += v
	case StatEvasion:
		it.Evasion += v
	}
}

// Stats 非零属性，按固定顺序
func (it *Item) Stats() []StatValue {
	all := []StatValue{
		{StatAttack, it.Attack},
		{StatDefence, it.Defence},
		{StatRarity, it.Rarity},
		{StatWard, it.Ward},
		{StatCrit, it.Crit},
		{StatBlock, it.Block},
		{StatEvasion, it.Evasion},
	}
	out := all[:0]
	for _, sv := range all {
		if sv.Value != 0 {
			out = append(out, sv)
		}
	}
	return out
}

// StatValue 属性与数值
type StatValue struct {
	Stat  Stat  `json:"stat"`
	Value int64 `json:"value"`
}

// ItemPassives 强化时可获得的装备被动
var ItemPassives = map[ItemKind][]string{
	KindWeapon:    {"burning", "poisonous", "polished", "sparking", "sturdy", "piercing", "strengthened", "accurate", "echo"},
	KindArmor:     {"invulnerable", "mystical shield", "stone skin", "enchanted", "vengeful", "vampiric"},
	KindAccessory: {"obliterate", "absorb", "prosper", "infinite wisdom", "lucky strikes"},
	KindGlove:     {"ward-touched", "ward-fused", "instability", "deftness", "adroit", "equilibrium", "plundering"},
	KindBoot:      {"speedster", "skiller", "treasure-tracker", "hearty", "cleric", "thrill-seeker"},
	KindHelmet:    {"juggernaut", "insight", "volatile", "divine", "frenzy", "leeching"},
}
