package model

// SlayerProfile 猎杀档案，对应 slayer_profiles 表
type SlayerProfile struct {
	UserID         string `json:"user_id"`
	ServerID       string `json:"server_id"`
	Level          int    `json:"level"`
	XP             int64  `json:"xp"`
	Points         int64  `json:"points"`
	ViolentEssence int64  `json:"violent_essence"`
	ImbuedHeart    int64  `json:"imbued_heart"`

	// 当前任务，Species 为空表示无任务
	TaskSpecies  string `json:"active_task_species,omitempty"`
	TaskAmount   int    `json:"active_task_amount"`
	TaskProgress int    `json:"active_task_progress"`
}

// HasTask 是否有进行中的任务
func (p *SlayerProfile) HasTask() bool { return p.TaskSpecies != "" }

// SlayerMaterial 猎杀材料列
type SlayerMaterial string

const (
	MaterialEssence SlayerMaterial = "violent_essence"
	MaterialHeart   SlayerMaterial = "imbued_heart"
	MaterialPoints  SlayerMaterial = "points"
)

// IsSlayerMaterial 白名单校验
func IsSlayerMaterial(m SlayerMaterial) bool {
	switch m {
	case MaterialEssence, MaterialHeart, MaterialPoints:
		return true
	}
	return false
}

const (
	EmblemSlots   = 5
	EmblemMaxTier = 5
	PassiveNone   = "none"
)

// PassivePool 纹章被动池
var PassivePool = []string{
	"slayer_dmg", "boss_dmg", "combat_dmg", "gold_find", "xp_find",
	"slayer_def", "crit_dmg", "accuracy", "task_progress", "slayer_drops",
}

// EmblemSlot 纹章槽位
type EmblemSlot struct {
	Type string `json:"type"`
	Tier int    `json:"tier"`
}

// Empty 槽位是否未觉醒
func (s EmblemSlot) Empty() bool { return s.Type == "" || s.Type == PassiveNone }

// Emblem 五个槽位，下标 0 对应第 1 槽
type Emblem struct {
	UserID   string                  `json:"user_id"`
	ServerID string                  `json:"server_id"`
	Slots    [EmblemSlots]EmblemSlot `json:"slots"`
}

// NewEmblem 全部槽位为空
func NewEmblem(userID, serverID string) *Emblem {
	e := &Emblem{UserID: userID, ServerID: serverID}
	for i := range e.Slots {
		e.Slots[i] = EmblemSlot{Type: PassiveNone, Tier: 1}
	}
	return e
}

// Slot 按 1 起始的槽号读取
func (e *Emblem) Slot(n int) (EmblemSlot, bool) {
	if n < 1 || n > EmblemSlots {
		return EmblemSlot{}, false
	}
	return e.Slots[n-1], true
}

// UnlockedSlots 按猎杀等级解锁的槽位数
func UnlockedSlots(level int) int {
	switch {
	case level >= 80:
		return 5
	case level >= 60:
		return 4
	case level >= 40:
		return 3
	case level >= 20:
		return 2
	default:
		return 1
	}
}
