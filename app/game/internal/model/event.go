package model

import "time"

// EventType 随机事件类型
type EventType string

const (
	EventTreasureChest     EventType = "treasure_chest"
	EventWanderingMerchant EventType = "wandering_merchant"
	EventFallenStar        EventType = "fallen_star"
	EventDragonsHoard      EventType = "dragons_hoard"
	EventAngelicBlessing   EventType = "angelic_blessing"
)

// EventTypes 事件目录
var EventTypes = []EventType{
	EventTreasureChest,
	EventWanderingMerchant,
	EventFallenStar,
	EventDragonsHoard,
	EventAngelicBlessing,
}

// Title 事件展示名
func (t EventType) Title() string {
	switch t {
	case EventTreasureChest:
		return "Treasure Chest"
	case EventWanderingMerchant:
		return "Wandering Merchant"
	case EventFallenStar:
		return "Fallen Star"
	case EventDragonsHoard:
		return "Dragon's Hoard"
	case EventAngelicBlessing:
		return "Angelic Blessing"
	}
	return string(t)
}

// EventChannel 事件广播频道绑定，对应 event_channels 表
type EventChannel struct {
	ServerID  string `json:"server_id"`
	ChannelID string `json:"channel_id"`
}

// EventInstance 一次广播出的事件，仅存于内存
type EventInstance struct {
	ID        string              `json:"id"`
	Type      EventType           `json:"type"`
	Channel   EventChannel        `json:"channel"`
	ExpiresAt time.Time           `json:"expires_at"`
	Claimed   map[string]struct{} `json:"-"`
}
