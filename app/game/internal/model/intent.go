package model

import (
	"context"
	"strconv"
)

// IntentKind 意图种类
type IntentKind = string

const (
	IntentRegister         IntentKind = "register"
	IntentRegisterGender   IntentKind = "register_gender"
	IntentRegisterPortrait IntentKind = "register_portrait"
	IntentRegisterIdeology IntentKind = "register_ideology"
	IntentProfile          IntentKind = "profile"
	IntentBack             IntentKind = "back"

	IntentCurios     IntentKind = "curios"
	IntentBulkCurios IntentKind = "bulk_curios"

	IntentDelve        IntentKind = "delve"
	IntentDelveShop    IntentKind = "delve_shop"
	IntentDelveUpgrade IntentKind = "delve_upgrade"
	IntentDelveAction  IntentKind = "delve_action"

	IntentDuel         IntentKind = "duel"
	IntentDuelResponse IntentKind = "duel_response"
	IntentDuelAction   IntentKind = "duel_action"

	IntentSlayer       IntentKind = "slayer"
	IntentSlayerTask   IntentKind = "slayer_task"
	IntentSlayerSkip   IntentKind = "slayer_skip"
	IntentSlayerHunt   IntentKind = "slayer_hunt"
	IntentSlayerEmblem IntentKind = "slayer_emblem"
	IntentSlayerSlot   IntentKind = "slayer_slot"

	IntentSendGold      IntentKind = "send_gold"
	IntentSendWeapon    IntentKind = "send_weapon"
	IntentSendAccessory IntentKind = "send_accessory"
	IntentSendMaterial  IntentKind = "send_material"
	IntentSendKey       IntentKind = "send_key"

	IntentIdeology    IntentKind = "ideology"
	IntentPropagate   IntentKind = "propagate"
	IntentDoorsToggle IntentKind = "doors_toggle"

	IntentSetupEvents IntentKind = "setup_events"
	IntentClaimEvent  IntentKind = "claim_event"

	IntentUpgradeTool IntentKind = "upgrade_tool"
	IntentEnhanceItem IntentKind = "enhance_item"
	IntentDiscardItem IntentKind = "discard_item"
	IntentEquipItem   IntentKind = "equip_item"
)

// ViewSink 视图投递目标，由适配器实现
type ViewSink interface {
	Send(ctx context.Context, v *View) error
}

// Intent 适配器送入核心的一次用户操作
type Intent struct {
	UserID    string            `json:"user_id"`
	ServerID  string            `json:"server_id"`
	ChannelID string            `json:"channel_id"`
	Kind      IntentKind        `json:"kind"`
	Args      map[string]string `json:"args,omitempty"`

	// Sink 超时等异步视图的投递目标，可为空
	Sink ViewSink `json:"-"`
}

// Arg 读取字符串参数
func (in *Intent) Arg(name string) string {
	if in.Args == nil {
		return ""
	}
	return in.Args[name]
}

// IntArg 读取整数参数
func (in *Intent) IntArg(name string) (int64, bool) {
	v, err := strconv.ParseInt(in.Arg(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
