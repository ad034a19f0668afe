// Package errcode 定义游戏核心的错误种类。引擎返回带种类的错误，控制器据此
// 生成面向用户的错误视图，Transient 错误则继续向适配器传播。
package errcode

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind 错误种类
type Kind string

const (
	KindNotRegistered        Kind = "not_registered"
	KindAlreadyBusy          Kind = "already_busy"
	KindInsufficientFunds    Kind = "insufficient_funds"
	KindInsufficientMaterial Kind = "insufficient_material"
	KindInvalidInput         Kind = "invalid_input"
	KindNotOwned             Kind = "not_owned"
	KindEquippedBlock        Kind = "equipped_block"
	KindInventoryFull        Kind = "inventory_full"
	KindCooldownActive       Kind = "cooldown_active"
	KindTimeout              Kind = "timeout"
	KindTransient            Kind = "transient"
	KindUnknown              Kind = "unknown"
)

// 哨兵错误，用 errors.Is 判断
var (
	ErrNotRegistered        = errors.New("user not registered")
	ErrAlreadyBusy          = errors.New("user already in an active session")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientMaterial = errors.New("insufficient material")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotOwned             = errors.New("item not owned")
	ErrEquippedBlock        = errors.New("item is equipped")
	ErrInventoryFull        = errors.New("inventory full")
	ErrCooldownActive       = errors.New("cooldown active")
	ErrTimeout              = errors.New("interaction timed out")
	ErrTransient            = errors.New("transient failure")
)

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrNotRegistered, KindNotRegistered},
	{ErrAlreadyBusy, KindAlreadyBusy},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrInsufficientMaterial, KindInsufficientMaterial},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotOwned, KindNotOwned},
	{ErrEquippedBlock, KindEquippedBlock},
	{ErrInventoryFull, KindInventoryFull},
	{ErrCooldownActive, KindCooldownActive},
	{ErrTimeout, KindTimeout},
	{ErrTransient, KindTransient},
}

// KindOf 返回错误所属种类；nil 返回空串
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindUnknown
}

// UserFacing 该错误是否应渲染为用户可见的错误视图
func UserFacing(err error) bool {
	switch KindOf(err) {
	case "", KindTransient, KindUnknown:
		return false
	}
	return true
}

// Message 面向用户的提示，优先使用 hint
func Message(err error) string {
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		return hints[0]
	}
	return err.Error()
}

func mark(sentinel error, format string, args ...any) error {
	hint := fmt.Sprintf(format, args...)
	return errors.WithHint(errors.WithStackDepth(errors.Mark(errors.New(hint), sentinel), 2), hint)
}

// NotRegistered 用户尚未注册
func NotRegistered(userID string) error {
	return mark(ErrNotRegistered, "user %s is not registered, use /register first", userID)
}

// AlreadyBusy 用户已有进行中的交互
func AlreadyBusy(userID, kind string) error {
	return mark(ErrAlreadyBusy, "user %s is busy with %s", userID, kind)
}

// InsufficientFunds 金币不足
func InsufficientFunds(need int64) error {
	return mark(ErrInsufficientFunds, "not enough gold, %d required", need)
}

// InsufficientMaterial 材料不足
func InsufficientMaterial(material string, need int64) error {
	return mark(ErrInsufficientMaterial, "not enough %s, %d required", material, need)
}

// InvalidInput 参数不合法
func InvalidInput(format string, args ...any) error {
	return mark(ErrInvalidInput, format, args...)
}

// NotOwned 物品不属于该用户
func NotOwned(kind string, id int64) error {
	return mark(ErrNotOwned, "%s %d is not yours", kind, id)
}

// EquippedBlock 已装备物品不可转赠或丢弃
func EquippedBlock(kind string, id int64) error {
	return mark(ErrEquippedBlock, "%s %d is equipped, unequip it first", kind, id)
}

// InventoryFull 背包某类装备已满
func InventoryFull(kind string, limit int) error {
	return mark(ErrInventoryFull, "your %s inventory is full (%d)", kind, limit)
}

// CooldownActive 冷却中
func CooldownActive(action string, remaining fmt.Stringer) error {
	return mark(ErrCooldownActive, "%s is on cooldown, %s remaining", action, remaining)
}

// Timeout 交互超时
func Timeout(flow string) error {
	return mark(ErrTimeout, "%s timed out", flow)
}

// Transient 标记数据库或 IO 故障
func Transient(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.WrapWithDepth(1, err, msg), ErrTransient)
}
