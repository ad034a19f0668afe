package model

import (
	"strconv"
	"time"
)

// Field 视图字段
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Option 视图上的可选操作，选中后由适配器重新发出对应意图
type Option struct {
	Label   string            `json:"label"`
	Kind    IntentKind        `json:"kind"`
	Args    map[string]string `json:"args,omitempty"`
	Enabled bool              `json:"enabled"`
}

// View 核心返回给适配器的渲染描述，不含任何标记语法
type View struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Fields      []Field  `json:"fields,omitempty"`
	Thumbnail   string   `json:"thumbnail,omitempty"`
	Image       string   `json:"image,omitempty"`
	Options     []Option `json:"options,omitempty"`

	// Recipient 非空时视图只面向该用户（如决斗邀请）
	Recipient string `json:"recipient,omitempty"`
	// Closed 会话已结束
	Closed bool `json:"closed,omitempty"`
	// Error 错误视图对应的错误种类
	Error string `json:"error,omitempty"`

	Lifetime time.Duration `json:"-"`
}

// NewView 创建视图
func NewView(title, description string) *View {
	return &View{Title: title, Description: description}
}

// Field 追加字段
func (v *View) Field(name, value string) *View {
	v.Fields = append(v.Fields, Field{Name: name, Value: value})
	return v
}

// Inline 追加并排字段
func (v *View) Inline(name, value string) *View {
	v.Fields = append(v.Fields, Field{Name: name, Value: value, Inline: true})
	return v
}

// IntField 追加整数字段
func (v *View) IntField(name string, value int64) *View {
	return v.Inline(name, strconv.FormatInt(value, 10))
}

// Option 追加可用操作
func (v *View) Option(label string, kind IntentKind, args map[string]string) *View {
	v.Options = append(v.Options, Option{Label: label, Kind: kind, Args: args, Enabled: true})
	return v
}

// OptionIf 追加操作，enabled 为 false 时置灰
func (v *View) OptionIf(enabled bool, label string, kind IntentKind, args map[string]string) *View {
	v.Options = append(v.Options, Option{Label: label, Kind: kind, Args: args, Enabled: enabled})
	return v
}

// WithLifetime 设置视图有效期
func (v *View) WithLifetime(d time.Duration) *View {
	v.Lifetime = d
	return v
}

// Close 标记会话结束并禁用全部操作
func (v *View) Close() *View {
	v.Closed = true
	for i := range v.Options {
		v.Options[i].Enabled = false
	}
	return v
}

// Lookup 按名称查找字段值
func (v *View) Lookup(name string) (string, bool) {
	for _, f := range v.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// HasOption 是否包含某种可用操作
func (v *View) HasOption(kind IntentKind) bool {
	for _, o := range v.Options {
		if o.Kind == kind && o.Enabled {
			return true
		}
	}
	return false
}
