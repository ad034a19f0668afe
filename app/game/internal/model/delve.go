package model

// DelveProfile 深潜档案，对应 delve_progress 表
type DelveProfile struct {
	UserID      string `json:"user_id"`
	ServerID    string `json:"server_id"`
	XP          int64  `json:"xp"`     // delve_xp
	Shards      int64  `json:"shards"` // obsidian_shards
	FuelLevel   int    `json:"fuel_level"`
	StructLevel int    `json:"struct_level"`
	SensorLevel int    `json:"sensor_level"`
}

// DelveStat 可升级的深潜属性
type DelveStat string

const (
	DelveFuel   DelveStat = "fuel"
	DelveStruct DelveStat = "struct"
	DelveSensor DelveStat = "sensor"

	DelveMaxLevel = 10
)

// DelveStats 商店展示顺序
var DelveStats = []DelveStat{DelveFuel, DelveStruct, DelveSensor}

// ParseDelveStat 解析属性名
func ParseDelveStat(s string) (DelveStat, bool) {
	switch DelveStat(s) {
	case DelveFuel, DelveStruct, DelveSensor:
		return DelveStat(s), true
	}
	return "", false
}

// Column 属性对应的列名
func (s DelveStat) Column() string {
	return string(s) + "_level"
}

// Level 读取属性当前等级
func (p *DelveProfile) Level(s DelveStat) int {
	switch s {
	case DelveFuel:
		return p.FuelLevel
	case DelveStruct:
		return p.StructLevel
	case DelveSensor:
		return p.SensorLevel
	}
	return 0
}

// NewDelveProfile 注册时的初始档案
func NewDelveProfile(userID, serverID string) *DelveProfile {
	return &DelveProfile{
		UserID:      userID,
		ServerID:    serverID,
		FuelLevel:   1,
		StructLevel: 1,
		SensorLevel: 1,
	}
}
