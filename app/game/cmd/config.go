package main

import (
	"fmt"

	"github.com/lk2023060901/ascend/app/game/internal/handler"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/service"
	"github.com/lk2023060901/ascend/pkg/config"
	"github.com/lk2023060901/ascend/pkg/database/postgres"
	"github.com/lk2023060901/ascend/pkg/database/redis"
	"github.com/lk2023060901/ascend/pkg/database/sqlite"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/prometheus"
	"github.com/lk2023060901/ascend/pkg/scheduler"
)

// DatabaseConfig 数据库配置，driver 决定使用哪一个块
type DatabaseConfig struct {
	Driver   string          `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	SQLite   sqlite.Config   `mapstructure:"sqlite"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// EventsConfig 随机事件配置
type EventsConfig struct {
	// Spec cron 表达式，默认每 120 分钟
	Spec                string `mapstructure:"spec" validate:"required"`
	service.EventConfig `mapstructure:",squash"`
}

// LimitsConfig 玩法上限
type LimitsConfig struct {
	InventoryCap int `mapstructure:"inventory_cap" validate:"gte=1"`
}

// GameConfig 游戏进程配置
type GameConfig struct {
	// Seed 随机种子，0 表示使用 crypto 种子
	Seed uint64 `mapstructure:"seed"`
	// NodeID sonyflake 机器号
	NodeID uint16 `mapstructure:"node_id"`
	// Assets 数据表目录，缺失的表使用内置默认值
	Assets string `mapstructure:"assets"`
	// BroadcastWorkers 事件广播协程数
	BroadcastWorkers int `mapstructure:"broadcast_workers" validate:"gte=1"`
}

// Config ascend 服务的完整配置
type Config struct {
	Log logger.Config `mapstructure:"log"`

	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`

	// Redis 可选，未配置时会话锁与排行榜只使用本地存储
	Redis *redis.Config `mapstructure:"redis"`

	Controller handler.Config `mapstructure:"controller"`
	Events     EventsConfig   `mapstructure:"events"`
	Limits     LimitsConfig   `mapstructure:"limits"`

	Scheduler  scheduler.Config  `mapstructure:"scheduler"`
	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Metrics    metrics.Config    `mapstructure:"metrics"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Log: *logger.DefaultConfig(),
		Game: GameConfig{
			NodeID:           1,
			Assets:           "assets",
			BroadcastWorkers: 8,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite",
			SQLite:   *sqlite.DefaultConfig(),
			Postgres: *postgres.DefaultConfig(),
		},
		Controller: *handler.DefaultConfig(),
		Events: EventsConfig{
			Spec:        "@every 120m",
			EventConfig: service.DefaultEventConfig(),
		},
		Limits:     LimitsConfig{InventoryCap: model.InventoryCap},
		Scheduler:  *scheduler.DefaultConfig(),
		Prometheus: *prometheus.DefaultConfig(),
		Metrics:    *metrics.DefaultConfig(),
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := config.Validate(c); err != nil {
		return err
	}
	if c.Redis != nil {
		if err := c.Redis.Validate(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
