package sqlite

import (
	"fmt"
	"time"
)

// Config SQLite 配置
type Config struct {
	// Path 数据库文件路径，":memory:" 表示内存库
	Path        string        `mapstructure:"path" json:"path" yaml:"path"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" json:"busy_timeout" yaml:"busy_timeout"`
	// WAL 是否启用 journal_mode=WAL（内存库忽略）
	WAL bool `mapstructure:"wal" json:"wal" yaml:"wal"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Path:        "data/ascend.db",
		BusyTimeout: 30 * time.Second,
		WAL:         true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("%w: busy_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) inMemory() bool {
	return c.Path == ":memory:"
}

// pragmas 连接建立后依次执行
func (c *Config) pragmas() []string {
	list := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d;", c.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON;",
	}
	if c.WAL && !c.inMemory() {
		list = append(list, "PRAGMA journal_mode = WAL;")
	}
	return list
}
