package scheduler

import (
	"fmt"
	"time"
)

// BackoffStrategy 重试退避策略
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffExponential BackoffStrategy = "exponential"
)

// JobOptions 任务选项
type JobOptions struct {
	MaxRetries        int             `mapstructure:"max_retries" json:"max_retries" yaml:"max_retries"`
	BackoffStrategy   BackoffStrategy `mapstructure:"backoff_strategy" json:"backoff_strategy" yaml:"backoff_strategy"`
	InitialBackoff    time.Duration   `mapstructure:"initial_backoff" json:"initial_backoff" yaml:"initial_backoff"`
	MaxBackoff        time.Duration   `mapstructure:"max_backoff" json:"max_backoff" yaml:"max_backoff"`
	BackoffMultiplier float64         `mapstructure:"backoff_multiplier" json:"backoff_multiplier" yaml:"backoff_multiplier"`
}

// Config 调度器配置
type Config struct {
	// Timezone 时区，空为本地时区
	Timezone string `mapstructure:"timezone" json:"timezone" yaml:"timezone"`
	// WithSeconds 启用 6 段（秒级）表达式
	WithSeconds bool `mapstructure:"with_seconds" json:"with_seconds" yaml:"with_seconds"`
	// SkipIfStillRunning 上一次未结束时跳过本次
	SkipIfStillRunning bool `mapstructure:"skip_if_still_running" json:"skip_if_still_running" yaml:"skip_if_still_running"`
	// PoolSize 任务执行协程池大小
	PoolSize int `mapstructure:"pool_size" json:"pool_size" yaml:"pool_size"`

	DefaultJobOptions JobOptions `mapstructure:"default_job_options" json:"default_job_options" yaml:"default_job_options"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		WithSeconds:        true,
		SkipIfStillRunning: true,
		PoolSize:           16,
		DefaultJobOptions: JobOptions{
			MaxRetries:        0,
			BackoffStrategy:   BackoffExponential,
			InitialBackoff:    100 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.PoolSize <= 0 {
		return fmt.Errorf("%w: pool_size must be positive", ErrInvalidConfig)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
		}
	}
	switch c.DefaultJobOptions.BackoffStrategy {
	case BackoffFixed, BackoffExponential:
	default:
		return fmt.Errorf("%w: unknown backoff strategy %q", ErrInvalidConfig, c.DefaultJobOptions.BackoffStrategy)
	}
	return nil
}

// backoff 第 attempt 次重试前的等待时间（attempt 从 1 开始）
func (o JobOptions) backoff(attempt int) time.Duration {
	d := o.InitialBackoff
	if o.BackoffStrategy == BackoffExponential {
		for i := 1; i < attempt; i++ {
			d = time.Duration(float64(d) * o.BackoffMultiplier)
			if o.MaxBackoff > 0 && d >= o.MaxBackoff {
				return o.MaxBackoff
			}
		}
	}
	if o.MaxBackoff > 0 && d > o.MaxBackoff {
		return o.MaxBackoff
	}
	return d
}
