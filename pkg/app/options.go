package app

import (
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// Options BaseApp 选项
type Options struct {
	ID          string // 实例 ID，默认随机 UUID
	Name        string
	StopTimeout time.Duration
	Logger      logger.Logger
}

type Option func(*Options)

func DefaultOptions() Options {
	return Options{
		ID:          uuid.NewString(),
		Name:        AppName,
		StopTimeout: 30 * time.Second,
		Logger:      logger.Default(),
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithID 用部署侧的稳定标识（如节点号）替换随机实例 ID
func WithID(id string) Option {
	return func(o *Options) { o.ID = id }
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

// WithStopTimeout 关闭阶段等待服务退出的上限
func WithStopTimeout(t time.Duration) Option {
	return func(o *Options) { o.StopTimeout = t }
}
