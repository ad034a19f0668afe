package scheduler

import (
	"time"

	"github.com/lk2023060901/ascend/pkg/logger"
)

// Option 调度器选项
type Option func(*Scheduler)

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// JobOption 任务选项
type JobOption func(*JobOptions)

// WithMaxRetries 设置最大重试次数
func WithMaxRetries(n int) JobOption {
	return func(o *JobOptions) { o.MaxRetries = n }
}

// WithNoRetry 失败不重试
func WithNoRetry() JobOption {
	return func(o *JobOptions) { o.MaxRetries = 0 }
}

// WithBackoffStrategy 设置退避策略
func WithBackoffStrategy(s BackoffStrategy) JobOption {
	return func(o *JobOptions) { o.BackoffStrategy = s }
}

// WithInitialBackoff 设置首次退避时间
func WithInitialBackoff(d time.Duration) JobOption {
	return func(o *JobOptions) { o.InitialBackoff = d }
}
