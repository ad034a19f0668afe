package scheduler

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("scheduler: invalid config")

	// ErrJobExists 同名任务已存在
	ErrJobExists = errors.New("scheduler: job already exists")

	// ErrJobNotFound 任务不存在
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrReleased 调度器已释放
	ErrReleased = errors.New("scheduler: released")
)
