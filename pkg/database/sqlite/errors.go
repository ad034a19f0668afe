package sqlite

import "errors"

var (
	// ErrNilConfig 配置为空
	ErrNilConfig = errors.New("sqlite: config is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("sqlite: invalid config")
)
