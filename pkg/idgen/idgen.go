// Package idgen 提供物品等持久化实体的 int64 ID 生成。
package idgen

import "sync/atomic"

// Generator ID生成器接口
type Generator interface {
	// NextID 生成下一个唯一ID
	NextID() (int64, error)
}

// Sequence 进程内自增生成器，用于测试和单机工具
type Sequence struct {
	next atomic.Int64
}

// NewSequence 创建从 start 开始的自增生成器
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

func (s *Sequence) NextID() (int64, error) {
	return s.next.Add(1) - 1, nil
}
