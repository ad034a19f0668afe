// Package random 提供可注入的随机源与常用概率工具。
//
// 所有玩法引擎只依赖 Source 接口，测试通过 Scripted 固定每一次掷骰结果。
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"
)

// Source 随机源
type Source interface {
	// Float64 返回 [0,1) 的均匀随机数
	Float64() float64
	// IntN 返回 [0,n) 的均匀随机整数，n <= 0 时返回 0
	IntN(n int) int
}

// NewSeed 使用 crypto/rand 生成种子
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Rand 并发安全的伪随机源
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New 使用固定种子创建随机源，相同种子产生相同序列
func New(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewFromCrypto 使用 crypto 种子创建随机源
func NewFromCrypto() (*Rand, error) {
	seed, err := NewSeed()
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

func (r *Rand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

func (r *Rand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// Chance 以概率 p 返回 true
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Between 返回 [lo,hi] 的均匀随机整数
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// Uniform 返回 [lo,hi) 的均匀随机浮点数
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Choice 从切片中均匀选取一个元素，切片为空时返回零值
func Choice[T any](src Source, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[src.IntN(len(items))]
}
