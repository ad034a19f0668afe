package random

import "sync"

// Scripted 按脚本依次返回预设值的随机源，脚本耗尽后回退到 Fallback。
//
//	src := random.NewScripted().Floats(0.1, 0.9).Ints(3)
type Scripted struct {
	mu     sync.Mutex
	floats []float64
	ints   []int

	// Fallback 脚本耗尽后使用，nil 时 Float64 返回 0、IntN 返回 0
	Fallback Source
}

// NewScripted 创建脚本随机源
func NewScripted() *Scripted {
	return &Scripted{}
}

// Floats 追加 Float64 的返回值
func (s *Scripted) Floats(v ...float64) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.floats = append(s.floats, v...)
	return s
}

// Ints 追加 IntN 的返回值，超出 [0,n) 时取模
func (s *Scripted) Ints(v ...int) *Scripted {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints = append(s.ints, v...)
	return s
}

// WithFallback 设置脚本耗尽后的随机源
func (s *Scripted) WithFallback(src Source) *Scripted {
	s.Fallback = src
	return s
}

// Remaining 剩余未消费的脚本数量
func (s *Scripted) Remaining() (floats, ints int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.floats), len(s.ints)
}

func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	if len(s.floats) > 0 {
		v := s.floats[0]
		s.floats = s.floats[1:]
		s.mu.Unlock()
		return v
	}
	s.mu.Unlock()
	if s.Fallback != nil {
		return s.Fallback.Float64()
	}
	return 0
}

func (s *Scripted) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	if len(s.ints) > 0 {
		v := s.ints[0]
		s.ints = s.ints[1:]
		s.mu.Unlock()
		v %= n
		if v < 0 {
			v += n
		}
		return v
	}
	s.mu.Unlock()
	if s.Fallback != nil {
		return s.Fallback.IntN(n)
	}
	return 0
}
