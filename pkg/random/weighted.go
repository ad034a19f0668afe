package random

import (
	"errors"
	"sort"
)

// ErrNoWeight 权重表为空或总权重不大于 0
var ErrNoWeight = errors.New("random: weighted table has no positive weight")

// Weighted 权重表，支持有放回抽取
type Weighted[T any] struct {
	items []T
	cum   []float64 // 累计权重
	total float64
}

// NewWeighted 创建权重表，权重不大于 0 的项被忽略
func NewWeighted[T any](items []T, weights []float64) (*Weighted[T], error) {
	if len(items) != len(weights) {
		return nil, errors.New("random: items and weights length mismatch")
	}

	w := &Weighted[T]{}
	for i, item := range items {
		if weights[i] <= 0 {
			continue
		}
		w.total += weights[i]
		w.items = append(w.items, item)
		w.cum = append(w.cum, w.total)
	}
	if w.total <= 0 {
		return nil, ErrNoWeight
	}
	return w, nil
}

// Pick 按权重抽取一个元素
func (w *Weighted[T]) Pick(src Source) T {
	r := src.Float64() * w.total
	i := sort.Search(len(w.cum), func(i int) bool { return w.cum[i] > r })
	if i >= len(w.items) {
		i = len(w.items) - 1
	}
	return w.items[i]
}

// Sample 有放回抽取 n 次
func (w *Weighted[T]) Sample(src Source, n int) []T {
	out := make([]T, 0, max(n, 0))
	for i := 0; i < n; i++ {
		out = append(out, w.Pick(src))
	}
	return out
}

// Len 有效项数量
func (w *Weighted[T]) Len() int {
	return len(w.items)
}

// Total 总权重
func (w *Weighted[T]) Total() float64 {
	return w.total
}
