// Package router 按消息类型分发到处理函数，支持中间件链。
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrHandlerNotFound 未注册的消息类型
var ErrHandlerNotFound = errors.New("router: handler not found")

// Handler 处理函数
type Handler[Req, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Middleware 中间件，kind 为当前消息类型
type Middleware[K comparable, Req, Resp any] func(kind K, next Handler[Req, Resp]) Handler[Req, Resp]

// Router 消息路由
type Router[K comparable, Req, Resp any] struct {
	mu          sync.RWMutex
	handlers    map[K]Handler[Req, Resp]
	middlewares []Middleware[K, Req, Resp]
}

// New 创建路由
func New[K comparable, Req, Resp any]() *Router[K, Req, Resp] {
	return &Router[K, Req, Resp]{
		handlers: make(map[K]Handler[Req, Resp]),
	}
}

// Use 追加中间件，先注册的在外层
func (r *Router[K, Req, Resp]) Use(mw ...Middleware[K, Req, Resp]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw...)
}

// Register 注册处理函数，重复注册覆盖旧值
func (r *Router[K, Req, Resp]) Register(kind K, h Handler[Req, Resp]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[kind] = h
}

// Has 是否注册了该类型
func (r *Router[K, Req, Resp]) Has(kind K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[kind]
	return ok
}

// Dispatch 调度并执行处理器
func (r *Router[K, Req, Resp]) Dispatch(ctx context.Context, kind K, req Req) (Resp, error) {
	r.mu.RLock()
	h, ok := r.handlers[kind]
	mws := r.middlewares
	r.mu.RUnlock()

	if !ok {
		var zero Resp
		return zero, fmt.Errorf("%w: %v", ErrHandlerNotFound, kind)
	}

	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](kind, h)
	}
	return h(ctx, req)
}

// Kinds 已注册的类型（按字符串排序）
func (r *Router[K, Req, Resp]) Kinds() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]K, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		return fmt.Sprint(kinds[i]) < fmt.Sprint(kinds[j])
	})
	return kinds
}
