package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/lk2023060901/ascend/pkg/logger"
)

var (
	ErrAppAlreadyRunning = errors.New("application is already running")
)

// Server 长期运行的服务（如控制台适配器、调度器）
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Closer 资源清理接口（如 Redis, DB）
type Closer interface {
	Close() error
}

// CloserFunc 函数形式的 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// BaseApp 应用生命周期：启动服务、等待信号、逆序清理
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	servers []Server
	closers []Closer

	mu      sync.Mutex
	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建一个新的 BaseApp 实例
func NewBaseApp(opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &BaseApp{
		opts:   o,
		logger: o.Logger.Named(o.Name),
	}
}

// Logger 应用主日志对象
func (a *BaseApp) Logger() logger.Logger {
	return a.logger
}

// ID 应用实例 ID
func (a *BaseApp) ID() string {
	return a.opts.ID
}

// Run 启动所有服务并阻塞，直到收到退出信号、ctx 取消或某个服务返回
func (a *BaseApp) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	info := GetInfo()
	a.logger.Info("application starting",
		"name", info.AppName,
		"version", info.Version,
		"commit", info.GitCommit,
		"build_date", info.BuildDate,
		"go_version", info.GoVersion,
		"id", a.opts.ID,
	)

	// 1. 监听系统信号
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. 启动所有服务，任一服务退出都会触发整体关闭
	a.mu.Lock()
	servers := append([]Server(nil), a.servers...)
	a.mu.Unlock()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(s Server) {
			errCh <- s.Start(ctx)
		}(srv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("server exited with error", "error", err)
			runErr = err
		} else {
			a.logger.Info("server exited, shutting down")
		}
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown 停止所有服务并清理资源
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("application shutting down")

	// 1. 并发停止所有服务
	var wg sync.WaitGroup
	for _, srv := range a.servers {
		wg.Add(1)
		go func(s Server) {
			defer wg.Done()
			if err := s.Stop(); err != nil {
				a.logger.Error("failed to stop server", "error", err)
			}
		}(srv)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		a.logger.Info("all servers stopped")
	case <-time.After(a.opts.StopTimeout):
		a.logger.Warn("shutdown timeout, forcing exit")
		err = fmt.Errorf("shutdown timed out after %s", a.opts.StopTimeout)
	}

	// 2. 逆序关闭所有 Closer 组件（LIFO）
	for i := len(a.closers) - 1; i >= 0; i-- {
		if cerr := a.closers[i].Close(); cerr != nil {
			a.logger.Error("failed to close component", "error", cerr)
		}
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()
	return err
}

// AppendServer 添加服务
func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 添加资源清理组件
func (a *BaseApp) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}
