// Package prometheus 持有进程级指标注册表，并按需启动独立的 /metrics 服务。
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client 指标注册表与导出服务
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	httpServer *http.Server
	addr       net.Addr

	closed atomic.Bool
}

// New 创建客户端，HTTP 服务启用时同步监听
func New(cfg *Config, l logger.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if l == nil {
		l = logger.NewNoop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
	}

	if cfg.EnableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if cfg.EnableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	if cfg.HTTPServer.Enabled {
		if err := c.startHTTPServer(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Registry 底层注册表，用于 Gather
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Registerer 业务指标注册入口，自动附加 ConstLabels
func (c *Client) Registerer() prometheus.Registerer {
	if len(c.config.ConstLabels) == 0 {
		return c.registry
	}
	return prometheus.WrapRegistererWith(c.config.ConstLabels, c.registry)
}

// Handler /metrics 处理器
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Addr HTTP 服务实际监听地址，未启用时为 nil
func (c *Client) Addr() net.Addr {
	return c.addr
}

func (c *Client) startHTTPServer() error {
	// 1. 同步监听，端口占用直接返回错误
	ln, err := net.Listen("tcp", c.config.HTTPServer.Addr)
	if err != nil {
		return fmt.Errorf("prometheus: listen %s: %w", c.config.HTTPServer.Addr, err)
	}
	c.addr = ln.Addr()

	// 2. 路由：指标 + 存活探针，关闭后探针返回 503
	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if c.closed.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	c.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	// 3. 后台服务
	go func() {
		if err := c.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics http server stopped", "error", err)
		}
	}()

	c.logger.Info("metrics http server started", "addr", c.addr.String(), "path", c.config.HTTPServer.Path)
	return nil
}

// Close 关闭 HTTP 服务，重复关闭返回 ErrClientClosed
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}
	if c.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.httpServer.Shutdown(ctx)
}
