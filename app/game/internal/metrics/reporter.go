package metrics

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/pkg/config"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// ReporterConfig 上报器配置
type ReporterConfig struct {
	// ReportInterval 上报间隔
	ReportInterval time.Duration `mapstructure:"report_interval" json:"report_interval" yaml:"report_interval"`
	// Enabled 是否启用
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
}

// DefaultReporterConfig 默认配置
func DefaultReporterConfig() *ReporterConfig {
	return &ReporterConfig{
		ReportInterval: time.Minute,
		Enabled:        true,
	}
}

// Reporter 周期性把汇总统计写入日志
type Reporter struct {
	config  *ReporterConfig
	metrics *GameMetrics
	logger  logger.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewReporter 创建上报器
func NewReporter(cfg *ReporterConfig, metrics *GameMetrics, l logger.Logger) (*Reporter, error) {
	newCfg, err := config.MergeConfig(DefaultReporterConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge reporter config")
	}

	return &Reporter{
		config:  newCfg,
		metrics: metrics,
		logger:  l.Named("metrics.reporter"),
		stopCh:  make(chan struct{}),
	}, nil
}

// Start 阻塞运行上报循环，直到 ctx 取消或 Stop
func (r *Reporter) Start(ctx context.Context) error {
	if !r.config.Enabled {
		r.logger.Info("metrics reporter disabled")
		select {
		case <-ctx.Done():
		case <-r.stopCh:
		}
		return nil
	}

	r.logger.Info("metrics reporter started", "interval", r.config.ReportInterval)

	ticker := time.NewTicker(r.config.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.report()
		case <-ctx.Done():
			return nil
		case <-r.stopCh:
			return nil
		}
	}
}

// Stop 停止上报器
func (r *Reporter) Stop() error {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.logger.Info("metrics reporter stopped")
	return nil
}

// report 执行一次上报
func (r *Reporter) report() {
	stats := r.metrics.GetStats()

	busiest := make([]string, 0, len(stats.BusiestIntents))
	for _, k := range stats.BusiestIntents {
		busiest = append(busiest, fmt.Sprintf("%s=%d", k.Key, k.Count))
	}

	r.logger.Info("game stats",
		"qps", stats.QPS,
		"avg_latency", stats.AvgLatency,
		"max_latency", stats.MaxLatency,
		"success_rate", stats.SuccessRate,
		"busiest", strings.Join(busiest, ","),
		"total_intents", stats.TotalIntents,
		"failed_intents", stats.FailedIntents,
		"active_sessions", stats.ActiveSessions,
		"cpu_percent", stats.System.CPUPercent,
		"memory_percent", stats.System.MemoryPercent,
		"memory_bytes", stats.System.MemoryBytes,
		"goroutines", stats.System.Goroutines,
	)
}
