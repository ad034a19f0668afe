package metrics

import (
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/pkg/config"
	"github.com/lk2023060901/ascend/pkg/metrics/sliding"
	"github.com/lk2023060901/ascend/pkg/metrics/system"
	"github.com/prometheus/client_golang/prometheus"
)

// Config 指标配置
type Config struct {
	// Namespace 指标命名空间
	Namespace string `mapstructure:"namespace" json:"namespace" yaml:"namespace"`
	// Reporter 上报器配置
	Reporter ReporterConfig `mapstructure:"reporter" json:"reporter" yaml:"reporter"`
	// SystemSampleMaxAge 进程采样缓存时长
	SystemSampleMaxAge time.Duration `mapstructure:"system_sample_max_age" json:"system_sample_max_age" yaml:"system_sample_max_age"`
	// SlidingWindow 滑动窗口配置
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window" yaml:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:          "ascend",
		Reporter:           *DefaultReporterConfig(),
		SystemSampleMaxAge: 5 * time.Second,
		SlidingWindow:      *sliding.DefaultWindowConfig(),
	}
}

// 结果标签
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// GameMetrics 游戏核心指标
type GameMetrics struct {
	config *Config

	// 会话
	ActiveSessions prometheus.Gauge

	// 意图处理
	IntentTotal    *prometheus.CounterVec   // kind, result
	IntentDuration *prometheus.HistogramVec // kind

	// 数据库
	DBQueryTotal    *prometheus.CounterVec   // operation, result
	DBQueryDuration *prometheus.HistogramVec // operation

	// 玩法
	CuriosOpened     prometheus.Counter
	DelveOutcomes    *prometheus.CounterVec // outcome
	DuelSettlements  *prometheus.CounterVec // reason
	EventsBroadcast  *prometheus.CounterVec // event_type
	EventsClaimed    *prometheus.CounterVec // event_type
	LeaderboardReads *prometheus.CounterVec // source: redis/sql

	totalIntents   atomic.Int64
	failedIntents  atomic.Int64
	activeSessions atomic.Int64

	sampler *system.Sampler
	window  *sliding.Window
}

// New 创建游戏指标
func New(cfg *Config) (*GameMetrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge metrics config")
	}

	sampler, err := system.New(newCfg.SystemSampleMaxAge)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create system sampler")
	}

	window, err := sliding.NewWindow(&newCfg.SlidingWindow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sliding window")
	}

	ns := newCfg.Namespace
	m := &GameMetrics{
		config: newCfg,

		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "active_sessions",
			Help:      "当前持有会话锁的用户数",
		}),

		IntentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "intents_total",
			Help:      "意图处理总数",
		}, []string{"kind", "result"}),
		IntentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "intent_duration_seconds",
			Help:      "意图处理延迟（秒）",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"kind"}),

		DBQueryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "db_queries_total",
			Help:      "数据库查询总数",
		}, []string{"operation", "result"}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "db_query_duration_seconds",
			Help:      "数据库查询延迟（秒）",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),

		CuriosOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "curios_opened_total",
			Help:      "开启的珍奇总数",
		}),
		DelveOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "delve_outcomes_total",
			Help:      "深潜结束状态",
		}, []string{"outcome"}),
		DuelSettlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "duel_settlements_total",
			Help:      "决斗结算次数",
		}, []string{"reason"}),
		EventsBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_broadcast_total",
			Help:      "随机事件广播次数",
		}, []string{"event_type"}),
		EventsClaimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_claimed_total",
			Help:      "随机事件领取次数",
		}, []string{"event_type"}),
		LeaderboardReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "leaderboard_reads_total",
			Help:      "教派排行榜读取来源",
		}, []string{"source"}),

		sampler: sampler,
		window:  window,
	}
	return m, nil
}

// Register 注册指标到 Prometheus Registry
func (m *GameMetrics) Register(registerer prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.ActiveSessions,
		m.IntentTotal,
		m.IntentDuration,
		m.DBQueryTotal,
		m.DBQueryDuration,
		m.CuriosOpened,
		m.DelveOutcomes,
		m.DuelSettlements,
		m.EventsBroadcast,
		m.EventsClaimed,
		m.LeaderboardReads,
	}
	collectors = append(collectors, m.sampler.Collectors(m.config.Namespace)...)

	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return err
		}
	}

	return nil
}

func result(success bool) string {
	if success {
		return ResultSuccess
	}
	return ResultFailed
}

// SessionAcquired 会话锁获取。Session*/Record* 方法均允许 nil 接收者
func (m *GameMetrics) SessionAcquired() {
	if m == nil {
		return
	}
	m.activeSessions.Add(1)
	m.ActiveSessions.Inc()
}

// SessionReleased 会话锁释放
func (m *GameMetrics) SessionReleased() {
	if m == nil {
		return
	}
	m.activeSessions.Add(-1)
	m.ActiveSessions.Dec()
}

// RecordIntent 记录一次意图处理
func (m *GameMetrics) RecordIntent(kind string, success bool, duration float64) {
	if m == nil {
		return
	}
	m.totalIntents.Add(1)
	if !success {
		m.failedIntents.Add(1)
	}
	m.IntentTotal.WithLabelValues(kind, result(success)).Inc()
	m.IntentDuration.WithLabelValues(kind).Observe(duration)
	m.window.Record(kind, duration, success)
}

// RecordDBQuery 记录数据库查询
func (m *GameMetrics) RecordDBQuery(operation string, success bool, duration float64) {
	if m == nil {
		return
	}
	m.DBQueryTotal.WithLabelValues(operation, result(success)).Inc()
	m.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

func (m *GameMetrics) RecordCuriosOpened(n int) {
	if m == nil {
		return
	}
	m.CuriosOpened.Add(float64(n))
}

func (m *GameMetrics) RecordDelveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.DelveOutcomes.WithLabelValues(outcome).Inc()
}

func (m *GameMetrics) RecordDuelSettlement(reason string) {
	if m == nil {
		return
	}
	m.DuelSettlements.WithLabelValues(reason).Inc()
}

func (m *GameMetrics) RecordEventBroadcast(eventType string) {
	if m == nil {
		return
	}
	m.EventsBroadcast.WithLabelValues(eventType).Inc()
}

func (m *GameMetrics) RecordEventClaimed(eventType string) {
	if m == nil {
		return
	}
	m.EventsClaimed.WithLabelValues(eventType).Inc()
}

// RecordLeaderboardRead source 为 redis 或 sql
func (m *GameMetrics) RecordLeaderboardRead(source string) {
	if m == nil {
		return
	}
	m.LeaderboardReads.WithLabelValues(source).Inc()
}

// Stats 汇总统计（供上报器输出）
type Stats struct {
	TotalIntents   int64 `json:"total_intents"`
	FailedIntents  int64 `json:"failed_intents"`
	ActiveSessions int64 `json:"active_sessions"`
	// 滑动窗口
	QPS            float64            `json:"qps"`
	AvgLatency     float64            `json:"avg_latency"`
	MaxLatency     float64            `json:"max_latency"`
	SuccessRate    float64            `json:"success_rate"`
	BusiestIntents []sliding.KeyStats `json:"busiest_intents"`
	// 进程
	System system.Stats `json:"system"`
}

// GetStats 获取统计数据
func (m *GameMetrics) GetStats() Stats {
	w := m.window.Snapshot()
	return Stats{
		TotalIntents:   m.totalIntents.Load(),
		FailedIntents:  m.failedIntents.Load(),
		ActiveSessions: m.activeSessions.Load(),
		QPS:            w.QPS,
		AvgLatency:     w.AvgLatency,
		MaxLatency:     w.MaxLatency,
		SuccessRate:    w.SuccessRate,
		BusiestIntents: w.Top,
		System:         m.sampler.Stats(),
	}
}

// GetConfig 获取配置
func (m *GameMetrics) GetConfig() *Config {
	return m.config
}
