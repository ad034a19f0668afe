// Package sliding 按时间分桶的滑动窗口，按 key 分别累计次数、失败数与延迟。
//
// 桶在写入或读取时按时间序号惰性失效，不需要后台轮转协程。
package sliding

import (
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/ascend/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	Enabled     bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	WindowSize  time.Duration `mapstructure:"window_size" json:"window_size" yaml:"window_size"`
	BucketCount int           `mapstructure:"bucket_count" json:"bucket_count" yaml:"bucket_count"`
	// TopN 快照中按次数排序保留的 key 数量
	TopN int `mapstructure:"top_n" json:"top_n" yaml:"top_n"`
}

func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		Enabled:     true,
		WindowSize:  time.Minute,
		BucketCount: 12,
		TopN:        5,
	}
}

type tally struct {
	count    int64
	failures int64
	latency  float64
	max      float64
}

func (t *tally) add(latency float64, success bool) {
	t.count++
	if !success {
		t.failures++
	}
	t.latency += latency
	t.max = max(t.max, latency)
}

func (t *tally) merge(o *tally) {
	t.count += o.count
	t.failures += o.failures
	t.latency += o.latency
	t.max = max(t.max, o.max)
}

type bucket struct {
	seq  int64
	all  tally
	keys map[string]*tally
}

// Window 滑动窗口
type Window struct {
	config *WindowConfig
	span   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets []bucket
}

// NewWindow 创建滑动窗口
func NewWindow(cfg *WindowConfig) (*Window, error) {
	newCfg, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge window config")
	}
	if newCfg.BucketCount <= 0 || newCfg.WindowSize < time.Duration(newCfg.BucketCount) {
		return nil, errors.Newf("invalid window config: size=%s buckets=%d", newCfg.WindowSize, newCfg.BucketCount)
	}

	return &Window{
		config:  newCfg,
		span:    newCfg.WindowSize / time.Duration(newCfg.BucketCount),
		now:     time.Now,
		buckets: make([]bucket, newCfg.BucketCount),
	}, nil
}

func (w *Window) seq() int64 {
	return w.now().UnixNano() / int64(w.span)
}

// Record 记录一次处理，latency 单位为秒
func (w *Window) Record(key string, latency float64, success bool) {
	if !w.config.Enabled {
		return
	}
	seq := w.seq()

	w.mu.Lock()
	defer w.mu.Unlock()

	// 1. 定位桶，过期则重置
	b := &w.buckets[seq%int64(len(w.buckets))]
	if b.seq != seq {
		*b = bucket{seq: seq, keys: make(map[string]*tally)}
	}

	// 2. 累计
	b.all.add(latency, success)
	t, ok := b.keys[key]
	if !ok {
		t = &tally{}
		b.keys[key] = t
	}
	t.add(latency, success)
}

// KeyStats 单个 key 的窗口统计
type KeyStats struct {
	Key        string  `json:"key"`
	Count      int64   `json:"count"`
	Failures   int64   `json:"failures"`
	AvgLatency float64 `json:"avg_latency"`
}

// Stats 窗口快照
type Stats struct {
	QPS         float64    `json:"qps"`
	AvgLatency  float64    `json:"avg_latency"`
	MaxLatency  float64    `json:"max_latency"`
	SuccessRate float64    `json:"success_rate"` // 0-100，无请求时为 0
	TotalCount  int64      `json:"total_count"`
	Failures    int64      `json:"failures"`
	Top         []KeyStats `json:"top"`
}

// Snapshot 汇总仍在窗口内的桶
func (w *Window) Snapshot() Stats {
	cur := w.seq()
	oldest := cur - int64(len(w.buckets)) + 1

	var (
		all  tally
		keys = make(map[string]*tally)
	)

	w.mu.Lock()
	for i := range w.buckets {
		b := &w.buckets[i]
		if b.seq < oldest || b.seq > cur || b.keys == nil {
			continue
		}
		all.merge(&b.all)
		for k, t := range b.keys {
			acc, ok := keys[k]
			if !ok {
				acc = &tally{}
				keys[k] = acc
			}
			acc.merge(t)
		}
	}
	w.mu.Unlock()

	s := Stats{
		QPS:        float64(all.count) / w.config.WindowSize.Seconds(),
		MaxLatency: all.max,
		TotalCount: all.count,
		Failures:   all.failures,
	}
	if all.count > 0 {
		s.AvgLatency = all.latency / float64(all.count)
		s.SuccessRate = float64(all.count-all.failures) / float64(all.count) * 100
	}

	for k, t := range keys {
		s.Top = append(s.Top, KeyStats{Key: k, Count: t.count, Failures: t.failures, AvgLatency: t.latency / float64(t.count)})
	}
	sort.Slice(s.Top, func(i, j int) bool {
		if s.Top[i].Count != s.Top[j].Count {
			return s.Top[i].Count > s.Top[j].Count
		}
		return s.Top[i].Key < s.Top[j].Key
	})
	if n := w.config.TopN; n > 0 && len(s.Top) > n {
		s.Top = s.Top[:n]
	}
	return s
}
