// Package system 进程资源采样。采样按需进行并缓存 MaxAge，
// 同时以 GaugeFunc 形式导出给 Prometheus。
package system

import (
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Stats 一次采样结果
type Stats struct {
	CPUPercent     float64   `json:"cpu_percent"`     // 进程 CPU，0-100·核数
	MemoryPercent  float64   `json:"memory_percent"`  // 进程 RSS 占物理内存
	MemoryBytes    uint64    `json:"memory_bytes"`    // 进程 RSS
	HostCPUPercent float64   `json:"host_cpu_percent"`
	HostMemPercent float64   `json:"host_mem_percent"`
	Goroutines     int       `json:"goroutines"`
	SampledAt      time.Time `json:"sampled_at"`
}

// Sampler 进程采样器
type Sampler struct {
	proc   *process.Process
	maxAge time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last Stats
}

// New 创建采样器，maxAge <= 0 时每次读取都重新采样
func New(maxAge time.Duration) (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Sampler{proc: proc, maxAge: maxAge, now: time.Now}, nil
}

// Stats 返回缓存的采样，过期时重新采样
func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.last.SampledAt.IsZero() && now.Sub(s.last.SampledAt) < s.maxAge {
		return s.last
	}
	s.last = s.sample(now)
	return s.last
}

// sample 单项失败只留零值
func (s *Sampler) sample(now time.Time) Stats {
	st := Stats{Goroutines: runtime.NumGoroutine(), SampledAt: now}

	if p, err := s.proc.CPUPercent(); err == nil {
		st.CPUPercent = p
	}
	vm, vmErr := mem.VirtualMemory()
	if vmErr == nil {
		st.HostMemPercent = vm.UsedPercent
	}
	if info, err := s.proc.MemoryInfo(); err == nil {
		st.MemoryBytes = info.RSS
		if vmErr == nil && vm.Total > 0 {
			st.MemoryPercent = float64(info.RSS) / float64(vm.Total) * 100
		}
	}
	if ps, err := cpu.Percent(0, false); err == nil && len(ps) > 0 {
		st.HostCPUPercent = ps[0]
	}
	return st
}

// Collectors 以 GaugeFunc 导出采样值，读取共享同一份缓存
func (s *Sampler) Collectors(namespace string) []prometheus.Collector {
	gauge := func(name, help string, read func(Stats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "process",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(s.Stats()) })
	}
	return []prometheus.Collector{
		gauge("cpu_percent", "进程 CPU 使用率", func(st Stats) float64 { return st.CPUPercent }),
		gauge("rss_bytes", "进程常驻内存", func(st Stats) float64 { return float64(st.MemoryBytes) }),
		gauge("host_memory_percent", "主机内存使用率", func(st Stats) float64 { return st.HostMemPercent }),
	}
}
