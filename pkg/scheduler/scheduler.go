// Package scheduler 基于 robfig/cron 的定时任务调度，任务在 ants 协程池中执行。
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/ascend/pkg/config"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"github.com/robfig/cron/v3"
)

// Job 任务接口
type Job interface {
	Run() error
	Name() string
}

// FuncJob 函数任务
type FuncJob struct {
	name string
	fn   func() error
}

func (j *FuncJob) Run() error   { return j.fn() }
func (j *FuncJob) Name() string { return j.name }

// JobID 任务 ID
type JobID = cron.EntryID

// JobInfo 任务快照
type JobInfo struct {
	ID        JobID
	Name      string
	Spec      string
	NextRun   time.Time
	PrevRun   time.Time
	RunCount  int64
	FailCount int64
}

type jobEntry struct {
	id        JobID
	spec      string
	job       Job
	opts      JobOptions
	runCount  atomic.Int64
	failCount atomic.Int64
}

// Scheduler 定时任务调度器
type Scheduler struct {
	cfg    *Config
	cron   *cron.Cron
	pool   *ants.Pool
	logger logger.Logger

	mu       sync.RWMutex
	jobs     map[string]*jobEntry
	released atomic.Bool
}

// New 创建调度器
func New(cfg *Config, opts ...Option) (*Scheduler, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		cfg:    newCfg,
		logger: logger.NewNoop(),
		jobs:   make(map[string]*jobEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")

	pool, err := ants.NewPool(newCfg.PoolSize, ants.WithPanicHandler(func(p interface{}) {
		s.logger.Error("job panic", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create job pool: %w", err)
	}
	s.pool = pool

	// 1. 构造 cron
	cl := cronLogger{l: s.logger}
	wrappers := []cron.JobWrapper{cron.Recover(cl)}
	if newCfg.SkipIfStillRunning {
		wrappers = append(wrappers, cron.SkipIfStillRunning(cl))
	}
	cronOpts := []cron.Option{cron.WithChain(wrappers...), cron.WithLogger(cl)}
	if newCfg.WithSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}
	if newCfg.Timezone != "" {
		loc, _ := time.LoadLocation(newCfg.Timezone)
		cronOpts = append(cronOpts, cron.WithLocation(loc))
	}
	s.cron = cron.New(cronOpts...)

	return s, nil
}

// AddFunc 添加函数任务
func (s *Scheduler) AddFunc(name, spec string, fn func() error, opts ...JobOption) (JobID, error) {
	return s.AddJob(name, spec, &FuncJob{name: name, fn: fn}, opts...)
}

// AddJob 添加任务，name 全局唯一
func (s *Scheduler) AddJob(name, spec string, job Job, opts ...JobOption) (JobID, error) {
	if s.released.Load() {
		return 0, ErrReleased
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrJobExists, name)
	}

	entry := &jobEntry{spec: spec, job: job, opts: s.cfg.DefaultJobOptions}
	for _, opt := range opts {
		opt(&entry.opts)
	}

	id, err := s.cron.AddFunc(spec, func() { s.execute(name, entry) })
	if err != nil {
		return 0, fmt.Errorf("invalid spec %q for job %s: %w", spec, name, err)
	}
	entry.id = id
	s.jobs[name] = entry

	s.logger.Info("job added", "job", name, "spec", spec)
	return id, nil
}

// Remove 移除任务
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	s.cron.Remove(entry.id)
	delete(s.jobs, name)
	return nil
}

// Trigger 立即执行一次任务（同步等待结束）
func (s *Scheduler) Trigger(name string) error {
	s.mu.RLock()
	entry, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(name, entry)
}

// execute 在协程池中执行任务并等待，失败按退避策略重试
func (s *Scheduler) execute(name string, entry *jobEntry) error {
	done := make(chan error, 1)
	task := func() {
		var err error
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("job %s panic: %v", name, p)
			}
			done <- err
		}()
		err = s.runWithRetry(name, entry)
	}

	if err := s.pool.Submit(task); err != nil {
		s.logger.Error("failed to submit job", "job", name, "error", err)
		return err
	}
	return <-done
}

func (s *Scheduler) runWithRetry(name string, entry *jobEntry) error {
	start := time.Now()
	var err error
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			time.Sleep(entry.opts.backoff(attempt))
		}
		entry.runCount.Add(1)
		if err = entry.job.Run(); err == nil {
			s.logger.Debug("job finished", "job", name, "elapsed", time.Since(start))
			return nil
		}
		entry.failCount.Add(1)
		if attempt >= entry.opts.MaxRetries {
			break
		}
		s.logger.Warn("job failed, retrying", "job", name, "attempt", attempt+1, "error", err)
	}
	s.logger.Error("job failed", "job", name, "error", err)
	return err
}

// Start 启动调度
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop 停止调度，返回的 context 在运行中的任务结束后 Done
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Release 停止调度并释放协程池
func (s *Scheduler) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	<-s.cron.Stop().Done()
	s.pool.Release()
}

// ListJobs 列出所有任务
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entry := range s.jobs {
		e := s.cron.Entry(entry.id)
		infos = append(infos, JobInfo{
			ID:        entry.id,
			Name:      name,
			Spec:      entry.spec,
			NextRun:   e.Next,
			PrevRun:   e.Prev,
			RunCount:  entry.runCount.Load(),
			FailCount: entry.failCount.Load(),
		})
	}
	return infos
}

// cronLogger 适配 cron.Logger
type cronLogger struct {
	l logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
