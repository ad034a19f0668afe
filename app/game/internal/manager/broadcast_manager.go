package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/panjf2000/ants/v2"
)

// DefaultBroadcastWorkers 广播协程池大小
const DefaultBroadcastWorkers = 16

// BroadcastManager 广播管理器，把事件视图并发投递到各频道的 sink
type BroadcastManager struct {
	logger logger.Logger
	pool   *ants.Pool

	mu    sync.RWMutex
	sinks map[model.EventChannel]model.ViewSink
}

// NewBroadcastManager 创建广播管理器
func NewBroadcastManager(l logger.Logger, workers int) (*BroadcastManager, error) {
	if workers <= 0 {
		workers = DefaultBroadcastWorkers
	}
	m := &BroadcastManager{
		logger: l.Named("manager.broadcast"),
		sinks:  make(map[model.EventChannel]model.ViewSink),
	}
	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p interface{}) {
		m.logger.Error("broadcast worker panic", "panic", fmt.Sprint(p))
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create broadcast pool: %w", err)
	}
	m.pool = pool
	return m, nil
}

// Attach 绑定频道的投递目标
func (m *BroadcastManager) Attach(ch model.EventChannel, sink model.ViewSink) {
	m.mu.Lock()
	m.sinks[ch] = sink
	m.mu.Unlock()
}

// Detach 解除频道绑定
func (m *BroadcastManager) Detach(ch model.EventChannel) {
	m.mu.Lock()
	delete(m.sinks, ch)
	m.mu.Unlock()
}

func (m *BroadcastManager) sink(ch model.EventChannel) (model.ViewSink, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sinks[ch]
	return s, ok
}

// Broadcast 向频道列表投递视图，返回成功数。没有 sink 的频道跳过。
func (m *BroadcastManager) Broadcast(ctx context.Context, channels []model.EventChannel, view func(model.EventChannel) *model.View) int {
	var (
		wg        sync.WaitGroup
		delivered atomic.Int64
	)

	for _, ch := range channels {
		sink, ok := m.sink(ch)
		if !ok {
			m.logger.DebugContext(ctx, "no sink for channel",
				"server_id", ch.ServerID,
				"channel_id", ch.ChannelID,
			)
			continue
		}

		wg.Add(1)
		err := m.pool.Submit(func() {
			defer wg.Done()
			if err := sink.Send(ctx, view(ch)); err != nil {
				m.logger.WarnContext(ctx, "failed to deliver broadcast",
					"server_id", ch.ServerID,
					"channel_id", ch.ChannelID,
					"error", err,
				)
				return
			}
			delivered.Add(1)
		})
		if err != nil {
			wg.Done()
			m.logger.ErrorContext(ctx, "failed to submit broadcast",
				"channel_id", ch.ChannelID,
				"error", err,
			)
		}
	}

	wg.Wait()
	return int(delivered.Load())
}

// Close 释放协程池
func (m *BroadcastManager) Close() error {
	m.pool.Release()
	return nil
}
