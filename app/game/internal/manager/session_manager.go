package manager

import (
	"context"
	"sync"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/pkg/database/redis"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// DefaultMirrorTTL Redis 镜像键的过期时间，需大于最长的交互超时
const DefaultMirrorTTL = 5 * time.Minute

// Session 一个进行中的交互会话
type Session struct {
	UserID string
	Kind   string
	Since  time.Time

	lock *redis.Lock
}

// SessionManager 会话锁：同一玩家同一时刻只允许一个交互流程。
// 以内存为准，Redis 镜像只用于跨进程可见，镜像失败不影响判定。
type SessionManager struct {
	logger  logger.Logger
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.GameMetrics

	mu       sync.Mutex
	sessions map[string]*Session // userID -> Session
}

// NewSessionManager rdb 为 nil 时不做镜像
func NewSessionManager(l logger.Logger, rdb *redis.Client, ttl time.Duration, m *metrics.GameMetrics) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultMirrorTTL
	}
	return &SessionManager{
		logger:   l.Named("manager.session"),
		redis:    rdb,
		ttl:      ttl,
		metrics:  m,
		sessions: make(map[string]*Session),
	}
}

// SetActive 占用会话锁，已有会话时返回 AlreadyBusy
func (m *SessionManager) SetActive(ctx context.Context, userID, kind string) error {
	// 1. 内存判定
	m.mu.Lock()
	if cur, ok := m.sessions[userID]; ok {
		m.mu.Unlock()
		return errcode.AlreadyBusy(userID, cur.Kind)
	}
	s := &Session{UserID: userID, Kind: kind, Since: time.Now()}
	m.sessions[userID] = s
	m.mu.Unlock()

	m.metrics.SessionAcquired()

	// 2. Redis 镜像
	if m.redis != nil {
		lock := redis.NewLock(m.redis, m.redis.Key("session", userID), m.ttl)
		ok, err := lock.TryLock(ctx)
		switch {
		case err != nil:
			m.logger.WarnContext(ctx, "failed to mirror session to redis",
				"user_id", userID,
				"kind", kind,
				"error", err,
			)
		case !ok:
			m.logger.WarnContext(ctx, "session already mirrored by another process",
				"user_id", userID,
				"kind", kind,
			)
		default:
			m.mu.Lock()
			s.lock = lock
			m.mu.Unlock()
		}
	}

	m.logger.DebugContext(ctx, "session acquired", "user_id", userID, "kind", kind)
	return nil
}

// IsActive 返回当前会话种类
func (m *SessionManager) IsActive(userID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return "", false
	}
	return s.Kind, true
}

// ClearActive 释放会话锁，重复调用无副作用，返回是否确实释放
func (m *SessionManager) ClearActive(ctx context.Context, userID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}

	m.metrics.SessionReleased()

	if s.lock != nil {
		if err := s.lock.Unlock(ctx); err != nil {
			m.logger.WarnContext(ctx, "failed to clear session mirror",
				"user_id", userID,
				"error", err,
			)
		}
	}

	m.logger.DebugContext(ctx, "session released",
		"user_id", userID,
		"kind", s.Kind,
		"held", time.Since(s.Since),
	)
	return true
}

// Count 当前会话数量
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Sessions 会话快照
func (m *SessionManager) Sessions() []Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, Session{UserID: s.UserID, Kind: s.Kind, Since: s.Since})
	}
	return out
}
