package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lk2023060901/ascend/app/game/internal/dao"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/random"
)

// Broadcaster 把视图投递到事件频道，返回成功投递数
type Broadcaster interface {
	Broadcast(ctx context.Context, channels []model.EventChannel, view func(model.EventChannel) *model.View) int
}

// EventConfig 随机事件参数
type EventConfig struct {
	Gate   float64       `mapstructure:"gate" json:"gate" validate:"gte=0,lte=1"`
	Expiry time.Duration `mapstructure:"expiry" json:"expiry"`
}

// DefaultEventConfig 默认 50% 触发，10 分钟过期
func DefaultEventConfig() EventConfig {
	return EventConfig{Gate: 0.5, Expiry: 10 * time.Minute}
}

// Grant 领取事件获得的奖励
type Grant map[model.Column]int64

// ClaimStore 跨进程领取记录，由 dao.CacheDAO 实现
type ClaimStore interface {
	ClaimEvent(ctx context.Context, eventID, userID string, ttl time.Duration) (bool, error)
	UnclaimEvent(ctx context.Context, eventID, userID string) error
}

// EventService 随机事件：定时触发、向频道广播、每人限领一次
type EventService struct {
	logger  logger.Logger
	dao     *dao.DAO
	claims  ClaimStore
	pub     Broadcaster
	rand    random.Source
	metrics *metrics.GameMetrics
	cfg     EventConfig
	now     func() time.Time

	mu        sync.Mutex
	instances map[string]*model.EventInstance
}

// NewEventService cache 为 nil 时领取记录只保存在内存
func NewEventService(
	l logger.Logger,
	d *dao.DAO,
	cache *dao.CacheDAO,
	pub Broadcaster,
	src random.Source,
	m *metrics.GameMetrics,
	cfg EventConfig,
) *EventService {
	def := DefaultEventConfig()
	if cfg.Expiry <= 0 {
		cfg.Expiry = def.Expiry
	}
	s := &EventService{
		logger:    l.Named("service.event"),
		dao:       d,
		pub:       pub,
		rand:      src,
		metrics:   m,
		cfg:       cfg,
		now:       time.Now,
		instances: make(map[string]*model.EventInstance),
	}
	if cache != nil {
		s.claims = cache
	}
	return s
}

// Setup 绑定事件频道，返回是否新增
func (s *EventService) Setup(ctx context.Context, serverID, channelID string) (bool, error) {
	if channelID == "" {
		return false, errcode.InvalidInput("a channel is required")
	}
	added, err := s.dao.Events.AddChannel(ctx, model.EventChannel{ServerID: serverID, ChannelID: channelID})
	if err != nil {
		return false, err
	}
	if added {
		s.logger.InfoContext(ctx, "event channel configured", "server_id", serverID, "channel_id", channelID)
	}
	return added, nil
}

// Tick 定时触发：清理过期实例，通过门限后随机一种事件广播到全部频道
func (s *EventService) Tick(ctx context.Context) ([]*model.EventInstance, error) {
	now := s.now()
	s.sweep(now)

	// 1. 门限
	if !random.Chance(s.rand, s.cfg.Gate) {
		s.logger.DebugContext(ctx, "event tick skipped by gate")
		return nil, nil
	}

	// 2. 选事件与频道
	typ := random.Choice(s.rand, model.EventTypes)
	channels, err := s.dao.Events.Channels(ctx)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, nil
	}

	created := make(map[model.EventChannel]*model.EventInstance, len(channels))
	s.mu.Lock()
	for _, ch := range channels {
		inst := &model.EventInstance{
			ID:        uuid.NewString(),
			Type:      typ,
			Channel:   ch,
			ExpiresAt: now.Add(s.cfg.Expiry),
			Claimed:   make(map[string]struct{}),
		}
		s.instances[inst.ID] = inst
		created[ch] = inst
	}
	s.mu.Unlock()

	// 3. 广播
	delivered := 0
	if s.pub != nil {
		delivered = s.pub.Broadcast(ctx, channels, func(ch model.EventChannel) *model.View {
			return s.View(created[ch])
		})
	}
	s.metrics.RecordEventBroadcast(string(typ))
	s.logger.InfoContext(ctx, "event broadcast",
		"type", typ,
		"channels", len(channels),
		"delivered", delivered,
	)

	out := make([]*model.EventInstance, 0, len(created))
	for _, ch := range channels {
		out = append(out, created[ch])
	}
	return out, nil
}

// View 事件的广播视图
func (s *EventService) View(inst *model.EventInstance) *model.View {
	v := model.NewView(inst.Type.Title(), eventDescription(inst.Type)).
		Option("Claim", model.IntentClaimEvent, map[string]string{"instance": inst.ID}).
		WithLifetime(s.cfg.Expiry)
	return v
}

func eventDescription(t model.EventType) string {
	switch t {
	case model.EventTreasureChest:
		return "A treasure chest washed up nearby. Claim a share of the gold inside."
	case model.EventWanderingMerchant:
		return "A wandering merchant is handing out curios to passers-by."
	case model.EventFallenStar:
		return "A star fell from the sky, leaving runes in its crater."
	case model.EventDragonsHoard:
		return "A dragon left its hoard unguarded. Grab a dragon key."
	case model.EventAngelicBlessing:
		return "An angel descends and offers a blessing."
	}
	return ""
}

// Roll 事件奖励
func (s *EventService) Roll(t model.EventType) Grant {
	switch t {
	case model.EventTreasureChest:
		return Grant{model.ColGold: int64(random.Between(s.rand, 10000, 50000))}
	case model.EventWanderingMerchant:
		return Grant{model.ColCurios: int64(random.Between(s.rand, 1, 3))}
	case model.EventFallenStar:
		return Grant{model.ColRefinementRunes: 1, model.ColPotentialRunes: 1}
	case model.EventDragonsHoard:
		return Grant{model.ColDragonKeys: 1}
	case model.EventAngelicBlessing:
		return Grant{model.ColAngelKeys: 1}
	}
	return Grant{}
}

// Claim 领取事件奖励，每个实例每人一次，过期后不可领取
func (s *EventService) Claim(ctx context.Context, userID, serverID, instanceID string) (*model.EventInstance, Grant, error) {
	if _, err := loadUser(ctx, s.dao, userID, serverID); err != nil {
		return nil, nil, err
	}

	// 1. 内存占位
	s.mu.Lock()
	inst, ok := s.instances[instanceID]
	if !ok || !s.now().Before(inst.ExpiresAt) {
		s.mu.Unlock()
		return nil, nil, errcode.InvalidInput("this event has expired")
	}
	if inst.Channel.ServerID != serverID {
		s.mu.Unlock()
		return nil, nil, errcode.InvalidInput("this event belongs to another server")
	}
	if _, done := inst.Claimed[userID]; done {
		s.mu.Unlock()
		return nil, nil, errcode.InvalidInput("you already claimed this event")
	}
	inst.Claimed[userID] = struct{}{}
	s.mu.Unlock()

	recorded := false
	release := func() {
		s.mu.Lock()
		delete(inst.Claimed, userID)
		s.mu.Unlock()
		if recorded {
			// 请求可能已取消，撤销仍需执行
			if err := s.claims.UnclaimEvent(context.WithoutCancel(ctx), inst.ID, userID); err != nil {
				s.logger.WarnContext(ctx, "event claim left behind", "event_id", inst.ID, "user_id", userID, "error", err)
			}
		}
	}

	// 2. 跨进程去重
	if s.claims != nil {
		first, err := s.claims.ClaimEvent(ctx, inst.ID, userID, inst.ExpiresAt.Sub(s.now()))
		if err != nil {
			release()
			return nil, nil, errcode.Transient(err, "record event claim")
		}
		if !first {
			return nil, nil, errcode.InvalidInput("you already claimed this event")
		}
		recorded = true
	}

	// 3. 发放
	grant := s.Roll(inst.Type)
	if err := s.dao.Users.AddMany(ctx, userID, serverID, grant); err != nil {
		release()
		return nil, nil, err
	}

	s.metrics.RecordEventClaimed(string(inst.Type))
	s.logger.InfoContext(ctx, "event claimed",
		"user_id", userID,
		"event_id", inst.ID,
		"type", inst.Type,
		"grant", fmt.Sprint(grant),
	)
	return inst, grant, nil
}

// Active 未过期的事件实例数
func (s *EventService) Active() int {
	s.sweep(s.now())
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.instances)
}

func (s *EventService) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, inst := range s.instances {
		if !now.Before(inst.ExpiresAt) {
			delete(s.instances, id)
		}
	}
}
