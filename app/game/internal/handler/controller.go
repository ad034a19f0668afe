// Package handler 交互控制器：把适配器送来的意图分发到各玩法会话，
// 负责注册校验、会话锁、超时与视图栈，并把错误渲染为视图。
package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/manager"
	"github.com/lk2023060901/ascend/app/game/internal/metrics"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/service"
	"github.com/lk2023060901/ascend/pkg/logger"
	"github.com/lk2023060901/ascend/pkg/router"
	"golang.org/x/time/rate"
)

// Timeouts 各交互会话的超时
type Timeouts struct {
	Register time.Duration `mapstructure:"register" json:"register"`
	Delve    time.Duration `mapstructure:"delve" json:"delve"`
	Duel     time.Duration `mapstructure:"duel" json:"duel"`
	Slayer   time.Duration `mapstructure:"slayer" json:"slayer"`
	Curio    time.Duration `mapstructure:"curio" json:"curio"`
}

// DefaultTimeouts 默认超时
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Register: 120 * time.Second,
		Delve:    180 * time.Second,
		Duel:     180 * time.Second,
		Slayer:   120 * time.Second,
		Curio:    60 * time.Second,
	}
}

// Config 控制器配置
type Config struct {
	Timeouts Timeouts `mapstructure:"timeouts" json:"timeouts"`

	// RatePerSecond 每名玩家每秒允许的意图数，0 表示不限流
	RatePerSecond float64 `mapstructure:"rate_per_second" json:"rate_per_second" validate:"gte=0"`
	Burst         int     `mapstructure:"burst" json:"burst" validate:"gte=0"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeouts:      DefaultTimeouts(),
		RatePerSecond: 5,
		Burst:         10,
	}
}

// Services 控制器依赖的玩法服务
type Services struct {
	Register *service.RegisterService
	Profile  *service.ProfileService
	Curio    *service.CurioService
	Delve    *service.DelveService
	Duel     *service.DuelService
	Slayer   *service.SlayerService
	Ideology *service.IdeologyService
	Transfer *service.TransferService
	Item     *service.ItemService
	Event    *service.EventService
}

// ChannelBinder 事件频道与投递目标的绑定，由广播管理器实现
type ChannelBinder interface {
	Attach(ch model.EventChannel, sink model.ViewSink)
}

// 不要求已注册的意图
var openKinds = map[model.IntentKind]struct{}{
	model.IntentRegister:         {},
	model.IntentRegisterGender:   {},
	model.IntentRegisterPortrait: {},
	model.IntentRegisterIdeology: {},
	model.IntentBack:             {},
	model.IntentSetupEvents:      {},
}

type intentRouter = router.Router[model.IntentKind, *model.Intent, *model.View]
type intentHandler = router.Handler[*model.Intent, *model.View]

// Controller 交互控制器，Handle 可被并发调用
type Controller struct {
	logger   logger.Logger
	cfg      *Config
	svc      Services
	sessions *manager.SessionManager
	channels ChannelBinder
	metrics  *metrics.GameMetrics
	router   *intentRouter

	mu      sync.Mutex
	flows   map[string]*flow // userID -> flow
	invites map[string]*flow // target -> 待回应的决斗

	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
}

// New 创建控制器，channels 与 m 可为 nil
func New(
	l logger.Logger,
	cfg *Config,
	svc Services,
	sessions *manager.SessionManager,
	channels ChannelBinder,
	m *metrics.GameMetrics,
) *Controller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Controller{
		logger:   l.Named("handler.controller"),
		cfg:      cfg,
		svc:      svc,
		sessions: sessions,
		channels: channels,
		metrics:  m,
		router:   router.New[model.IntentKind, *model.Intent, *model.View](),
		flows:    make(map[string]*flow),
		invites:  make(map[string]*flow),
		limiters: make(map[string]*rate.Limiter),
	}
	c.router.Use(c.observe, c.limit, c.gate)
	c.routes()
	return c
}

func (c *Controller) routes() {
	r := c.router

	r.Register(model.IntentRegister, c.handleRegister)
	r.Register(model.IntentRegisterGender, c.handleRegisterGender)
	r.Register(model.IntentRegisterPortrait, c.handleRegisterPortrait)
	r.Register(model.IntentRegisterIdeology, c.handleRegisterIdeology)
	r.Register(model.IntentProfile, c.handleProfile)
	r.Register(model.IntentBack, c.handleBack)

	r.Register(model.IntentCurios, c.handleCurios)
	r.Register(model.IntentBulkCurios, c.handleBulkCurios)

	r.Register(model.IntentDelve, c.handleDelve)
	r.Register(model.IntentDelveAction, c.handleDelveAction)
	r.Register(model.IntentDelveShop, c.handleDelveShop)
	r.Register(model.IntentDelveUpgrade, c.handleDelveUpgrade)

	r.Register(model.IntentDuel, c.handleDuel)
	r.Register(model.IntentDuelResponse, c.handleDuelResponse)
	r.Register(model.IntentDuelAction, c.handleDuelAction)

	r.Register(model.IntentSlayer, c.handleSlayer)
	r.Register(model.IntentSlayerTask, c.handleSlayerTask)
	r.Register(model.IntentSlayerSkip, c.handleSlayerSkip)
	r.Register(model.IntentSlayerHunt, c.handleSlayerHunt)
	r.Register(model.IntentSlayerEmblem, c.handleSlayerEmblem)
	r.Register(model.IntentSlayerSlot, c.handleSlayerSlot)

	r.Register(model.IntentSendGold, c.handleSendGold)
	r.Register(model.IntentSendWeapon, c.handleSendItem(model.KindWeapon))
	r.Register(model.IntentSendAccessory, c.handleSendItem(model.KindAccessory))
	r.Register(model.IntentSendMaterial, c.handleSendMaterial)
	r.Register(model.IntentSendKey, c.handleSendKey)

	r.Register(model.IntentIdeology, c.handleIdeology)
	r.Register(model.IntentPropagate, c.handlePropagate)
	r.Register(model.IntentDoorsToggle, c.handleDoorsToggle)

	r.Register(model.IntentSetupEvents, c.handleSetupEvents)
	r.Register(model.IntentClaimEvent, c.handleClaimEvent)

	r.Register(model.IntentUpgradeTool, c.handleUpgradeTool)
	r.Register(model.IntentEnhanceItem, c.handleEnhanceItem)
	r.Register(model.IntentDiscardItem, c.handleDiscardItem)
	r.Register(model.IntentEquipItem, c.handleEquipItem)
}

// Kinds 已注册的意图种类
func (c *Controller) Kinds() []model.IntentKind {
	return c.router.Kinds()
}

// Handle 处理一个意图。用户可见的错误渲染为错误视图并返回 nil error；
// Transient 等基础设施错误在释放会话锁后原样返回。
func (c *Controller) Handle(ctx context.Context, in *model.Intent) (*model.View, error) {
	if in == nil || in.UserID == "" || in.Kind == "" {
		return errorView(errcode.InvalidInput("a user and an action are required")), nil
	}
	ctx = logger.WithRequest(ctx, in.UserID, in.ServerID, in.Kind)

	v, err := c.router.Dispatch(ctx, in.Kind, in)
	switch {
	case errors.Is(err, router.ErrHandlerNotFound):
		return errorView(errcode.InvalidInput("unknown action %q", in.Kind)), nil
	case err == nil:
		return v, nil
	case errcode.UserFacing(err):
		return errorView(err), nil
	default:
		c.logger.ErrorContext(ctx, "intent failed", "error", err)
		return nil, err
	}
}

// observe 记录耗时与结果
func (c *Controller) observe(kind model.IntentKind, next router.Handler[*model.Intent, *model.View]) router.Handler[*model.Intent, *model.View] {
	return func(ctx context.Context, in *model.Intent) (*model.View, error) {
		start := time.Now()
		v, err := next(ctx, in)
		c.metrics.RecordIntent(kind, err == nil, time.Since(start).Seconds())
		if err != nil {
			c.logger.DebugContext(ctx, "intent rejected", "kind", errcode.KindOf(err), "error", err)
		}
		return v, err
	}
}

// limit 按玩家限流
func (c *Controller) limit(_ model.IntentKind, next router.Handler[*model.Intent, *model.View]) router.Handler[*model.Intent, *model.View] {
	return func(ctx context.Context, in *model.Intent) (*model.View, error) {
		if c.cfg.RatePerSecond > 0 && !c.limiter(in.UserID).Allow() {
			return nil, errcode.InvalidInput("you are sending actions too quickly")
		}
		return next(ctx, in)
	}
}

func (c *Controller) limiter(userID string) *rate.Limiter {
	c.limitMu.Lock()
	defer c.limitMu.Unlock()

	l, ok := c.limiters[userID]
	if !ok {
		burst := c.cfg.Burst
		if burst <= 0 {
			burst = int(c.cfg.RatePerSecond) * 2
		}
		l = rate.NewLimiter(rate.Limit(c.cfg.RatePerSecond), max(1, burst))
		c.limiters[userID] = l
	}
	return l
}

// gate 注册校验
func (c *Controller) gate(kind model.IntentKind, next router.Handler[*model.Intent, *model.View]) router.Handler[*model.Intent, *model.View] {
	if _, open := openKinds[kind]; open {
		return next
	}
	return func(ctx context.Context, in *model.Intent) (*model.View, error) {
		ok, err := c.svc.Register.IsRegistered(ctx, in.UserID, in.ServerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errcode.NotRegistered(in.UserID)
		}
		return next(ctx, in)
	}
}

// Close 结束全部会话
func (c *Controller) Close() {
	ctx := context.Background()
	c.mu.Lock()
	flows := make([]*flow, 0, len(c.flows))
	for _, f := range c.flows {
		flows = append(flows, f)
	}
	c.mu.Unlock()

	for _, f := range flows {
		f.mu.Lock()
		c.end(ctx, f)
		f.mu.Unlock()
	}
}
