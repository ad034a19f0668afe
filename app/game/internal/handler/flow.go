package handler

import (
	"context"
	"sync"
	"time"

	"github.com/lk2023060901/ascend/app/game/internal/delve"
	"github.com/lk2023060901/ascend/app/game/internal/errcode"
	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/app/game/internal/pvp"
	"github.com/lk2023060901/ascend/app/game/internal/service"
)

// 会话种类，同时作为会话锁的 kind
const (
	flowRegister = "register"
	flowCurio    = "curio"
	flowDelve    = "delve"
	flowDuel     = "duel"
	flowSlayer   = "slayer"
)

// screen 视图栈中的一层，返回时重新渲染
type screen struct {
	name   string
	render func(ctx context.Context) (*model.View, error)
}

// duelState 决斗邀请与对局
type duelState struct {
	challenger string
	target     string
	wager      int64
	match      *pvp.Duel
}

// flow 一个交互会话。决斗时两名玩家共享同一个 flow。
type flow struct {
	mu sync.Mutex

	kind     string
	serverID string
	users    []string
	sinks    map[string]model.ViewSink

	gen       uint64
	timer     *time.Timer
	onTimeout func(ctx context.Context, f *flow) *model.View
	ended     bool

	stack []screen

	reg  *service.Registration
	run  *delve.Run
	duel *duelState
}

func (f *flow) push(s screen) {
	f.stack = append(f.stack, s)
}

// replace 替换栈顶同名层，否则压栈
func (f *flow) replace(s screen) {
	if n := len(f.stack); n > 0 && f.stack[n-1].name == s.name {
		f.stack[n-1] = s
		return
	}
	f.push(s)
}

func (f *flow) top() (screen, bool) {
	if len(f.stack) == 0 {
		return screen{}, false
	}
	return f.stack[len(f.stack)-1], true
}

// begin 占用会话锁并创建 flow，返回时已持有 f.mu
func (c *Controller) begin(ctx context.Context, in *model.Intent, kind string) (*flow, error) {
	if err := c.sessions.SetActive(ctx, in.UserID, kind); err != nil {
		return nil, err
	}
	f := &flow{
		kind:     kind,
		serverID: in.ServerID,
		users:    []string{in.UserID},
		sinks:    map[string]model.ViewSink{in.UserID: in.Sink},
	}
	f.mu.Lock()
	c.mu.Lock()
	c.flows[in.UserID] = f
	c.mu.Unlock()
	return f, nil
}

// join 第二名玩家加入 flow，调用方持有 f.mu
func (c *Controller) join(ctx context.Context, f *flow, in *model.Intent) error {
	if err := c.sessions.SetActive(ctx, in.UserID, f.kind); err != nil {
		return err
	}
	f.users = append(f.users, in.UserID)
	f.sinks[in.UserID] = in.Sink
	c.mu.Lock()
	c.flows[in.UserID] = f
	c.mu.Unlock()
	return nil
}

func (c *Controller) lookup(userID string) *flow {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flows[userID]
}

// arm 重置超时，旧定时器即使已触发也会因代数不符而放弃
func (c *Controller) arm(f *flow, d time.Duration, onTimeout func(ctx context.Context, f *flow) *model.View) {
	if f.timer != nil {
		f.timer.Stop()
	}
	f.gen++
	gen := f.gen
	f.onTimeout = onTimeout
	f.timer = time.AfterFunc(d, func() { c.expire(f, gen) })
}

func (c *Controller) expire(f *flow, gen uint64) {
	ctx := context.Background()

	f.mu.Lock()
	if f.ended || f.gen != gen {
		f.mu.Unlock()
		return
	}
	var v *model.View
	if f.onTimeout != nil {
		v = f.onTimeout(ctx, f)
	}
	if v == nil {
		v = errorView(errcode.Timeout(f.kind))
	}
	v.Close()
	sinks := make(map[string]model.ViewSink, len(f.sinks))
	for uid, s := range f.sinks {
		sinks[uid] = s
	}
	c.end(ctx, f)
	f.mu.Unlock()

	c.logger.InfoContext(ctx, "session timed out", "kind", f.kind, "users", f.users)
	for uid, sink := range sinks {
		if sink == nil {
			continue
		}
		out := *v
		out.Recipient = uid
		if err := sink.Send(ctx, &out); err != nil {
			c.logger.WarnContext(ctx, "failed to deliver timeout view", "user_id", uid, "error", err)
		}
	}
}

// end 结束 flow 并释放所有玩家的会话锁，调用方持有 f.mu，可重复调用
func (c *Controller) end(ctx context.Context, f *flow) {
	if f.ended {
		return
	}
	f.ended = true
	if f.timer != nil {
		f.timer.Stop()
	}

	c.mu.Lock()
	for _, uid := range f.users {
		if c.flows[uid] == f {
			delete(c.flows, uid)
		}
	}
	if f.duel != nil && c.invites[f.duel.target] == f {
		delete(c.invites, f.duel.target)
	}
	c.mu.Unlock()

	for _, uid := range f.users {
		c.sessions.ClearActive(ctx, uid)
	}
}

// within 在玩家当前的 kind 会话中执行 fn。非用户可见错误会结束会话。
func (c *Controller) within(ctx context.Context, in *model.Intent, kind string, fn func(f *flow) (*model.View, error)) (*model.View, error) {
	f := c.lookup(in.UserID)
	if f == nil || f.kind != kind {
		return nil, errcode.InvalidInput("there is no active %s session", kind)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ended {
		return nil, errcode.InvalidInput("there is no active %s session", kind)
	}
	if in.Sink != nil {
		f.sinks[in.UserID] = in.Sink
	}

	v, err := fn(f)
	if err != nil && !errcode.UserFacing(err) {
		c.end(ctx, f)
	}
	return v, err
}

// exclusive 一次性操作期间占用会话锁
func (c *Controller) exclusive(ctx context.Context, in *model.Intent, fn func() (*model.View, error)) (*model.View, error) {
	if err := c.sessions.SetActive(ctx, in.UserID, in.Kind); err != nil {
		return nil, err
	}
	defer c.sessions.ClearActive(ctx, in.UserID)
	return fn()
}
