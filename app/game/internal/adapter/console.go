// Package adapter 控制台适配器：每行一个 JSON 意图，每行输出一个 JSON 视图。
package adapter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/lk2023060901/ascend/app/game/internal/model"
	"github.com/lk2023060901/ascend/pkg/logger"
)

// 输出来源
const (
	SourceReply     = "reply"
	SourceAsync     = "async"
	SourceBroadcast = "broadcast"
)

// maxLine 单行意图的最大长度
const maxLine = 64 * 1024

// Handler 意图处理器，由控制器实现
type Handler interface {
	Handle(ctx context.Context, in *model.Intent) (*model.View, error)
}

// Output 一行输出
type Output struct {
	Source    string      `json:"source"`
	UserID    string      `json:"user_id,omitempty"`
	ServerID  string      `json:"server_id,omitempty"`
	ChannelID string      `json:"channel_id,omitempty"`
	View      *model.View `json:"view,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Console 控制台适配器，实现 app.Server
type Console struct {
	logger  logger.Logger
	handler Handler
	in      io.Reader

	mu  sync.Mutex
	enc *json.Encoder

	ctx    context.Context
	cancel context.CancelFunc
}

func NewConsole(l logger.Logger, h Handler, in io.Reader, out io.Writer) *Console {
	ctx, cancel := context.WithCancel(context.Background())
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	return &Console{
		logger:  l.Named("adapter.console"),
		handler: h,
		in:      in,
		enc:     enc,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 读取输入直到 EOF、ctx 取消或 Stop
func (c *Console) Start(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(c.in)
		sc.Buffer(make([]byte, 0, 4096), maxLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-c.ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	c.logger.Info("console adapter started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("read intents: %w", err)
			}
			c.logger.Info("console input closed")
			return nil
		case line := <-lines:
			c.process(ctx, line)
		}
	}
}

// Stop 停止读取
func (c *Console) Stop() error {
	c.cancel()
	c.logger.Info("console adapter stopped")
	return nil
}

func (c *Console) process(ctx context.Context, line []byte) {
	if len(line) == 0 {
		return
	}

	var in model.Intent
	if err := json.Unmarshal(line, &in); err != nil {
		c.write(Output{Source: SourceReply, Error: "malformed intent: " + err.Error()})
		return
	}
	in.Sink = c.sinkFor(&in)

	v, err := c.handler.Handle(ctx, &in)
	out := Output{Source: SourceReply, UserID: in.UserID, ServerID: in.ServerID, ChannelID: in.ChannelID, View: v}
	if err != nil {
		c.logger.Error("intent failed", "user_id", in.UserID, "kind", in.Kind, "error", err)
		out.Error = "something went wrong, try again later"
	}
	c.write(out)
}

// sinkFor 事件频道绑定用频道 sink，其余意图的异步视图回到玩家
func (c *Console) sinkFor(in *model.Intent) model.ViewSink {
	if in.Kind == model.IntentSetupEvents {
		return &channelSink{console: c, serverID: in.ServerID, channelID: in.ChannelID}
	}
	return &userSink{console: c, userID: in.UserID, serverID: in.ServerID, channelID: in.ChannelID}
}

func (c *Console) write(out Output) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.enc.Encode(out); err != nil {
		c.logger.Warn("failed to write output", "source", out.Source, "error", err)
	}
}

type userSink struct {
	console   *Console
	userID    string
	serverID  string
	channelID string
}

func (s *userSink) Send(_ context.Context, v *model.View) error {
	uid := s.userID
	if v.Recipient != "" {
		uid = v.Recipient
	}
	s.console.write(Output{Source: SourceAsync, UserID: uid, ServerID: s.serverID, ChannelID: s.channelID, View: v})
	return nil
}

type channelSink struct {
	console   *Console
	serverID  string
	channelID string
}

func (s *channelSink) Send(_ context.Context, v *model.View) error {
	s.console.write(Output{Source: SourceBroadcast, ServerID: s.serverID, ChannelID: s.channelID, View: v})
	return nil
}
