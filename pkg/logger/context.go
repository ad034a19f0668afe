package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取日志字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type ctxKey struct{}

// RequestFields 一次意图处理的请求标识
type RequestFields struct {
	UserID   string
	ServerID string
	Intent   string
}

// WithRequest 将请求标识写入 context，后续 *Context 日志自动携带
func WithRequest(ctx context.Context, userID, serverID, intent string) context.Context {
	return context.WithValue(ctx, ctxKey{}, RequestFields{UserID: userID, ServerID: serverID, Intent: intent})
}

// RequestFromContext 读取请求标识
func RequestFromContext(ctx context.Context) (RequestFields, bool) {
	if ctx == nil {
		return RequestFields{}, false
	}
	f, ok := ctx.Value(ctxKey{}).(RequestFields)
	return f, ok
}

// DefaultContextExtractor 提取 user_id / server_id / intent
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	f, ok := RequestFromContext(ctx)
	if !ok {
		return nil
	}

	fields := make([]zap.Field, 0, 3)
	if f.UserID != "" {
		fields = append(fields, zap.String("user_id", f.UserID))
	}
	if f.ServerID != "" {
		fields = append(fields, zap.String("server_id", f.ServerID))
	}
	if f.Intent != "" {
		fields = append(fields, zap.String("intent", f.Intent))
	}
	return fields
}
