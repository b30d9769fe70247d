package interceptors

import (
	"context"
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"

	"referral-gate-bot/internal/gateway"
)

// Recovery returns an interceptor that turns a handler panic into an error.
func Recovery(logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u gateway.Update) (err error) {
			defer func() {
				if p := recover(); p != nil {
					logger.Error("panic while handling update",
						zap.Int("update_id", u.ID), zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
					err = fmt.Errorf("panic: %v", p)
				}
			}()
			return next(ctx, u)
		}
	}
}
