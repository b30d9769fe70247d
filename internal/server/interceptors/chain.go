// Package interceptors wraps update handling with identity, recovery, tracing, metrics and audit steps.
package interceptors

import (
	"context"

	"referral-gate-bot/internal/gateway"
)

// HandlerFunc handles one update.
type HandlerFunc func(ctx context.Context, u gateway.Update) error

// Interceptor wraps a HandlerFunc.
type Interceptor func(next HandlerFunc) HandlerFunc

// Chain wraps h so that interceptors[0] runs outermost.
func Chain(h HandlerFunc, interceptors ...Interceptor) HandlerFunc {
	for i := len(interceptors) - 1; i >= 0; i-- {
		h = interceptors[i](h)
	}
	return h
}
