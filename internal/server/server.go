// Package server runs the update loop: each inbound update is handled in its own goroutine,
// bounded by a worker semaphore.
package server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/server/interceptors"
)

// DefaultDrainTimeout is how long Serve waits for in-flight updates after the update stream ends
// before cancelling them.
const DefaultDrainTimeout = 10 * time.Second

// Server dispatches updates to a handler.
type Server struct {
	handler      interceptors.HandlerFunc
	workers      int64
	drainTimeout time.Duration
	logger       *zap.Logger
}

// New returns a Server running at most workers handlers at once. drainTimeout <= 0 selects DefaultDrainTimeout.
func New(handler interceptors.HandlerFunc, workers int, drainTimeout time.Duration, logger *zap.Logger) *Server {
	if workers <= 0 {
		workers = 1
	}
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{handler: handler, workers: int64(workers), drainTimeout: drainTimeout, logger: logger}
}

// Serve consumes updates until the channel closes or ctx ends, then waits for in-flight handlers.
// Handlers keep running past ctx cancellation for up to the drain timeout; after that their context is cancelled.
func (s *Server) Serve(ctx context.Context, updates <-chan gateway.Update) {
	handlerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	sem := semaphore.NewWeighted(s.workers)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case u, ok := <-updates:
			if !ok {
				break loop
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				s.logger.Warn("dropping update during shutdown", zap.Int("update_id", u.ID))
				break loop
			}
			go func() {
				defer sem.Release(1)
				if err := s.handler(handlerCtx, u); err != nil {
					s.logger.Debug("update returned error", zap.Int("update_id", u.ID), zap.Error(err))
				}
			}()
		}
	}

	drained := make(chan struct{})
	go func() {
		_ = sem.Acquire(context.Background(), s.workers)
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(s.drainTimeout):
		s.logger.Warn("in-flight updates did not finish in time, cancelling", zap.Duration("drain_timeout", s.drainTimeout))
		cancel()
		<-drained
	}
}
