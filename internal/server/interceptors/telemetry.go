package interceptors

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/metrics"
)

// Tracing returns an interceptor that wraps each update in a span named "update <kind>".
func Tracing(tracer trace.Tracer) Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u gateway.Update) error {
			kind := u.Kind()
			ctx, span := tracer.Start(ctx, "update "+kind, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()
			span.SetAttributes(
				attribute.Int("bot.update_id", u.ID),
				attribute.Int64("bot.user_id", u.Sender()),
				attribute.String("bot.update_kind", kind),
			)
			err := next(ctx, u)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}

// Metrics returns an interceptor that counts handled updates and their latency. A nil collector no-ops.
func Metrics(c *metrics.Collector) Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u gateway.Update) error {
			done := c.TrackUpdate(u.Kind())
			err := next(ctx, u)
			done(err)
			return err
		}
	}
}

// Logging returns an interceptor that logs failed updates at warn and the rest at debug.
func Logging(logger *zap.Logger) Interceptor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u gateway.Update) error {
			start := time.Now()
			err := next(ctx, u)
			fields := []zap.Field{
				zap.Int("update_id", u.ID),
				zap.String("kind", u.Kind()),
				zap.Int64("user_id", u.Sender()),
				zap.Duration("took", time.Since(start)),
			}
			if err != nil {
				logger.Warn("update failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Debug("update handled", fields...)
			return nil
		}
	}
}
