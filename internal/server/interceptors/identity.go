package interceptors

import (
	"context"

	"referral-gate-bot/internal/gateway"
)

// Identity returns an interceptor that puts the sender, the admin flag and the update kind in context.
// Updates with no sender are dropped.
func Identity(adminID int64) Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u gateway.Update) error {
			sender := u.Sender()
			if sender == 0 {
				return nil
			}
			ctx = WithIdentity(ctx, sender, adminID != 0 && sender == adminID, u.Kind())
			return next(ctx, u)
		}
	}
}
