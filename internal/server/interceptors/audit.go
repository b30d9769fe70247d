package interceptors

import (
	"context"

	"referral-gate-bot/internal/gateway"
)

// CommandAuditor records administrator commands. Implemented by *audit.Logger.
type CommandAuditor interface {
	LogCommand(ctx context.Context, actorID int64, command, metadata string)
}

// AuditCommands returns an interceptor that records an audit entry after each administrator command.
// skipCommands is the set of commands not to audit (e.g. read-only /channels, /stats).
// Only writes when the context identity is the administrator. Best-effort: the auditor logs its own failures.
func AuditCommands(auditor CommandAuditor, skipCommands map[string]bool) Interceptor {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u gateway.Update) error {
			err := next(ctx, u)
			if auditor == nil || u.Message == nil || !IsAdmin(ctx) {
				return err
			}
			cmd, args := u.Message.Command()
			if cmd == "" || skipCommands[cmd] {
				return err
			}
			userID, _ := GetUserID(ctx)
			auditor.LogCommand(ctx, userID, cmd, args)
			return err
		}
	}
}
