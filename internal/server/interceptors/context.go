package interceptors

import "context"

type contextKey struct{ name string }

var (
	userIDKey  = contextKey{"user_id"}
	isAdminKey = contextKey{"is_admin"}
	kindKey    = contextKey{"update_kind"}
)

// WithIdentity returns a context carrying the update's sender, the admin flag and the update kind.
func WithIdentity(ctx context.Context, userID int64, isAdmin bool, kind string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, isAdminKey, isAdmin)
	ctx = context.WithValue(ctx, kindKey, kind)
	return ctx
}

// GetUserID returns the sender id from context and true if set; otherwise 0, false.
func GetUserID(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(userIDKey).(int64)
	return v, ok
}

// IsAdmin reports whether the sender in context is the administrator.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(isAdminKey).(bool)
	return v
}

// GetUpdateKind returns the update kind from context and true if set; otherwise "", false.
func GetUpdateKind(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(kindKey).(string)
	return v, ok
}
