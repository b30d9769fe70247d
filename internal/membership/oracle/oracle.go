// Package oracle answers "is this user a member of these channels" on top of the messaging gateway.
// Every failure path answers false.
package oracle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"referral-gate-bot/internal/membership/domain"
)

// DefaultTimeout bounds a single membership query when none is configured.
const DefaultTimeout = 5 * time.Second

// MemberLookup queries the gateway for a user's standing in a channel.
type MemberLookup interface {
	ChatMember(ctx context.Context, channel string, userID int64) (domain.ChatMember, error)
}

// Cache remembers positive answers. Implementations must be safe for concurrent use.
type Cache interface {
	// Get reports whether a positive answer is cached for (channel, userID).
	Get(ctx context.Context, channel string, userID int64) (bool, error)
	// Put caches a positive answer for (channel, userID).
	Put(ctx context.Context, channel string, userID int64) error
}

// Oracle is the membership oracle adapter.
type Oracle struct {
	lookup  MemberLookup
	cache   Cache
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithCache enables a positive-answer cache.
func WithCache(c Cache) Option {
	return func(o *Oracle) { o.cache = c }
}

// WithTimeout sets the per-query timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Oracle) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithLogger sets the logger used for query failures.
func WithLogger(l *zap.Logger) Option {
	return func(o *Oracle) {
		if l != nil {
			o.logger = l
		}
	}
}

// New returns an Oracle over lookup.
func New(lookup MemberLookup, opts ...Option) *Oracle {
	o := &Oracle{lookup: lookup, timeout: DefaultTimeout, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsMember reports whether userID is a member of channel. Errors, timeouts and unknown statuses are false.
func (o *Oracle) IsMember(ctx context.Context, channel string, userID int64) bool {
	if o == nil || o.lookup == nil {
		return false
	}
	if o.cache != nil {
		hit, err := o.cache.Get(ctx, channel, userID)
		if err != nil {
			o.logger.Warn("membership cache read failed", zap.String("channel", channel), zap.Error(err))
		} else if hit {
			return true
		}
	}

	qctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	member, err := o.lookup.ChatMember(qctx, channel, userID)
	if err != nil {
		o.logger.Info("membership query failed, treating as not joined",
			zap.String("channel", channel), zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	if !member.Joined() {
		return false
	}
	if o.cache != nil {
		if err := o.cache.Put(ctx, channel, userID); err != nil {
			o.logger.Warn("membership cache write failed", zap.String("channel", channel), zap.Error(err))
		}
	}
	return true
}

// IsJoined is the AND over channels, stopping at the first channel the user has not joined.
// An empty channel set admits everyone.
func (o *Oracle) IsJoined(ctx context.Context, channels []string, userID int64) bool {
	for _, ch := range channels {
		if !o.IsMember(ctx, ch, userID) {
			return false
		}
	}
	return true
}
