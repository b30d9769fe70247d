// Package gate makes the two access decisions: channel membership and points.
// The two gates are independent; callers check membership before offering content.
package gate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"referral-gate-bot/internal/channel"
	"referral-gate-bot/internal/policy/engine"
	userdomain "referral-gate-bot/internal/user/domain"
)

// MembershipChecker answers the AND over required channels.
type MembershipChecker interface {
	IsJoined(ctx context.Context, channels []string, userID int64) bool
}

// Balances is the slice of the user ledger the points gate needs.
type Balances interface {
	Balance(ctx context.Context, id int64) (int64, error)
	Debit(ctx context.Context, id, amount int64) (int64, error)
	Credit(ctx context.Context, id, amount int64) (int64, error)
}

// MembershipDecision is the outcome of the membership gate. Channels is the required set that was checked,
// so the caller can render join links on denial.
type MembershipDecision struct {
	Allowed  bool
	Channels []string
}

// ContentDecision is the outcome of the points gate.
type ContentDecision struct {
	Granted   bool
	Balance   int64
	Threshold int64
	Shortfall int64
	// Charged is true when Threshold points were spent on this grant.
	Charged bool
	// Bypass is true when the grant came from the administrator rule.
	Bypass bool
}

// Options configures a Gate.
type Options struct {
	AdminID   int64
	Threshold int64
	// Debit spends Threshold points per grant instead of only comparing the balance.
	Debit bool
}

// Gate evaluates both access decisions.
type Gate struct {
	channels   channel.Source
	membership MembershipChecker
	balances   Balances
	policy     engine.Evaluator
	opts       Options
	logger     *zap.Logger
}

// New returns a Gate.
func New(opts Options, channels channel.Source, membership MembershipChecker, balances Balances, policy engine.Evaluator, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		channels:   channels,
		membership: membership,
		balances:   balances,
		policy:     policy,
		opts:       opts,
		logger:     logger,
	}
}

// IsAdmin reports whether userID is the configured administrator.
func (g *Gate) IsAdmin(userID int64) bool {
	return g.opts.AdminID != 0 && userID == g.opts.AdminID
}

// Threshold returns the configured unlock threshold.
func (g *Gate) Threshold() int64 {
	return g.opts.Threshold
}

// CheckMembership decides the membership gate. If the channel set cannot be read the user is denied.
func (g *Gate) CheckMembership(ctx context.Context, userID int64) MembershipDecision {
	channels, err := g.channels.RequiredChannels(ctx)
	if err != nil {
		g.logger.Error("required channels unavailable, denying", zap.Int64("user_id", userID), zap.Error(err))
		return MembershipDecision{Allowed: false}
	}
	return MembershipDecision{
		Allowed:  g.membership.IsJoined(ctx, channels, userID),
		Channels: channels,
	}
}

// CheckContent decides the points gate. Under the debit policy a grant spends Threshold points atomically;
// a concurrent spend that empties the balance turns into a denial with the exact shortfall.
// A non-nil error always comes with a denial.
func (g *Gate) CheckContent(ctx context.Context, userID int64) (ContentDecision, error) {
	d := ContentDecision{Threshold: g.opts.Threshold}

	balance, err := g.balances.Balance(ctx, userID)
	if err != nil && !errors.Is(err, userdomain.ErrUserNotFound) {
		return d, fmt.Errorf("gate: read balance: %w", err)
	}
	d.Balance = balance

	res, err := g.policy.EvaluateUnlock(ctx, engine.UnlockInput{
		UserID:    userID,
		Balance:   balance,
		Threshold: g.opts.Threshold,
		IsAdmin:   g.IsAdmin(userID),
	})
	if err != nil {
		d.Shortfall = shortfall(balance, g.opts.Threshold)
		return d, fmt.Errorf("gate: evaluate policy: %w", err)
	}
	if !res.Allowed {
		d.Shortfall = shortfall(balance, g.opts.Threshold)
		return d, nil
	}
	if res.Bypass {
		d.Granted, d.Bypass = true, true
		return d, nil
	}
	if !g.opts.Debit {
		d.Granted = true
		return d, nil
	}

	remaining, err := g.balances.Debit(ctx, userID, g.opts.Threshold)
	if err != nil {
		var insufficient *userdomain.InsufficientBalanceError
		if errors.As(err, &insufficient) {
			d.Balance = insufficient.Balance
			d.Shortfall = insufficient.Shortfall()
			return d, nil
		}
		if errors.Is(err, userdomain.ErrUserNotFound) {
			d.Balance = 0
			d.Shortfall = g.opts.Threshold
			return d, nil
		}
		return d, fmt.Errorf("gate: debit: %w", err)
	}
	d.Granted, d.Charged, d.Balance = true, true, remaining
	return d, nil
}

// Refund returns the points spent on a grant whose delivery failed. No-op unless d.Charged.
func (g *Gate) Refund(ctx context.Context, userID int64, d ContentDecision) error {
	if !d.Charged {
		return nil
	}
	if _, err := g.balances.Credit(ctx, userID, d.Threshold); err != nil {
		return fmt.Errorf("gate: refund: %w", err)
	}
	return nil
}

func shortfall(balance, threshold int64) int64 {
	if balance >= threshold {
		return 0
	}
	return threshold - balance
}
