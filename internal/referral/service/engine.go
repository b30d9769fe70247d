// Package service implements the referral engine: first-contact registration with an optional referrer,
// and the one-time bonus credit to that referrer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"referral-gate-bot/internal/telemetry"
	userdomain "referral-gate-bot/internal/user/domain"
)

// ErrInvalidReferral is returned by ParseToken for tokens that cannot name a referrer.
var ErrInvalidReferral = errors.New("invalid referral token")

// Ledger is the slice of the user ledger the engine needs.
type Ledger interface {
	Get(ctx context.Context, id int64) (*userdomain.User, error)
	Register(ctx context.Context, id int64, referredBy *int64, displayName string, bonus int64) (userdomain.Registration, error)
}

// Notifier tells a referrer they earned a bonus. Failures are logged, never retried.
type Notifier interface {
	NotifyReferral(ctx context.Context, referrerID int64, newUser *userdomain.User, balance int64) error
}

// StartResult describes what HandleStart did.
type StartResult struct {
	User    *userdomain.User
	Created bool
	// ReferrerID is set when this start credited a referrer.
	ReferrerID int64
	// ReferrerBalance is the referrer's balance after the credit.
	ReferrerBalance int64
}

// Engine handles /start.
type Engine struct {
	ledger   Ledger
	notifier Notifier
	bonus    int64
	emitter  telemetry.EventEmitter
	logger   *zap.Logger
}

// NewEngine returns an Engine crediting bonus points per referred user. notifier and emitter may be nil.
func NewEngine(ledger Ledger, notifier Notifier, bonus int64, emitter telemetry.EventEmitter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{ledger: ledger, notifier: notifier, bonus: bonus, emitter: emitter, logger: logger}
}

// ParseToken parses a /start payload as a referrer id: ASCII digits only, positive, fits int64, not self.
func ParseToken(raw string, self int64) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidReferral
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, ErrInvalidReferral
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 || id == self {
		return 0, ErrInvalidReferral
	}
	return id, nil
}

// HandleStart registers userID on first contact. A valid token naming an existing user records that user as
// referrer and credits them once; replays and tokens on an already known user change nothing.
// Creation and credit commit together, so a store failure leaves no user behind and the next /start retries
// both. The notification runs only after the credit is durable.
func (e *Engine) HandleStart(ctx context.Context, userID int64, displayName, token string) (StartResult, error) {
	referrer := e.resolveReferrer(ctx, userID, token)

	reg, err := e.ledger.Register(ctx, userID, referrer, displayName, e.bonus)
	if err != nil {
		return StartResult{}, fmt.Errorf("referral: register %d: %w", userID, err)
	}
	u := reg.User
	res := StartResult{User: u, Created: reg.Created}
	if !reg.Created {
		return res, nil
	}
	telemetry.EmitAsync(e.emitter, e.logger, telemetry.NewEvent(telemetry.EventUserCreated, userID, nil))
	if !reg.Credited || !u.HasReferrer() {
		return res, nil
	}

	referrerID := *u.ReferredBy
	res.ReferrerID, res.ReferrerBalance = referrerID, reg.ReferrerBalance
	e.logger.Info("referral credited",
		zap.Int64("referrer_id", referrerID), zap.Int64("user_id", userID),
		zap.Int64("bonus", e.bonus), zap.Int64("balance", reg.ReferrerBalance))
	telemetry.EmitAsync(e.emitter, e.logger, telemetry.NewEvent(telemetry.EventReferralCredited, referrerID, map[string]string{
		"referred_user_id": telemetry.Int(userID),
		"amount":           telemetry.Int(e.bonus),
		"balance":          telemetry.Int(reg.ReferrerBalance),
	}))

	if e.notifier != nil {
		if err := e.notifier.NotifyReferral(ctx, referrerID, u, reg.ReferrerBalance); err != nil {
			e.logger.Warn("referral notification failed", zap.Int64("referrer_id", referrerID), zap.Error(err))
		}
	}
	return res, nil
}

// resolveReferrer returns the referrer id to record, or nil. Unknown referrers are dropped.
func (e *Engine) resolveReferrer(ctx context.Context, userID int64, token string) *int64 {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	id, err := ParseToken(token, userID)
	if err != nil {
		e.logger.Debug("ignoring referral token", zap.Int64("user_id", userID), zap.String("token", token))
		return nil
	}
	ref, err := e.ledger.Get(ctx, id)
	if err != nil {
		e.logger.Warn("referrer lookup failed, ignoring referral", zap.Int64("referrer_id", id), zap.Error(err))
		return nil
	}
	if ref == nil {
		e.logger.Info("unknown referrer, ignoring referral", zap.Int64("referrer_id", id), zap.Int64("user_id", userID))
		return nil
	}
	return &id
}

// ReferralLink renders the deep link that carries userID as the /start payload.
func ReferralLink(botUsername string, userID int64) string {
	return "https://t.me/" + strings.TrimPrefix(botUsername, "@") + "?start=" + strconv.FormatInt(userID, 10)
}
