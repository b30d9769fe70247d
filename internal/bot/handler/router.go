// Package handler routes inbound chat updates to the referral engine, the access gate, the catalog
// and the administrator workflows.
package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"referral-gate-bot/internal/broadcast"
	"referral-gate-bot/internal/channel"
	contentdomain "referral-gate-bot/internal/content/domain"
	"referral-gate-bot/internal/gate"
	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/ingestion"
	"referral-gate-bot/internal/keyboard"
	"referral-gate-bot/internal/metrics"
	referral "referral-gate-bot/internal/referral/service"
	"referral-gate-bot/internal/telemetry"
	userdomain "referral-gate-bot/internal/user/domain"
)

// AccessGate makes the membership and points decisions.
type AccessGate interface {
	IsAdmin(userID int64) bool
	Threshold() int64
	CheckMembership(ctx context.Context, userID int64) gate.MembershipDecision
	CheckContent(ctx context.Context, userID int64) (gate.ContentDecision, error)
	Refund(ctx context.Context, userID int64, d gate.ContentDecision) error
}

// Referrals registers users on /start.
type Referrals interface {
	HandleStart(ctx context.Context, userID int64, displayName, token string) (referral.StartResult, error)
}

// Ledger is the read side of the user ledger.
type Ledger interface {
	Balance(ctx context.Context, id int64) (int64, error)
	ReferralCount(ctx context.Context, id int64) (int64, error)
	UserIDs(ctx context.Context) ([]int64, error)
	UserCount(ctx context.Context) (int64, error)
}

// Catalog lists and resolves content items.
type Catalog interface {
	List(ctx context.Context) ([]*contentdomain.Item, error)
	Get(ctx context.Context, id string) (*contentdomain.Item, error)
	Count(ctx context.Context) (int64, error)
}

// Ingestion is the administrator's add-content workflow.
type Ingestion interface {
	Start(actor int64) bool
	Cancel(actor int64) bool
	State(actor int64) ingestion.State
	Handle(ctx context.Context, actor int64, in ingestion.Input) (ingestion.Result, error)
}

// Broadcaster sends one payload to many users.
type Broadcaster interface {
	Broadcast(ctx context.Context, p broadcast.Payload, recipients []int64) (broadcast.Result, error)
}

// Deps holds the router's collaborators. Metrics and Emitter may be nil.
type Deps struct {
	Gateway     gateway.Gateway
	Gate        AccessGate
	Referrals   Referrals
	Ledger      Ledger
	Catalog     Catalog
	Ingestion   Ingestion
	Broadcaster Broadcaster
	Channels    channel.Admin
	Metrics     *metrics.Collector
	Emitter     telemetry.EventEmitter
	// BotUsername renders referral links.
	BotUsername string
}

// Router handles one update at a time; it is safe for concurrent use.
type Router struct {
	Deps
	logger *zap.Logger
}

// NewRouter returns a Router.
func NewRouter(deps Deps, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{Deps: deps, logger: logger}
}

// Handle routes one update. Errors are transport or store failures; authorization and eligibility
// outcomes are answered in chat and never returned.
func (r *Router) Handle(ctx context.Context, u gateway.Update) error {
	switch {
	case u.Callback != nil:
		return r.handleCallback(ctx, u.Callback)
	case u.Message != nil:
		return r.handleMessage(ctx, u.Message)
	default:
		return nil
	}
}

func (r *Router) handleMessage(ctx context.Context, m *gateway.Message) error {
	cmd, args := m.Command()
	if cmd == "/start" {
		return r.handleStart(ctx, m, args)
	}
	if !r.Gate.IsAdmin(m.From.ID) {
		// Users only talk to the bot through /start and buttons.
		return nil
	}
	if fn, ok := r.adminCommands()[cmd]; ok {
		return fn(ctx, m, args)
	}
	if r.Ingestion.State(m.From.ID) != ingestion.StateIdle {
		return r.handleIngestion(ctx, m)
	}
	return nil
}

func (r *Router) handleStart(ctx context.Context, m *gateway.Message, token string) error {
	res, err := r.Referrals.HandleStart(ctx, m.From.ID, m.From.DisplayName(), token)
	if err != nil {
		// Nothing was stored; the next /start retries registration and credit together.
		_ = r.Gateway.SendText(ctx, m.ChatID, textTryAgain, nil)
		return fmt.Errorf("start: %w", err)
	}
	if res.ReferrerID != 0 {
		r.Metrics.RecordReferralCredit()
	}

	decision := r.checkMembership(ctx, m.From.ID)
	if !decision.Allowed {
		return r.Gateway.SendText(ctx, m.ChatID, joinPromptText(decision.Channels), keyboard.JoinPrompt(decision.Channels))
	}
	return r.Gateway.SendText(ctx, m.ChatID, welcomeText(m.From), keyboard.MainMenu())
}

func (r *Router) checkMembership(ctx context.Context, userID int64) gate.MembershipDecision {
	d := r.Gate.CheckMembership(ctx, userID)
	r.Metrics.RecordMembership(d.Allowed)
	return d
}

// Notifier tells referrers about new referrals through the gateway.
type Notifier struct {
	gw gateway.Gateway
}

// NewNotifier returns a Notifier sending through gw.
func NewNotifier(gw gateway.Gateway) *Notifier {
	return &Notifier{gw: gw}
}

// NotifyReferral sends the bonus notice to referrerID's private chat.
func (n *Notifier) NotifyReferral(ctx context.Context, referrerID int64, newUser *userdomain.User, balance int64) error {
	return n.gw.SendText(ctx, referrerID, referralNotice(newUser.DisplayName, balance), nil)
}
