package handler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	contentdomain "referral-gate-bot/internal/content/domain"
	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/keyboard"
	"referral-gate-bot/internal/metrics"
	referral "referral-gate-bot/internal/referral/service"
	"referral-gate-bot/internal/telemetry"
)

func (r *Router) handleCallback(ctx context.Context, cb *gateway.Callback) error {
	action := keyboard.ParseAction(cb.Data)
	if action.Tag == keyboard.ActionCheckJoin {
		return r.onCheckJoin(ctx, cb)
	}

	switch action.Tag {
	case keyboard.ActionViewCatalog, keyboard.ActionMyReferrals, keyboard.ActionUnlock, keyboard.ActionMainMenu:
	default:
		return r.Gateway.AnswerCallback(ctx, cb.ID, "", false)
	}

	// Every screen past the join prompt requires membership, re-checked on each tap.
	if d := r.checkMembership(ctx, cb.From.ID); !d.Allowed {
		_ = r.Gateway.AnswerCallback(ctx, cb.ID, textNotJoined, true)
		return r.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, joinPromptText(d.Channels), keyboard.JoinPrompt(d.Channels))
	}

	switch action.Tag {
	case keyboard.ActionViewCatalog:
		return r.onViewCatalog(ctx, cb)
	case keyboard.ActionMyReferrals:
		return r.onMyReferrals(ctx, cb)
	case keyboard.ActionUnlock:
		return r.onUnlock(ctx, cb, action.Arg)
	default:
		_ = r.Gateway.AnswerCallback(ctx, cb.ID, "", false)
		return r.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, welcomeText(cb.From), keyboard.MainMenu())
	}
}

func (r *Router) onCheckJoin(ctx context.Context, cb *gateway.Callback) error {
	d := r.checkMembership(ctx, cb.From.ID)
	if !d.Allowed {
		return r.Gateway.AnswerCallback(ctx, cb.ID, textNotJoined, true)
	}
	_ = r.Gateway.AnswerCallback(ctx, cb.ID, "", false)
	return r.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, welcomeText(cb.From), keyboard.MainMenu())
}

func (r *Router) onViewCatalog(ctx context.Context, cb *gateway.Callback) error {
	items, err := r.Catalog.List(ctx)
	if err != nil {
		_ = r.Gateway.AnswerCallback(ctx, cb.ID, textTryAgain, true)
		return fmt.Errorf("list catalog: %w", err)
	}
	_ = r.Gateway.AnswerCallback(ctx, cb.ID, "", false)
	if len(items) == 0 {
		return r.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, textEmptyCatalog, keyboard.Catalog(nil))
	}
	balance := r.balance(ctx, cb.From.ID)
	return r.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, catalogText(balance, r.Gate.Threshold()), keyboard.Catalog(items))
}

func (r *Router) onMyReferrals(ctx context.Context, cb *gateway.Callback) error {
	count, err := r.Ledger.ReferralCount(ctx, cb.From.ID)
	if err != nil {
		_ = r.Gateway.AnswerCallback(ctx, cb.ID, textTryAgain, true)
		return fmt.Errorf("count referrals: %w", err)
	}
	_ = r.Gateway.AnswerCallback(ctx, cb.ID, "", false)
	link := referral.ReferralLink(r.BotUsername, cb.From.ID)
	text := referralText(r.balance(ctx, cb.From.ID), count, link)
	return r.Gateway.EditText(ctx, cb.ChatID, cb.MessageID, text, keyboard.ReferralScreen(link))
}

// balance reads the user's points for display; failures show zero.
func (r *Router) balance(ctx context.Context, userID int64) int64 {
	b, err := r.Ledger.Balance(ctx, userID)
	if err != nil {
		r.logger.Debug("balance unavailable", zap.Int64("user_id", userID), zap.Error(err))
		return 0
	}
	return b
}

func (r *Router) onUnlock(ctx context.Context, cb *gateway.Callback, id string) error {
	userID := cb.From.ID
	item, err := r.Catalog.Get(ctx, id)
	if err != nil {
		if errors.Is(err, contentdomain.ErrContentNotFound) {
			return r.Gateway.AnswerCallback(ctx, cb.ID, textUnavailable, true)
		}
		_ = r.Gateway.AnswerCallback(ctx, cb.ID, textTryAgain, true)
		return fmt.Errorf("get item %s: %w", id, err)
	}

	d, err := r.Gate.CheckContent(ctx, userID)
	if err != nil {
		r.Metrics.RecordUnlock(metrics.UnlockFailed)
		r.logger.Error("content gate failed closed", zap.Int64("user_id", userID), zap.String("item_id", id), zap.Error(err))
		return r.Gateway.AnswerCallback(ctx, cb.ID, textGateUnavailable, true)
	}
	if !d.Granted {
		r.Metrics.RecordUnlock(metrics.UnlockDenied)
		r.emit(telemetry.EventContentDenied, userID, map[string]string{
			"item_id":   item.ID,
			"balance":   telemetry.Int(d.Balance),
			"shortfall": telemetry.Int(d.Shortfall),
		})
		return r.Gateway.AnswerCallback(ctx, cb.ID, shortfallText(d.Shortfall, d.Balance, d.Threshold), true)
	}

	if err := r.deliver(ctx, cb.ChatID, item); err != nil {
		if refundErr := r.Gate.Refund(ctx, userID, d); refundErr != nil {
			r.logger.Error("refund after failed delivery failed", zap.Int64("user_id", userID), zap.Error(refundErr))
		}
		_ = r.Gateway.AnswerCallback(ctx, cb.ID, textDeliveryFailed, true)
		return fmt.Errorf("deliver item %s: %w", item.ID, err)
	}

	result := metrics.UnlockGranted
	if d.Bypass {
		result = metrics.UnlockBypass
	}
	r.Metrics.RecordUnlock(result)
	r.emit(telemetry.EventContentUnlocked, userID, map[string]string{
		"item_id": item.ID,
		"charged": fmt.Sprint(d.Charged),
		"bypass":  fmt.Sprint(d.Bypass),
	})
	return r.Gateway.AnswerCallback(ctx, cb.ID, unlockedText(d.Charged, d.Threshold), false)
}

func (r *Router) deliver(ctx context.Context, chatID int64, item *contentdomain.Item) error {
	p := item.Payload
	if p.Kind == contentdomain.PayloadMedia {
		return r.Gateway.CopyMessage(ctx, chatID, p.ChatID, p.MessageID, p.Caption)
	}
	return r.Gateway.SendText(ctx, chatID, textItem(item.Title, p.Text), nil)
}

func (r *Router) emit(eventType string, userID int64, attrs map[string]string) {
	telemetry.EmitAsync(r.Emitter, r.logger, telemetry.NewEvent(eventType, userID, attrs))
}
