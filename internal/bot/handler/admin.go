package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"referral-gate-bot/internal/broadcast"
	"referral-gate-bot/internal/channel"
	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/ingestion"
	settingsdomain "referral-gate-bot/internal/platformsettings/domain"
	"referral-gate-bot/internal/telemetry"
)

type commandFunc func(ctx context.Context, m *gateway.Message, args string) error

// adminCommands maps command names to handlers. Callers have already checked the sender is the administrator.
func (r *Router) adminCommands() map[string]commandFunc {
	return map[string]commandFunc{
		"/addcontent":    r.cmdAddContent,
		"/cancel":        r.cmdCancel,
		"/broadcast":     r.cmdBroadcast,
		"/addchannel":    r.cmdAddChannel,
		"/removechannel": r.cmdRemoveChannel,
		"/channels":      r.cmdChannels,
		"/stats":         r.cmdStats,
	}
}

func (r *Router) reply(ctx context.Context, m *gateway.Message, text string) error {
	return r.Gateway.SendText(ctx, m.ChatID, text, nil)
}

func (r *Router) cmdAddContent(ctx context.Context, m *gateway.Message, _ string) error {
	if !r.Ingestion.Start(m.From.ID) {
		return nil
	}
	return r.reply(ctx, m, textAddContentStart)
}

func (r *Router) cmdCancel(ctx context.Context, m *gateway.Message, _ string) error {
	if r.Ingestion.Cancel(m.From.ID) {
		return r.reply(ctx, m, textCancelled)
	}
	return r.reply(ctx, m, textNothingToCancel)
}

func (r *Router) handleIngestion(ctx context.Context, m *gateway.Message) error {
	res, err := r.Ingestion.Handle(ctx, m.From.ID, ingestion.Input{
		Text:      m.Text,
		Caption:   m.Caption,
		ChatID:    m.ChatID,
		MessageID: m.ID,
		HasMedia:  m.HasMedia,
	})
	if err != nil {
		_ = r.reply(ctx, m, textStoreFailed)
		return fmt.Errorf("ingestion: %w", err)
	}
	switch res.Outcome {
	case ingestion.OutcomeTitleAccepted:
		return r.reply(ctx, m, titleAcceptedText(res.Title))
	case ingestion.OutcomeTitleRejected:
		return r.reply(ctx, m, textTitleRejected)
	case ingestion.OutcomeContentRejected:
		return r.reply(ctx, m, textContentRejected)
	case ingestion.OutcomeCreated:
		r.Metrics.RecordContentCreated()
		r.emit(telemetry.EventContentCreated, m.From.ID, map[string]string{
			"item_id": res.Item.ID,
			"kind":    string(res.Item.Payload.Kind),
		})
		return r.reply(ctx, m, createdText(res.Title))
	default:
		return nil
	}
}

func (r *Router) cmdBroadcast(ctx context.Context, m *gateway.Message, args string) error {
	var p broadcast.Payload
	switch {
	case m.ReplyTo != nil:
		p = broadcast.CopyPayload(m.ChatID, m.ReplyTo.ID)
	case strings.TrimSpace(args) != "":
		p = broadcast.TextPayload(args)
	default:
		return r.reply(ctx, m, textBroadcastUsage)
	}

	recipients, err := r.Ledger.UserIDs(ctx)
	if err != nil {
		_ = r.reply(ctx, m, textTryAgain)
		return fmt.Errorf("broadcast recipients: %w", err)
	}
	_ = r.reply(ctx, m, fmt.Sprintf(textBroadcastStartFmt, len(recipients)))

	res, err := r.Broadcaster.Broadcast(ctx, p, recipients)
	if err != nil {
		if errors.Is(err, broadcast.ErrEmptyPayload) {
			return r.reply(ctx, m, textBroadcastUsage)
		}
		return fmt.Errorf("broadcast: %w", err)
	}
	r.Metrics.RecordBroadcast(res.Succeeded, res.Failed)
	return r.reply(ctx, m, broadcastDoneText(res))
}

func (r *Router) cmdAddChannel(ctx context.Context, m *gateway.Message, args string) error {
	return r.changeChannels(ctx, m, "/addchannel", args, r.Channels.Add, textAlreadyRequired)
}

func (r *Router) cmdRemoveChannel(ctx context.Context, m *gateway.Message, args string) error {
	return r.changeChannels(ctx, m, "/removechannel", args, r.Channels.Remove, textNotRequired)
}

func (r *Router) changeChannels(
	ctx context.Context, m *gateway.Message, cmd, args string,
	apply func(context.Context, string) ([]string, bool, error), unchangedFmt string,
) error {
	if strings.TrimSpace(args) == "" {
		return r.reply(ctx, m, fmt.Sprintf(textChannelUsage, cmd))
	}
	channels, changed, err := apply(ctx, args)
	switch {
	case errors.Is(err, channel.ErrStaticChannels):
		return r.reply(ctx, m, textStaticChannels)
	case errors.Is(err, settingsdomain.ErrInvalidChannel):
		return r.reply(ctx, m, fmt.Sprintf(textChannelUsage, cmd))
	case err != nil:
		_ = r.reply(ctx, m, textChannelsFailed)
		return fmt.Errorf("%s: %w", cmd, err)
	}
	if !changed {
		ch, _ := settingsdomain.NormalizeChannel(args)
		return r.reply(ctx, m, fmt.Sprintf(unchangedFmt, ch))
	}
	r.logger.Info("required channels changed", zap.String("command", cmd), zap.Strings("channels", channels))
	r.emit(telemetry.EventChannelsChanged, m.From.ID, map[string]string{
		"command":  strings.TrimPrefix(cmd, "/"),
		"channels": strings.Join(channels, ","),
	})
	return r.reply(ctx, m, channelsText(channels))
}

func (r *Router) cmdChannels(ctx context.Context, m *gateway.Message, _ string) error {
	channels, err := r.Channels.RequiredChannels(ctx)
	if err != nil {
		_ = r.reply(ctx, m, textTryAgain)
		return fmt.Errorf("channels: %w", err)
	}
	return r.reply(ctx, m, channelsText(channels))
}

func (r *Router) cmdStats(ctx context.Context, m *gateway.Message, _ string) error {
	users, err := r.Ledger.UserCount(ctx)
	if err != nil {
		_ = r.reply(ctx, m, textStatsFailed)
		return fmt.Errorf("stats users: %w", err)
	}
	items, err := r.Catalog.Count(ctx)
	if err != nil {
		_ = r.reply(ctx, m, textStatsFailed)
		return fmt.Errorf("stats items: %w", err)
	}
	channels, err := r.Channels.RequiredChannels(ctx)
	if err != nil {
		_ = r.reply(ctx, m, textStatsFailed)
		return fmt.Errorf("stats channels: %w", err)
	}
	return r.reply(ctx, m, statsText(users, items, len(channels)))
}
