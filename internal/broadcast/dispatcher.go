// Package broadcast delivers one admin message to many users with bounded concurrency and pacing.
package broadcast

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/telemetry"
)

// ErrEmptyPayload is returned when the payload has neither text nor a message to copy.
var ErrEmptyPayload = errors.New("broadcast payload is empty")

// Sender is the slice of the messaging gateway a broadcast needs.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string, kb gateway.Keyboard) error
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) error
}

// Payload is either inline text or a reference to an existing message to copy.
type Payload struct {
	Text       string
	FromChatID int64
	MessageID  int
}

// TextPayload returns a payload that sends text.
func TextPayload(text string) Payload {
	return Payload{Text: text}
}

// CopyPayload returns a payload that copies fromChatID/messageID.
func CopyPayload(fromChatID int64, messageID int) Payload {
	return Payload{FromChatID: fromChatID, MessageID: messageID}
}

// IsCopy reports whether the payload copies an existing message.
func (p Payload) IsCopy() bool {
	return p.MessageID != 0
}

// Validate returns ErrEmptyPayload when there is nothing to send.
func (p Payload) Validate() error {
	if !p.IsCopy() && strings.TrimSpace(p.Text) == "" {
		return ErrEmptyPayload
	}
	return nil
}

// Result counts per-recipient outcomes. Succeeded + Failed == number of recipients.
type Result struct {
	Succeeded int
	Failed    int
}

// Options tunes the dispatcher.
type Options struct {
	// Rate is the maximum sends per second. Zero or less disables pacing.
	Rate float64
	// Concurrency is the maximum in-flight sends. Zero or less means 1.
	Concurrency int
}

// Dispatcher sends broadcasts. Safe for concurrent use; each Broadcast gets its own limiter.
type Dispatcher struct {
	sender  Sender
	opts    Options
	emitter telemetry.EventEmitter
	logger  *zap.Logger
}

// NewDispatcher returns a Dispatcher. emitter and logger may be nil.
func NewDispatcher(sender Sender, opts Options, emitter telemetry.EventEmitter, logger *zap.Logger) *Dispatcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sender: sender, opts: opts, emitter: emitter, logger: logger}
}

func (d *Dispatcher) limiter() *rate.Limiter {
	if d.opts.Rate <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := int(d.opts.Rate)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(d.opts.Rate), burst)
}

// Broadcast attempts delivery to every recipient exactly once. A failed delivery is counted and never retried;
// it does not affect other recipients. Cancelling ctx fails the deliveries not yet sent.
func (d *Dispatcher) Broadcast(ctx context.Context, p Payload, recipients []int64) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	start := time.Now()
	lim := d.limiter()
	var ok, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(d.opts.Concurrency)
	for _, id := range recipients {
		g.Go(func() error {
			if err := lim.Wait(ctx); err != nil {
				failed.Add(1)
				return nil
			}
			if err := d.send(ctx, p, id); err != nil {
				failed.Add(1)
				d.logger.Debug("broadcast delivery failed", zap.Int64("user_id", id), zap.Error(err))
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Succeeded: int(ok.Load()), Failed: int(failed.Load())}
	d.logger.Info("broadcast finished",
		zap.Int("recipients", len(recipients)), zap.Int("succeeded", res.Succeeded), zap.Int("failed", res.Failed),
		zap.Duration("took", time.Since(start)))
	telemetry.EmitAsync(d.emitter, d.logger, telemetry.NewEvent(telemetry.EventBroadcastFinished, 0, map[string]string{
		"recipients": telemetry.Int(int64(len(recipients))),
		"succeeded":  telemetry.Int(int64(res.Succeeded)),
		"failed":     telemetry.Int(int64(res.Failed)),
	}))
	return res, nil
}

func (d *Dispatcher) send(ctx context.Context, p Payload, to int64) error {
	if p.IsCopy() {
		return d.sender.CopyMessage(ctx, to, p.FromChatID, p.MessageID, "")
	}
	return d.sender.SendText(ctx, to, p.Text, nil)
}
