// Package telegram implements gateway.Gateway on the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"referral-gate-bot/internal/gateway"
	membershipdomain "referral-gate-bot/internal/membership/domain"
)

const (
	pollTimeoutSeconds = 60
	httpTimeout        = 90 * time.Second
)

// botAPI is the part of *tgbotapi.BotAPI the client uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Client is the Telegram gateway.
type Client struct {
	api      botAPI
	username string
	logger   *zap.Logger
}

var _ gateway.Gateway = (*Client)(nil)

// New authenticates with token and returns a Client.
func New(token string, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram: empty bot token")
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: httpTimeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: authenticate: %w", err)
	}
	return newClient(api, api.Self.UserName, logger), nil
}

func newClient(api botAPI, username string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, username: username, logger: logger}
}

// Username returns the bot's @username without the @.
func (c *Client) Username() string {
	return c.username
}

// do runs fn and gives up when ctx ends first. The API call itself is bounded by the HTTP client timeout.
func do[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, kb gateway.Keyboard) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup := toMarkup(kb); markup != nil {
		msg.ReplyMarkup = *markup
	}
	_, err := do(ctx, func() (tgbotapi.Message, error) { return c.api.Send(msg) })
	return err
}

// EditText treats "message is not modified" as success; re-rendering an unchanged screen is routine.
func (c *Client) EditText(ctx context.Context, chatID int64, messageID int, text string, kb gateway.Keyboard) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = toMarkup(kb)
	_, err := do(ctx, func() (*tgbotapi.APIResponse, error) { return c.api.Request(edit) })
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (c *Client) CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) error {
	cp := tgbotapi.NewCopyMessage(toChatID, fromChatID, messageID)
	cp.Caption = caption
	_, err := do(ctx, func() (*tgbotapi.APIResponse, error) { return c.api.Request(cp) })
	return err
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := do(ctx, func() (*tgbotapi.APIResponse, error) { return c.api.Request(cb) })
	return err
}

// ChatMember resolves channel as a numeric chat id or an @username.
func (c *Client) ChatMember(ctx context.Context, channel string, userID int64) (membershipdomain.ChatMember, error) {
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: tgbotapi.ChatConfigWithUser{UserID: userID}}
	if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
		cfg.ChatConfigWithUser.ChatID = id
	} else {
		cfg.ChatConfigWithUser.SuperGroupUsername = channel
	}
	m, err := do(ctx, func() (tgbotapi.ChatMember, error) { return c.api.GetChatMember(cfg) })
	if err != nil {
		return membershipdomain.ChatMember{}, err
	}
	return membershipdomain.ChatMember{
		Status:      membershipdomain.Status(m.Status),
		StillMember: m.IsMember,
	}, nil
}

// Updates long-polls for updates until ctx ends, then closes the returned channel.
func (c *Client) Updates(ctx context.Context) <-chan gateway.Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeoutSeconds
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	in := c.api.GetUpdatesChan(cfg)
	out := make(chan gateway.Update)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				c.api.StopReceivingUpdates()
				return
			case u, ok := <-in:
				if !ok {
					return
				}
				conv, ok := ConvertUpdate(u)
				if !ok {
					c.logger.Debug("skipping unsupported update", zap.Int("update_id", u.UpdateID))
					continue
				}
				select {
				case out <- conv:
				case <-ctx.Done():
					c.api.StopReceivingUpdates()
					return
				}
			}
		}
	}()
	return out
}

func toMarkup(kb gateway.Keyboard) *tgbotapi.InlineKeyboardMarkup {
	if len(kb) == 0 {
		return nil
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		rows = append(rows, buttons)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}
