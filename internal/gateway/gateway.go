// Package gateway defines the messaging transport the bot talks through and the inbound update shapes.
// internal/gateway/telegram implements it; tests use in-memory fakes.
package gateway

import (
	"context"
	"strings"

	membershipdomain "referral-gate-bot/internal/membership/domain"
)

// Button is one inline keyboard button. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// Gateway sends messages and queries chat membership. Every method may fail with a transport error.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string, kb Keyboard) error
	EditText(ctx context.Context, chatID int64, messageID int, text string, kb Keyboard) error
	// CopyMessage re-sends fromChatID/messageID into toChatID without a forward header.
	// A non-empty caption replaces the original caption.
	CopyMessage(ctx context.Context, toChatID, fromChatID int64, messageID int, caption string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	ChatMember(ctx context.Context, channel string, userID int64) (membershipdomain.ChatMember, error)
}

// User is the sender of an update.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns "First Last", falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}

// Message is an inbound chat message.
type Message struct {
	ID       int
	ChatID   int64
	From     User
	Text     string
	Caption  string
	HasMedia bool
	ReplyTo  *Message
}

// Command splits a "/cmd args" message. Returns "" when the text is not a command.
// A "@botname" suffix on the command is dropped.
func (m *Message) Command() (cmd, args string) {
	if m == nil || !strings.HasPrefix(m.Text, "/") {
		return "", ""
	}
	head, rest, _ := strings.Cut(m.Text, " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), strings.TrimSpace(rest)
}

// Callback is a button press.
type Callback struct {
	ID        string
	From      User
	ChatID    int64
	MessageID int
	Data      string
}

// Update is one inbound event; exactly one of Message and Callback is set.
type Update struct {
	ID       int
	Message  *Message
	Callback *Callback
}

// Kind names the update for logs and metrics.
func (u Update) Kind() string {
	switch {
	case u.Callback != nil:
		return "callback"
	case u.Message != nil:
		if cmd, _ := u.Message.Command(); cmd != "" {
			return "command"
		}
		return "message"
	default:
		return "other"
	}
}

// Sender returns the id of whoever caused the update, or 0.
func (u Update) Sender() int64 {
	switch {
	case u.Callback != nil:
		return u.Callback.From.ID
	case u.Message != nil:
		return u.Message.From.ID
	default:
		return 0
	}
}
