package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"referral-gate-bot/internal/gateway"
)

// ConvertUpdate maps a Bot API update to a gateway.Update. Updates other than messages
// and callback queries, and updates without a sender, are reported as not ok.
func ConvertUpdate(u tgbotapi.Update) (gateway.Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.From == nil {
			return gateway.Update{}, false
		}
		cb := &gateway.Callback{ID: cq.ID, From: convertUser(cq.From), Data: cq.Data}
		if cq.Message != nil {
			cb.MessageID = cq.Message.MessageID
			if cq.Message.Chat != nil {
				cb.ChatID = cq.Message.Chat.ID
			}
		}
		if cb.ChatID == 0 {
			cb.ChatID = cb.From.ID
		}
		return gateway.Update{ID: u.UpdateID, Callback: cb}, true
	case u.Message != nil:
		if u.Message.From == nil || u.Message.Chat == nil {
			return gateway.Update{}, false
		}
		return gateway.Update{ID: u.UpdateID, Message: convertMessage(u.Message)}, true
	default:
		return gateway.Update{}, false
	}
}

func convertMessage(m *tgbotapi.Message) *gateway.Message {
	out := &gateway.Message{
		ID:       m.MessageID,
		Text:     m.Text,
		Caption:  m.Caption,
		HasMedia: hasMedia(m),
	}
	if m.Chat != nil {
		out.ChatID = m.Chat.ID
	}
	if m.From != nil {
		out.From = convertUser(m.From)
	}
	if m.ReplyToMessage != nil {
		out.ReplyTo = convertMessage(m.ReplyToMessage)
	}
	return out
}

func convertUser(u *tgbotapi.User) gateway.User {
	return gateway.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}

func hasMedia(m *tgbotapi.Message) bool {
	return len(m.Photo) > 0 ||
		m.Video != nil ||
		m.Document != nil ||
		m.Audio != nil ||
		m.Voice != nil ||
		m.Animation != nil ||
		m.VideoNote != nil ||
		m.Sticker != nil
}
