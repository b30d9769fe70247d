// Package keyboard builds the bot's inline keyboards from plain data. It knows nothing about access decisions.
package keyboard

import (
	"net/url"
	"strings"

	contentdomain "referral-gate-bot/internal/content/domain"
	"referral-gate-bot/internal/gateway"
)

// Callback action tags.
const (
	ActionCheckJoin   = "check_join"
	ActionViewCatalog = "view_catalog"
	ActionMyReferrals = "my_ref"
	ActionUnlock      = "unlock"
	ActionMainMenu    = "main_menu"
)

// Action is a decoded callback.
type Action struct {
	Tag string
	// Arg is the content id for ActionUnlock.
	Arg string
}

// ParseAction decodes "tag" or "tag:arg". Unknown tags are returned as-is; callers ignore them.
func ParseAction(data string) Action {
	tag, arg, _ := strings.Cut(data, ":")
	return Action{Tag: tag, Arg: arg}
}

// UnlockData encodes the unlock action for id.
func UnlockData(id string) string {
	return ActionUnlock + ":" + id
}

// ChannelURL returns a t.me link for @username channels. Numeric ids have no public link.
func ChannelURL(channel string) string {
	if name, ok := strings.CutPrefix(channel, "@"); ok && name != "" {
		return "https://t.me/" + name
	}
	return ""
}

// JoinPrompt lists one URL button per linkable channel and a final re-check button.
// Channels without a public link get no button; the prompt text names them instead.
func JoinPrompt(channels []string) gateway.Keyboard {
	kb := make(gateway.Keyboard, 0, len(channels)+1)
	for _, ch := range channels {
		link := ChannelURL(ch)
		if link == "" {
			continue
		}
		kb = append(kb, []gateway.Button{{Text: "Join " + ch, URL: link}})
	}
	return append(kb, []gateway.Button{{Text: "✅ I joined", Data: ActionCheckJoin}})
}

// MainMenu is the menu shown after the membership gate passes.
func MainMenu() gateway.Keyboard {
	return gateway.Keyboard{
		{{Text: "📚 Catalog", Data: ActionViewCatalog}},
		{{Text: "👥 My referrals", Data: ActionMyReferrals}},
	}
}

// Catalog renders one unlock button per item, in catalog order, then a back button.
// An empty catalog yields only the back button.
func Catalog(items []*contentdomain.Item) gateway.Keyboard {
	kb := make(gateway.Keyboard, 0, len(items)+1)
	for _, it := range items {
		kb = append(kb, []gateway.Button{{Text: it.Title, Data: UnlockData(it.ID)}})
	}
	return append(kb, BackRow())
}

// BackRow returns to the main menu.
func BackRow() []gateway.Button {
	return []gateway.Button{{Text: "⬅️ Back", Data: ActionMainMenu}}
}

// ReferralScreen offers sharing the link and going back.
func ReferralScreen(link string) gateway.Keyboard {
	return gateway.Keyboard{
		{{Text: "📤 Share link", URL: "https://t.me/share/url?url=" + url.QueryEscape(link)}},
		BackRow(),
	}
}
