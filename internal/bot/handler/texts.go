package handler

import (
	"fmt"
	"strings"

	"referral-gate-bot/internal/broadcast"
	"referral-gate-bot/internal/gateway"
	"referral-gate-bot/internal/keyboard"
)

const (
	textTryAgain        = "Something went wrong. Please try again in a moment."
	textJoinPrompt      = "Welcome! Join our channels to continue, then tap \"I joined\"."
	textNotJoined       = "You haven't joined every channel yet."
	textMainMenu        = "Main menu"
	textEmptyCatalog    = "The catalog is empty for now. Check back later."
	textUnavailable     = "This item is no longer available."
	textGateUnavailable = "Couldn't check your points right now. Please try again later."
	textDeliveryFailed  = "Delivery failed. Your points were not spent."

	textAddContentStart   = "Send the title for the new item, or /cancel."
	textTitleRejected     = "The title can't be empty. Send it as text, or as media with a caption."
	textContentRejected   = "That message has no content. Send text or media."
	textStoreFailed       = "Couldn't save the item. Send the content again, or /cancel."
	textCancelled         = "Cancelled."
	textNothingToCancel   = "Nothing to cancel."
	textBroadcastUsage    = "Reply to a message with /broadcast, or send /broadcast <text>."
	textChannelUsage      = "Usage: %s @username or numeric chat id."
	textStaticChannels    = "Channels are fixed by configuration (CHANNEL_MODE=static)."
	textChannelsFailed    = "Couldn't update channels. Please try again."
	textNoChannels        = "No channels are required; everyone passes the membership check."
	textAlreadyRequired   = "%s is already required."
	textNotRequired       = "%s is not a required channel."
	textStatsFailed       = "Couldn't load stats."
	textBroadcastStartFmt = "Broadcasting to %d users…"
)

// joinPromptText names every required channel; channels without a public link carry an invite hint.
func joinPromptText(channels []string) string {
	if len(channels) == 0 {
		return textJoinPrompt
	}
	var b strings.Builder
	b.WriteString(textJoinPrompt)
	b.WriteString("\n")
	for _, ch := range channels {
		if keyboard.ChannelURL(ch) != "" {
			fmt.Fprintf(&b, "\n• %s", ch)
		} else {
			fmt.Fprintf(&b, "\n• Private channel %s (ask the admin for an invite link)", ch)
		}
	}
	return b.String()
}

func welcomeText(u gateway.User) string {
	if name := u.DisplayName(); name != "" {
		return "Welcome, " + name + "! Pick an option below."
	}
	return "Welcome! Pick an option below."
}

func catalogText(balance, threshold int64) string {
	return fmt.Sprintf("📚 Catalog\nEach item needs %d points. You have %d.", threshold, balance)
}

func referralText(balance, referrals int64, link string) string {
	return fmt.Sprintf("👥 Your referrals: %d\n💰 Your points: %d\n🔗 Your link: %s", referrals, balance, link)
}

func referralNotice(name string, balance int64) string {
	who := "Someone"
	if name != "" {
		who = name
	}
	return fmt.Sprintf("🎉 New referral! %s joined with your link. Your balance: %d points.", who, balance)
}

func shortfallText(shortfall, balance, threshold int64) string {
	return fmt.Sprintf("❌ You need %d more points (you have %d of %d). Invite friends to earn more.", shortfall, balance, threshold)
}

func unlockedText(charged bool, spent int64) string {
	if charged {
		return fmt.Sprintf("✅ Unlocked! %d points spent.", spent)
	}
	return "✅ Unlocked!"
}

func textItem(title, body string) string {
	return title + "\n\n" + body
}

func titleAcceptedText(title string) string {
	return fmt.Sprintf("Title saved: %q. Now send the content (text or media).", title)
}

func createdText(title string) string {
	return fmt.Sprintf("✅ Saved %q to the catalog.", title)
}

func channelsText(channels []string) string {
	if len(channels) == 0 {
		return textNoChannels
	}
	return "Required channels:\n" + strings.Join(channels, "\n")
}

func broadcastDoneText(res broadcast.Result) string {
	return fmt.Sprintf("Broadcast finished: %d delivered, %d failed.", res.Succeeded, res.Failed)
}

func statsText(users, items int64, channels int) string {
	return fmt.Sprintf("📊 Users: %d\n📚 Items: %d\n📢 Required channels: %d", users, items, channels)
}
