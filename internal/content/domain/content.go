package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrContentNotFound is returned when a content id does not resolve to a stored item.
	ErrContentNotFound = errors.New("content not found")
	// ErrIncompleteItem is returned when an item lacks a title or a usable payload.
	ErrIncompleteItem = errors.New("content item is incomplete")
)

// PayloadKind says how an item is delivered.
type PayloadKind string

const (
	// PayloadText is delivered as a plain message.
	PayloadText PayloadKind = "text"
	// PayloadMedia is delivered by copying a stored message by reference.
	PayloadMedia PayloadKind = "media"
)

// Payload is either inline text or a reference to an existing message plus an optional caption.
type Payload struct {
	Kind      PayloadKind
	Text      string
	ChatID    int64
	MessageID int
	Caption   string
}

// TextPayload returns an inline text payload.
func TextPayload(text string) Payload {
	return Payload{Kind: PayloadText, Text: text}
}

// MediaPayload returns a payload that copies messageID from chatID.
func MediaPayload(chatID int64, messageID int, caption string) Payload {
	return Payload{Kind: PayloadMedia, ChatID: chatID, MessageID: messageID, Caption: caption}
}

// Validate reports ErrIncompleteItem when the payload cannot be delivered.
func (p Payload) Validate() error {
	switch p.Kind {
	case PayloadText:
		if strings.TrimSpace(p.Text) == "" {
			return ErrIncompleteItem
		}
	case PayloadMedia:
		if p.ChatID == 0 || p.MessageID <= 0 {
			return ErrIncompleteItem
		}
	default:
		return ErrIncompleteItem
	}
	return nil
}

// Item is one unlockable catalog entry. Seq orders the catalog by insertion.
type Item struct {
	ID        string
	Seq       int64
	Title     string
	Payload   Payload
	CreatedBy int64
	CreatedAt time.Time
}

// Validate reports ErrIncompleteItem unless the item has a title and a deliverable payload.
func (i *Item) Validate() error {
	if i == nil || strings.TrimSpace(i.Title) == "" {
		return ErrIncompleteItem
	}
	return i.Payload.Validate()
}
