package telemetry

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// Domain event types.
const (
	EventUserCreated       = "user.created"
	EventReferralCredited  = "referral.credited"
	EventContentUnlocked   = "content.unlocked"
	EventContentDenied     = "content.denied"
	EventContentCreated    = "content.created"
	EventChannelsChanged   = "channels.changed"
	EventBroadcastFinished = "broadcast.finished"
)

// Event is one domain event. UserID is the subject; zero means none.
type Event struct {
	Type       string            `json:"type"`
	UserID     int64             `json:"user_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewEvent returns an event stamped with the current time.
func NewEvent(eventType string, userID int64, attrs map[string]string) *Event {
	return &Event{Type: eventType, UserID: userID, Attributes: attrs, CreatedAt: time.Now().UTC()}
}

// Int formats n for use as an attribute value.
func Int(n int64) string {
	return strconv.FormatInt(n, 10)
}

// EventEmitter emits domain events (e.g. to OTel Logs or Kafka). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}

// Multi fans an event out to every non-nil emitter and joins their errors.
type Multi []EventEmitter

func (m Multi) Emit(ctx context.Context, event *Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
