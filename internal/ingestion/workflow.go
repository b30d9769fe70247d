// Package ingestion is the administrator's two-step "title, then content" workflow for adding catalog items.
package ingestion

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"referral-gate-bot/internal/content/domain"
)

// Creator stores a finished item.
type Creator interface {
	Create(ctx context.Context, title string, payload domain.Payload, createdBy int64) (*domain.Item, error)
}

// Input is one inbound administrator message, reduced to what the workflow uses.
type Input struct {
	Text    string
	Caption string
	// ChatID and MessageID locate the message so media can be copied later by reference.
	ChatID    int64
	MessageID int
	HasMedia  bool
}

// Outcome says what Handle did with a message.
type Outcome int

const (
	// OutcomeIgnored means the message was not workflow input (non-admin or no session).
	OutcomeIgnored Outcome = iota
	// OutcomeTitleAccepted moved the session to AwaitingContent.
	OutcomeTitleAccepted
	// OutcomeTitleRejected kept the session in AwaitingTitle because the title was empty.
	OutcomeTitleRejected
	// OutcomeContentRejected kept the session in AwaitingContent because the message had no usable payload.
	OutcomeContentRejected
	// OutcomeCreated stored the item and returned the session to Idle.
	OutcomeCreated
)

// Result is the outcome of Handle. Title is the accepted title; Item is set on OutcomeCreated.
type Result struct {
	Outcome Outcome
	Title   string
	Item    *domain.Item
}

// Workflow drives the per-administrator session state machine.
type Workflow struct {
	adminID  int64
	sessions *SessionStore
	catalog  Creator
	logger   *zap.Logger
}

// NewWorkflow returns a Workflow that only reacts to adminID.
func NewWorkflow(adminID int64, sessions *SessionStore, catalog Creator, logger *zap.Logger) *Workflow {
	if sessions == nil {
		sessions = NewSessionStore(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{adminID: adminID, sessions: sessions, catalog: catalog, logger: logger}
}

// Start resets actor's session to AwaitingTitle, discarding any half-finished item.
// Returns false for non-administrators.
func (w *Workflow) Start(actor int64) bool {
	if actor != w.adminID {
		return false
	}
	w.sessions.Put(actor, Session{State: StateAwaitingTitle})
	return true
}

// Cancel returns actor's session to Idle and reports whether one was active.
func (w *Workflow) Cancel(actor int64) bool {
	if actor != w.adminID {
		return false
	}
	return w.sessions.Delete(actor)
}

// State returns actor's current state.
func (w *Workflow) State(actor int64) State {
	return w.sessions.Get(actor).State
}

// maxStepAttempts bounds how often Handle re-reads the session after losing a race to a concurrent message.
const maxStepAttempts = 3

// Handle feeds one message into actor's session. Each state transition is claimed atomically in the
// session store, so concurrent messages (an album arrives as several updates) advance the session once.
// Store failures leave the session where it was.
func (w *Workflow) Handle(ctx context.Context, actor int64, in Input) (Result, error) {
	if actor != w.adminID {
		return Result{Outcome: OutcomeIgnored}, nil
	}
	for attempt := 0; attempt < maxStepAttempts; attempt++ {
		s := w.sessions.Get(actor)
		switch s.State {
		case StateAwaitingTitle:
			title := strings.TrimSpace(in.Text)
			if title == "" {
				title = strings.TrimSpace(in.Caption)
			}
			if title == "" {
				// Advance to the same state restarts the TTL.
				if !w.sessions.Advance(actor, StateAwaitingTitle, s) {
					continue
				}
				return Result{Outcome: OutcomeTitleRejected}, nil
			}
			if !w.sessions.Advance(actor, StateAwaitingTitle, Session{State: StateAwaitingContent, Title: title}) {
				continue
			}
			return Result{Outcome: OutcomeTitleAccepted, Title: title}, nil

		case StateAwaitingContent:
			claimed, ok := w.sessions.Take(actor, StateAwaitingContent)
			if !ok {
				continue
			}
			return w.createItem(ctx, actor, claimed, in)

		default:
			return Result{Outcome: OutcomeIgnored}, nil
		}
	}
	return Result{Outcome: OutcomeIgnored}, nil
}

// createItem stores the payload under the claimed session's title. On failure the session is put back
// unless the administrator restarted the workflow meanwhile.
func (w *Workflow) createItem(ctx context.Context, actor int64, claimed Session, in Input) (Result, error) {
	payload := domain.TextPayload(in.Text)
	if in.HasMedia {
		payload = domain.MediaPayload(in.ChatID, in.MessageID, in.Caption)
	}
	item, err := w.catalog.Create(ctx, claimed.Title, payload, actor)
	if err != nil {
		w.sessions.Restore(actor, claimed)
		if errors.Is(err, domain.ErrIncompleteItem) {
			return Result{Outcome: OutcomeContentRejected, Title: claimed.Title}, nil
		}
		w.logger.Error("ingestion: store item failed", zap.String("title", claimed.Title), zap.Error(err))
		return Result{Outcome: OutcomeIgnored, Title: claimed.Title}, err
	}
	return Result{Outcome: OutcomeCreated, Title: claimed.Title, Item: item}, nil
}
