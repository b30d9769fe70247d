package ingestion

import (
	"sync"
	"time"
)

// DefaultSessionTTL is how long an untouched ingestion session survives.
const DefaultSessionTTL = 30 * time.Minute

// State is the ingestion workflow state for one administrator.
type State int

const (
	StateIdle State = iota
	StateAwaitingTitle
	StateAwaitingContent
)

func (s State) String() string {
	switch s {
	case StateAwaitingTitle:
		return "awaiting_title"
	case StateAwaitingContent:
		return "awaiting_content"
	default:
		return "idle"
	}
}

// Session is one administrator's in-progress item. Title is set only in StateAwaitingContent.
type Session struct {
	State State
	Title string
}

type entry struct {
	session   Session
	expiresAt time.Time
}

// SessionStore holds sessions in memory keyed by administrator id. Sessions do not survive restarts.
type SessionStore struct {
	mu   sync.RWMutex
	m    map[int64]entry
	ttl  time.Duration
	nowF func() time.Time
}

// NewSessionStore returns an empty store. ttl <= 0 selects DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		m:    make(map[int64]entry),
		ttl:  ttl,
		nowF: time.Now,
	}
}

// Put replaces the session for actor and restarts its TTL.
func (s *SessionStore) Put(actor int64, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[actor] = entry{session: session, expiresAt: s.nowF().Add(s.ttl)}
}

// Get returns the session for actor. Missing or expired sessions read as Idle.
func (s *SessionStore) Get(actor int64) Session {
	s.mu.RLock()
	e, ok := s.m[actor]
	s.mu.RUnlock()
	if !ok {
		return Session{State: StateIdle}
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, actor)
		s.mu.Unlock()
		return Session{State: StateIdle}
	}
	return e.session
}

// Delete drops the session for actor and reports whether a live one existed.
func (s *SessionStore) Delete(actor int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[actor]
	delete(s.m, actor)
	return ok && e.expiresAt.After(s.nowF())
}

// liveLocked returns actor's session if it exists and has not expired. Caller holds mu.
func (s *SessionStore) liveLocked(actor int64) (Session, bool) {
	e, ok := s.m[actor]
	if !ok || !e.expiresAt.After(s.nowF()) {
		return Session{State: StateIdle}, false
	}
	return e.session, true
}

// Advance replaces actor's session with next only if it is still live and in state from.
// Concurrent messages race for the same step; exactly one wins.
func (s *SessionStore) Advance(actor int64, from State, next Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.liveLocked(actor)
	if !ok || cur.State != from {
		return false
	}
	s.m[actor] = entry{session: next, expiresAt: s.nowF().Add(s.ttl)}
	return true
}

// Take removes and returns actor's session if it is live and in state want.
// The caller owns the claimed session until it calls Restore or drops it.
func (s *SessionStore) Take(actor int64, want State) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.liveLocked(actor)
	if !ok || cur.State != want {
		return Session{State: StateIdle}, false
	}
	delete(s.m, actor)
	return cur, true
}

// Restore puts a claimed session back unless a newer live one was started in the meantime.
func (s *SessionStore) Restore(actor int64, session Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveLocked(actor); ok {
		return false
	}
	s.m[actor] = entry{session: session, expiresAt: s.nowF().Add(s.ttl)}
	return true
}
