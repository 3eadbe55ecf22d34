package app

import (
	"sync"
	"time"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

// Session is one pairing between an initiator and a responder. The initiator
// is set at creation and never changes; the responder slot is written at most
// once. While the responder slot is empty an expiry timer is armed.
type Session struct {
	Token         domain.Token
	InitiatorID   core.ConnID
	InitiatorName string
	ResponderID   core.ConnID
	ResponderName string
	CreatedAt     time.Time

	expiry *time.Timer
}

func (s *Session) Joined() bool { return s.ResponderID != "" }

func (s *Session) Member(id core.ConnID) bool {
	return id == s.InitiatorID || (s.ResponderID != "" && id == s.ResponderID)
}

// Counterpart returns the other member's connection. ok is false when the
// sender is not a member or the other slot is still empty.
func (s *Session) Counterpart(from core.ConnID) (core.ConnID, bool) {
	switch from {
	case s.InitiatorID:
		return s.ResponderID, s.ResponderID != ""
	case s.ResponderID:
		if s.ResponderID == "" {
			return "", false
		}
		return s.InitiatorID, true
	}
	return "", false
}

// Store owns every live session record, keyed by token. All check-then-set
// transitions run under the store mutex: handlers run on per-connection read
// pumps and expiry runs on timer goroutines, so the mutex is what makes
// join-vs-join and join-vs-expire atomic per record.
type Store struct {
	mu       sync.Mutex
	sessions map[domain.Token]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[domain.Token]*Session)}
}

func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.Token] = s
}

// Snapshot returns a copy of the record; callers never share the live struct.
func (st *Store) Snapshot(token domain.Token) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Arm attaches an expiry timer to an unjoined session. No-op if the session
// is gone or already joined by the time the caller gets here.
func (st *Store) Arm(token domain.Token, d time.Duration, fire func()) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	if !ok || s.Joined() {
		return
	}
	s.expiry = time.AfterFunc(d, fire)
}

// AdmitResponder atomically fills the responder slot and disarms the expiry
// timer. Exactly one of two racing admits can win; the loser observes the
// filled slot and gets ErrSessionFull.
func (st *Store) AdmitResponder(token domain.Token, id core.ConnID, name string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.Joined() {
		return Session{}, ErrSessionFull
	}
	s.ResponderID = id
	s.ResponderName = name
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	return *s, nil
}

// RemoveIfUnjoined is the expiry path. The timer may fire after a join or an
// end already won; both cases are caught here and treated as no-ops.
func (st *Store) RemoveIfUnjoined(token domain.Token) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	if !ok || s.Joined() {
		return Session{}, false
	}
	s.expiry = nil
	delete(st.sessions, token)
	return *s, true
}

// Remove deletes the record when by is a member, and releases any armed
// timer. The membership check and the delete are one atomic step, so a
// non-member can never tear down somebody else's session and the returned
// snapshot names exactly the members that still need a farewell.
func (st *Store) Remove(token domain.Token, by core.ConnID) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	if !ok || !s.Member(by) {
		return Session{}, false
	}
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
	delete(st.sessions, token)
	return *s, true
}

// Counterpart resolves the other member under the store lock, so a relay
// never observes a half-written responder slot.
func (st *Store) Counterpart(token domain.Token, from core.ConnID) (core.ConnID, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	if !ok {
		return "", false
	}
	return s.Counterpart(from)
}

// Others returns every member except the sender. Non-members get nothing;
// that keeps a stray token from turning into a broadcast source.
func (st *Store) Others(token domain.Token, from core.ConnID) []core.ConnID {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[token]
	if !ok || !s.Member(from) {
		return nil
	}
	out := make([]core.ConnID, 0, 1)
	if s.InitiatorID != from {
		out = append(out, s.InitiatorID)
	}
	if s.ResponderID != "" && s.ResponderID != from {
		out = append(out, s.ResponderID)
	}
	return out
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}
