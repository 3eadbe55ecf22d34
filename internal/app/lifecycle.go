package app

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

// Lifecycle drives sessions through Created → Joined → Terminated.
// Created → Terminated happens via expiry, Created → Joined via a successful
// join, Joined → Terminated via an explicit or implicit end. Nothing ever
// re-enters Created.
type Lifecycle struct {
	Store *Store
	TTL   time.Duration

	// Expired is called after the expiry timer wins the race and removed an
	// unjoined session. Assigned by the gateway owner; may be nil.
	Expired func(Session)
}

func NewLifecycle(store *Store, ttl time.Duration) *Lifecycle {
	return &Lifecycle{Store: store, TTL: ttl}
}

// Create makes a fresh session with an empty responder slot and arms its
// expiry timer. Every call produces a new session.
func (lc *Lifecycle) Create(id core.ConnID, name string) Session {
	s := &Session{
		Token:         domain.NewToken(),
		InitiatorID:   id,
		InitiatorName: name,
		CreatedAt:     time.Now(),
	}
	// Snapshot before Put: once the record is published only the store
	// mutex guards it, and a short TTL can have the expiry goroutine
	// mutating it right away.
	snap := *s
	lc.Store.Put(s)
	token := snap.Token
	lc.Store.Arm(token, lc.TTL, func() { lc.expire(token) })
	log.Info().Str("module", "app.lifecycle").Str("token", string(token)).
		Str("initiator", name).Dur("ttl", lc.TTL).Msg("session created")
	return snap
}

// Join admits a responder. The check-then-set runs atomically in the store;
// on success the expiry timer is already disarmed when this returns.
func (lc *Lifecycle) Join(token domain.Token, id core.ConnID, name string) (Session, error) {
	s, err := lc.Store.AdmitResponder(token, id, name)
	if err != nil {
		log.Warn().Str("module", "app.lifecycle").Str("token", string(token)).
			Err(err).Msg("join rejected")
		return Session{}, err
	}
	log.Info().Str("module", "app.lifecycle").Str("token", string(token)).
		Str("responder", name).Msg("responder joined")
	return s, nil
}

// End tears a session down on an explicit call-ended notification or an
// implicit one (disconnect), on behalf of the member by. Safe against a
// missing record and against a non-member token.
func (lc *Lifecycle) End(token domain.Token, by core.ConnID) (Session, bool) {
	s, ok := lc.Store.Remove(token, by)
	if !ok {
		return Session{}, false
	}
	log.Info().Str("module", "app.lifecycle").Str("token", string(token)).Msg("session ended")
	return s, true
}

// expire runs on the timer goroutine. The session may have been joined or
// ended between the timer firing and this running; the store double-checks
// and we treat the lost race as a no-op.
func (lc *Lifecycle) expire(token domain.Token) {
	s, ok := lc.Store.RemoveIfUnjoined(token)
	if !ok {
		return
	}
	log.Info().Str("module", "app.lifecycle").Str("token", string(token)).Msg("session expired unjoined")
	if lc.Expired != nil {
		lc.Expired(s)
	}
}
