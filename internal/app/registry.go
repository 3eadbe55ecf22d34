package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

type regEntry struct {
	Participant domain.Participant
	Link        core.PeerLink
	Token       domain.Token
	Cancel      context.CancelFunc
}

// Registry maps each live connection to its identity, transport link and
// current session token. It is a pure identity cache scoped to the process;
// restart resets it. Removal is driven by the transport disconnect signal,
// never by application logic, so an abruptly dropped connection is always
// cleaned up.
type Registry struct {
	mu      sync.RWMutex
	entries map[core.ConnID]*regEntry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[core.ConnID]*regEntry)}
}

func (r *Registry) Bind(id core.ConnID, link core.PeerLink, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[id] = &regEntry{Link: link, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("bound connection")
}

func (r *Registry) SetParticipant(id core.ConnID, p domain.Participant) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.Participant = p
	log.Info().Str("module", "app.registry").Str("conn", string(id)).
		Str("name", p.Name).Str("role", string(p.Role)).Msg("identity set")
	return true
}

func (r *Registry) Lookup(id core.ConnID) (domain.Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.Participant.Name == "" {
		return domain.Participant{}, false
	}
	return e.Participant, true
}

func (r *Registry) Link(id core.ConnID) (core.PeerLink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.Link == nil {
		return nil, false
	}
	return e.Link, true
}

func (r *Registry) SetToken(id core.ConnID, token domain.Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return false
	}
	e.Token = token
	return true
}

func (r *Registry) ClearToken(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Token = ""
	}
}

func (r *Registry) TokenOf(id core.ConnID) (domain.Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok || e.Token == "" {
		return "", false
	}
	return e.Token, true
}

func (r *Registry) Remove(id core.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("removed connection")
}

// Cancel fires the connection's cancel func, which tears the pumps down and
// lets the transport-level disconnect path run the usual cleanup.
func (r *Registry) Cancel(id core.ConnID) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}
