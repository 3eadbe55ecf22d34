package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

// HistoryRecorder is the persistence collaborator. The gateway only issues
// RecordSession, at the moment a join succeeds; queries belong to the REST
// surface.
type HistoryRecorder interface {
	RecordSession(ctx context.Context, initiatorName, responderName string) (int64, error)
}

// Gateway is the single entry point between transport events and the
// lifecycle/relay/broadcast components. Frames arrive already marshaled from
// the signal adapter; the gateway decides who gets them.
type Gateway struct {
	Registry *Registry
	Store    *Store
	Sessions *Lifecycle
	Relay    *Relay
	Channels *Channels
	History  HistoryRecorder

	// ExpiryNotice is assigned by the signal controller so the initiator of
	// an expired session hears about the teardown. May be nil.
	ExpiryNotice func(Session)
}

func NewGateway(ttl time.Duration, history HistoryRecorder) *Gateway {
	reg := NewRegistry()
	store := NewStore()
	g := &Gateway{
		Registry: reg,
		Store:    store,
		Sessions: NewLifecycle(store, ttl),
		Relay:    &Relay{Store: store, Registry: reg},
		Channels: &Channels{Store: store, Registry: reg},
		History:  history,
	}
	g.Sessions.Expired = g.onExpired
	return g
}

func (g *Gateway) Connect(id core.ConnID, link core.PeerLink, cancel context.CancelFunc) {
	g.Registry.Bind(id, link, cancel)
}

// Disconnect runs on the transport disconnect signal. Registry cleanup always
// happens; a disconnect while Joined is an implicit end-of-call and farewell
// is delivered to the remaining member so nobody is left in an orphaned
// session. An unjoined session whose initiator left is torn down outright.
func (g *Gateway) Disconnect(id core.ConnID, farewell core.Frame) {
	if token, ok := g.Registry.TokenOf(id); ok {
		g.teardown(token, id, farewell)
	}
	g.Registry.Remove(id)
}

// CreateSession records the caller's identity and opens a fresh session with
// an armed expiry timer.
func (g *Gateway) CreateSession(id core.ConnID, name string) (Session, error) {
	p, err := domain.NewParticipant(name, domain.RoleInitiator)
	if err != nil {
		return Session{}, err
	}
	g.Registry.SetParticipant(id, p)
	s := g.Sessions.Create(id, p.Name)
	g.Registry.SetToken(id, s.Token)
	return s, nil
}

// JoinSession admits the caller as the responder and fires the history hook.
// A failed history write is logged and ignored; pairing does not depend on
// bookkeeping.
func (g *Gateway) JoinSession(token domain.Token, id core.ConnID, name string) (Session, error) {
	p, err := domain.NewParticipant(name, domain.RoleResponder)
	if err != nil {
		return Session{}, err
	}
	s, err := g.Sessions.Join(token, id, p.Name)
	if err != nil {
		return Session{}, err
	}
	g.Registry.SetParticipant(id, p)
	g.Registry.SetToken(id, token)
	if g.History != nil {
		go func(initiator, responder string) {
			if _, err := g.History.RecordSession(context.Background(), initiator, responder); err != nil {
				log.Error().Err(err).Str("module", "app.gateway").Msg("record session history")
			}
		}(s.InitiatorName, s.ResponderName)
	}
	return s, nil
}

// Negotiate forwards an offer/answer/candidate frame to the counterpart, or
// drops it silently.
func (g *Gateway) Negotiate(token domain.Token, from core.ConnID, frame core.Frame) {
	g.Relay.Forward(token, from, frame)
}

// Broadcast fans a chat or editor-sync frame to the other session members.
// A member whose send buffer stays full is disconnected rather than allowed
// to stall the session.
func (g *Gateway) Broadcast(token domain.Token, from core.ConnID, frame core.Frame) {
	res := g.Channels.Broadcast(token, from, frame)
	for _, slow := range res.Dropped {
		log.Warn().Str("module", "app.gateway").Str("conn", string(slow)).Msg("kicking slow member")
		g.Registry.Cancel(slow)
	}
}

// EndSession handles an explicit end-call from a member.
func (g *Gateway) EndSession(token domain.Token, from core.ConnID, farewell core.Frame) {
	g.teardown(token, from, farewell)
}

func (g *Gateway) teardown(token domain.Token, from core.ConnID, farewell core.Frame) {
	s, ok := g.Sessions.End(token, from)
	if !ok {
		return
	}
	g.Registry.ClearToken(from)
	other, ok := s.Counterpart(from)
	if !ok {
		return
	}
	g.Registry.ClearToken(other)
	if farewell == nil {
		return
	}
	if link, ok := g.Registry.Link(other); ok {
		if err := link.TrySend(farewell); err != nil {
			log.Warn().Err(err).Str("module", "app.gateway").
				Str("conn", string(other)).Msg("farewell send failed")
		}
	}
}

func (g *Gateway) onExpired(s Session) {
	g.Registry.ClearToken(s.InitiatorID)
	if g.ExpiryNotice != nil {
		g.ExpiryNotice(s)
	}
}
