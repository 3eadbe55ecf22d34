package app

import (
	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

// Relay forwards negotiation frames (offer, answer, ICE candidate) to the
// sender's counterpart. It never interprets, orders, or buffers payloads:
// candidate buffering against remote-description races belongs to the
// receiving endpoint, which alone knows when its negotiation state is ready.
type Relay struct {
	Store    *Store
	Registry *Registry
}

// Forward delivers frame verbatim to the other member of the session.
// A missing session, missing counterpart, or dead link drops the frame
// silently; before both members are present that is an expected transient,
// not a failure, so no error ever reaches the sender.
func (r *Relay) Forward(token domain.Token, from core.ConnID, frame core.Frame) bool {
	target, ok := r.Store.Counterpart(token, from)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("token", string(token)).
			Str("from", string(from)).Msg("no counterpart, frame dropped")
		return false
	}
	link, ok := r.Registry.Link(target)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("token", string(token)).
			Str("to", string(target)).Msg("counterpart link gone, frame dropped")
		return false
	}
	if err := link.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.relay").Str("token", string(token)).
			Str("to", string(target)).Msg("relay send failed")
		return false
	}
	return true
}
