package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

// handleNegotiation relays an offer, answer or ICE candidate to the sender's
// counterpart. The payload crosses the relay as raw bytes: no parsing, no
// reordering, no buffering. When the counterpart is not there yet the frame
// is dropped without telling the sender; that race is a normal part of call
// setup, and buffering candidates against it is the endpoint's job.
func (ctl *Controller) handleNegotiation(id core.ConnID, kind string, data []byte) {
	var p struct {
		Type    string          `json:"type"`
		Token   string          `json:"token"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("kind", kind).Msg("bad negotiation payload")
		return
	}

	out := struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}{
		Type:    kind,
		Payload: p.Payload,
	}
	ctl.Gateway.Negotiate(domain.Token(p.Token), id, mustFrame(out))
}
