package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/app"
	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

// Reason codes surfaced on relay-error events. These are the caller's UI
// contract; everything else fails silently by design of the relay.
const (
	reasonSessionNotFound = "SessionNotFound"
	reasonSessionFull     = "SessionFull"
	reasonInvalidName     = "InvalidName"
	reasonTooManyRequests = "TooManyRequests"
)

type relayError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (ctl *Controller) sendError(c core.PeerLink, reason string) {
	ctl.sendJSON(c, relayError{Type: "relay-error", Reason: reason})
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, app.ErrSessionNotFound):
		return reasonSessionNotFound
	case errors.Is(err, app.ErrSessionFull):
		return reasonSessionFull
	case errors.Is(err, domain.ErrNameEmpty), errors.Is(err, domain.ErrNameTooLong):
		return reasonInvalidName
	}
	return reasonInvalidName
}

func (ctl *Controller) handleCreate(id core.ConnID, c *wsPeerLink, data []byte) {
	var p struct {
		Type          string `json:"type"`
		InitiatorName string `json:"initiatorName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad create payload")
		return
	}

	sess, err := ctl.Gateway.CreateSession(id, p.InitiatorName)
	if err != nil {
		ctl.sendError(c, reasonFor(err))
		return
	}

	resp := struct {
		Type  string       `json:"type"`
		Token domain.Token `json:"token"`
	}{
		Type:  "session-created",
		Token: sess.Token,
	}
	ctl.sendJSON(c, resp)
}

func (ctl *Controller) handleJoin(id core.ConnID, c *wsPeerLink, data []byte) {
	var p struct {
		Type          string `json:"type"`
		Token         string `json:"token"`
		ResponderName string `json:"responderName"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		return
	}

	if !ctl.joins.Allow(id) {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("join rate limited")
		ctl.sendError(c, reasonTooManyRequests)
		return
	}

	sess, err := ctl.Gateway.JoinSession(domain.Token(p.Token), id, p.ResponderName)
	if err != nil {
		ctl.sendError(c, reasonFor(err))
		return
	}

	joined := struct {
		Type  string       `json:"type"`
		Token domain.Token `json:"token"`
	}{
		Type:  "session-joined",
		Token: sess.Token,
	}
	ctl.sendJSON(c, joined)

	if link, ok := ctl.Gateway.Registry.Link(sess.InitiatorID); ok {
		notice := struct {
			Type string `json:"type"`
			Name string `json:"name"`
		}{
			Type: "responder-joined",
			Name: sess.ResponderName,
		}
		ctl.sendJSON(link, notice)
	}
}

func (ctl *Controller) handleEndCall(id core.ConnID, data []byte) {
	var p struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad end-call payload")
		return
	}
	ctl.Gateway.EndSession(domain.Token(p.Token), id, mustFrame(envelope{Type: "call-ended"}))
}

// sessionExpired tells the initiator their unjoined session timed out. Wired
// as the gateway's expiry notice; runs on the timer goroutine.
func (ctl *Controller) sessionExpired(sess app.Session) {
	link, ok := ctl.Gateway.Registry.Link(sess.InitiatorID)
	if !ok {
		return
	}
	resp := struct {
		Type  string       `json:"type"`
		Token domain.Token `json:"token"`
	}{
		Type:  "session-expired",
		Token: sess.Token,
	}
	ctl.sendJSON(link, resp)
}
