package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsPeerLink) {
	var ping <-chan time.Time
	if ctl.PingPeriod > 0 {
		t := time.NewTicker(ctl.PingPeriod)
		defer t.Stop()
		ping = t.C
	}
	// Closing the socket here is what unblocks a readPump parked in
	// ReadMessage when the context is canceled from the app side.
	defer c.Close()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump ping")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, id core.ConnID, c *wsPeerLink) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		ctl.Gateway.Disconnect(id, mustFrame(envelope{Type: "call-ended"}))
		ctl.joins.Forget(id)
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
				return
			}
			ctl.handleEvent(id, c, data)
		}
	}
}

// handleEvent dispatches one inbound event. A malformed or unknown event is
// logged and dropped; one misbehaving connection must never take the relay
// down.
func (ctl *Controller) handleEvent(id core.ConnID, c *wsPeerLink, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "create-session":
		ctl.handleCreate(id, c, data)
	case "join-session":
		ctl.handleJoin(id, c, data)
	case "negotiation-offer", "negotiation-answer", "negotiation-candidate":
		ctl.handleNegotiation(id, env.Type, data)
	case "chat-send":
		ctl.handleChat(id, data)
	case "editor-change":
		ctl.handleEditorChange(id, data)
	case "end-call":
		ctl.handleEndCall(id, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown event")
	}
}

// envelope is the generic outbound shape; handlers use typed structs where
// the field set is fixed.
type envelope struct {
	Type string `json:"type"`
}

func (ctl *Controller) sendJSON(c core.PeerLink, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func mustFrame(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("frame marshal")
		return nil
	}
	return b
}
