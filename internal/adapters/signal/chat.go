package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

func (ctl *Controller) handleChat(id core.ConnID, data []byte) {
	var p struct {
		Type  string `json:"type"`
		Token string `json:"token"`
		Text  string `json:"text"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad chat payload")
		return
	}

	sender, ok := ctl.Gateway.Registry.Lookup(id)
	if !ok {
		log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("chat from unknown participant")
		return
	}

	out := struct {
		Type   string `json:"type"`
		Sender string `json:"sender"`
		Text   string `json:"text"`
	}{
		Type:   "chat-receive",
		Sender: sender.Name,
		Text:   p.Text,
	}
	ctl.Gateway.Broadcast(domain.Token(p.Token), id, mustFrame(out))
}

// handleEditorChange fans the full buffer content to the other members.
// Last write wins; nobody merges. The sender is excluded at the relay so
// endpoints can apply every editor-update they receive without checking
// whether it was their own.
func (ctl *Controller) handleEditorChange(id core.ConnID, data []byte) {
	var p struct {
		Type    string `json:"type"`
		Token   string `json:"token"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad editor payload")
		return
	}

	out := struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}{
		Type:    "editor-update",
		Content: p.Content,
	}
	ctl.Gateway.Broadcast(domain.Token(p.Token), id, mustFrame(out))
}
