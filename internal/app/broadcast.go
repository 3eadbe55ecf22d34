package app

import (
	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/core"
	"github.com/ovchar/Duet/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the gateway.
type PublishResult struct {
	SentTo  int
	Dropped []core.ConnID
}

// Channels fans chat and editor-sync frames to every session member except
// the sender. Sender-exclusion at the relay is what lets endpoints apply
// every received edit without telling their own changes apart from remote
// ones; a client-side suppression flag is not needed and not supported.
type Channels struct {
	Store    *Store
	Registry *Registry
}

func (c *Channels) Broadcast(token domain.Token, from core.ConnID, frame core.Frame) PublishResult {
	res := PublishResult{}
	for _, id := range c.Store.Others(token, from) {
		link, ok := c.Registry.Link(id)
		if !ok {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		if err := link.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "app.broadcast").Str("token", string(token)).
		Str("from", string(from)).Int("sent_to", res.SentTo).
		Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
