package config

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// ParseICEServers validates the configured ICE servers and converts them to
// the form pushed to endpoints on connect. TURN entries must carry
// credentials; STUN entries must not need them.
func (c *Config) ParseICEServers() ([]webrtc.ICEServer, error) {
	out := make([]webrtc.ICEServer, 0, len(c.ICEServers))
	for i, srv := range c.ICEServers {
		if len(srv.URLs) == 0 {
			return nil, fmt.Errorf("ice_servers[%d]: missing urls", i)
		}
		needsCreds := false
		for _, u := range srv.URLs {
			switch {
			case strings.HasPrefix(u, "stun:"), strings.HasPrefix(u, "stuns:"):
			case strings.HasPrefix(u, "turn:"), strings.HasPrefix(u, "turns:"):
				needsCreds = true
			default:
				return nil, fmt.Errorf("ice_servers[%d]: unsupported scheme in %q", i, u)
			}
		}
		if needsCreds && (srv.Username == "" || srv.Credential == "") {
			return nil, fmt.Errorf("ice_servers[%d]: turn urls require username and credential", i)
		}

		ice := webrtc.ICEServer{URLs: srv.URLs}
		if srv.Username != "" {
			ice.Username = srv.Username
			ice.Credential = srv.Credential
		}
		out = append(out, ice)
	}
	return out, nil
}
