package signal

import "github.com/pion/webrtc/v4"

func (ctl *Controller) handlePing(conn *wsPeerLink) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(conn, resp)
}

// sendICEServers pushes the server-configured STUN/TURN list right after
// connect, so endpoints build their peer connection from server config
// instead of hardcoding one.
func (ctl *Controller) sendICEServers(conn *wsPeerLink) {
	if len(ctl.ICEServers) == 0 {
		return
	}
	resp := struct {
		Type       string             `json:"type"`
		ICEServers []webrtc.ICEServer `json:"iceServers"`
	}{
		Type:       "ice-servers",
		ICEServers: ctl.ICEServers,
	}
	ctl.sendJSON(conn, resp)
}
