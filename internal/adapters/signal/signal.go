package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/ovchar/Duet/internal/app"
	"github.com/ovchar/Duet/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the WebSocket side of the gateway: it upgrades connections,
// runs the pumps, decodes the event envelope and hands frames to the app
// layer.
type Controller struct {
	Gateway    *app.Gateway
	ICEServers []webrtc.ICEServer
	ReadLimit  int64
	PingPeriod time.Duration

	joins *JoinLimiter
}

func NewController(gw *app.Gateway, iceServers []webrtc.ICEServer) *Controller {
	ctl := &Controller{
		Gateway:    gw,
		ICEServers: iceServers,
		joins:      NewJoinLimiter(5, 10*time.Second),
	}
	gw.ExpiryNotice = ctl.sessionExpired
	return ctl
}

// wsPeerLink wraps one websocket connection behind a buffered send channel so
// a slow reader surfaces as a backpressure error instead of a blocked pump.
type wsPeerLink struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsPeerLink) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsPeerLink) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds a fresh connection id. The id
// is per live connection: a reconnect is a new participant as far as session
// records are concerned.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	id := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("conn", string(id)).
		Str("client", c.GetString("client_token")).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	link := &wsPeerLink{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Gateway.Connect(id, link, cancel)

	go ctl.writePump(ctx, link)
	go ctl.readPump(ctx, id, link)

	ctl.sendICEServers(link)
}
