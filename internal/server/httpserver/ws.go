package httpserver

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/registry"
	"github.com/yndnr/snapfold-go/internal/telemetry/logger"
)

// CloseUnauthorized is the application close code for rejected sessions.
// Lifecycle closes (deleted, expired, shutdown) use 1001 going away.
const CloseUnauthorized = 4000

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 1 << 20

	// wsIdleReason closes clients that sent nothing for the whole
	// receive timeout, even while their pongs kept arriving.
	wsIdleReason = "Receive timeout"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The cookie is SameSite=Strict; cross-origin pages never carry it,
	// so the origin check adds nothing here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla websocket connection to the registry fanout.
// Gorilla permits one concurrent writer, so every write takes writeMu.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func (c *wsConn) Send(event registry.Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := c.conn.WriteJSON(event); err != nil {
		c.closed.Store(true)
		return err
	}
	return nil
}

func (c *wsConn) Close(reason string) error {
	if c.closed.Swap(true) {
		return nil
	}

	code := websocket.CloseGoingAway
	if reason == registry.ReasonUnauthorized {
		code = CloseUnauthorized
	}

	c.writeMu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsWriteTimeout))
	c.writeMu.Unlock()

	return c.conn.Close()
}

func (c *wsConn) IsClosed() bool {
	return c.closed.Load()
}

// ping sends a heartbeat control frame outside the fanout path.
func (c *wsConn) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil,
		time.Now().Add(wsWriteTimeout))
}

// handleWS handles GET /ws: upgrades the connection, attaches it to the
// folder fanout, replays the folder summary, and runs the command loop
// until the peer leaves or the folder dies.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	entry := FolderFromContext(r.Context())
	log := logger.L(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsConn{conn: conn}
	name := displayName(r.UserAgent())

	entry.Attach(c)
	h.metrics.ConnectionsActive.Inc()
	log.Info("websocket connected",
		"identity", entry.Identity(), "name", name)

	defer func() {
		entry.Detach(c)
		c.Close(registry.ReasonShutdown)
		h.metrics.ConnectionsActive.Dec()
		log.Info("websocket disconnected", "identity", entry.Identity())
	}()

	// Greet with the current folder state
	if err := c.Send(registry.Event{
		Action: "connect",
		Info: map[string]any{
			"folder": entry.View(),
			"name":   name,
		},
	}); err != nil {
		return
	}

	// A peer that stops ponging is dead within two heartbeats; a peer
	// that pongs but sends nothing for the whole receive timeout is
	// idle and reaped by the heartbeat loop.
	pongWait := 2 * h.heartbeat
	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	var lastSeen atomic.Int64
	lastSeen.Store(time.Now().UnixNano())

	stop := make(chan struct{})
	defer close(stop)
	go h.heartbeatLoop(c, &lastSeen, stop)

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		lastSeen.Store(time.Now().UnixNano())

		// A folder can expire mid-connection; nothing is served past that
		if entry.IsExpired() {
			c.Close(registry.ReasonExpired)
			return
		}

		switch cmd.Action {
		case "send":
			msg := domain.NewTextMessage(cmd.Data, name)
			if err := entry.Publish(r.Context(), h.svc, msg); err != nil {
				h.sendWSError(c, err)
				continue
			}
			h.metrics.MessagesTotal.WithLabelValues("text").Inc()

		case "pull":
			msgs, err := entry.Retrieve(r.Context(), h.svc, cmd.Offset)
			if err != nil {
				h.sendWSError(c, err)
				continue
			}
			views := make([]domain.MessageView, len(msgs))
			for i, m := range msgs {
				views[i] = m.View()
			}
			if err := c.Send(registry.Event{Action: "send", Msgs: views}); err != nil {
				return
			}

		default:
			log.Debug("unknown websocket action",
				"identity", entry.Identity(), "action", cmd.Action)
		}
	}
}

// heartbeatLoop pings the peer on the configured cadence and closes the
// connection when a ping cannot be written or the peer has been idle
// past the receive timeout. Closing unblocks the read loop, which
// detaches the connection from the fanout.
func (h *Handler) heartbeatLoop(c *wsConn, lastSeen *atomic.Int64, stop <-chan struct{}) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.IsClosed() {
				return
			}
			idle := time.Since(time.Unix(0, lastSeen.Load()))
			if h.receiveTimeout > 0 && idle > h.receiveTimeout {
				c.Close(wsIdleReason)
				return
			}
			if err := c.ping(); err != nil {
				c.Close("")
				return
			}
		}
	}
}

// sendWSError reports a per-command failure without dropping the
// connection.
func (h *Handler) sendWSError(c *wsConn, err error) {
	code := domain.GetErrorCode(err)
	if code == "" {
		code = "SF-SYS-5000"
	}
	c.Send(registry.Event{
		Action: "error",
		Info: map[string]any{
			"code":    code,
			"message": err.Error(),
		},
	})
}
