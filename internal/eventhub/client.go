package eventhub

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
)

const maxInboundFrame = 4096

type inboundFrame struct {
	Action string `json:"action"`
}

// client is one WebSocket connection. The write pump owns every write to conn.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	q      *queue
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.hub.unregister(c)
	})
}

func (c *client) readDeadline() time.Time {
	return time.Now().Add(c.hub.cfg.PingInterval + c.hub.cfg.PongGrace)
}

// readPump keeps the read deadline fresh and answers application-level pings.
// Any read error, including a missed heartbeat, ends the connection.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxInboundFrame)
	_ = c.conn.SetReadDeadline(c.readDeadline())
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(c.readDeadline())
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("WebSocket read ended", "error", err)
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Debug("Ignoring malformed WebSocket frame", "error", err)
			continue
		}
		if strings.EqualFold(frame.Action, "PING") {
			_ = c.conn.SetReadDeadline(c.readDeadline())
			c.q.push(event.New(event.Pong, nil))
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			deadline := time.Now().Add(c.hub.cfg.WriteTimeout)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
			return
		case evt := <-c.q.ch:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteJSON(evt); err != nil {
				c.logger.Debug("WebSocket write failed", "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.hub.cfg.WriteTimeout)); err != nil {
				c.close()
				return
			}
		}
	}
}
