// Package eventhub fans kiosk events out to WebSocket displays and in-process
// subscribers without ever blocking the publisher.
package eventhub

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kiosk-transaction-orchestrator/internal/config"
	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
)

// SnapshotFunc builds the STATE_CHANGE payload sent to every new connection
type SnapshotFunc func() any

type Hub struct {
	cfg      config.HubConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.RWMutex
	clients  map[*client]struct{}
	subs     map[*Subscription]struct{}
	snapshot SnapshotFunc
	closed   bool
}

var _ event.Publisher = (*Hub)(nil)

func NewHub(cfg config.HubConfig, logger *slog.Logger) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Hub{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger.With("component", "event_hub"),
		clients: make(map[*client]struct{}),
		subs:    make(map[*Subscription]struct{}),
	}
}

// SetSnapshot installs the machine status provider
func (h *Hub) SetSnapshot(fn SnapshotFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Publish fans evt out. It never blocks: a full queue loses its oldest event.
func (h *Hub) Publish(evt event.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for c := range h.clients {
		c.q.push(evt)
	}
	for s := range h.subs {
		if s.wants(evt.Type) {
			s.q.push(evt)
		}
	}
}

// Subscribe listens for the given event types
func (h *Hub) Subscribe(types ...event.Type) *Subscription {
	filter := make(map[event.Type]bool, len(types))
	for _, t := range types {
		filter[t] = true
	}
	return h.subscribe(filter)
}

// SubscribeAll listens for every event type
func (h *Hub) SubscribeAll() *Subscription {
	return h.subscribe(nil)
}

func (h *Hub) subscribe(filter map[event.Type]bool) *Subscription {
	s := &Subscription{hub: h, types: filter, q: newQueue(h.cfg.ClientQueueSize)}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// ServeWS upgrades the request and greets the display with the current
// machine status. Nothing published earlier is replayed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		q:      newQueue(h.cfg.ClientQueueSize),
		done:   make(chan struct{}),
		logger: h.logger.With("remote_addr", r.RemoteAddr),
	}

	h.mu.RLock()
	snapshot := h.snapshot
	h.mu.RUnlock()
	if snapshot != nil {
		c.q.push(event.New(event.StateChange, snapshot()))
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	c.logger.Info("Display connected", "clients", count)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	c.logger.Info("Display disconnected", "clients", count)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every display and stops accepting new ones
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.logger.Info("Shutting down event hub", "clients", len(clients))
	for _, c := range clients {
		c.close()
	}
}
