// Package ws bridges the Redis status bus to WebSocket clients. The hub
// subscribes to every token status channel and forwards each event to the
// clients watching that token.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dexiq/dexiq/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// statusPattern matches every per-token status channel on the bus.
const statusPattern = "token_status:*"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS middleware in front.
		return true
	},
}

// client is one WebSocket connection. A client with an empty watch set
// receives every token's events.
type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	watch map[int64]bool
	mu    sync.RWMutex
}

// subscribeMsg is the JSON frame clients send to narrow or widen their watch
// set, e.g. {"action":"subscribe","token_ids":[42]}.
type subscribeMsg struct {
	Action   string  `json:"action"` // "subscribe" or "unsubscribe"
	TokenIDs []int64 `json:"token_ids"`
}

// Hub fans status events out to connected clients.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	bus        domain.StatusBus
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewHub creates a hub backed by the given status bus.
func NewHub(bus domain.StatusBus, logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		bus:        bus,
		logger:     logger.With("component", "ws"),
	}
}

// Run drives the hub loop until ctx is cancelled: bus consumption, client
// registration and event fan-out.
func (h *Hub) Run(ctx context.Context) error {
	go h.consumeBus(ctx)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.logger.Info("client connected", "total_clients", h.clientCount())

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.logger.Info("client disconnected", "total_clients", h.clientCount())

		case data := <-h.broadcast:
			tokenID := eventTokenID(data)
			h.mu.RLock()
			for c := range h.clients {
				if !c.watches(tokenID) {
					continue
				}
				select {
				case c.send <- data:
				default:
					h.logger.Warn("dropping event for slow client", "token_id", tokenID)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// consumeBus subscribes to the status pattern and pumps raw event payloads
// into the broadcast loop.
func (h *Hub) consumeBus(ctx context.Context) {
	events, err := h.bus.Subscribe(ctx, statusPattern)
	if err != nil {
		h.logger.Error("status bus subscribe failed", "pattern", statusPattern, "error", err)
		return
	}
	h.logger.Info("subscribed to status bus", "pattern", statusPattern)

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-events:
			if !ok {
				h.logger.Warn("status bus subscription closed")
				return
			}
			h.broadcast <- data
		}
	}
}

// eventTokenID extracts the token id from a status event payload; 0 when the
// payload is not a recognizable event.
func eventTokenID(data []byte) int64 {
	var partial struct {
		TokenID int64 `json:"token_id"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return 0
	}
	return partial.TokenID
}

// HandleWS upgrades the request and registers the client. Clients start with
// an empty watch set, receiving all events, and narrow it with subscribe
// frames.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
		watch: make(map[int64]bool),
	}

	h.register <- c
	go c.writePump()
	go c.readPump()
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// watches reports whether the client wants events for the token. An empty
// watch set means everything.
func (c *client) watches(tokenID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.watch) == 0 {
		return true
	}
	return c.watch[tokenID]
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close", "error", err)
			}
			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(message, &sub); err == nil && sub.Action != "" {
			c.handleSubscription(sub)
		}
	}
}

func (c *client) handleSubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch msg.Action {
	case "subscribe":
		for _, id := range msg.TokenIDs {
			c.watch[id] = true
		}
	case "unsubscribe":
		for _, id := range msg.TokenIDs {
			delete(c.watch, id)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
