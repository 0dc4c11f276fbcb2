package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/avelis/commodex/internal/sim"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin policy is enforced by the CORS middleware on the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope wraps every message pushed to subscribers.
type Envelope struct {
	Type string `json:"type"` // "snapshot" or "tick_summary"
	Data any    `json:"data"`
}

// Hub fans tick summaries out to websocket subscribers. Delivery is
// best-effort: a subscriber that cannot keep up is dropped rather than
// allowed to stall the tick loop. Late joiners receive a full market
// snapshot before their first delta.
type Hub struct {
	snapshot func() *sim.MarketSnapshot

	mu         sync.RWMutex
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{} // closed when Run exits; unblocks pump teardown
	log        zerolog.Logger
}

// NewHub creates a hub. snapshot supplies the full-state view sent to
// newly connected subscribers.
func NewHub(snapshot func() *sim.MarketSnapshot, log zerolog.Logger) *Hub {
	return &Hub{
		snapshot:   snapshot,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Publish implements sim.Publisher. Marshals once and enqueues for
// fan-out; drops the summary if the hub is backed up.
func (h *Hub) Publish(summary *sim.TickSummary) {
	payload, err := json.Marshal(Envelope{Type: "tick_summary", Data: summary})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal tick summary")
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn().Int64("tick", summary.Tick).Msg("broadcast queue full, dropping tick summary")
	}
}

// Run processes registrations and fan-out until the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Str("client", c.id).Int("total", total).Msg("subscriber connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Str("client", c.id).Int("total", total).Msg("subscriber disconnected")

		case payload := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					// Slow consumer: drop it.
					delete(h.clients, c)
					close(c.send)
					h.log.Warn().Str("client", c.id).Msg("subscriber too slow, dropping")
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	// After this nobody services register/unregister; the pumps select
	// against done instead of blocking on them forever.
	close(h.done)
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   conn.RemoteAddr().String(),
	}

	// Queue the full-state snapshot so the late joiner catches up
	// before its first delta arrives.
	if snap := h.snapshot(); snap != nil {
		if payload, err := json.Marshal(Envelope{Type: "snapshot", Data: snap}); err == nil {
			c.send <- payload
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// readPump discards inbound frames; the stream is one-way. It exists to
// process control frames and to detect the peer going away.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Str("client", c.id).Msg("websocket read error")
			}
			return
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
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
