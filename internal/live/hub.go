package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	MessageBracketUpdated = "BRACKET_UPDATED"
	MessageBracketDeleted = "BRACKET_DELETED"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
	RoomID  string `json:"room_id,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

// Hub fans bracket updates out to the WebSocket clients watching a tournament. Each tournament
// is a room.
type Hub struct {
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Bracket views are public, CORS does not apply to WebSocket upgrades
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "live"),
	}
}

// Run owns room membership until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[c.room]; !ok {
				h.rooms[c.room] = make(map[*client]struct{})
			}
			h.rooms[c.room][c] = struct{}{}
			size := len(h.rooms[c.room])
			h.mu.Unlock()
			h.logger.Debug("client joined", "room", c.room, "clients", size)

		case c := <-h.unregister:
			h.mu.Lock()
			h.remove(c)
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.rooms {
				for c := range clients {
					h.remove(c)
				}
			}
			h.mu.Unlock()
			return nil
		}
	}
}

// remove expects h.mu to be held.
func (h *Hub) remove(c *client) {
	clients, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	close(c.send)
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.rooms, c.room)
	}
	h.logger.Debug("client left", "room", c.room, "clients", len(clients))
}

// BroadcastToRoom sends msg to every client in the room. Clients that can't keep up miss it.
func (h *Hub) BroadcastToRoom(room string, msg Message) {
	msg.RoomID = room
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", "room", room, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[room] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("client send buffer full, dropping message", "room", room)
		}
	}
}

func (h *Hub) BracketUpdated(tournamentID string, payload any) {
	h.BroadcastToRoom(tournamentID, Message{Type: MessageBracketUpdated, Payload: payload})
}

func (h *Hub) BracketDeleted(tournamentID string) {
	h.BroadcastToRoom(tournamentID, Message{Type: MessageBracketDeleted, Payload: map[string]string{"tournamentId": tournamentID}})
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ServeWS upgrades the request and joins the connection to room.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, room string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("websocket upgrade failed", "room", room, "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), room: room}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump only drains control frames, clients have nothing to say.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket closed unexpectedly", "room", c.room, "error", err)
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
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Debug("websocket write failed", "room", c.room, "error", err)
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
