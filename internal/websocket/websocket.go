package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/internal/models"
	"github.com/abrezinsky/tennisbracket/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// MessageSessionState is sent to a client when it joins a session
const MessageSessionState = "session_state"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// SessionReader looks up the current state of a session
type SessionReader interface {
	Get(ctx context.Context, id string) (*services.Session, error)
}

// Hub keeps one room of clients per bracket session and fans session events
// out to the room.
type Hub struct {
	log        logger.Logger
	sessions   SessionReader
	rooms      map[string]map[*Client]bool
	broadcast  chan models.WSMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	session string
	send    chan models.WSMessage
}

// New creates a new Hub
func New(log logger.Logger, sessions SessionReader) *Hub {
	return &Hub{
		log:        log,
		sessions:   sessions,
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan models.WSMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start begins the hub's main loop in a goroutine
func (h *Hub) Start() {
	go h.run()
}

// Stop ends the main loop and disconnects every client
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mutex.Lock()
			for id, room := range h.rooms {
				for client := range room {
					close(client.send)
				}
				delete(h.rooms, id)
			}
			h.mutex.Unlock()
			return

		case client := <-h.register:
			h.mutex.Lock()
			room, ok := h.rooms[client.session]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.session] = room
			}
			room[client] = true
			h.mutex.Unlock()
			h.log.Debug("Client joined session", "session", client.session, "room_clients", len(room))
			go h.sendState(client)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			h.deliver(message)

			if message.Type == models.MessageSessionClosed {
				h.closeRoom(message.Session)
			}
		}
	}
}

// sendState gives a joining client the session as it stands
func (h *Hub) sendState(client *Client) {
	if h.sessions == nil {
		return
	}
	sess, err := h.sessions.Get(context.Background(), client.session)
	if err != nil {
		h.log.Debug("Session state unavailable", "session", client.session, "error", err)
		return
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	if !h.rooms[client.session][client] {
		return
	}
	select {
	case client.send <- models.WSMessage{Type: MessageSessionState, Session: client.session, Payload: sess}:
	default:
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	room, ok := h.rooms[client.session]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.session)
	}
	h.log.Debug("Client left session", "session", client.session, "room_clients", len(room))
}

func (h *Hub) deliver(message models.WSMessage) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.rooms[message.Session] {
		select {
		case client.send <- message:
		default:
			// Client's send channel is full, unregister
			go func(c *Client) {
				select {
				case h.unregister <- c:
				case <-h.done:
				}
			}(client)
		}
	}
}

func (h *Hub) closeRoom(session string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.rooms[session] {
		close(client.send)
	}
	delete(h.rooms, session)
}

// BroadcastToSession implements services.Broadcaster
func (h *Hub) BroadcastToSession(session string, msg models.WSMessage) {
	msg.Session = session
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// ClientCount returns the number of clients following a session
func (h *Hub) ClientCount(session string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[session])
}

// readPump drains the connection so pongs and close frames are processed.
// Clients never send anything the hub acts on.
func (c *Client) readPump() {
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
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("WebSocket error", "error", err)
			}
			break
		}
		var msg models.WSMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.hub.log.Debug("Ignoring client message", "session", c.session, "type", msg.Type)
		}
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
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
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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

// ServeWs joins the client to the session named by the session query
// parameter
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		http.Error(w, "session is required", http.StatusBadRequest)
		return
	}
	if h.sessions != nil {
		if _, err := h.sessions.Get(r.Context(), session); err != nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade error", "error", err)
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		session: session,
		send:    make(chan models.WSMessage, 256),
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

var _ services.Broadcaster = (*Hub)(nil)
