package push

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 54 * time.Second
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	ownerID string
	role    string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub keeps at most one live connection per owner. A later handshake for
// the same owner replaces the earlier connection.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	byOwner map[string]*client
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log.Named("push.hub"),
		byOwner: make(map[string]*client),
	}
}

// HandleWebSocket upgrades the request and registers the owner's connection.
// The caller authenticates the owner before handing the request over.
func (h *Hub) HandleWebSocket(ownerID, role string, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		ownerID: ownerID,
		role:    role,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	if previous, ok := h.byOwner[ownerID]; ok {
		close(previous.send)
	}
	h.byOwner[ownerID] = c
	h.mu.Unlock()

	h.log.Debug("client connected", zap.String("owner_id", ownerID))

	go c.writePump(h)
	go c.readPump(h)
	return nil
}

func (h *Hub) EmitToUser(ownerID, event string, data any) bool {
	h.mu.RLock()
	c, ok := h.byOwner[ownerID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return h.deliver(c, event, data)
}

func (h *Hub) EmitToRole(role, event string, data any) {
	for _, c := range h.snapshot() {
		if c.role == role {
			h.deliver(c, event, data)
		}
	}
}

func (h *Hub) EmitToAll(event string, data any) {
	for _, c := range h.snapshot() {
		h.deliver(c, event, data)
	}
}

func (h *Hub) IsConnected(ownerID string) bool {
	h.mu.RLock()
	_, ok := h.byOwner[ownerID]
	h.mu.RUnlock()
	return ok
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byOwner)
}

func (h *Hub) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*client, 0, len(h.byOwner))
	for _, c := range h.byOwner {
		clients = append(clients, c)
	}
	return clients
}

func (h *Hub) deliver(c *client, event string, data any) bool {
	payload, err := json.Marshal(Envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.log.Warn("marshal push event", zap.String("event", event), zap.Error(err))
		return false
	}

	// Sends happen under the read lock and closes under the write lock,
	// so a concurrent replace or drop cannot close the channel mid-send.
	h.mu.RLock()
	current := h.byOwner[c.ownerID] == c
	delivered := false
	if current {
		select {
		case c.send <- payload:
			delivered = true
		default:
		}
	}
	h.mu.RUnlock()

	if current && !delivered {
		// Slow consumer. Drop the connection rather than block callers.
		h.drop(c)
	}
	return delivered
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if current, ok := h.byOwner[c.ownerID]; ok && current == c {
		delete(h.byOwner, c.ownerID)
		close(c.send)
	}
	h.mu.Unlock()
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.String("owner_id", c.ownerID), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writePump(h *Hub) {
	ticker := time.NewTicker(pingInterval)
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
