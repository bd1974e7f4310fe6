package notify

import (
	"net/http"
	"sync"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512

	DefaultBuffer = 16
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	userID int64
	send   chan []byte
}

// Hub keeps the open notification sockets of every user. A user may have
// several (one per open Mini App).
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*client]struct{}
	buffer  int
	log     *zap.Logger
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		clients: make(map[int64]map[*client]struct{}),
		buffer:  buffer,
		log:     logger.Named("notify.hub"),
	}
}

// Notify queues the event on every socket of the user. A socket whose buffer
// is full misses the event.
func (h *Hub) Notify(userID int64, event model.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := h.clients[userID]
	if len(conns) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to marshal event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	for c := range conns {
		select {
		case c.send <- data:
		default:
			h.log.Warn("notification buffer full, dropping event",
				zap.Int64("user_id", userID),
				zap.String("type", string(event.Type)))
		}
	}
}

// Connected returns how many sockets the user has open.
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) register(userID int64) *client {
	c := &client{userID: userID, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
}

// Serve registers conn for userID and pumps events to it until the peer goes
// away. It blocks for the lifetime of the connection.
func (h *Hub) Serve(userID int64, conn *websocket.Conn) {
	c := h.register(userID)
	h.log.Debug("socket connected", zap.Int64("user_id", userID))

	go h.writeLoop(conn, c)
	h.readLoop(conn, c)
}

// readLoop only drains control frames; clients have nothing to say.
func (h *Hub) readLoop(conn *websocket.Conn, c *client) {
	defer h.unregister(c)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Info("websocket unexpected close", zap.Int64("user_id", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writeLoop(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		h.log.Debug("socket closed", zap.Int64("user_id", c.userID))
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.Error("failed to write notification", zap.Int64("user_id", c.userID), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
