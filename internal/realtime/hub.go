package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"ai-todo/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message is the envelope pushed to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Conn is one client socket. Writes are serialised by mu.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *Conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *Conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub fans task list updates out to every open socket of a user.
type Hub struct {
	mu       sync.RWMutex
	users    map[uint]map[*Conn]struct{}
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewHub creates a hub. checkOrigin may be nil to allow any origin.
func NewHub(log *logrus.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		users: make(map[uint]map[*Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

func (h *Hub) Register(userID uint, conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[*Conn]struct{})
	}
	h.users[userID][conn] = struct{}{}
}

func (h *Hub) Unregister(userID uint, conn *Conn) {
	h.mu.Lock()
	if conns, ok := h.users[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.users, userID)
		}
	}
	h.mu.Unlock()
	_ = conn.ws.Close()
}

// Connections returns how many sockets the user has open.
func (h *Hub) Connections(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Broadcast sends msg to every socket of the user. Sockets that fail to
// accept the write are dropped.
func (h *Hub) Broadcast(userID uint, msg Message) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.users[userID]))
	for conn := range h.users[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.writeJSON(msg); err != nil {
			h.log.WithError(err).WithField("user_id", userID).Debug("drop websocket")
			h.Unregister(userID, conn)
		}
	}
}

// TasksChanged pushes the refreshed active list.
func (h *Hub) TasksChanged(userID uint, tasks []model.Task) {
	h.Broadcast(userID, Message{Type: "tasks", Data: tasks})
}

// Serve upgrades the request and keeps the socket registered until the
// client goes away. initial, when not nil, is sent right after the upgrade.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint, initial *Message) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	conn := &Conn{ws: ws}
	h.Register(userID, conn)
	defer h.Unregister(userID, conn)

	if initial != nil {
		if err := conn.writeJSON(initial); err != nil {
			return nil
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			}
		}
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients only listen; anything they send is discarded.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).WithField("user_id", userID).Debug("websocket closed")
			}
			return nil
		}
	}
}
