package api

import (
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portfolio/logging"
	"portfolio/model"
	"portfolio/theme"
)

const writeWait = 5 * time.Second

// Event types pushed to websocket clients.
const (
	EventHello            = "hello"
	EventTheme            = "theme"
	EventNotification     = "notification"
	EventNotificationHide = "notification.hide"
)

// Event is the envelope for every message the hub sends.
type Event struct {
	Type         string              `json:"type"`
	Theme        *theme.ChangeEvent  `json:"theme,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
}

// connWithMutex serializes writes to one connection.
type connWithMutex struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *connWithMutex) write(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// Hub keeps the open websocket connections and broadcasts theme changes and
// notifications to all of them. It implements notify.Display.
type Hub struct {
	mu          sync.RWMutex
	connections map[*websocket.Conn]*connWithMutex
	upgrader    websocket.Upgrader
	current     func() model.ThemeID
	logger      *zap.Logger
}

// NewHub accepts upgrades from the given origins. An empty list or "*"
// accepts any origin.
func NewHub(origins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		connections: make(map[*websocket.Conn]*connWithMutex),
		logger:      logging.OrNop(logger).Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(origins),
	}
	return h
}

// Follow sends theme changes from r to every client, and greets new clients
// with r's current theme. The returned func stops following.
func (h *Hub) Follow(r *theme.Registry) func() {
	h.mu.Lock()
	h.current = r.Current
	h.mu.Unlock()
	return r.Subscribe(func(ev theme.ChangeEvent) {
		h.Broadcast(Event{Type: EventTheme, Theme: &ev})
	})
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an error response.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	cwm := h.add(conn)
	defer h.Remove(conn)

	hello := Event{Type: EventHello}
	h.mu.RLock()
	current := h.current
	h.mu.RUnlock()
	if current != nil {
		hello.Theme = &theme.ChangeEvent{Current: current()}
	}
	if err := cwm.write(hello); err != nil {
		return
	}

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) *connWithMutex {
	cwm := &connWithMutex{conn: conn}
	h.mu.Lock()
	h.connections[conn] = cwm
	n := len(h.connections)
	h.mu.Unlock()
	h.logger.Debug("client connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("clients", n))
	return cwm
}

// Remove closes conn and forgets it.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.connections[conn]
	delete(h.connections, conn)
	h.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Broadcast sends ev to every client. Clients that fail the write are dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	conns := make([]*connWithMutex, 0, len(h.connections))
	for _, cwm := range h.connections {
		conns = append(conns, cwm)
	}
	h.mu.RUnlock()

	for _, cwm := range conns {
		if err := cwm.write(ev); err != nil {
			h.logger.Debug("dropping client", zap.Error(err))
			h.Remove(cwm.conn)
		}
	}
}

func (h *Hub) Show(n model.Notification) {
	h.Broadcast(Event{Type: EventNotification, Notification: &n})
}

func (h *Hub) Hide(n model.Notification) {
	h.Broadcast(Event{Type: EventNotificationHide, Notification: &n})
}

// Close disconnects every client. http.Server.Shutdown does not track
// hijacked connections.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.connections
	h.connections = make(map[*websocket.Conn]*connWithMutex)
	h.mu.Unlock()

	for conn, cwm := range conns {
		cwm.mu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		cwm.mu.Unlock()
		_ = conn.Close()
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}
