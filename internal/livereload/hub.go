// Package livereload tracks browser connections and tells them to reload
// after a successful build.
package livereload

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"git.home.luguber.info/inful/margin/internal/metrics"
)

// Message is the only payload ever sent to clients.
const Message = "rebuild"

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	mu   sync.Mutex // gorilla connections allow one concurrent writer
	conn Conn
}

func (c *client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub is the set of live reload connections. Connections are appended on
// accept and never removed; a broken connection only costs a failed write.
type Hub struct {
	mu       sync.Mutex
	clients  []*client
	closed   bool
	upgrader websocket.Upgrader
	recorder metrics.Recorder
	logger   *slog.Logger
}

// NewHub returns an empty hub.
func NewHub(recorder metrics.Recorder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true // pages are served from a different port
			},
		},
		recorder: metrics.OrNoop(recorder),
		logger:   logger,
	}
}

// Register adds conn to the broadcast set.
func (h *Hub) Register(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		_ = conn.Close()
		return
	}
	h.clients = append(h.clients, &client{conn: conn})
	h.recorder.IncLiveReloadConnection()
}

// Len returns the number of tracked connections, dead ones included.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends Message to every tracked connection. Delivery is not
// acknowledged; write errors are logged at debug level.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	snapshot := make([]*client, len(h.clients))
	copy(snapshot, h.clients)
	h.mu.Unlock()

	h.recorder.IncLiveReloadBroadcast()
	payload := []byte(Message)
	for _, c := range snapshot {
		if err := c.send(payload); err != nil {
			h.logger.Debug("livereload broadcast write", "error", err)
		}
	}
}

// ServeHTTP upgrades the request and registers the connection. Inbound
// frames are read and discarded so control frames are handled.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("livereload upgrade failed", "error", err)
		return
	}
	h.Register(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			_ = conn.Close()
			return
		}
	}
}

// Close closes every tracked connection and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, c := range h.clients {
		_ = c.conn.Close()
	}
}
