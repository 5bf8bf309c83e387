package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/xray/internal/contracts"
	"github.com/wonny/xray/pkg/logger"
)

// ProgressEvent is one phase progress update pushed to subscribers
type ProgressEvent struct {
	Phase     contracts.Phase `json:"phase"`
	Pct       float64         `json:"pct"`
	Timestamp time.Time       `json:"timestamp"`
}

// ProgressHub fans pipeline progress events out to websocket clients.
// Broadcast satisfies contracts.ProgressFunc so the hub can be wired
// straight into the orchestrator options.
type ProgressHub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewProgressHub creates a progress hub
func NewProgressHub(log *logger.Logger) *ProgressHub {
	return &ProgressHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API is same-origin or reverse-proxied; origin checks
			// belong to the proxy layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Handle upgrades the request and keeps the connection registered
// until the client closes it.
func (h *ProgressHub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	h.logger.WithField("remote", conn.RemoteAddr().String()).Debug("Progress subscriber connected")

	// Drain incoming frames; the read loop ends when the peer closes.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.WithError(err).Debug("Progress subscriber read error")
				}
				return
			}
		}
	}()
}

// Broadcast pushes one progress event to every connected client.
// Clients that fail to accept the write are dropped.
func (h *ProgressHub) Broadcast(phase contracts.Phase, pct float64) {
	event := ProgressEvent{
		Phase:     phase,
		Pct:       pct,
		Timestamp: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(event); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount reports the number of connected subscribers
func (h *ProgressHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *ProgressHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[conn] {
		conn.Close()
		delete(h.clients, conn)
	}
}
