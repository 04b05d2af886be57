package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ayusman/handmirror/internal/app"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StreamHandler broadcasts reconciled frames to WebSocket clients.
type StreamHandler struct {
	app     *app.App
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	once    sync.Once
}

// NewStreamHandler creates a StreamHandler reading from the given app.
func NewStreamHandler(a *app.App) *StreamHandler {
	return &StreamHandler{
		app:     a,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Handle upgrades the request and registers the client for broadcasts.
func (h *StreamHandler) Handle(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.once.Do(func() { go h.broadcast() })

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast pushes the latest reconciled frame to all clients. Clients that
// fall behind or disconnect are dropped on write error.
func (h *StreamHandler) broadcast() {
	ticker := time.NewTicker(66 * time.Millisecond) // ~15 FPS
	defer ticker.Stop()

	var lastSent float64
	for range ticker.C {
		h.mu.RLock()
		idle := len(h.clients) == 0
		h.mu.RUnlock()
		if idle {
			continue
		}

		frame := h.app.LatestFrame()
		if frame == nil || frame.Timestamp == lastSent {
			continue
		}
		lastSent = frame.Timestamp

		h.mu.Lock()
		for conn := range h.clients {
			if err := conn.WriteJSON(frame); err != nil {
				conn.Close()
				delete(h.clients, conn)
			}
		}
		h.mu.Unlock()
	}
}
