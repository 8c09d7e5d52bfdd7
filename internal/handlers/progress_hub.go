package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/respondeo/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// ProgressHub broadcasts pipeline progress events to WebSocket
// clients. Publish never blocks: events flow through a buffered
// channel and are dropped with a warning when clients fall behind.
type ProgressHub struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]bool
	clientMutex      map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	events           chan interfaces.ProgressEvent
	done             chan struct{}
	serverInstanceID string
}

// NewProgressHub creates the hub and starts its broadcast loop.
func NewProgressHub(logger arbor.ILogger) *ProgressHub {
	h := &ProgressHub{
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		clientMutex:      make(map[*websocket.Conn]*sync.Mutex),
		events:           make(chan interfaces.ProgressEvent, 256),
		done:             make(chan struct{}),
		serverInstanceID: uuid.New().String(),
	}
	go h.run()

	logger.Debug().Str("server_instance_id", h.serverInstanceID).Msg("Progress hub initialized")
	return h
}

// Publish queues an event for broadcast. Implements ProgressSink.
func (h *ProgressHub) Publish(event interfaces.ProgressEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn().
			Str("batch_id", event.BatchID).
			Str("stage", event.Stage).
			Msg("Progress event dropped; broadcast buffer full")
	}
}

// HandleWebSocket upgrades the connection and registers the client.
func (h *ProgressHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.clientMutex[conn] = &sync.Mutex{}
	clientCount := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", clientCount).Msg("WebSocket client connected")

	// Reader loop exists only to detect disconnects; clients send
	// nothing meaningful.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Close stops the broadcast loop and disconnects all clients.
func (h *ProgressHub) Close() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
	h.clientMutex = make(map[*websocket.Conn]*sync.Mutex)
}

func (h *ProgressHub) run() {
	for {
		select {
		case <-h.done:
			return
		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

func (h *ProgressHub) broadcast(event interfaces.ProgressEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.mu.RLock()
		connMu := h.clientMutex[conn]
		h.mu.RUnlock()
		if connMu == nil {
			continue
		}

		connMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		err := conn.WriteJSON(event)
		connMu.Unlock()

		if err != nil {
			h.logger.Debug().Err(err).Msg("WebSocket write failed; removing client")
			h.removeClient(conn)
		}
	}
}

func (h *ProgressHub) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	delete(h.clientMutex, conn)
	conn.Close()
}
