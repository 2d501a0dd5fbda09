// Package ws provides a WebSocket broadcast sink: every classification
// record is pushed as JSON to all connected clients, so a dashboard can
// render the stream without the detector knowing anything about display.
package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	streamio "github.com/hed1ad/streamguard/pkg/io"
)

const pingInterval = 30 * time.Second

// Hub is a Sink that fans classification records out to WebSocket clients.
// It is also an http.Handler: mount it on the route clients connect to.
// Slow or dead clients are dropped rather than allowed to stall the stream.
type Hub struct {
	log      *logrus.Entry
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

// NewHub creates a Hub logging through the given logger. A nil logger falls
// back to the logrus standard logger.
func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log: log.WithField("subsystem", "ws"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP upgrades the request and registers the client for broadcasts.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.conns[conn] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	h.log.WithField("clients", n).Debug("client connected")

	go h.keepAlive(conn)

	// Drain (and discard) client reads so control frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(conn)
}

// keepAlive pings the client until it goes away.
func (h *Hub) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.Lock()
		_, ok := h.conns[conn]
		h.mu.Unlock()
		if !ok {
			return
		}

		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
			h.remove(conn)
			return
		}
	}
}

// Write broadcasts a single record to all connected clients.
func (h *Hub) Write(rec streamio.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(rec); err != nil {
			h.log.WithError(err).Debug("dropping client")
			conn.Close()
			delete(h.conns, conn)
		}
	}

	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects all clients and rejects future ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}

	return nil
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; ok {
		conn.Close()
		delete(h.conns, conn)
	}
}
