package sink

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const writeWait = 5 * time.Second

// Hub broadcasts events to every connected WebSocket client. A client whose
// write fails is dropped.
type Hub struct {
	log     logger.Logger
	lock    sync.Mutex
	clients map[*websocket.Conn]bool
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{log: log, clients: make(map[*websocket.Conn]bool)}
}

func (h *Hub) Name() string { return "websocket" }

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed", logger.Err(err))
		return
	}
	h.lock.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.lock.Unlock()
	h.log.Info("ws_client_connected", logger.Int("clients", n))

	// Read until the peer goes away so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				h.remove(conn)
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.lock.Lock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	h.lock.Unlock()
}

// Clients is the number of live connections.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

func (h *Hub) Publish(_ context.Context, e Event) error {
	msg, err := e.Marshal()
	if err != nil {
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}
