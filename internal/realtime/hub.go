package realtime

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub owns all live WebSocket connections and provides the fan-out primitives
// the relay uses. Registration and removal take the write lock; broadcasts
// iterate under the read lock. Emission is fire-and-forget: a client whose
// send buffer is full loses the message rather than blocking the sender.
type Hub struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader
	relay    *Relay
	sendBuf  int

	mu      sync.RWMutex
	clients map[string]*Client

	closed bool
}

// NewHub creates a Hub with the given per-connection send buffer size.
//
// Precondition: logger must be non-nil; sendBuf must be >= 1.
func NewHub(logger *zap.Logger, sendBuf int) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The game is served from arbitrary origins during development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuf: sendBuf,
		clients: make(map[string]*Client),
	}
}

// Attach wires the relay that will receive connection events. Must be called
// before ServeWS.
//
// Precondition: relay must be non-nil.
func (h *Hub) Attach(relay *Relay) {
	h.relay = relay
}

// ServeWS upgrades an HTTP request to a WebSocket connection and starts its
// read/write pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(uuid.NewString(), conn, h, h.sendBuf)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[client.id] = client
	h.mu.Unlock()

	h.relay.HandleConnect(client.id)

	go client.writePump()
	go client.readPump()
}

// Send implements Emitter. Unknown connections are a silent no-op.
func (h *Hub) Send(connID string, msg Message) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.push(client, msg)
}

// Broadcast implements Emitter.
func (h *Hub) Broadcast(msg Message) {
	for _, client := range h.snapshot() {
		h.push(client, msg)
	}
}

// BroadcastExcept implements Emitter.
func (h *Hub) BroadcastExcept(exceptConnID string, msg Message) {
	for _, client := range h.snapshot() {
		if client.id == exceptConnID {
			continue
		}
		h.push(client, msg)
	}
}

// CloseConn implements Emitter: it tears the connection down without waiting
// for the peer.
func (h *Hub) CloseConn(connID string) {
	h.mu.Lock()
	client, ok := h.clients[connID]
	if ok {
		delete(h.clients, connID)
	}
	h.mu.Unlock()
	if ok {
		client.close()
	}
}

// Stop closes every connection and refuses new ones.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[string]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// removeClient drops a client after its read pump exits and notifies the
// relay so the departure is announced.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, present := h.clients[client.id]
	if present {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()

	client.close()
	// The relay's deregister is a no-op when the session was already
	// superseded or never joined.
	h.relay.HandleDisconnect(client.id)
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// push hands a message to one client. Broadcasts iterate a snapshot taken
// outside the hub lock, so the target may have been closed in the meantime;
// the per-client mutex and closed flag make that window a silent drop instead
// of a send on a dead client.
func (h *Hub) push(client *Client, msg Message) {
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.closed {
		return
	}
	select {
	case client.send <- msg:
	default:
		h.logger.Debug("send buffer full, dropping message",
			zap.String("conn_id", client.id), zap.String("type", msg.Type))
	}
}
