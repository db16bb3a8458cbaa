package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second
	// pongWait is how long to wait for a pong before declaring the
	// connection dead.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = 54 * time.Second
	// maxMessageSize caps inbound event frames.
	maxMessageSize = 4096
)

// Client is one live WebSocket connection with a buffered outbound channel.
// The send channel is never closed: shutdown is signalled via done so that a
// broadcast racing a disconnect can never hit a closed channel. The closed
// flag is checked under mu by every push.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	send chan Message
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn, hub *Hub, sendBuf int) *Client {
	return &Client{
		id:   id,
		conn: conn,
		hub:  hub,
		send: make(chan Message, sendBuf),
		done: make(chan struct{}),
	}
}

// readPump reads inbound frames and hands them to the relay. It owns the
// connection's read side; when it exits the client is removed from the hub.
func (c *Client) readPump() {
	defer c.hub.removeClient(c)

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read error",
					zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		c.hub.relay.HandleMessage(c.id, data)
	}
}

// writePump drains the send channel to the peer and keeps the connection
// alive with periodic pings. It exits when close() signals done, and owns
// closing the underlying connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close marks the client dead and signals the write pump to exit. Safe to
// call more than once and concurrently with pushes.
func (c *Client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
}
