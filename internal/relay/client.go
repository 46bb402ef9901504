package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// Connection keepalive tuning. A peer that misses a pong for pongWait is
// considered gone; pings go out often enough to keep healthy peers alive.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// SDP bodies dominate message size; 64 KB covers them with room.
	maxMessageSize = 64 * 1024
)

// Client binds one websocket connection to the hub. The connection is
// owned by exactly two goroutines: ReadPump (the only reader) and
// WritePump (the only writer); everything else talks to the client through
// the Send channel.
type Client struct {
	Hub *Hub

	// Conn is nil in hub-level tests, which drive Send directly.
	Conn *websocket.Conn

	RoomID string

	// Send carries hub-to-peer messages. Closed by the hub when the peer
	// is removed, which makes WritePump send a close frame and exit.
	Send chan *Message
}

// ReadPump decodes inbound messages and hands them to the hub until the
// connection dies, then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.configureRead()

	for {
		msg := new(Message)
		if err := c.Conn.ReadJSON(msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("peer connection dropped", "room", c.RoomID, "error", err)
			}
			return
		}
		msg.client = c
		c.Hub.Broadcast <- msg
	}
}

func (c *Client) configureRead() {
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// WritePump drains Send onto the websocket and keeps the connection alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.Conn.WriteJSON(msg); err != nil {
				slog.Warn("peer write failed", "room", c.RoomID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
