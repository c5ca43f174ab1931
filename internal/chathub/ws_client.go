package chathub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// WebSocketClient is a browser connection (widget or dashboard). AdminID is
// set only when the upgrade request carried a valid admin session.
type WebSocketClient struct {
	ConnID  string
	AdminID string
	Conn    *websocket.Conn
	Relay   *Relay
	Send    chan Event

	closeOnce sync.Once
}

func NewWebSocketClient(connID, adminID string, conn *websocket.Conn, relay *Relay, buffer int) *WebSocketClient {
	return &WebSocketClient{
		ConnID:  connID,
		AdminID: adminID,
		Conn:    conn,
		Relay:   relay,
		Send:    make(chan Event, buffer),
	}
}

func (c *WebSocketClient) GetConnID() string            { return c.ConnID }
func (c *WebSocketClient) GetAdminID() string           { return c.AdminID }
func (c *WebSocketClient) GetSendChannel() chan<- Event { return c.Send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close is safe to call more than once; writePump sends the close frame.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.Send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		c.Relay.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARNING: Error reading from %s: %v", c.ConnID, err)
			}
			break
		}
		c.Relay.Dispatch(c, message)
	}
}

// writePump пише кожну подію окремим кадром; клієнт не вміє розбирати пакети.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// relay dropped us
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("ERROR: Encoding %s for %s: %v", ev.Name, c.ConnID, err)
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
