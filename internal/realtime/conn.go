// internal/realtime/conn.go
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/markb/tably/internal/log"
)

const (
	// Send buffer size for outbound messages
	sendBufferSize = 256

	// Time allowed to write a message
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message
	pongWait = 30 * time.Second

	// Send pings with this period (must be less than pongWait)
	pingPeriod = 25 * time.Second

	// Maximum inbound message size; join requests are tiny
	maxMessageSize = 4 * 1024
)

// Conn represents one WebSocket client link. Its identifier is never
// reused: a client that reconnects is a brand-new Conn with no rooms.
type Conn struct {
	id        string
	ws        *websocket.Conn
	hub       *Hub
	send      chan []byte   // outbound message queue
	done      chan struct{} // closed when connection ends
	closeOnce sync.Once
}

// NewConn creates and registers a new connection.
func (h *Hub) NewConn(ws *websocket.Conn) *Conn {
	conn := &Conn{
		id:   uuid.New().String(),
		ws:   ws,
		hub:  h,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	h.registerConn(conn)
	return conn
}

// ID returns the connection ID.
func (c *Conn) ID() string {
	return c.id
}

// enqueue queues raw bytes for sending. A full buffer drops the message:
// the registry never waits on a slow client.
func (c *Conn) enqueue(data []byte) {
	select {
	case c.send <- data:
	case <-c.done:
	default:
		log.Warn("realtime: send buffer full, dropping message", "conn_id", c.id)
	}
}

// Send queues a message for sending.
func (c *Conn) Send(msg *Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	c.enqueue(data)
	return nil
}

// Close tears the connection down and removes it from every room. Safe to
// call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			c.ws.Close()
		}
		if c.hub != nil {
			c.hub.unregisterConn(c)
		}
	})
}

// ReadPump reads messages from the WebSocket connection until it closes.
func (c *Conn) ReadPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug("realtime: read error", "conn_id", c.id, "error", err.Error())
			}
			return
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			log.Debug("realtime: invalid message", "conn_id", c.id, "error", err.Error())
			continue
		}

		c.handleMessage(msg)
	}
}

// WritePump writes queued messages to the WebSocket connection.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

// handleMessage routes incoming join requests. There is no leave message:
// membership is cleared wholesale on disconnect.
func (c *Conn) handleMessage(msg *Message) {
	log.Debug("realtime: handleMessage", "conn_id", c.id, "event", msg.Event)

	switch msg.Event {
	case EventJoinAdmin:
		c.handleJoinTenant(msg, AdminRoom)
	case EventJoinMenu:
		c.handleJoinTenant(msg, MenuRoom)
	case EventJoinOrder:
		c.handleJoinOrder(msg)
	default:
		log.Debug("realtime: unknown event", "conn_id", c.id, "event", msg.Event)
	}
}

// handleJoinTenant handles join-admin and join-menu. Both are tenant-scoped
// and require an access token issued to that tenant.
func (c *Conn) handleJoinTenant(msg *Message, roomFor func(string) string) {
	var payload JoinTenantPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.AdminID == "" {
		c.Send(NewError("invalid_payload", "admin_id is required"))
		return
	}

	claims, err := c.hub.validateToken(payload.AccessToken)
	if err != nil {
		c.Send(NewError("invalid_token", "a valid access token is required"))
		return
	}
	if sub, _ := claims["sub"].(string); sub != payload.AdminID {
		c.Send(NewError("forbidden", "token does not belong to this tenant"))
		return
	}

	room := roomFor(payload.AdminID)
	c.hub.Join(c, room)
	c.Send(NewJoined(room))
}

// handleJoinOrder handles join-order. Customers have no credentials; knowing
// the order id is the capability.
func (c *Conn) handleJoinOrder(msg *Message) {
	var payload JoinOrderPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil || payload.OrderID <= 0 {
		c.Send(NewError("invalid_payload", "order_id is required"))
		return
	}

	room := OrderRoom(payload.OrderID)
	c.hub.Join(c, room)
	c.Send(NewJoined(room))
}
