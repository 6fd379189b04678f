// internal/realtime/hub.go
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markb/tably/internal/log"
)

// Hub is the room registry: it tracks every live connection and which rooms
// each belongs to. Rooms are created lazily on first join and removed when
// the last member leaves. All access goes through a single mutex so a join
// cannot race a disconnect into an inconsistent membership set.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Conn            // connID -> Conn
	rooms     map[string]map[string]*Conn // room name -> connID -> Conn
	jwtSecret string
}

// HubStats contains registry statistics.
type HubStats struct {
	Connections int         `json:"connections"`
	Rooms       int         `json:"rooms"`
	RoomDetails []RoomStats `json:"room_details"`
}

// RoomStats contains per-room statistics.
type RoomStats struct {
	Room    string `json:"room"`
	Members int    `json:"members"`
}

// NewHub creates a new Hub.
func NewHub(jwtSecret string) *Hub {
	return &Hub{
		conns:     make(map[string]*Conn),
		rooms:     make(map[string]map[string]*Conn),
		jwtSecret: jwtSecret,
	}
}

// Join adds a connection to a room, creating the room if needed. Joining a
// room twice is a no-op: membership is a set.
func (h *Hub) Join(c *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// A connection that already disconnected must not re-enter a room
	if _, live := h.conns[c.id]; !live {
		return
	}

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Conn)
		h.rooms[room] = members
	}
	members[c.id] = c
}

// Broadcast delivers (event, payload) to every connection currently in the
// room. An empty or unknown room is a silent no-op, and an unserializable
// payload is logged and dropped: the caller never learns whether anyone
// received the event.
func (h *Hub) Broadcast(room, event string, payload any) {
	msg, err := encodeEvent(event, payload)
	if err != nil {
		log.Error("realtime: failed to encode event", "event", event, "room", room, "error", err.Error())
		return
	}

	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(msg)
	}
}

// registerConn adds a connection to the hub.
func (h *Hub) registerConn(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.id] = c
}

// unregisterConn removes a connection from the hub and from every room it
// belongs to. Runs exactly once per connection, on close.
func (h *Hub) unregisterConn(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c.id)

	for room, members := range h.rooms {
		if _, ok := members[c.id]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// memberCount returns the current size of a room.
func (h *Hub) memberCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Stats returns current registry statistics.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := HubStats{
		Connections: len(h.conns),
		Rooms:       len(h.rooms),
		RoomDetails: make([]RoomStats, 0, len(h.rooms)),
	}
	for room, members := range h.rooms {
		stats.RoomDetails = append(stats.RoomDetails, RoomStats{
			Room:    room,
			Members: len(members),
		})
	}
	return stats
}

// validateToken validates a JWT and returns its claims.
func (h *Hub) validateToken(tokenStr string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// encodeEvent builds the wire bytes for one outbound event.
func encodeEvent(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg := &Message{Event: event, Payload: raw}
	return msg.Encode()
}
