// Package realtime implements the room-scoped pub/sub layer that pushes
// order, table, and menu state changes to connected dashboard and customer
// clients over a single WebSocket multiplexer.
//
// Rooms come in three families: admin_{adminID} (a tenant's dashboard),
// menu_{adminID} (a tenant's live menu-editing session), and order_{orderID}
// (one customer tracking one order). A room exists only as long as it has
// members; delivery is best-effort and at-most-once per connected client.
package realtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Message is the wire format in both directions: a named event with a
// JSON payload.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> server events.
const (
	EventJoinAdmin = "join-admin"
	EventJoinMenu  = "join-menu"
	EventJoinOrder = "join-order"
)

// Server -> client events.
const (
	EventNewOrder           = "new-order"
	EventOrderUpdated       = "order-updated"
	EventOrderStatusUpdated = "order-status-updated"
	EventMenuUpdated        = "menu-updated"
	EventTableUpdated       = "table-updated"

	EventJoined = "joined"
	EventError  = "error"
)

// Room families.
const (
	FamilyAdmin = "admin"
	FamilyMenu  = "menu"
	FamilyOrder = "order"
)

// JoinTenantPayload is the payload of join-admin and join-menu requests.
// The access token must belong to the tenant being joined.
type JoinTenantPayload struct {
	AdminID     string `json:"admin_id"`
	AccessToken string `json:"access_token"`
}

// JoinOrderPayload is the payload of join-order requests. Customers have no
// account, so the request carries no credentials.
type JoinOrderPayload struct {
	OrderID int64 `json:"order_id"`
}

// AdminRoom returns the room name for a tenant's dashboard.
func AdminRoom(adminID string) string {
	return FamilyAdmin + "_" + adminID
}

// MenuRoom returns the room name for a tenant's live menu-editing session.
func MenuRoom(adminID string) string {
	return FamilyMenu + "_" + adminID
}

// OrderRoom returns the room name for one customer's order view.
func OrderRoom(orderID int64) string {
	return FamilyOrder + "_" + strconv.FormatInt(orderID, 10)
}

// SplitRoom splits a room name into its family and scope id. It does not
// validate the scope id: a malformed name names a room nothing ever
// broadcasts to, which is harmless.
func SplitRoom(room string) (family, scopeID string) {
	family, scopeID, _ = strings.Cut(room, "_")
	return family, scopeID
}

// Encode serializes a message to JSON bytes.
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage parses JSON bytes into a Message.
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid message format: %w", err)
	}
	return &msg, nil
}

// NewJoined creates the acknowledgement sent after a successful join.
func NewJoined(room string) *Message {
	payload, _ := json.Marshal(map[string]string{"room": room})
	return &Message{Event: EventJoined, Payload: payload}
}

// NewError creates an error reply.
func NewError(code, message string) *Message {
	payload, _ := json.Marshal(map[string]string{"code": code, "message": message})
	return &Message{Event: EventError, Payload: payload}
}
