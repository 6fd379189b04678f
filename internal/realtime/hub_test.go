// internal/realtime/hub_test.go
package realtime

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

// testConn builds a registered connection with no transport behind it.
func testConn(t *testing.T, h *Hub) *Conn {
	t.Helper()
	c := &Conn{
		id:   uuid.New().String(),
		hub:  h,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	h.registerConn(c)
	return c
}

// received drains and decodes everything queued on the connection.
func received(t *testing.T, c *Conn) []*Message {
	t.Helper()
	var msgs []*Message
	for {
		select {
		case data := <-c.send:
			msg, err := DecodeMessage(data)
			if err != nil {
				t.Fatalf("undecodable queued message: %v", err)
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub("test-secret")
	if hub == nil {
		t.Fatal("hub should not be nil")
	}
	if hub.conns == nil {
		t.Error("conns map should be initialized")
	}
	if hub.rooms == nil {
		t.Error("rooms map should be initialized")
	}
}

func TestJoinAndBroadcast(t *testing.T) {
	hub := NewHub("test-secret")
	member := testConn(t, hub)
	outsider := testConn(t, hub)

	hub.Join(member, "admin_42")
	hub.Broadcast("admin_42", EventNewOrder, map[string]any{"id": 1})

	msgs := received(t, member)
	if len(msgs) != 1 {
		t.Fatalf("member should receive exactly one message, got %d", len(msgs))
	}
	if msgs[0].Event != EventNewOrder {
		t.Errorf("expected event %q, got %q", EventNewOrder, msgs[0].Event)
	}
	if len(received(t, outsider)) != 0 {
		t.Error("connection outside the room must receive nothing")
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	hub := NewHub("test-secret")
	c := testConn(t, hub)

	hub.Join(c, "admin_42")
	hub.Join(c, "admin_42")

	if n := hub.memberCount("admin_42"); n != 1 {
		t.Errorf("expected 1 member after double join, got %d", n)
	}

	hub.Broadcast("admin_42", EventOrderUpdated, map[string]any{})
	if n := len(received(t, c)); n != 1 {
		t.Errorf("double join must not duplicate delivery, got %d messages", n)
	}
}

func TestBroadcastToEmptyRoomIsNoOp(t *testing.T) {
	hub := NewHub("test-secret")

	// Must not panic or error for a room nobody ever joined
	hub.Broadcast("admin_nobody", EventTableUpdated, map[string]any{"status": "occupied"})
}

func TestBroadcastUnserializablePayloadIsSwallowed(t *testing.T) {
	hub := NewHub("test-secret")
	c := testConn(t, hub)
	hub.Join(c, "admin_42")

	// channels cannot be marshalled; the event is dropped, nothing panics
	hub.Broadcast("admin_42", EventMenuUpdated, make(chan int))

	if n := len(received(t, c)); n != 0 {
		t.Errorf("expected no delivery for unserializable payload, got %d", n)
	}
}

func TestUnregisterLeavesAllRooms(t *testing.T) {
	hub := NewHub("test-secret")
	c := testConn(t, hub)

	hub.Join(c, "admin_42")
	hub.Join(c, "menu_42")
	hub.Join(c, "order_17")

	hub.unregisterConn(c)

	stats := hub.Stats()
	if stats.Connections != 0 {
		t.Errorf("expected 0 connections, got %d", stats.Connections)
	}
	// Empty rooms vanish with their last member
	if stats.Rooms != 0 {
		t.Errorf("expected 0 rooms after unregister, got %d", stats.Rooms)
	}

	hub.Broadcast("admin_42", EventNewOrder, map[string]any{})
	if n := len(received(t, c)); n != 0 {
		t.Errorf("disconnected conn must not receive broadcasts, got %d", n)
	}
}

func TestJoinAfterDisconnectIsIgnored(t *testing.T) {
	hub := NewHub("test-secret")
	c := testConn(t, hub)
	hub.unregisterConn(c)

	hub.Join(c, "admin_42")

	if n := hub.memberCount("admin_42"); n != 0 {
		t.Errorf("a closed connection must not join rooms, got %d members", n)
	}
}

func TestRoomSurvivesWhileOtherMembersRemain(t *testing.T) {
	hub := NewHub("test-secret")
	a := testConn(t, hub)
	b := testConn(t, hub)

	hub.Join(a, "admin_42")
	hub.Join(b, "admin_42")
	hub.unregisterConn(a)

	hub.Broadcast("admin_42", EventOrderUpdated, map[string]any{"id": 2})

	if n := len(received(t, b)); n != 1 {
		t.Errorf("remaining member should still receive broadcasts, got %d", n)
	}
	if n := len(received(t, a)); n != 0 {
		t.Errorf("departed member must receive nothing, got %d", n)
	}
}

func TestStats(t *testing.T) {
	hub := NewHub("test-secret")
	a := testConn(t, hub)
	b := testConn(t, hub)

	hub.Join(a, "admin_42")
	hub.Join(b, "admin_42")
	hub.Join(b, "order_17")

	stats := hub.Stats()
	if stats.Connections != 2 {
		t.Errorf("expected 2 connections, got %d", stats.Connections)
	}
	if stats.Rooms != 2 {
		t.Errorf("expected 2 rooms, got %d", stats.Rooms)
	}

	counts := map[string]int{}
	for _, rs := range stats.RoomDetails {
		counts[rs.Room] = rs.Members
	}
	if counts["admin_42"] != 2 {
		t.Errorf("expected 2 members in admin_42, got %d", counts["admin_42"])
	}
	if counts["order_17"] != 1 {
		t.Errorf("expected 1 member in order_17, got %d", counts["order_17"])
	}
}

func TestBroadcastPayloadBytes(t *testing.T) {
	hub := NewHub("test-secret")
	c := testConn(t, hub)
	hub.Join(c, "order_17")

	hub.Broadcast("order_17", EventOrderStatusUpdated, map[string]string{"status": "preparing"})

	msgs := received(t, c)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	var payload map[string]string
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if payload["status"] != "preparing" {
		t.Errorf("expected status preparing, got %q", payload["status"])
	}
	if len(payload) != 1 {
		t.Errorf("status payload must carry the status only, got %v", payload)
	}
}
