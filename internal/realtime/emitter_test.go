// internal/realtime/emitter_test.go
package realtime

import (
	"encoding/json"
	"testing"

	"github.com/markb/tably/internal/model"
)

func sampleOrder() model.Order {
	return model.Order{
		ID:        17,
		AdminID:   "42",
		TableID:   3,
		TableCode: "tbl-3",
		Status:    model.OrderPreparing,
		Items: []model.OrderItem{
			{ID: 1, OrderID: 17, MenuID: 9, MenuName: "Nasi Goreng", Quantity: 2, PriceCents: 4500},
		},
	}
}

func TestOrderCreatedTargetsAdminRoom(t *testing.T) {
	hub := NewHub("test-secret")
	dashboard := testConn(t, hub)
	bystander := testConn(t, hub)
	hub.Join(dashboard, AdminRoom("42"))

	NewEmitter(hub).OrderCreated(sampleOrder())

	msgs := received(t, dashboard)
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one new-order broadcast, got %d", len(msgs))
	}
	if msgs[0].Event != EventNewOrder {
		t.Errorf("expected %q, got %q", EventNewOrder, msgs[0].Event)
	}

	var got model.Order
	if err := json.Unmarshal(msgs[0].Payload, &got); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].MenuName != "Nasi Goreng" {
		t.Errorf("payload must carry the full joined order, got %+v", got)
	}
	if got.TableCode != "tbl-3" {
		t.Errorf("payload must carry the table code, got %q", got.TableCode)
	}

	if n := len(received(t, bystander)); n != 0 {
		t.Errorf("unjoined connection must receive nothing, got %d", n)
	}
}

func TestOrderStatusChangedFansOutToBothScopes(t *testing.T) {
	hub := NewHub("test-secret")
	customer := testConn(t, hub)
	dashboard := testConn(t, hub)
	menuEditor := testConn(t, hub)

	hub.Join(customer, OrderRoom(17))
	hub.Join(dashboard, AdminRoom("42"))
	hub.Join(menuEditor, MenuRoom("42"))

	NewEmitter(hub).OrderStatusChanged(sampleOrder())

	// Customer view: order-status-updated with {status} only
	custMsgs := received(t, customer)
	if len(custMsgs) != 1 {
		t.Fatalf("customer should receive exactly one message, got %d", len(custMsgs))
	}
	if custMsgs[0].Event != EventOrderStatusUpdated {
		t.Errorf("expected %q, got %q", EventOrderStatusUpdated, custMsgs[0].Event)
	}
	var status map[string]string
	if err := json.Unmarshal(custMsgs[0].Payload, &status); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if len(status) != 1 || status["status"] != model.OrderPreparing {
		t.Errorf("customer payload must be {status} only, got %v", status)
	}

	// Dashboard: order-updated with the full row
	dashMsgs := received(t, dashboard)
	if len(dashMsgs) != 1 {
		t.Fatalf("dashboard should receive exactly one message, got %d", len(dashMsgs))
	}
	if dashMsgs[0].Event != EventOrderUpdated {
		t.Errorf("expected %q, got %q", EventOrderUpdated, dashMsgs[0].Event)
	}
	var full model.Order
	if err := json.Unmarshal(dashMsgs[0].Payload, &full); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if full.Status != model.OrderPreparing || full.ID != 17 {
		t.Errorf("dashboard payload must be the full order row, got %+v", full)
	}

	// Nobody else hears about it
	if n := len(received(t, menuEditor)); n != 0 {
		t.Errorf("menu room must not receive order events, got %d", n)
	}
}

func TestMenuChangedTargetsMenuRoomOnly(t *testing.T) {
	hub := NewHub("test-secret")
	menuEditor := testConn(t, hub)
	dashboard := testConn(t, hub)
	hub.Join(menuEditor, MenuRoom("42"))
	hub.Join(dashboard, AdminRoom("42"))

	NewEmitter(hub).MenuChanged(model.Menu{ID: 9, AdminID: "42", Name: "Nasi Goreng", PriceCents: 4500})

	msgs := received(t, menuEditor)
	if len(msgs) != 1 || msgs[0].Event != EventMenuUpdated {
		t.Fatalf("expected one menu-updated in menu room, got %v", msgs)
	}
	if n := len(received(t, dashboard)); n != 0 {
		t.Errorf("admin room must not receive menu events, got %d", n)
	}
}

func TestTableOccupiedForcesOccupiedStatus(t *testing.T) {
	hub := NewHub("test-secret")
	dashboard := testConn(t, hub)
	hub.Join(dashboard, AdminRoom("42"))

	// Row still reads available at the time of the call
	NewEmitter(hub).TableOccupied(model.Table{ID: 3, AdminID: "42", Code: "tbl-3", Status: model.TableAvailable})

	msgs := received(t, dashboard)
	if len(msgs) != 1 || msgs[0].Event != EventTableUpdated {
		t.Fatalf("expected one table-updated, got %v", msgs)
	}
	var tbl model.Table
	if err := json.Unmarshal(msgs[0].Payload, &tbl); err != nil {
		t.Fatalf("payload decode: %v", err)
	}
	if tbl.Status != model.TableOccupied {
		t.Errorf("payload status must be occupied, got %q", tbl.Status)
	}
}

func TestNilEmitterIsNoOp(t *testing.T) {
	var e *Emitter

	// Handlers constructed without a realtime layer must be able to call
	// every emit helper safely.
	e.OrderCreated(sampleOrder())
	e.OrderStatusChanged(sampleOrder())
	e.MenuChanged(model.Menu{})
	e.TableOccupied(model.Table{})
	e.Emit(NewOrder{})
}
