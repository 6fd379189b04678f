// internal/realtime/emitter.go
package realtime

import "github.com/markb/tably/internal/model"

// Emitter maps persistence mutations to room broadcasts. Handlers call it
// only after their transaction has committed, so every event corresponds to
// durable state. Broadcasting is fire-and-forget: nothing here can fail the
// mutation that triggered it, and a nil *Emitter is a valid no-op (handlers
// under test run without a realtime layer).
type Emitter struct {
	hub *Hub
}

// NewEmitter creates an emitter bound to a hub.
func NewEmitter(hub *Hub) *Emitter {
	return &Emitter{hub: hub}
}

// Emit broadcasts a single event to its room.
func (e *Emitter) Emit(ev Event) {
	if e == nil || e.hub == nil {
		return
	}
	e.hub.Broadcast(ev.Room(), ev.Name(), ev.EventPayload())
}

// OrderCreated announces a new order to the tenant's dashboard. The order
// must be the post-commit row with items and table code resolved.
func (e *Emitter) OrderCreated(order model.Order) {
	e.Emit(NewOrder{Order: order})
}

// OrderStatusChanged fans a status change out to both interested scopes:
// the customer tracking the order gets the bare status, the tenant's
// dashboard gets the full row. These are independent broadcasts; partial
// delivery is acceptable.
func (e *Emitter) OrderStatusChanged(order model.Order) {
	e.Emit(OrderStatusUpdated{OrderID: order.ID, Status: order.Status})
	e.Emit(OrderUpdated{Order: order})
}

// MenuChanged announces a menu item update to the tenant's live
// menu-editing session.
func (e *Emitter) MenuChanged(menu model.Menu) {
	e.Emit(MenuUpdated{Menu: menu})
}

// TableOccupied announces an available -> occupied flip to the tenant's
// dashboard. The payload always reads occupied regardless of the row
// passed in.
func (e *Emitter) TableOccupied(table model.Table) {
	table.Status = model.TableOccupied
	e.Emit(TableUpdated{Table: table})
}
