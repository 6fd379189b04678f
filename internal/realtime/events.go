// internal/realtime/events.go
package realtime

import "github.com/markb/tably/internal/model"

// Event is one realtime notification: a closed set of variants, one per
// mutation in the broadcast-on-mutation contract. Each variant fixes the
// event name, the target room, and the payload shape, so an emit site
// cannot pair a name with the wrong payload.
type Event interface {
	Name() string
	Room() string
	EventPayload() any
}

// NewOrder notifies a tenant's dashboard of a freshly created order. The
// order must be the post-commit row with items and table code resolved.
type NewOrder struct {
	Order model.Order
}

func (e NewOrder) Name() string      { return EventNewOrder }
func (e NewOrder) Room() string      { return AdminRoom(e.Order.AdminID) }
func (e NewOrder) EventPayload() any { return e.Order }

// OrderUpdated carries the full updated order row to the tenant's dashboard.
type OrderUpdated struct {
	Order model.Order
}

func (e OrderUpdated) Name() string      { return EventOrderUpdated }
func (e OrderUpdated) Room() string      { return AdminRoom(e.Order.AdminID) }
func (e OrderUpdated) EventPayload() any { return e.Order }

// OrderStatusUpdated carries only the new status to the customer tracking
// the order; the customer view needs nothing else.
type OrderStatusUpdated struct {
	OrderID int64
	Status  string
}

func (e OrderStatusUpdated) Name() string { return EventOrderStatusUpdated }
func (e OrderStatusUpdated) Room() string { return OrderRoom(e.OrderID) }
func (e OrderStatusUpdated) EventPayload() any {
	return map[string]string{"status": e.Status}
}

// MenuUpdated carries the full updated menu row to the tenant's live
// menu-editing session.
type MenuUpdated struct {
	Menu model.Menu
}

func (e MenuUpdated) Name() string      { return EventMenuUpdated }
func (e MenuUpdated) Room() string      { return MenuRoom(e.Menu.AdminID) }
func (e MenuUpdated) EventPayload() any { return e.Menu }

// TableUpdated notifies a tenant's dashboard that a table's occupancy
// changed.
type TableUpdated struct {
	Table model.Table
}

func (e TableUpdated) Name() string      { return EventTableUpdated }
func (e TableUpdated) Room() string      { return AdminRoom(e.Table.AdminID) }
func (e TableUpdated) EventPayload() any { return e.Table }
