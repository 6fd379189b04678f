// Package order manages customer orders: creation from a scanned table,
// the kitchen's status progression, and order history.
package order

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/model"
)

var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = fmt.Errorf("order not found")
	// ErrEmptyOrder is returned when an order has no line items.
	ErrEmptyOrder = fmt.Errorf("order has no items")
)

// ErrInvalidTransition is returned for a status change the progression
// does not allow.
type ErrInvalidTransition struct {
	From, To string
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

// Store persists orders.
type Store struct {
	db *db.DB
}

// NewStore creates an order store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// ItemInput is one requested line item. Only the menu id and quantity
// come from the client; names and prices are read from the catalog so a
// tampered request cannot set its own prices.
type ItemInput struct {
	MenuID   int64  `json:"menu_id"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// Create places an order for a table. Item names and unit prices are
// snapshotted from the current catalog and the total is computed here.
// Unavailable or foreign menu items reject the whole order.
func (s *Store) Create(adminID string, tableID int64, notes string, items []ItemInput) (*model.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	type snapshot struct {
		name       string
		priceCents int
	}
	snapshots := make([]snapshot, len(items))
	total := 0

	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: quantity must be positive", item.MenuID)
		}
		var name string
		var priceCents, available int
		err := tx.QueryRow(`
			SELECT name, price_cents, available FROM menus WHERE id = ? AND admin_id = ?
		`, item.MenuID, adminID).Scan(&name, &priceCents, &available)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("menu item %d not found", item.MenuID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load menu item: %w", err)
		}
		if available == 0 {
			return nil, fmt.Errorf("menu item %q is not available", name)
		}
		snapshots[i] = snapshot{name: name, priceCents: priceCents}
		total += priceCents * item.Quantity
	}

	var tableCode string
	if err := tx.QueryRow(`
		SELECT code FROM dining_tables WHERE id = ?
	`, tableID).Scan(&tableCode); err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	createdAt := now()
	res, err := tx.Exec(`
		INSERT INTO orders (admin_id, table_id, status, notes, total_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, adminID, tableID, model.OrderPending, notes, total, createdAt, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	orderID, _ := res.LastInsertId()

	// The returned row is assembled from the data written here rather
	// than re-read after commit. Once the transaction commits, nothing
	// on this path can fail the caller's response anymore.
	order := &model.Order{
		ID:         orderID,
		AdminID:    adminID,
		TableID:    tableID,
		TableCode:  tableCode,
		Status:     model.OrderPending,
		Notes:      notes,
		TotalCents: total,
		Items:      make([]model.OrderItem, len(items)),
		CreatedAt:  parseTime(createdAt),
		UpdatedAt:  parseTime(createdAt),
	}

	for i, item := range items {
		res, err := tx.Exec(`
			INSERT INTO order_items (order_id, menu_id, menu_name, quantity, price_cents, notes)
			VALUES (?, ?, ?, ?, ?, ?)
		`, orderID, item.MenuID, snapshots[i].name, item.Quantity, snapshots[i].priceCents, item.Notes)
		if err != nil {
			return nil, fmt.Errorf("failed to add order item: %w", err)
		}
		itemID, _ := res.LastInsertId()
		order.Items[i] = model.OrderItem{
			ID:         itemID,
			OrderID:    orderID,
			MenuID:     item.MenuID,
			MenuName:   snapshots[i].name,
			Quantity:   item.Quantity,
			PriceCents: snapshots[i].priceCents,
			Notes:      item.Notes,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	return order, nil
}

// Get returns an order with its items and table code. Order lookups are
// not tenant-scoped: the numeric id is the customer's tracking handle.
func (s *Store) Get(id int64) (*model.Order, error) {
	var o model.Order
	var createdAt, updatedAt string

	err := s.db.QueryRow(`
		SELECT o.id, o.admin_id, o.table_id, t.code, o.status, o.notes, o.total_cents, o.created_at, o.updated_at
		FROM orders o JOIN dining_tables t ON t.id = o.table_id
		WHERE o.id = ?
	`, id).Scan(&o.ID, &o.AdminID, &o.TableID, &o.TableCode, &o.Status, &o.Notes,
		&o.TotalCents, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o.CreatedAt, o.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)

	items, err := s.itemsFor(o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (s *Store) itemsFor(orderID int64) ([]model.OrderItem, error) {
	rows, err := s.db.Query(`
		SELECT id, order_id, COALESCE(menu_id, 0), menu_name, quantity, price_cents, notes
		FROM order_items WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	items := []model.OrderItem{}
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuID, &item.MenuName,
			&item.Quantity, &item.PriceCents, &item.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetForAdmin returns an order only if it belongs to the tenant.
func (s *Store) GetForAdmin(adminID string, id int64) (*model.Order, error) {
	o, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if o.AdminID != adminID {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns the tenant's orders, newest first. An empty status means
// all statuses.
func (s *Store) List(adminID, status string) ([]*model.Order, error) {
	query := `
		SELECT o.id, o.admin_id, o.table_id, t.code, o.status, o.notes, o.total_cents, o.created_at, o.updated_at
		FROM orders o JOIN dining_tables t ON t.id = o.table_id
		WHERE o.admin_id = ?`
	args := []any{adminID}
	if status != "" {
		query += " AND o.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY o.created_at DESC, o.id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*model.Order{}
	for rows.Next() {
		var o model.Order
		var createdAt, updatedAt string
		if err := rows.Scan(&o.ID, &o.AdminID, &o.TableID, &o.TableCode, &o.Status, &o.Notes,
			&o.TotalCents, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.CreatedAt, o.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		orders = append(orders, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, o := range orders {
		items, err := s.itemsFor(o.ID)
		if err != nil {
			return nil, err
		}
		o.Items = items
	}
	return orders, nil
}

// validTransition encodes the status progression. Cancelled is reachable
// from any non-terminal status; paid and cancelled are terminal.
func validTransition(from, to string) bool {
	if to == model.OrderCancelled {
		return from != model.OrderPaid && from != model.OrderCancelled
	}
	switch from {
	case model.OrderPending:
		return to == model.OrderPreparing
	case model.OrderPreparing:
		return to == model.OrderReady
	case model.OrderReady:
		return to == model.OrderDelivered
	case model.OrderDelivered:
		return to == model.OrderPaid
	}
	return false
}

// UpdateStatus advances an order along the progression.
func (s *Store) UpdateStatus(adminID string, id int64, status string) (*model.Order, error) {
	if !model.ValidOrderStatus(status) {
		return nil, fmt.Errorf("unknown order status %q", status)
	}

	current, err := s.GetForAdmin(adminID, id)
	if err != nil {
		return nil, err
	}
	if !validTransition(current.Status, status) {
		return nil, &ErrInvalidTransition{From: current.Status, To: status}
	}

	// The write is conditional on the status just read, so two
	// concurrent transitions from the same state cannot both apply.
	updatedAt := now()
	res, err := s.db.Exec(`
		UPDATE orders SET status = ?, updated_at = ? WHERE id = ? AND admin_id = ? AND status = ?
	`, status, updatedAt, id, adminID, current.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if n == 0 {
		fresh, err := s.GetForAdmin(adminID, id)
		if err != nil {
			return nil, err
		}
		return nil, &ErrInvalidTransition{From: fresh.Status, To: status}
	}

	// Patch the row already in hand instead of re-reading it. The update
	// is durable at this point; a failed re-read must not turn a
	// committed status change into an error response.
	current.Status = status
	current.UpdatedAt = parseTime(updatedAt)
	return current, nil
}
