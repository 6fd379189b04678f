// Package model holds the row types shared between the store packages and
// the realtime event payloads.
package model

import "time"

// Admin is a tenant account: one restaurant, one dashboard.
type Admin struct {
	ID                string         `json:"id"`
	Email             string         `json:"email"`
	EncryptedPassword string         `json:"-"`
	RestaurantName    string         `json:"restaurant_name"`
	PlanID            string         `json:"plan_id"`
	Theme             map[string]any `json:"theme"`
	LastSignInAt      *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Plan is a subscription tier with count ceilings.
type Plan struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MaxTables  int    `json:"max_tables"`
	MaxMenus   int    `json:"max_menus"`
	PriceCents int    `json:"price_cents"`
}

// Category groups menu items on the customer-facing menu.
type Category struct {
	ID        int64     `json:"id"`
	AdminID   string    `json:"admin_id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ingredient is a stock item referenced by menu items.
type Ingredient struct {
	ID        int64     `json:"id"`
	AdminID   string    `json:"admin_id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Stock     float64   `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Menu is one orderable item.
type Menu struct {
	ID          int64     `json:"id"`
	AdminID     string    `json:"admin_id"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	PriceCents  int       `json:"price_cents"`
	ImageKey    string    `json:"image_key,omitempty"`
	Available   bool      `json:"available"`
	Ingredients []int64   `json:"ingredient_ids,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Table statuses.
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
)

// Table is one physical dining table; Code is the slug embedded in its QR code.
type Table struct {
	ID        int64     `json:"id"`
	AdminID   string    `json:"admin_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order statuses, in the usual progression. Cancelled can follow any
// non-terminal status.
const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderDelivered = "delivered"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderPending, OrderPreparing, OrderReady, OrderDelivered, OrderPaid, OrderCancelled:
		return true
	}
	return false
}

// Order is a customer order with its line items. TableCode is denormalized
// from the table row so event payloads carry it without a second lookup on
// the client.
type Order struct {
	ID         int64       `json:"id"`
	AdminID    string      `json:"admin_id"`
	TableID    int64       `json:"table_id"`
	TableCode  string      `json:"table_code,omitempty"`
	Status     string      `json:"status"`
	Notes      string      `json:"notes,omitempty"`
	TotalCents int         `json:"total_cents"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem snapshots the menu name and unit price at order time, so later
// menu edits never rewrite order history.
type OrderItem struct {
	ID         int64  `json:"id"`
	OrderID    int64  `json:"order_id"`
	MenuID     int64  `json:"menu_id"`
	MenuName   string `json:"menu_name"`
	Quantity   int    `json:"quantity"`
	PriceCents int    `json:"price_cents"`
	Notes      string `json:"notes,omitempty"`
}
