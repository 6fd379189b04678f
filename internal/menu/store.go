// Package menu manages the catalog: categories, ingredients and the
// orderable menu items themselves.
package menu

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/model"
)

// ErrNotFound is returned when a catalog row does not exist for the
// tenant.
var ErrNotFound = fmt.Errorf("not found")

// Store persists the catalog. Every query is scoped by admin id; a row
// belonging to another tenant behaves as if it did not exist.
type Store struct {
	db *db.DB
}

// NewStore creates a catalog store.
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

// CreateCategory adds a category for the tenant.
func (s *Store) CreateCategory(adminID, name, icon string, sortOrder int) (*model.Category, error) {
	res, err := s.db.Exec(`
		INSERT INTO categories (admin_id, name, icon, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, adminID, name, icon, sortOrder, now(), now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("category %q already exists", name)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetCategory(adminID, id)
}

// GetCategory returns one category.
func (s *Store) GetCategory(adminID string, id int64) (*model.Category, error) {
	var c model.Category
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, admin_id, name, icon, sort_order, created_at, updated_at
		FROM categories WHERE id = ? AND admin_id = ?
	`, id, adminID).Scan(&c.ID, &c.AdminID, &c.Name, &c.Icon, &c.SortOrder, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &c, nil
}

// ListCategories returns the tenant's categories in display order.
func (s *Store) ListCategories(adminID string) ([]*model.Category, error) {
	rows, err := s.db.Query(`
		SELECT id, admin_id, name, icon, sort_order, created_at, updated_at
		FROM categories WHERE admin_id = ? ORDER BY sort_order, name
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*model.Category{}
	for rows.Next() {
		var c model.Category
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.AdminID, &c.Name, &c.Icon, &c.SortOrder, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.CreatedAt, c.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// UpdateCategory renames or reorders a category.
func (s *Store) UpdateCategory(adminID string, id int64, name, icon string, sortOrder int) (*model.Category, error) {
	res, err := s.db.Exec(`
		UPDATE categories SET name = ?, icon = ?, sort_order = ?, updated_at = ?
		WHERE id = ? AND admin_id = ?
	`, name, icon, sortOrder, now(), id, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetCategory(adminID, id)
}

// DeleteCategory removes a category. Menu items keep existing with a
// null category.
func (s *Store) DeleteCategory(adminID string, id int64) error {
	res, err := s.db.Exec("DELETE FROM categories WHERE id = ? AND admin_id = ?", id, adminID)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateIngredient adds a stock item.
func (s *Store) CreateIngredient(adminID, name, unit string, stock float64) (*model.Ingredient, error) {
	res, err := s.db.Exec(`
		INSERT INTO ingredients (admin_id, name, unit, stock, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, adminID, name, unit, stock, now(), now())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("ingredient %q already exists", name)
		}
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetIngredient(adminID, id)
}

// GetIngredient returns one ingredient.
func (s *Store) GetIngredient(adminID string, id int64) (*model.Ingredient, error) {
	var ing model.Ingredient
	var createdAt, updatedAt string
	err := s.db.QueryRow(`
		SELECT id, admin_id, name, unit, stock, created_at, updated_at
		FROM ingredients WHERE id = ? AND admin_id = ?
	`, id, adminID).Scan(&ing.ID, &ing.AdminID, &ing.Name, &ing.Unit, &ing.Stock, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}
	ing.CreatedAt, ing.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &ing, nil
}

// ListIngredients returns the tenant's ingredients by name.
func (s *Store) ListIngredients(adminID string) ([]*model.Ingredient, error) {
	rows, err := s.db.Query(`
		SELECT id, admin_id, name, unit, stock, created_at, updated_at
		FROM ingredients WHERE admin_id = ? ORDER BY name
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	ingredients := []*model.Ingredient{}
	for rows.Next() {
		var ing model.Ingredient
		var createdAt, updatedAt string
		if err := rows.Scan(&ing.ID, &ing.AdminID, &ing.Name, &ing.Unit, &ing.Stock, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		ing.CreatedAt, ing.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		ingredients = append(ingredients, &ing)
	}
	return ingredients, rows.Err()
}

// UpdateIngredientStock sets the current stock level.
func (s *Store) UpdateIngredientStock(adminID string, id int64, stock float64) (*model.Ingredient, error) {
	res, err := s.db.Exec(`
		UPDATE ingredients SET stock = ?, updated_at = ? WHERE id = ? AND admin_id = ?
	`, stock, now(), id, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to update ingredient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetIngredient(adminID, id)
}

// DeleteIngredient removes a stock item and its menu links.
func (s *Store) DeleteIngredient(adminID string, id int64) error {
	res, err := s.db.Exec("DELETE FROM ingredients WHERE id = ? AND admin_id = ?", id, adminID)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MenuInput is the mutable part of a menu item.
type MenuInput struct {
	CategoryID    *int64  `json:"category_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	PriceCents    int     `json:"price_cents"`
	Available     *bool   `json:"available"`
	IngredientIDs []int64 `json:"ingredient_ids"`
}

// CreateMenu adds a menu item with its ingredient links.
func (s *Store) CreateMenu(adminID string, in MenuInput) (*model.Menu, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	available := 1
	if in.Available != nil && !*in.Available {
		available = 0
	}

	res, err := tx.Exec(`
		INSERT INTO menus (admin_id, category_id, name, description, price_cents, available, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, adminID, in.CategoryID, in.Name, in.Description, in.PriceCents, available, now(), now())
	if err != nil {
		return nil, fmt.Errorf("failed to create menu: %w", err)
	}
	id, _ := res.LastInsertId()

	for _, ingredientID := range in.IngredientIDs {
		if _, err := tx.Exec(`
			INSERT INTO menu_ingredients (menu_id, ingredient_id) VALUES (?, ?)
		`, id, ingredientID); err != nil {
			return nil, fmt.Errorf("failed to link ingredient %d: %w", ingredientID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit menu: %w", err)
	}
	return s.GetMenu(adminID, id)
}

// GetMenu returns one menu item with its ingredient ids.
func (s *Store) GetMenu(adminID string, id int64) (*model.Menu, error) {
	var m model.Menu
	var categoryID sql.NullInt64
	var available int
	var createdAt, updatedAt string

	err := s.db.QueryRow(`
		SELECT id, admin_id, category_id, name, description, price_cents, image_key, available, created_at, updated_at
		FROM menus WHERE id = ? AND admin_id = ?
	`, id, adminID).Scan(&m.ID, &m.AdminID, &categoryID, &m.Name, &m.Description,
		&m.PriceCents, &m.ImageKey, &available, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu: %w", err)
	}

	if categoryID.Valid {
		m.CategoryID = &categoryID.Int64
	}
	m.Available = available != 0
	m.CreatedAt, m.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)

	rows, err := s.db.Query("SELECT ingredient_id FROM menu_ingredients WHERE menu_id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu ingredients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ingredientID int64
		if err := rows.Scan(&ingredientID); err != nil {
			return nil, fmt.Errorf("failed to scan menu ingredient: %w", err)
		}
		m.Ingredients = append(m.Ingredients, ingredientID)
	}
	return &m, rows.Err()
}

// ListMenus returns the tenant's full catalog. When availableOnly is set
// only orderable items are returned; the customer menu uses that view.
func (s *Store) ListMenus(adminID string, availableOnly bool) ([]*model.Menu, error) {
	query := `
		SELECT id, admin_id, category_id, name, description, price_cents, image_key, available, created_at, updated_at
		FROM menus WHERE admin_id = ?`
	if availableOnly {
		query += " AND available = 1"
	}
	query += " ORDER BY name"

	rows, err := s.db.Query(query, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list menus: %w", err)
	}
	defer rows.Close()

	menus := []*model.Menu{}
	for rows.Next() {
		var m model.Menu
		var categoryID sql.NullInt64
		var available int
		var createdAt, updatedAt string
		if err := rows.Scan(&m.ID, &m.AdminID, &categoryID, &m.Name, &m.Description,
			&m.PriceCents, &m.ImageKey, &available, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu: %w", err)
		}
		if categoryID.Valid {
			m.CategoryID = &categoryID.Int64
		}
		m.Available = available != 0
		m.CreatedAt, m.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		menus = append(menus, &m)
	}
	return menus, rows.Err()
}

// UpdateMenu rewrites a menu item and its ingredient links.
func (s *Store) UpdateMenu(adminID string, id int64, in MenuInput) (*model.Menu, error) {
	current, err := s.GetMenu(adminID, id)
	if err != nil {
		return nil, err
	}

	available := current.Available
	if in.Available != nil {
		available = *in.Available
	}
	availableInt := 0
	if available {
		availableInt = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		UPDATE menus SET category_id = ?, name = ?, description = ?, price_cents = ?, available = ?, updated_at = ?
		WHERE id = ? AND admin_id = ?
	`, in.CategoryID, in.Name, in.Description, in.PriceCents, availableInt, now(), id, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to update menu: %w", err)
	}

	if in.IngredientIDs != nil {
		if _, err := tx.Exec("DELETE FROM menu_ingredients WHERE menu_id = ?", id); err != nil {
			return nil, fmt.Errorf("failed to clear menu ingredients: %w", err)
		}
		for _, ingredientID := range in.IngredientIDs {
			if _, err := tx.Exec(`
				INSERT INTO menu_ingredients (menu_id, ingredient_id) VALUES (?, ?)
			`, id, ingredientID); err != nil {
				return nil, fmt.Errorf("failed to link ingredient %d: %w", ingredientID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit menu update: %w", err)
	}
	return s.GetMenu(adminID, id)
}

// SetMenuAvailability toggles whether the item can be ordered.
func (s *Store) SetMenuAvailability(adminID string, id int64, available bool) (*model.Menu, error) {
	availableInt := 0
	if available {
		availableInt = 1
	}
	res, err := s.db.Exec(`
		UPDATE menus SET available = ?, updated_at = ? WHERE id = ? AND admin_id = ?
	`, availableInt, now(), id, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to update menu availability: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetMenu(adminID, id)
}

// SetMenuImage records the storage key of the item's image.
func (s *Store) SetMenuImage(adminID string, id int64, imageKey string) (*model.Menu, error) {
	res, err := s.db.Exec(`
		UPDATE menus SET image_key = ?, updated_at = ? WHERE id = ? AND admin_id = ?
	`, imageKey, now(), id, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to set menu image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetMenu(adminID, id)
}

// DeleteMenu removes a menu item. Past order items keep their name and
// price snapshots.
func (s *Store) DeleteMenu(adminID string, id int64) error {
	res, err := s.db.Exec("DELETE FROM menus WHERE id = ? AND admin_id = ?", id, adminID)
	if err != nil {
		return fmt.Errorf("failed to delete menu: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
