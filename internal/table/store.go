// Package table manages dining tables and their occupancy. Each table
// carries a stable random code; the public URL printed on the table's QR
// sticker embeds that code.
package table

import (
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/model"
)

// ErrNotFound is returned when a table does not exist for the tenant.
var ErrNotFound = fmt.Errorf("table not found")

// Store persists dining tables.
type Store struct {
	db *db.DB
}

// NewStore creates a table store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateCode returns a fresh random table code. Codes are globally
// unique so a scanned QR resolves without knowing the tenant.
func GenerateCode() string {
	b := make([]byte, 10)
	for i := range b {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		b[i] = codeAlphabet[n.Int64()]
	}
	return "t-" + string(b)
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func scanTable(row interface{ Scan(...any) error }) (*model.Table, error) {
	var t model.Table
	var createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.AdminID, &t.Code, &t.Name, &t.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan table: %w", err)
	}
	t.CreatedAt, t.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return &t, nil
}

// Create adds a table. An empty code gets a generated one.
func (s *Store) Create(adminID, name, code string) (*model.Table, error) {
	if code == "" {
		code = GenerateCode()
	}

	res, err := s.db.Exec(`
		INSERT INTO dining_tables (admin_id, code, name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, adminID, code, name, now(), now())
	if err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.Get(adminID, id)
}

// Get returns one of the tenant's tables.
func (s *Store) Get(adminID string, id int64) (*model.Table, error) {
	return scanTable(s.db.QueryRow(`
		SELECT id, admin_id, code, name, status, created_at, updated_at
		FROM dining_tables WHERE id = ? AND admin_id = ?
	`, id, adminID))
}

// GetByCode resolves a table from its public code, across all tenants.
func (s *Store) GetByCode(code string) (*model.Table, error) {
	return scanTable(s.db.QueryRow(`
		SELECT id, admin_id, code, name, status, created_at, updated_at
		FROM dining_tables WHERE code = ?
	`, code))
}

// List returns the tenant's tables by name.
func (s *Store) List(adminID string) ([]*model.Table, error) {
	rows, err := s.db.Query(`
		SELECT id, admin_id, code, name, status, created_at, updated_at
		FROM dining_tables WHERE admin_id = ? ORDER BY name
	`, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := []*model.Table{}
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

// Rename changes a table's display name.
func (s *Store) Rename(adminID string, id int64, name string) (*model.Table, error) {
	res, err := s.db.Exec(`
		UPDATE dining_tables SET name = ?, updated_at = ? WHERE id = ? AND admin_id = ?
	`, name, now(), id, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to rename table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(adminID, id)
}

// Occupy flips the table from available to occupied. The flip happens at
// most once: it reports true only for the request that actually changed
// the row, so repeat scans of the same QR stay silent.
func (s *Store) Occupy(id int64) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE dining_tables SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, model.TableOccupied, now(), id, model.TableAvailable)
	if err != nil {
		return false, fmt.Errorf("failed to occupy table: %w", err)
	}
	n, _ := res.RowsAffected()
	return n == 1, nil
}

// Release sets the table back to available after the guests leave.
func (s *Store) Release(adminID string, id int64) (*model.Table, error) {
	res, err := s.db.Exec(`
		UPDATE dining_tables SET status = ?, updated_at = ? WHERE id = ? AND admin_id = ?
	`, model.TableAvailable, now(), id, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to release table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(adminID, id)
}

// Delete removes a table. Tables with order history cannot be removed;
// the orders FK keeps them.
func (s *Store) Delete(adminID string, id int64) error {
	res, err := s.db.Exec("DELETE FROM dining_tables WHERE id = ? AND admin_id = ?", id, adminID)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
