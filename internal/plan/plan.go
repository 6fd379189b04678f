// Package plan exposes subscription tiers and enforces their count
// ceilings.
package plan

import (
	"database/sql"
	"fmt"

	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/model"
)

// ErrLimitReached is returned when an account is at its plan ceiling.
type ErrLimitReached struct {
	Resource string
	Limit    int
}

func (e *ErrLimitReached) Error() string {
	return fmt.Sprintf("plan limit reached: at most %d %s allowed", e.Limit, e.Resource)
}

// Service reads plans and checks resource counts against them.
type Service struct {
	db *db.DB
}

// NewService creates a plan service.
func NewService(database *db.DB) *Service {
	return &Service{db: database}
}

// Get returns a plan by id.
func (s *Service) Get(id string) (*model.Plan, error) {
	var p model.Plan
	err := s.db.QueryRow(`
		SELECT id, name, max_tables, max_menus, price_cents FROM plans WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.MaxTables, &p.MaxMenus, &p.PriceCents)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

// List returns all plans ordered by price.
func (s *Service) List() ([]*model.Plan, error) {
	rows, err := s.db.Query("SELECT id, name, max_tables, max_menus, price_cents FROM plans ORDER BY price_cents")
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.MaxTables, &p.MaxMenus, &p.PriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, &p)
	}
	return plans, rows.Err()
}

func (s *Service) planFor(adminID string) (*model.Plan, error) {
	var planID string
	err := s.db.QueryRow("SELECT plan_id FROM admins WHERE id = ?", adminID).Scan(&planID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve plan for admin: %w", err)
	}
	return s.Get(planID)
}

// CheckTableLimit returns ErrLimitReached when the account already has as
// many tables as its plan allows.
func (s *Service) CheckTableLimit(adminID string) error {
	p, err := s.planFor(adminID)
	if err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM dining_tables WHERE admin_id = ?", adminID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count tables: %w", err)
	}
	if count >= p.MaxTables {
		return &ErrLimitReached{Resource: "tables", Limit: p.MaxTables}
	}
	return nil
}

// CheckMenuLimit returns ErrLimitReached when the account already has as
// many menu items as its plan allows.
func (s *Service) CheckMenuLimit(adminID string) error {
	p, err := s.planFor(adminID)
	if err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM menus WHERE admin_id = ?", adminID).Scan(&count); err != nil {
		return fmt.Errorf("failed to count menus: %w", err)
	}
	if count >= p.MaxMenus {
		return &ErrLimitReached{Resource: "menus", Limit: p.MaxMenus}
	}
	return nil
}

// ChangePlan moves an account onto a different tier. Downgrades are
// allowed even when existing counts exceed the new ceilings; the limits
// only gate new creations.
func (s *Service) ChangePlan(adminID, planID string) error {
	if _, err := s.Get(planID); err != nil {
		return err
	}
	res, err := s.db.Exec("UPDATE admins SET plan_id = ?, updated_at = datetime('now') WHERE id = ?", planID, adminID)
	if err != nil {
		return fmt.Errorf("failed to change plan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("admin not found")
	}
	return nil
}
