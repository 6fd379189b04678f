// Package auth manages tenant (admin) accounts: password credentials,
// sessions, and JWT access/refresh tokens.
package auth

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/model"
)

// Service provides admin account operations.
type Service struct {
	db        *db.DB
	jwtSecret string
}

// NewService creates an auth service.
func NewService(database *db.DB, jwtSecret string) *Service {
	return &Service{db: database, jwtSecret: jwtSecret}
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// CreateAdmin registers a new tenant account on the free plan.
func (s *Service) CreateAdmin(email, password, restaurantName string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id := generateID()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.Exec(`
		INSERT INTO admins (id, email, encrypted_password, restaurant_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, email, string(hash), restaurantName, now, now)

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("admin with email %s already exists", email)
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return s.GetAdminByID(id)
}

// GetAdminByID returns an admin account by id.
func (s *Service) GetAdminByID(id string) (*model.Admin, error) {
	var admin model.Admin
	var theme, createdAt, updatedAt string
	var lastSignInAt sql.NullString

	err := s.db.QueryRow(`
		SELECT id, email, encrypted_password, restaurant_name, plan_id, theme,
		       last_sign_in_at, created_at, updated_at
		FROM admins WHERE id = ? AND deleted_at IS NULL
	`, id).Scan(&admin.ID, &admin.Email, &admin.EncryptedPassword, &admin.RestaurantName,
		&admin.PlanID, &theme, &lastSignInAt, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("admin not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	admin.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	admin.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	if lastSignInAt.Valid {
		t, _ := time.Parse(time.RFC3339, lastSignInAt.String)
		admin.LastSignInAt = &t
	}
	if err := json.Unmarshal([]byte(theme), &admin.Theme); err != nil {
		admin.Theme = map[string]any{}
	}

	return &admin, nil
}

// GetAdminByEmail returns an admin account by email.
func (s *Service) GetAdminByEmail(email string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var id string
	err := s.db.QueryRow("SELECT id FROM admins WHERE email = ? AND deleted_at IS NULL", email).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("admin not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return s.GetAdminByID(id)
}

// ValidatePassword checks a password against the stored hash.
func (s *Service) ValidatePassword(admin *model.Admin, password string) bool {
	if admin.EncryptedPassword == "" {
		return false // OAuth-only account
	}
	return bcrypt.CompareHashAndPassword([]byte(admin.EncryptedPassword), []byte(password)) == nil
}

// TouchLastSignIn records a successful sign-in.
func (s *Service) TouchLastSignIn(adminID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec("UPDATE admins SET last_sign_in_at = ?, updated_at = ? WHERE id = ?", now, now, adminID)
	if err != nil {
		return fmt.Errorf("failed to update last sign-in: %w", err)
	}
	return nil
}

// UpdateProfile updates the mutable profile fields. Nil fields are left
// untouched.
func (s *Service) UpdateProfile(adminID string, restaurantName *string, theme map[string]any) (*model.Admin, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	if restaurantName != nil {
		_, err := s.db.Exec("UPDATE admins SET restaurant_name = ?, updated_at = ? WHERE id = ?",
			*restaurantName, now, adminID)
		if err != nil {
			return nil, fmt.Errorf("failed to update restaurant name: %w", err)
		}
	}

	if theme != nil {
		raw, err := json.Marshal(theme)
		if err != nil {
			return nil, fmt.Errorf("failed to encode theme: %w", err)
		}
		_, err = s.db.Exec("UPDATE admins SET theme = ?, updated_at = ? WHERE id = ?",
			string(raw), now, adminID)
		if err != nil {
			return nil, fmt.Errorf("failed to update theme: %w", err)
		}
	}

	return s.GetAdminByID(adminID)
}

// CreateOAuthAdmin finds or creates an account for an OAuth sign-in. An
// existing account with the same email is reused; a fresh account has no
// password and can only sign in via the provider.
func (s *Service) CreateOAuthAdmin(email, restaurantName string) (*model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if admin, err := s.GetAdminByEmail(email); err == nil {
		return admin, nil
	}

	id := generateID()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO admins (id, email, encrypted_password, restaurant_name, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, ?)
	`, id, email, restaurantName, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	return s.GetAdminByID(id)
}
