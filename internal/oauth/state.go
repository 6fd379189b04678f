// internal/oauth/state.go
package oauth

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/markb/tably/internal/db"
)

// ErrStateNotFound is returned when a flow state is missing or expired.
var ErrStateNotFound = errors.New("oauth state not found or expired")

// FlowState is the anti-forgery state stored for one authorization flow.
type FlowState struct {
	State      string
	Provider   string
	RedirectTo string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// StateStore persists flow state between the redirect and the callback.
type StateStore struct {
	db *db.DB
}

// NewStateStore creates a state store.
func NewStateStore(database *db.DB) *StateStore {
	return &StateStore{db: database}
}

// Create stores a fresh flow state with a 10-minute expiry and returns the
// state value to embed in the authorization URL.
func (s *StateStore) Create(provider, redirectTo string) (string, error) {
	b := make([]byte, 24)
	rand.Read(b)
	state := base64.RawURLEncoding.EncodeToString(b)

	now := time.Now().UTC()
	expiresAt := now.Add(10 * time.Minute)

	_, err := s.db.Exec(`
		INSERT INTO oauth_states (state, provider, redirect_to, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, state, provider, redirectTo, now.Format(time.RFC3339), expiresAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to store oauth state: %w", err)
	}
	return state, nil
}

// Consume validates a state from the callback and deletes it. A state can
// only be consumed once.
func (s *StateStore) Consume(state string) (*FlowState, error) {
	var fs FlowState
	var createdAt, expiresAt string

	err := s.db.QueryRow(`
		SELECT state, provider, redirect_to, created_at, expires_at
		FROM oauth_states WHERE state = ?
	`, state).Scan(&fs.State, &fs.Provider, &fs.RedirectTo, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth state: %w", err)
	}

	s.db.Exec("DELETE FROM oauth_states WHERE state = ?", state)

	fs.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	fs.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	if time.Now().UTC().After(fs.ExpiresAt) {
		return nil, ErrStateNotFound
	}

	return &fs, nil
}

// CleanupExpired removes all expired flow states.
func (s *StateStore) CleanupExpired() error {
	_, err := s.db.Exec("DELETE FROM oauth_states WHERE expires_at <= ?", time.Now().UTC().Format(time.RFC3339))
	return err
}
