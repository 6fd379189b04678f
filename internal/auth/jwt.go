// internal/auth/jwt.go
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markb/tably/internal/model"
)

// Session is one signed-in dashboard session.
type Session struct {
	ID        string    `json:"id"`
	AdminID   string    `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPair is the response shape of the token endpoint.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

const (
	AccessTokenExpiry  = 3600   // 1 hour
	RefreshTokenExpiry = 604800 // 1 week
)

// GenerateAccessToken signs a JWT for the admin. The subject claim is the
// admin id; the realtime layer checks it against tenant-scoped join
// requests.
func (s *Service) GenerateAccessToken(admin *model.Admin, sessionID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":        "tably",
		"sub":        admin.ID,
		"email":      admin.Email,
		"plan":       admin.PlanID,
		"session_id": sessionID,
		"iat":        now.Unix(),
		"exp":        now.Add(time.Duration(AccessTokenExpiry) * time.Second).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

// ValidateAccessToken parses and verifies an access token.
func (s *Service) ValidateAccessToken(tokenString string) (*jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &claims, nil
}

func generateRefreshToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return "v1." + base64.RawURLEncoding.EncodeToString(b)
}

// CreateSession opens a session and issues its refresh token.
func (s *Service) CreateSession(admin *model.Admin) (*Session, string, error) {
	sessionID := generateID()
	refreshToken := generateRefreshToken()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.Exec(`
		INSERT INTO admin_sessions (id, admin_id, created_at) VALUES (?, ?, ?)
	`, sessionID, admin.ID, now)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create session: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO admin_refresh_tokens (token, admin_id, session_id, created_at)
		VALUES (?, ?, ?, ?)
	`, refreshToken, admin.ID, sessionID, now)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return &Session{ID: sessionID, AdminID: admin.ID, CreatedAt: time.Now().UTC()}, refreshToken, nil
}

// RefreshSession rotates a refresh token: the old one is revoked and a new
// one issued for the same session.
func (s *Service) RefreshSession(refreshToken string) (*model.Admin, *Session, string, error) {
	var adminID, sessionID string
	var revoked int

	err := s.db.QueryRow(`
		SELECT admin_id, session_id, revoked FROM admin_refresh_tokens WHERE token = ?
	`, refreshToken).Scan(&adminID, &sessionID, &revoked)
	if err != nil {
		return nil, nil, "", fmt.Errorf("refresh token not found")
	}
	if revoked != 0 {
		return nil, nil, "", fmt.Errorf("refresh token revoked")
	}

	admin, err := s.GetAdminByID(adminID)
	if err != nil {
		return nil, nil, "", err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	newToken := generateRefreshToken()

	_, err = s.db.Exec("UPDATE admin_refresh_tokens SET revoked = 1 WHERE token = ?", refreshToken)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO admin_refresh_tokens (token, admin_id, session_id, created_at)
		VALUES (?, ?, ?, ?)
	`, newToken, adminID, sessionID, now)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	session := &Session{ID: sessionID, AdminID: adminID}
	return admin, session, newToken, nil
}

// RevokeSession ends a session and revokes its refresh tokens.
func (s *Service) RevokeSession(sessionID string) error {
	_, err := s.db.Exec("UPDATE admin_refresh_tokens SET revoked = 1 WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	_, err = s.db.Exec("DELETE FROM admin_sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
