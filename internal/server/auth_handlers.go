// internal/server/auth_handlers.go
package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/markb/tably/internal/auth"
	"github.com/markb/tably/internal/model"
	"github.com/markb/tably/internal/types"
)

type signupRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RestaurantName string `json:"restaurant_name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := types.ValidateEmail(req.Email); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if err := types.ValidatePassword(req.Password); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}
	if err := types.ValidateRequired("restaurant_name", req.RestaurantName); err != nil {
		types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	admin, err := s.authService.CreateAdmin(req.Email, req.Password, req.RestaurantName)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			types.WriteError(w, http.StatusBadRequest, "admin_already_exists", "Account already registered")
			return
		}
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create account")
		return
	}

	types.WriteJSON(w, http.StatusCreated, admin)
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	RefreshToken string `json:"refresh_token"`
}

// handleToken issues tokens for the password and refresh_token grants.
// The grant type also comes from the query string for OAuth2-style
// clients.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	grantType := req.GrantType
	if q := r.URL.Query().Get("grant_type"); q != "" {
		grantType = q
	}

	switch grantType {
	case "password":
		s.handlePasswordGrant(w, req)
	case "refresh_token":
		s.handleRefreshGrant(w, req)
	default:
		types.WriteError(w, http.StatusBadRequest, "invalid_grant", "Unsupported grant type")
	}
}

func (s *Server) handlePasswordGrant(w http.ResponseWriter, req tokenRequest) {
	admin, err := s.authService.GetAdminByEmail(req.Email)
	if err != nil || !s.authService.ValidatePassword(admin, req.Password) {
		types.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
		return
	}

	session, refreshToken, err := s.authService.CreateSession(admin)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create session")
		return
	}

	s.authService.TouchLastSignIn(admin.ID)
	s.writeTokenPair(w, admin, session.ID, refreshToken)
}

func (s *Server) handleRefreshGrant(w http.ResponseWriter, req tokenRequest) {
	if req.RefreshToken == "" {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
		return
	}

	admin, session, newToken, err := s.authService.RefreshSession(req.RefreshToken)
	if err != nil {
		types.WriteError(w, http.StatusUnauthorized, "invalid_grant", "Invalid or revoked refresh token")
		return
	}

	s.writeTokenPair(w, admin, session.ID, newToken)
}

func (s *Server) writeTokenPair(w http.ResponseWriter, admin *model.Admin, sessionID, refreshToken string) {
	accessToken, err := s.authService.GenerateAccessToken(admin, sessionID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign token")
		return
	}

	types.WriteJSON(w, http.StatusOK, auth.TokenPair{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		ExpiresIn:    auth.AccessTokenExpiry,
		RefreshToken: refreshToken,
	})
}

// handleLogout revokes the session carried by the access token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	tokenString := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims, err := s.authService.ValidateAccessToken(tokenString)
	if err == nil {
		if sessionID, ok := (*claims)["session_id"].(string); ok {
			s.authService.RevokeSession(sessionID)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())
	types.WriteJSON(w, http.StatusOK, admin)
}

type profileRequest struct {
	RestaurantName *string        `json:"restaurant_name"`
	Theme          map[string]any `json:"theme"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.RestaurantName != nil {
		if err := types.ValidateRequired("restaurant_name", *req.RestaurantName); err != nil {
			types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
	}
	if req.Theme != nil {
		if err := types.ValidateTheme(req.Theme); err != nil {
			types.WriteError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
	}

	updated, err := s.authService.UpdateProfile(admin.ID, req.RestaurantName, req.Theme)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to update profile")
		return
	}
	types.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planService.List()
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to list plans")
		return
	}
	types.WriteJSON(w, http.StatusOK, plans)
}

func (s *Server) handleChangePlan(w http.ResponseWriter, r *http.Request) {
	admin := types.AdminFromContext(r.Context())

	var req struct {
		PlanID string `json:"plan_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if err := s.planService.ChangePlan(admin.ID, req.PlanID); err != nil {
		types.WriteError(w, http.StatusBadRequest, "change_failed", err.Error())
		return
	}

	updated, err := s.authService.GetAdminByID(admin.ID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to reload account")
		return
	}
	types.WriteJSON(w, http.StatusOK, updated)
}
