// internal/server/middleware.go
package server

import (
	"net/http"
	"strings"

	"github.com/markb/tably/internal/types"
)

// authMiddleware validates the bearer token and loads the admin account
// onto the request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			types.WriteError(w, http.StatusUnauthorized, "no_authorization", "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			types.WriteError(w, http.StatusUnauthorized, "invalid_authorization", "Invalid authorization header format")
			return
		}

		claims, err := s.authService.ValidateAccessToken(parts[1])
		if err != nil {
			types.WriteError(w, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}

		adminID, _ := (*claims)["sub"].(string)
		admin, err := s.authService.GetAdminByID(adminID)
		if err != nil {
			types.WriteError(w, http.StatusUnauthorized, "admin_not_found", "Account not found")
			return
		}

		next.ServeHTTP(w, r.WithContext(types.WithAdmin(r.Context(), admin)))
	})
}
