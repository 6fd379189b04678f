// Package types holds the request plumbing shared by the HTTP handler
// packages: the error envelope, response helpers, and the authenticated
// admin's request context.
package types

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/markb/tably/internal/model"
)

// ErrorResponse is the JSON error envelope for every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes the error envelope with the given status.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errCode, Message: message})
}

// WriteJSON writes a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type contextKey string

const adminContextKey contextKey = "admin"

// WithAdmin stores the authenticated admin on the request context.
func WithAdmin(ctx context.Context, admin *model.Admin) context.Context {
	return context.WithValue(ctx, adminContextKey, admin)
}

// AdminFromContext returns the authenticated admin, or nil outside an
// authenticated route.
func AdminFromContext(ctx context.Context) *model.Admin {
	admin, _ := ctx.Value(adminContextKey).(*model.Admin)
	return admin
}
