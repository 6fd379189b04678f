// internal/server/server_test.go
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/observability"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	database, err := db.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	t.Cleanup(func() { database.Close() })

	s, err := New(database, Config{
		JWTSecret:   "test-secret",
		BaseURL:     "http://localhost:8080",
		StoragePath: t.TempDir(),
	})
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// signUpAndSignIn registers a tenant and returns its access token.
func signUpAndSignIn(t *testing.T, s *Server, email string) string {
	t.Helper()
	w := doJSON(t, s, "POST", "/auth/v1/signup", "", map[string]string{
		"email": email, "password": "secret123", "restaurant_name": "Warung",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, s, "POST", "/auth/v1/token", "", map[string]string{
		"grant_type": "password", "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var pair struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &pair)
	require.NotEmpty(t, pair.AccessToken)
	return pair.AccessToken
}

func TestHealth(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "healthy")
}

func TestSignupAndTokenFlow(t *testing.T) {
	s := setupServer(t)
	token := signUpAndSignIn(t, s, "owner@example.com")

	w := doJSON(t, s, "GET", "/auth/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		Email string `json:"email"`
		Plan  string `json:"plan_id"`
	}
	decode(t, w, &profile)
	require.Equal(t, "owner@example.com", profile.Email)
	require.Equal(t, "free", profile.Plan)
}

func TestTokenRejectsBadPassword(t *testing.T) {
	s := setupServer(t)
	signUpAndSignIn(t, s, "owner@example.com")

	w := doJSON(t, s, "POST", "/auth/v1/token", "", map[string]string{
		"grant_type": "password", "email": "owner@example.com", "password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshGrantRotates(t *testing.T) {
	s := setupServer(t)
	signUpAndSignIn(t, s, "owner@example.com")

	w := doJSON(t, s, "POST", "/auth/v1/token", "", map[string]string{
		"grant_type": "password", "email": "owner@example.com", "password": "secret123",
	})
	var pair struct {
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, w, &pair)

	w = doJSON(t, s, "POST", "/auth/v1/token", "", map[string]string{
		"grant_type": "refresh_token", "refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The old token is revoked after rotation.
	w = doJSON(t, s, "POST", "/auth/v1/token", "", map[string]string{
		"grant_type": "refresh_token", "refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, "GET", "/admin/v1/menus", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, s, "GET", "/admin/v1/menus", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMenuCRUDOverHTTP(t *testing.T) {
	s := setupServer(t)
	token := signUpAndSignIn(t, s, "owner@example.com")

	w := doJSON(t, s, "POST", "/admin/v1/menus", token, map[string]any{
		"name": "Nasi Goreng", "price_cents": 2500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &created)

	w = doJSON(t, s, "PATCH", fmt.Sprintf("/admin/v1/menus/%d/availability", created.ID), token, map[string]any{
		"available": false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, "GET", "/admin/v1/menus", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var menus []struct {
		Available bool `json:"available"`
	}
	decode(t, w, &menus)
	require.Len(t, menus, 1)
	require.False(t, menus[0].Available)
}

func TestPublicScanFlowAndOrder(t *testing.T) {
	s := setupServer(t)
	token := signUpAndSignIn(t, s, "owner@example.com")

	w := doJSON(t, s, "POST", "/admin/v1/menus", token, map[string]any{
		"name": "Satay", "price_cents": 1800,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var item struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &item)

	w = doJSON(t, s, "POST", "/admin/v1/tables", token, map[string]any{"name": "Window 1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tbl struct {
		Code      string `json:"code"`
		QRPayload string `json:"qr_payload"`
	}
	decode(t, w, &tbl)
	require.Equal(t, "http://localhost:8080/t/"+tbl.Code, tbl.QRPayload)

	// First scan flips the table to occupied and serves the menu.
	w = doJSON(t, s, "GET", "/public/v1/t/"+tbl.Code, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var scan struct {
		RestaurantName string `json:"restaurant_name"`
		Table          struct {
			Status string `json:"status"`
		} `json:"table"`
		Menus []struct {
			Name string `json:"name"`
		} `json:"menus"`
	}
	decode(t, w, &scan)
	require.Equal(t, "Warung", scan.RestaurantName)
	require.Equal(t, "occupied", scan.Table.Status)
	require.Len(t, scan.Menus, 1)

	// Repeat scan still serves the menu, table stays occupied.
	w = doJSON(t, s, "GET", "/public/v1/t/"+tbl.Code, "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// Place an order without credentials.
	w = doJSON(t, s, "POST", "/public/v1/t/"+tbl.Code+"/orders", "", map[string]any{
		"items": []map[string]any{{"menu_id": item.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var placed struct {
		ID         int64  `json:"id"`
		Status     string `json:"status"`
		TotalCents int    `json:"total_cents"`
	}
	decode(t, w, &placed)
	require.Equal(t, "pending", placed.Status)
	require.Equal(t, 3600, placed.TotalCents)

	// Track it publicly.
	w = doJSON(t, s, "GET", fmt.Sprintf("/public/v1/orders/%d", placed.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// The kitchen advances it.
	w = doJSON(t, s, "PATCH", fmt.Sprintf("/admin/v1/orders/%d/status", placed.ID), token, map[string]any{
		"status": "preparing",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Skipping ahead is rejected.
	w = doJSON(t, s, "PATCH", fmt.Sprintf("/admin/v1/orders/%d/status", placed.ID), token, map[string]any{
		"status": "paid",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestScanUnknownCode(t *testing.T) {
	s := setupServer(t)
	w := doJSON(t, s, "GET", "/public/v1/t/t-nosuchcode", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTableLimitEnforcedOverHTTP(t *testing.T) {
	s := setupServer(t)
	token := signUpAndSignIn(t, s, "owner@example.com")

	for i := 0; i < 5; i++ {
		w := doJSON(t, s, "POST", "/admin/v1/tables", token, map[string]any{
			"name": fmt.Sprintf("Table %d", i+1),
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, s, "POST", "/admin/v1/tables", token, map[string]any{"name": "One too many"})
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "plan_limit")
}

func TestChangePlanOverHTTP(t *testing.T) {
	s := setupServer(t)
	token := signUpAndSignIn(t, s, "owner@example.com")

	w := doJSON(t, s, "GET", "/admin/v1/plans", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, "PUT", "/admin/v1/plan", token, map[string]string{"plan_id": "pro"})
	require.Equal(t, http.StatusOK, w.Code)

	var profile struct {
		Plan string `json:"plan_id"`
	}
	decode(t, w, &profile)
	require.Equal(t, "pro", profile.Plan)
}

func TestLogoutRevokesSession(t *testing.T) {
	s := setupServer(t)
	signUpAndSignIn(t, s, "owner@example.com")

	w := doJSON(t, s, "POST", "/auth/v1/token", "", map[string]string{
		"grant_type": "password", "email": "owner@example.com", "password": "secret123",
	})
	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decode(t, w, &pair)

	w = doJSON(t, s, "POST", "/auth/v1/logout", pair.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, s, "POST", "/auth/v1/token", "", map[string]string{
		"grant_type": "refresh_token", "refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOAuthAuthorizeWithoutProvider(t *testing.T) {
	s := setupServer(t)

	w := doJSON(t, s, "GET", "/auth/v1/authorize?provider=google", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code, "google is not configured in tests")

	w = doJSON(t, s, "GET", "/auth/v1/authorize", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantsCannotSeeEachOther(t *testing.T) {
	s := setupServer(t)
	tokenA := signUpAndSignIn(t, s, "a@example.com")
	tokenB := signUpAndSignIn(t, s, "b@example.com")

	w := doJSON(t, s, "POST", "/admin/v1/menus", tokenA, map[string]any{
		"name": "Secret Dish", "price_cents": 1000,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID int64 `json:"id"`
	}
	decode(t, w, &created)

	w = doJSON(t, s, "GET", fmt.Sprintf("/admin/v1/menus/%d", created.ID), tokenB, nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, s, "GET", "/admin/v1/menus", tokenB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var menus []any
	decode(t, w, &menus)
	require.Empty(t, menus)
}

func TestTelemetryInstrumentedRouter(t *testing.T) {
	database, err := db.New(t.TempDir() + "/test.db")
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations())
	t.Cleanup(func() { database.Close() })

	obsCfg := observability.DefaultConfig()
	obsCfg.Exporter = "stdout"
	obsCfg.MetricsEnabled = true
	obsCfg.TracesEnabled = true
	tel, err := observability.Init(context.Background(), obsCfg)
	require.NoError(t, err)
	t.Cleanup(tel.Cleanup)

	s, err := New(database, Config{
		JWTSecret:   "test-secret",
		StoragePath: t.TempDir(),
		Telemetry:   tel,
	})
	require.NoError(t, err)

	// Instrumentation must be transparent to the API surface.
	w := doJSON(t, s, "GET", "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	token := signUpAndSignIn(t, s, "owner@example.com")
	w = doJSON(t, s, "GET", "/auth/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
