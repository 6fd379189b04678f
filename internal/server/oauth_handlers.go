// internal/server/oauth_handlers.go
package server

import (
	"net/http"
	"net/url"

	"github.com/markb/tably/internal/types"
)

// handleAuthorize starts a provider sign-in flow.
// GET /auth/v1/authorize?provider=google&redirect_to=/dashboard
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	providerName := r.URL.Query().Get("provider")
	redirectTo := r.URL.Query().Get("redirect_to")

	if providerName == "" {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "provider parameter is required")
		return
	}

	provider, err := s.oauthRegistry.Get(providerName)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "provider_not_found", "Provider not found or not enabled")
		return
	}

	state, err := s.oauthStateStore.Create(providerName, redirectTo)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to start sign-in flow")
		return
	}

	http.Redirect(w, r, provider.AuthURL(state), http.StatusFound)
}

// handleCallback finishes a provider sign-in flow: the state is consumed,
// the code exchanged, and the browser redirected with a fresh token pair
// in the fragment.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		types.WriteError(w, http.StatusBadRequest, "provider_error", errParam)
		return
	}
	if state == "" || code == "" {
		types.WriteError(w, http.StatusBadRequest, "invalid_request", "state and code are required")
		return
	}

	flow, err := s.oauthStateStore.Consume(state)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "invalid_state", "Sign-in flow not found or expired")
		return
	}

	provider, err := s.oauthRegistry.Get(flow.Provider)
	if err != nil {
		types.WriteError(w, http.StatusBadRequest, "provider_not_found", "Provider no longer enabled")
		return
	}

	accessToken, err := provider.Exchange(r.Context(), code)
	if err != nil {
		types.WriteError(w, http.StatusBadGateway, "exchange_failed", "Failed to exchange authorization code")
		return
	}

	userInfo, err := provider.FetchUser(r.Context(), accessToken)
	if err != nil {
		types.WriteError(w, http.StatusBadGateway, "userinfo_failed", "Failed to fetch provider profile")
		return
	}

	admin, err := s.authService.CreateOAuthAdmin(userInfo.Email, userInfo.Name)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign in account")
		return
	}

	session, refreshToken, err := s.authService.CreateSession(admin)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to create session")
		return
	}
	s.authService.TouchLastSignIn(admin.ID)

	jwt, err := s.authService.GenerateAccessToken(admin, session.ID)
	if err != nil {
		types.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to sign token")
		return
	}

	// Without a redirect target, answer with the token pair directly so
	// API clients can drive the flow.
	if flow.RedirectTo == "" {
		s.writeTokenPair(w, admin, session.ID, refreshToken)
		return
	}

	fragment := url.Values{}
	fragment.Set("access_token", jwt)
	fragment.Set("refresh_token", refreshToken)
	fragment.Set("token_type", "bearer")
	http.Redirect(w, r, flow.RedirectTo+"#"+fragment.Encode(), http.StatusFound)
}
