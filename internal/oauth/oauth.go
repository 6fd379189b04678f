// Package oauth implements provider sign-in for the admin dashboard.
package oauth

import (
	"context"
	"errors"
)

var (
	ErrProviderNotFound   = errors.New("oauth provider not found")
	ErrProviderNotEnabled = errors.New("oauth provider not enabled")
	ErrEmailRequired      = errors.New("email is required from oauth provider")
)

// Provider is one external identity provider.
type Provider interface {
	// Name returns the provider identifier, e.g. "google".
	Name() string

	// AuthURL builds the authorization URL for the given state.
	AuthURL(state string) string

	// Exchange trades an authorization code for an access token.
	Exchange(ctx context.Context, code string) (string, error)

	// FetchUser fetches the signed-in user's profile.
	FetchUser(ctx context.Context, accessToken string) (*UserInfo, error)
}

// UserInfo is the provider profile used to find or create an admin account.
type UserInfo struct {
	ProviderID string `json:"provider_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	AvatarURL  string `json:"avatar_url"`
}

// Config holds one provider's client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Enabled      bool
}

// Registry maps provider names to configured providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get returns the provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Names returns the registered provider names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
