// Package oauth defines the multi-provider OAuth2 login contract.
//
// Architecture:
//   - Strategy: the five authorization-code operations every provider implements
//   - Base: shared plumbing (URL building, token endpoint, userinfo GET,
//     profile assembly) that provider packages hold as a field and call into
//   - Registry: provider id -> Strategy, built once at startup
//
// Provider implementations live in sub-packages (google, github, microsoft)
// and are wired through a Factory.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/clock"
)

// Operation labels used in errors, logs and metrics.
const (
	OpExchange = "exchange"
	OpRefresh  = "refresh"
	OpProfile  = "profile"
	OpRevoke   = "revoke"
)

// Strategy is one identity provider's authorization-code flow.
// Implementations are immutable after construction and safe for concurrent use.
type Strategy interface {
	// ID is the configured provider id, e.g. "google".
	ID() string

	// Capabilities reports which optional operations are implemented.
	Capabilities() Capabilities

	// AuthorizationURL builds the provider redirect. It performs no I/O.
	AuthorizationURL(state string, extra url.Values) string

	// ExchangeCode trades an authorization code for tokens. Never retried:
	// codes are single use.
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)

	// FetchProfile loads and normalizes the user behind tokens.AccessToken.
	FetchProfile(ctx context.Context, tokens *TokenResponse) (*Profile, error)

	// RefreshToken trades a refresh token for new tokens, or returns
	// ErrUnsupportedOperation.
	RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error)

	// RevokeToken asks the provider to revoke token. It reports false on any
	// failure and never returns an error.
	RevokeToken(ctx context.Context, token string) bool
}

// Capabilities lists optional provider operations.
type Capabilities struct {
	Refresh bool
	Revoke  bool
}

// ProviderConfig is the static configuration of one provider.
type ProviderConfig struct {
	ID           string
	Kind         string // implementation to use; defaults to ID
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	RevokeURL    string
	Scopes       []string
	RedirectURI  string
	Extra        map[string]string
}

// KindOrID returns Kind, or ID when Kind is empty.
func (c ProviderConfig) KindOrID() string {
	if c.Kind != "" {
		return c.Kind
	}
	return c.ID
}

// ExtraValue returns Extra[key] or def.
func (c ProviderConfig) ExtraValue(key, def string) string {
	if v, ok := c.Extra[key]; ok && v != "" {
		return v
	}
	return def
}

// WithDefaults fills blank endpoints and scopes from d.
func (c ProviderConfig) WithDefaults(d ProviderConfig) ProviderConfig {
	if c.AuthorizeURL == "" {
		c.AuthorizeURL = d.AuthorizeURL
	}
	if c.TokenURL == "" {
		c.TokenURL = d.TokenURL
	}
	if c.UserInfoURL == "" {
		c.UserInfoURL = d.UserInfoURL
	}
	if c.RevokeURL == "" {
		c.RevokeURL = d.RevokeURL
	}
	if len(c.Scopes) == 0 {
		c.Scopes = append([]string(nil), d.Scopes...)
	}
	return c
}

// Validate checks the fields every strategy needs.
func (c ProviderConfig) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if c.ClientID == "" {
		errs = append(errs, errors.New("client_id is required"))
	}
	if c.ClientSecret == "" {
		errs = append(errs, errors.New("client_secret is required"))
	}
	if c.RedirectURI == "" {
		errs = append(errs, errors.New("redirect_uri is required"))
	}
	endpoints := []struct{ name, raw string }{
		{"authorize_url", c.AuthorizeURL},
		{"token_url", c.TokenURL},
		{"userinfo_url", c.UserInfoURL},
	}
	for _, ep := range endpoints {
		if ep.raw == "" {
			errs = append(errs, fmt.Errorf("%s is required", ep.name))
			continue
		}
		if u, err := url.Parse(ep.raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute URL", ep.name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("provider %q: %w", c.ID, err)
	}
	return nil
}

// String omits the client secret.
func (c ProviderConfig) String() string {
	return fmt.Sprintf("ProviderConfig{id=%s kind=%s client_id=%s redirect_uri=%s scopes=%v}",
		c.ID, c.KindOrID(), c.ClientID, c.RedirectURI, c.Scopes)
}

// Deps are the collaborators injected into every strategy.
type Deps struct {
	HTTP  HTTPDoer
	Clock clock.Clock
	Log   *zap.Logger

	// Timeout bounds each outbound attempt. Defaults to 10s.
	Timeout time.Duration
	// GetRetries is the number of extra attempts for GET calls after a
	// transport error or 5xx. POSTs are never retried.
	GetRetries int
	// RetryWait is the pause before a retry. Defaults to 200ms.
	RetryWait time.Duration
}

// Factory builds a strategy for one provider kind.
type Factory func(cfg ProviderConfig, deps Deps) (Strategy, error)
