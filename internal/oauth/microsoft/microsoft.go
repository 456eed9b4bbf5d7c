// Package microsoft implements the Microsoft identity platform (v2.0)
// strategy for personal and work/school accounts. The profile comes from
// Microsoft Graph /me.
package microsoft

import (
	"context"
	"net/url"
	"strings"

	"github.com/dropDatabas3/socialauth/internal/oauth"
)

const ProviderName = "microsoft"

const (
	loginHost   = "https://login.microsoftonline.com"
	UserInfoURL = "https://graph.microsoft.com/v1.0/me"

	// DefaultTenant accepts both personal and organizational accounts.
	DefaultTenant = "common"
)

// ExtraTenantID selects the Azure AD tenant (id, domain, "common",
// "organizations" or "consumers").
const ExtraTenantID = "tenant_id"

// Defaults returns the public endpoints for tenant.
func Defaults(tenant string) oauth.ProviderConfig {
	if tenant == "" {
		tenant = DefaultTenant
	}
	base := loginHost + "/" + url.PathEscape(tenant) + "/oauth2/v2.0"
	return oauth.ProviderConfig{
		AuthorizeURL: base + "/authorize",
		TokenURL:     base + "/token",
		UserInfoURL:  UserInfoURL,
		Scopes:       []string{"openid", "email", "profile", "offline_access", "User.Read"},
	}
}

// Strategy is the Microsoft provider. Microsoft exposes no revocation
// endpoint for the authorization-code flow, so Revoke is not offered.
type Strategy struct {
	base   *oauth.Base
	tenant string
}

// Factory adapts New to oauth.Factory.
func Factory(cfg oauth.ProviderConfig, deps oauth.Deps) (oauth.Strategy, error) {
	return New(cfg, deps)
}

// New builds the strategy. Blank endpoints fall back to the tenant's defaults.
func New(cfg oauth.ProviderConfig, deps oauth.Deps) (*Strategy, error) {
	if cfg.ID == "" {
		cfg.ID = ProviderName
	}
	tenant := cfg.ExtraValue(ExtraTenantID, DefaultTenant)
	cfg = cfg.WithDefaults(Defaults(tenant))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Strategy{base: oauth.NewBase(cfg, deps), tenant: tenant}, nil
}

func (s *Strategy) ID() string { return s.base.ID() }

// Tenant is the configured directory.
func (s *Strategy) Tenant() string { return s.tenant }

func (s *Strategy) Capabilities() oauth.Capabilities {
	return oauth.Capabilities{Refresh: true, Revoke: false}
}

func (s *Strategy) AuthorizationURL(state string, extra url.Values) string {
	params := url.Values{
		"response_mode": {"query"},
		"prompt":        {"select_account"},
	}
	return s.base.AuthorizationURL(state, params, extra)
}

func (s *Strategy) ExchangeCode(ctx context.Context, code string) (*oauth.TokenResponse, error) {
	return s.base.ExchangeCode(ctx, code, nil)
}

func (s *Strategy) FetchProfile(ctx context.Context, tokens *oauth.TokenResponse) (*oauth.Profile, error) {
	if err := s.base.RequireTokens(tokens); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := s.base.GetJSON(ctx, oauth.OpProfile, s.base.Config().UserInfoURL, tokens.AccessToken, nil, &raw); err != nil {
		return nil, err
	}

	// Graph does not say whether mail was verified, and userPrincipalName
	// is a sign-in name that may not receive mail at all.
	p := &oauth.Profile{
		ProviderID:    oauth.StringField(raw, "id"),
		Email:         strings.TrimSpace(oauth.FirstString(raw, "mail", "userPrincipalName")),
		EmailVerified: false,
		DisplayName:   oauth.StringField(raw, "displayName"),
		FirstName:     oauth.StringField(raw, "givenName"),
		LastName:      oauth.StringField(raw, "surname"),
		Locale:        oauth.StringField(raw, "preferredLanguage"),
		Raw:           raw,
	}
	return s.base.CompleteProfile(ctx, p, tokens)
}

// RefreshToken repeats the configured scopes; the v2.0 endpoint otherwise
// issues a token for a narrower set.
func (s *Strategy) RefreshToken(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	var extra url.Values
	if scopes := s.base.Config().Scopes; len(scopes) > 0 {
		extra = url.Values{"scope": {strings.Join(scopes, " ")}}
	}
	return s.base.RefreshToken(ctx, refreshToken, extra)
}

func (s *Strategy) RevokeToken(ctx context.Context, token string) bool {
	s.base.Logger(ctx).Debug("revocation not supported")
	return false
}
