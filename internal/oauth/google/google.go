// Package google implements the Google OAuth 2.0 / OpenID Connect strategy.
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

const ProviderName = "google"

const (
	AuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	TokenURL     = "https://oauth2.googleapis.com/token"
	UserInfoURL  = "https://openidconnect.googleapis.com/v1/userinfo"
	RevokeURL    = "https://oauth2.googleapis.com/revoke"
	JWKSURL      = "https://www.googleapis.com/oauth2/v3/certs"
)

// Extra keys understood in ProviderConfig.Extra.
const (
	ExtraVerifyIDToken = "verify_id_token" // "true" to check id_token against userinfo
	ExtraHostedDomain  = "hosted_domain"   // sent as hd=
	ExtraJWKSURL       = "jwks_url"
)

// Defaults are Google's public endpoints and the OIDC basic scopes.
func Defaults() oauth.ProviderConfig {
	return oauth.ProviderConfig{
		AuthorizeURL: AuthorizeURL,
		TokenURL:     TokenURL,
		UserInfoURL:  UserInfoURL,
		RevokeURL:    RevokeURL,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

// Strategy is the Google provider.
type Strategy struct {
	base     *oauth.Base
	params   url.Values
	verifier *Verifier // nil unless id_token checking is enabled
}

// Factory adapts New to oauth.Factory.
func Factory(cfg oauth.ProviderConfig, deps oauth.Deps) (oauth.Strategy, error) {
	return New(cfg, deps)
}

// New builds the strategy. Blank endpoints fall back to Defaults.
func New(cfg oauth.ProviderConfig, deps oauth.Deps) (*Strategy, error) {
	if cfg.ID == "" {
		cfg.ID = ProviderName
	}
	cfg = cfg.WithDefaults(Defaults())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// offline + consent makes Google issue a refresh token even when the
	// user has granted access before.
	params := url.Values{
		"access_type":            {"offline"},
		"prompt":                 {"consent"},
		"include_granted_scopes": {"true"},
	}
	if hd := cfg.ExtraValue(ExtraHostedDomain, ""); hd != "" {
		params.Set("hd", hd)
	}

	s := &Strategy{base: oauth.NewBase(cfg, deps), params: params}
	if strings.EqualFold(cfg.ExtraValue(ExtraVerifyIDToken, ""), "true") {
		s.verifier = NewVerifier(cfg.ClientID, cfg.ExtraValue(ExtraJWKSURL, JWKSURL), s.base.Transport(), s.base.Clock())
	}
	return s, nil
}

func (s *Strategy) ID() string { return s.base.ID() }

func (s *Strategy) Capabilities() oauth.Capabilities {
	return oauth.Capabilities{Refresh: true, Revoke: true}
}

func (s *Strategy) AuthorizationURL(state string, extra url.Values) string {
	return s.base.AuthorizationURL(state, s.params, extra)
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
	p := normalize(raw)

	if s.verifier != nil && tokens.IDToken != "" {
		claims, err := s.verifier.Verify(ctx, tokens.IDToken)
		if err != nil {
			s.base.Logger(ctx).Warn("id_token rejected", logger.Err(err))
			return nil, oauth.ProfileError(s.ID(), http.StatusOK, fmt.Errorf("id_token: %w", err))
		}
		if claims.Subject != p.ProviderID {
			return nil, oauth.ProfileError(s.ID(), http.StatusOK, fmt.Errorf("id_token subject does not match userinfo"))
		}
	}

	return s.base.CompleteProfile(ctx, p, tokens)
}

func (s *Strategy) RefreshToken(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	return s.base.RefreshToken(ctx, refreshToken, nil)
}

// RevokeToken posts the token as a query parameter with an empty body.
// Either an access or a refresh token may be passed; revoking a refresh
// token also revokes its access tokens.
func (s *Strategy) RevokeToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	u, err := url.Parse(s.base.Config().RevokeURL)
	if err != nil {
		return false
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return s.base.Revoke(ctx, oauth.Request{
		Method: http.MethodPost,
		URL:    u.String(),
		Header: http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
	})
}

// normalize maps the OIDC userinfo claims. Only sub is required.
func normalize(raw map[string]any) *oauth.Profile {
	return &oauth.Profile{
		ProviderID:    oauth.StringField(raw, "sub"),
		Email:         oauth.StringField(raw, "email"),
		EmailVerified: oauth.BoolField(raw, "email_verified"),
		DisplayName:   oauth.StringField(raw, "name"),
		FirstName:     oauth.StringField(raw, "given_name"),
		LastName:      oauth.StringField(raw, "family_name"),
		AvatarURL:     oauth.StringField(raw, "picture"),
		Locale:        oauth.StringField(raw, "locale"),
		Raw:           raw,
	}
}
