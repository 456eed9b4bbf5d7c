// Package github implements the GitHub OAuth App strategy.
// GitHub has no id_token, so identity comes from the REST API: /user for the
// account and /user/emails for the verification status of addresses.
package github

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

const ProviderName = "github"

const (
	AuthorizeURL = "https://github.com/login/oauth/authorize"
	TokenURL     = "https://github.com/login/oauth/access_token"
	UserInfoURL  = "https://api.github.com/user"
	EmailsURL    = "https://api.github.com/user/emails"
	// RevokeURL revokes a single token. {client_id} is substituted.
	RevokeURL = "https://api.github.com/applications/{client_id}/token"

	apiVersion = "2022-11-28"
)

// Extra keys understood in ProviderConfig.Extra.
const (
	ExtraEmailsURL = "emails_url"
	// ExtraExpiringTokens is "true" for GitHub Apps with expiring user
	// tokens, which are the only GitHub tokens that can be refreshed.
	ExtraExpiringTokens = "expiring_tokens"
)

// Defaults are GitHub's public endpoints.
func Defaults() oauth.ProviderConfig {
	return oauth.ProviderConfig{
		AuthorizeURL: AuthorizeURL,
		TokenURL:     TokenURL,
		UserInfoURL:  UserInfoURL,
		RevokeURL:    RevokeURL,
		Scopes:       []string{"read:user", "user:email"},
	}
}

// Strategy is the GitHub provider.
type Strategy struct {
	base      *oauth.Base
	emailsURL string
	refresh   bool
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
	return &Strategy{
		base:      oauth.NewBase(cfg, deps),
		emailsURL: cfg.ExtraValue(ExtraEmailsURL, EmailsURL),
		refresh:   strings.EqualFold(cfg.ExtraValue(ExtraExpiringTokens, ""), "true"),
	}, nil
}

func (s *Strategy) ID() string { return s.base.ID() }

func (s *Strategy) Capabilities() oauth.Capabilities {
	return oauth.Capabilities{Refresh: s.refresh, Revoke: true}
}

func (s *Strategy) AuthorizationURL(state string, extra url.Values) string {
	return s.base.AuthorizationURL(state, url.Values{"allow_signup": {"true"}}, extra)
}

// ExchangeCode relies on Accept: application/json; GitHub reports bad codes
// as a 200 with an "error" field, which the base turns into a token error.
func (s *Strategy) ExchangeCode(ctx context.Context, code string) (*oauth.TokenResponse, error) {
	return s.base.ExchangeCode(ctx, code, nil)
}

type email struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (s *Strategy) FetchProfile(ctx context.Context, tokens *oauth.TokenResponse) (*oauth.Profile, error) {
	if err := s.base.RequireTokens(tokens); err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := s.base.GetJSON(ctx, oauth.OpProfile, s.base.Config().UserInfoURL, tokens.AccessToken, apiHeader(), &raw); err != nil {
		return nil, err
	}

	p := &oauth.Profile{
		ProviderID:  oauth.StringField(raw, "id"),
		Email:       oauth.StringField(raw, "email"),
		DisplayName: oauth.FirstString(raw, "name", "login"),
		AvatarURL:   oauth.StringField(raw, "avatar_url"),
		Raw:         raw,
	}
	p.FirstName, p.LastName = splitName(oauth.StringField(raw, "name"))

	// The email list needs the user:email scope. Without it the profile is
	// still usable, just unverified.
	var emails []email
	if err := s.base.GetJSON(ctx, "emails", s.emailsURL, tokens.AccessToken, apiHeader(), &emails); err != nil {
		s.base.Logger(ctx).Info("github email list unavailable", logger.Status(oauth.StatusOf(err)))
	} else {
		p.Email, p.EmailVerified = pickEmail(p.Email, emails)
	}

	return s.base.CompleteProfile(ctx, p, tokens)
}

func (s *Strategy) RefreshToken(ctx context.Context, refreshToken string) (*oauth.TokenResponse, error) {
	if !s.refresh {
		return nil, oauth.Unsupported(s.ID(), oauth.OpRefresh)
	}
	return s.base.RefreshToken(ctx, refreshToken, nil)
}

// RevokeToken deletes the token through the OAuth Apps API. The app
// authenticates with basic auth and the token travels in the JSON body.
func (s *Strategy) RevokeToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	cfg := s.base.Config()
	endpoint := strings.ReplaceAll(cfg.RevokeURL, "{client_id}", url.PathEscape(cfg.ClientID))

	h := apiHeader()
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(cfg.ClientID+":"+cfg.ClientSecret)))
	return s.base.Revoke(ctx, oauth.Request{
		Method: http.MethodDelete,
		URL:    endpoint,
		Header: h,
		JSON:   map[string]string{"access_token": token},
	})
}

func apiHeader() http.Header {
	return http.Header{
		"Accept":               {"application/vnd.github+json"},
		"X-Github-Api-Version": {apiVersion},
	}
}

// pickEmail returns the address to use and whether GitHub marks it verified.
// A public profile email wins when present; otherwise primary verified,
// then any verified, then the first listed.
func pickEmail(profileEmail string, emails []email) (string, bool) {
	if profileEmail != "" {
		for _, e := range emails {
			if strings.EqualFold(e.Email, profileEmail) {
				return profileEmail, e.Verified
			}
		}
		return profileEmail, false
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, true
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, false
	}
	return "", false
}

func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	if i := strings.LastIndexByte(name, ' '); i > 0 {
		return strings.TrimSpace(name[:i]), strings.TrimSpace(name[i+1:])
	}
	return name, ""
}
