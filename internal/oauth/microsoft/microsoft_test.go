package microsoft

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/clock"
	"github.com/dropDatabas3/socialauth/internal/oauth"
)

type fakeGraph struct {
	*httptest.Server
	tokenBody string
	meBody    string
	lastForm  url.Values
	hits      int
}

func newFakeGraph(t *testing.T) *fakeGraph {
	f := &fakeGraph{
		tokenBody: `{"token_type":"Bearer","scope":"openid email profile User.Read","expires_in":"3599","access_token":"eyJ0","refresh_token":"M.R3"}`,
		meBody:    `{"id":"8d0f2f4c-1c57-4bdb-9a2a-4b1f3e8c1d2a","displayName":"Ada Lovelace","givenName":"Ada","surname":"Lovelace","mail":null,"userPrincipalName":"ada@contoso.onmicrosoft.com","preferredLanguage":"en-GB"}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.lastForm = r.PostForm
		_, _ = io.WriteString(w, f.tokenBody)
	})
	mux.HandleFunc("/v1.0/me", func(w http.ResponseWriter, r *http.Request) {
		f.hits++
		if r.Header.Get("Authorization") != "Bearer eyJ0" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, f.meBody)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newStrategy(t *testing.T, f *fakeGraph) *Strategy {
	t.Helper()
	s, err := New(oauth.ProviderConfig{
		ClientID:     "app-id",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example.com/v2/auth/social/microsoft/callback",
		TokenURL:     f.URL + "/tenant/oauth2/v2.0/token",
		UserInfoURL:  f.URL + "/v1.0/me",
	}, oauth.Deps{Clock: clock.NewManual(time.Unix(1700000000, 0)), Timeout: time.Second})
	require.NoError(t, err)
	return s
}

func TestDefaults_Tenant(t *testing.T) {
	s, err := New(oauth.ProviderConfig{
		ClientID:     "app-id",
		ClientSecret: "secret",
		RedirectURI:  "https://app.example.com/cb",
		Extra:        map[string]string{ExtraTenantID: "contoso.onmicrosoft.com"},
	}, oauth.Deps{})
	require.NoError(t, err)
	require.Equal(t, "contoso.onmicrosoft.com", s.Tenant())
	require.Equal(t, "https://login.microsoftonline.com/contoso.onmicrosoft.com/oauth2/v2.0/token", s.base.Config().TokenURL)

	s, err = New(oauth.ProviderConfig{ClientID: "a", ClientSecret: "b", RedirectURI: "https://x/cb"}, oauth.Deps{})
	require.NoError(t, err)
	require.Equal(t, DefaultTenant, s.Tenant())

	u, err := url.Parse(s.AuthorizationURL("st", nil))
	require.NoError(t, err)
	require.Equal(t, "/common/oauth2/v2.0/authorize", u.Path)
	q := u.Query()
	require.Equal(t, "query", q.Get("response_mode"))
	require.Equal(t, "select_account", q.Get("prompt"))
	require.Equal(t, "openid email profile offline_access User.Read", q.Get("scope"))
	require.Equal(t, "st", q.Get("state"))
}

func TestMicrosoft_Login(t *testing.T) {
	f := newFakeGraph(t)
	s := newStrategy(t, f)
	ctx := context.Background()

	tokens, err := s.ExchangeCode(ctx, "M.C1")
	require.NoError(t, err)
	require.Equal(t, "authorization_code", f.lastForm.Get("grant_type"))
	require.Equal(t, "M.C1", f.lastForm.Get("code"))
	require.Equal(t, int64(3599), *tokens.ExpiresIn)
	require.True(t, tokens.HasRefreshToken())

	p, err := s.FetchProfile(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, "microsoft", p.Provider)
	require.Equal(t, "8d0f2f4c-1c57-4bdb-9a2a-4b1f3e8c1d2a", p.ProviderID)
	require.Equal(t, "ada@contoso.onmicrosoft.com", p.Email)
	require.False(t, p.EmailVerified)
	require.Equal(t, "Ada Lovelace", p.DisplayName)
	require.Equal(t, "Ada", p.FirstName)
	require.Equal(t, "Lovelace", p.LastName)
	require.Equal(t, "en-GB", p.Locale)
	require.Equal(t, time.Unix(1700000000, 0).Add(3599*time.Second), *p.TokenExpiresAt)
}

func TestMicrosoft_MailPreferred(t *testing.T) {
	f := newFakeGraph(t)
	f.meBody = `{"id":"1","mail":"ada@contoso.com","userPrincipalName":"ada@contoso.onmicrosoft.com"}`
	s := newStrategy(t, f)

	p, err := s.FetchProfile(context.Background(), &oauth.TokenResponse{AccessToken: "eyJ0"})
	require.NoError(t, err)
	require.Equal(t, "ada@contoso.com", p.Email)
	require.False(t, p.EmailVerified)
}

func TestMicrosoft_ProfileUnauthorized(t *testing.T) {
	f := newFakeGraph(t)
	s := newStrategy(t, f)

	_, err := s.FetchProfile(context.Background(), &oauth.TokenResponse{AccessToken: "expired"})
	require.ErrorIs(t, err, oauth.ErrProviderProfile)
	require.Equal(t, http.StatusUnauthorized, oauth.StatusOf(err))
	require.Equal(t, 1, f.hits)
}

func TestMicrosoft_RefreshSendsScope(t *testing.T) {
	f := newFakeGraph(t)
	f.tokenBody = `{"access_token":"eyJ1","expires_in":3600}`
	s := newStrategy(t, f)
	require.True(t, s.Capabilities().Refresh)

	tokens, err := s.RefreshToken(context.Background(), "M.R3")
	require.NoError(t, err)
	require.Equal(t, "eyJ1", tokens.AccessToken)
	require.False(t, tokens.HasRefreshToken())
	require.Equal(t, "refresh_token", f.lastForm.Get("grant_type"))
	require.Equal(t, "M.R3", f.lastForm.Get("refresh_token"))
	require.Equal(t, "openid email profile offline_access User.Read", f.lastForm.Get("scope"))
}

func TestMicrosoft_RevokeUnsupported(t *testing.T) {
	s := newStrategy(t, newFakeGraph(t))
	require.False(t, s.Capabilities().Revoke)
	require.False(t, s.RevokeToken(context.Background(), "eyJ0"))
}
