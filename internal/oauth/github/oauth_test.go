package github

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/clock"
	"github.com/dropDatabas3/socialauth/internal/oauth"
)

type fakeGitHub struct {
	*httptest.Server
	tokenBody    string
	userBody     string
	emailsBody   string
	emailsStatus int
	revokeStatus int

	revokeMethod string
	revokePath   string
	revokeUser   string
	revokePass   string
	revokeJSON   map[string]string
	apiVersion   string
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	f := &fakeGitHub{
		tokenBody:    `{"access_token":"gho_tok","token_type":"bearer","scope":"read:user,user:email"}`,
		userBody:     `{"id":583231,"login":"octocat","name":"The Octocat","email":null,"avatar_url":"https://avatars.githubusercontent.com/u/583231"}`,
		emailsBody:   `[{"email":"old@example.com","primary":false,"verified":true},{"email":"octo@example.com","primary":true,"verified":true}]`,
		emailsStatus: 200,
		revokeStatus: http.StatusNoContent,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, f.tokenBody)
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		f.apiVersion = r.Header.Get("X-GitHub-Api-Version")
		_, _ = io.WriteString(w, f.userBody)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(f.emailsStatus)
		_, _ = io.WriteString(w, f.emailsBody)
	})
	mux.HandleFunc("/applications/", func(w http.ResponseWriter, r *http.Request) {
		f.revokeMethod = r.Method
		f.revokePath = r.URL.Path
		f.revokeUser, f.revokePass, _ = r.BasicAuth()
		_ = json.NewDecoder(r.Body).Decode(&f.revokeJSON)
		w.WriteHeader(f.revokeStatus)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newStrategy(t *testing.T, f *fakeGitHub, extra map[string]string) *Strategy {
	t.Helper()
	if extra == nil {
		extra = map[string]string{}
	}
	extra[ExtraEmailsURL] = f.URL + "/user/emails"
	s, err := New(oauth.ProviderConfig{
		ClientID:     "Iv1.abc",
		ClientSecret: "shh",
		RedirectURI:  "https://app.example.com/v2/auth/social/github/callback",
		TokenURL:     f.URL + "/login/oauth/access_token",
		UserInfoURL:  f.URL + "/user",
		RevokeURL:    f.URL + "/applications/{client_id}/token",
		Extra:        extra,
	}, oauth.Deps{Clock: clock.NewManual(time.Unix(1700000000, 0)), Timeout: time.Second})
	require.NoError(t, err)
	return s
}

func TestGitHub_AuthorizationURL(t *testing.T) {
	s := newStrategy(t, newFakeGitHub(t), nil)
	u := s.AuthorizationURL("xyz", nil)
	require.Contains(t, u, AuthorizeURL+"?")
	require.Contains(t, u, "allow_signup=true")
	require.Contains(t, u, "state=xyz")
	require.Contains(t, u, "scope=read%3Auser+user%3Aemail")
}

func TestGitHub_ExchangeAndProfile(t *testing.T) {
	f := newFakeGitHub(t)
	s := newStrategy(t, f, nil)
	ctx := context.Background()

	tokens, err := s.ExchangeCode(ctx, "code")
	require.NoError(t, err)
	require.Equal(t, "gho_tok", tokens.AccessToken)
	require.Nil(t, tokens.ExpiresIn)

	p, err := s.FetchProfile(ctx, tokens)
	require.NoError(t, err)
	require.Equal(t, "github", p.Provider)
	require.Equal(t, "583231", p.ProviderID)
	require.Equal(t, "octo@example.com", p.Email)
	require.True(t, p.EmailVerified)
	require.Equal(t, "The Octocat", p.DisplayName)
	require.Equal(t, "The", p.FirstName)
	require.Equal(t, "Octocat", p.LastName)
	require.Nil(t, p.TokenExpiresAt)
	require.Equal(t, apiVersion, f.apiVersion)
}

func TestGitHub_ErrorInsideOKResponse(t *testing.T) {
	f := newFakeGitHub(t)
	f.tokenBody = `{"error":"bad_verification_code","error_description":"The code passed is incorrect or expired."}`
	s := newStrategy(t, f, nil)

	_, err := s.ExchangeCode(context.Background(), "stale")
	require.ErrorIs(t, err, oauth.ErrProviderToken)
	require.Contains(t, err.Error(), "bad_verification_code")
}

func TestGitHub_ProfileWithoutEmailScope(t *testing.T) {
	f := newFakeGitHub(t)
	f.emailsStatus = http.StatusForbidden
	f.userBody = `{"id":1,"login":"ghost"}`
	s := newStrategy(t, f, nil)

	p, err := s.FetchProfile(context.Background(), &oauth.TokenResponse{AccessToken: "gho_tok"})
	require.NoError(t, err)
	require.Equal(t, "1", p.ProviderID)
	require.Equal(t, "ghost", p.DisplayName)
	require.Empty(t, p.Email)
	require.False(t, p.EmailVerified)
}

func TestGitHub_PublicEmailVerification(t *testing.T) {
	f := newFakeGitHub(t)
	f.userBody = `{"id":2,"login":"x","email":"Public@Example.com"}`
	f.emailsBody = `[{"email":"public@example.com","primary":false,"verified":false},{"email":"p@example.com","primary":true,"verified":true}]`
	s := newStrategy(t, f, nil)

	p, err := s.FetchProfile(context.Background(), &oauth.TokenResponse{AccessToken: "gho_tok"})
	require.NoError(t, err)
	require.Equal(t, "Public@Example.com", p.Email)
	require.False(t, p.EmailVerified)
}

func TestGitHub_RefreshUnsupportedByDefault(t *testing.T) {
	s := newStrategy(t, newFakeGitHub(t), nil)
	require.False(t, s.Capabilities().Refresh)

	_, err := s.RefreshToken(context.Background(), "ghr_x")
	require.ErrorIs(t, err, oauth.ErrUnsupportedOperation)
}

func TestGitHub_RefreshWithExpiringTokens(t *testing.T) {
	f := newFakeGitHub(t)
	f.tokenBody = `{"access_token":"ghu_new","expires_in":28800,"refresh_token":"ghr_new","refresh_token_expires_in":15811200}`
	s := newStrategy(t, f, map[string]string{ExtraExpiringTokens: "true"})
	require.True(t, s.Capabilities().Refresh)

	tokens, err := s.RefreshToken(context.Background(), "ghr_old")
	require.NoError(t, err)
	require.Equal(t, "ghu_new", tokens.AccessToken)
	require.Equal(t, "ghr_new", tokens.RefreshToken)
	require.Equal(t, int64(28800), *tokens.ExpiresIn)
}

func TestGitHub_RevokeShape(t *testing.T) {
	f := newFakeGitHub(t)
	s := newStrategy(t, f, nil)

	require.True(t, s.RevokeToken(context.Background(), "gho_tok"))
	require.Equal(t, http.MethodDelete, f.revokeMethod)
	require.Equal(t, "/applications/Iv1.abc/token", f.revokePath)
	require.Equal(t, "Iv1.abc", f.revokeUser)
	require.Equal(t, "shh", f.revokePass)
	require.Equal(t, "gho_tok", f.revokeJSON["access_token"])
}

func TestGitHub_RevokeFailures(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError} {
		f := newFakeGitHub(t)
		f.revokeStatus = status
		s := newStrategy(t, f, nil)
		require.False(t, s.RevokeToken(context.Background(), "gho_tok"))
	}
}

func TestPickEmail(t *testing.T) {
	e, v := pickEmail("", nil)
	require.Empty(t, e)
	require.False(t, v)

	e, v = pickEmail("", []email{{Email: "a@x", Verified: false}})
	require.Equal(t, "a@x", e)
	require.False(t, v)

	e, v = pickEmail("", []email{{Email: "a@x"}, {Email: "b@x", Verified: true}})
	require.Equal(t, "b@x", e)
	require.True(t, v)
}
