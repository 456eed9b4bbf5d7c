package oauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func testConfig() ProviderConfig {
	return ProviderConfig{
		ID:           "acme",
		ClientID:     "cid",
		ClientSecret: "secret",
		AuthorizeURL: "https://idp.example.com/authorize",
		TokenURL:     "https://idp.example.com/token",
		UserInfoURL:  "https://idp.example.com/userinfo",
		RedirectURI:  "https://app.example.com/cb",
		Scopes:       []string{"openid", "email"},
	}
}

func TestBuildAuthorizationURL_StandardParams(t *testing.T) {
	raw := BuildAuthorizationURL(testConfig(), "abc123")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "idp.example.com", u.Host)
	require.Equal(t, "/authorize", u.Path)

	q := u.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "https://app.example.com/cb", q.Get("redirect_uri"))
	require.Equal(t, "openid email", q.Get("scope"))
	require.Equal(t, "abc123", q.Get("state"))
	require.Contains(t, raw, "state=abc123")
}

func TestBuildAuthorizationURL_Deterministic(t *testing.T) {
	extra := url.Values{"prompt": {"consent"}, "access_type": {"offline"}, "login_hint": {"a@b.com"}}
	first := BuildAuthorizationURL(testConfig(), "s-1", extra)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, BuildAuthorizationURL(testConfig(), "s-1", extra))
	}
}

func TestBuildAuthorizationURL_ExtrasMergeInOrder(t *testing.T) {
	provider := url.Values{"prompt": {"consent"}, "access_type": {"offline"}}
	caller := url.Values{"prompt": {"select_account"}, "login_hint": {"x@y.z"}}

	u, err := url.Parse(BuildAuthorizationURL(testConfig(), "st", provider, caller))
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, "select_account", q.Get("prompt"))
	require.Equal(t, "offline", q.Get("access_type"))
	require.Equal(t, "x@y.z", q.Get("login_hint"))
}

func TestBuildAuthorizationURL_ReservedParamsWin(t *testing.T) {
	hostile := url.Values{
		"state":        {"attacker"},
		"client_id":    {"other"},
		"redirect_uri": {"https://evil.example.com"},
	}
	u, err := url.Parse(BuildAuthorizationURL(testConfig(), "mine", hostile))
	require.NoError(t, err)
	q := u.Query()
	require.Equal(t, []string{"mine"}, q["state"])
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "https://app.example.com/cb", q.Get("redirect_uri"))
}

func TestBuildAuthorizationURL_KeepsExistingQuery(t *testing.T) {
	cfg := testConfig()
	cfg.AuthorizeURL = "https://idp.example.com/authorize?tenant=t1"

	u, err := url.Parse(BuildAuthorizationURL(cfg, "st"))
	require.NoError(t, err)
	require.Equal(t, "t1", u.Query().Get("tenant"))
}
