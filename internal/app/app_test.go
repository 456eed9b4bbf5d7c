package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialauth/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Providers["google"] = config.Provider{
		Enabled: true, ClientID: "gid", ClientSecret: "gs",
		RedirectURL: "https://app.example.com/v2/auth/social/google/callback",
	}
	cfg.Providers["corp"] = config.Provider{
		Enabled: true, Kind: "microsoft", ClientID: "mid", ClientSecret: "ms",
		RedirectURL: "https://app.example.com/v2/auth/social/corp/callback",
		Extra:       map[string]string{"tenant_id": "contoso"},
	}
	return cfg
}

func TestNew_MemoryStack(t *testing.T) {
	a, err := New(testConfig(t), nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Equal(t, "memory", a.Cache.Driver())
	require.Equal(t, []string{"corp", "google"}, a.Registry.IDs())

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/auth/social/corp/start", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/contoso/oauth2/v2.0/authorize", loc.Path)

	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_RedisStackWithRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.Kind = "redis"
	cfg.Cache.Redis.Addr = mr.Addr()
	cfg.Rate.Enabled = true
	cfg.Rate.Limit = 1

	a, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.Equal(t, "redis", a.Cache.Driver())

	get := func() int {
		rec := httptest.NewRecorder()
		a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/auth/social/google/start", nil))
		return rec.Code
	}
	require.Equal(t, http.StatusFound, get())
	require.Equal(t, http.StatusTooManyRequests, get())

	// one state token is stored under the cache prefix
	found := false
	for _, k := range mr.Keys() {
		if len(k) > len("socialauth:oauth:state:") && k[:len("socialauth:oauth:state:")] == "socialauth:oauth:state:" {
			found = true
		}
	}
	require.True(t, found)
}

func TestNew_UnknownKind(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers["x"] = config.Provider{Enabled: true, Kind: "myspace", ClientID: "a", ClientSecret: "b", RedirectURL: "https://x/cb"}
	_, err := New(cfg, nil, Options{})
	require.ErrorContains(t, err, "myspace")
}

func TestServe_StopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.Addr = "127.0.0.1:0"
	a, err := New(cfg, nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()
	cancel()
	require.NoError(t, <-done)
}

func TestLoggerConfig_ProductionAliases(t *testing.T) {
	cfg := testConfig(t)
	for env, want := range map[string]string{"prod": "prod", "production": "prod", "dev": "dev", "staging": "staging"} {
		cfg.App.Env = env
		require.Equal(t, want, LoggerConfig(cfg).Env, env)
	}
	require.Equal(t, cfg.Log.Level, LoggerConfig(cfg).Level)
}

func TestNew_BadTrustedProxy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate.Enabled = true
	cfg.Rate.TrustedProxies = []string{"10.0.0.0/33"}
	_, err := New(cfg, nil, Options{})
	require.ErrorContains(t, err, "trusted proxy")
}

func TestAuthorizeURL_RedirectRules(t *testing.T) {
	a, err := New(testConfig(t), nil, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	ctx := context.Background()

	for _, bad := range []string{"https://evil.example", "//evil.example/x", "javascript:alert(1)"} {
		_, err := a.AuthorizeURL(ctx, "google", bad)
		require.ErrorIs(t, err, ErrUnsafeRedirect, bad)
	}

	raw, err := a.AuthorizeURL(ctx, "google", "/account")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	st := u.Query().Get("state")
	require.NotEmpty(t, st)

	tok, err := a.States.ValidateAndConsume(ctx, st)
	require.NoError(t, err)
	require.Equal(t, "/account", tok.Continuation["redirect_to"])
}
