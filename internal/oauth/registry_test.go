package oauth

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubStrategy struct{ id string }

func (s stubStrategy) ID() string                 { return s.id }
func (s stubStrategy) Capabilities() Capabilities { return Capabilities{} }
func (s stubStrategy) AuthorizationURL(state string, extra url.Values) string {
	return "https://" + s.id + "/?state=" + state
}
func (s stubStrategy) ExchangeCode(context.Context, string) (*TokenResponse, error) {
	return nil, Unsupported(s.id, OpExchange)
}
func (s stubStrategy) FetchProfile(context.Context, *TokenResponse) (*Profile, error) {
	return nil, Unsupported(s.id, OpProfile)
}
func (s stubStrategy) RefreshToken(context.Context, string) (*TokenResponse, error) {
	return nil, Unsupported(s.id, OpRefresh)
}
func (s stubStrategy) RevokeToken(context.Context, string) bool { return false }

func TestRegistry_Get(t *testing.T) {
	r, err := NewRegistry(stubStrategy{"github"}, stubStrategy{"google"})
	require.NoError(t, err)
	require.Equal(t, []string{"github", "google"}, r.IDs())
	require.Equal(t, 2, r.Len())

	s, err := r.Get("google")
	require.NoError(t, err)
	require.Equal(t, "google", s.ID())

	_, err = r.Get("myspace")
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(stubStrategy{"google"}, stubStrategy{"google"})
	require.Error(t, err)

	_, err = NewRegistry(stubStrategy{""})
	require.Error(t, err)
}

func TestRegistry_ConcurrentLookups(t *testing.T) {
	r, err := NewRegistry(stubStrategy{"a"}, stubStrategy{"b"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := []string{"a", "b"}[i%2]
			s, err := r.Get(id)
			if err != nil || s.ID() != id {
				t.Errorf("lookup %s failed: %v", id, err)
			}
		}(i)
	}
	wg.Wait()
}

func TestBuild_UsesKindFactories(t *testing.T) {
	var built []ProviderConfig
	factories := map[string]Factory{
		"google": func(cfg ProviderConfig, _ Deps) (Strategy, error) {
			built = append(built, cfg)
			return stubStrategy{cfg.ID}, nil
		},
	}

	r, err := Build([]ProviderConfig{
		{ID: "google"},
		{ID: "google-workspace", Kind: "google"},
	}, factories, Deps{})
	require.NoError(t, err)
	require.Equal(t, []string{"google", "google-workspace"}, r.IDs())
	require.Len(t, built, 2)

	_, err = Build([]ProviderConfig{{ID: "okta"}}, factories, Deps{})
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = Build([]ProviderConfig{{ID: "google"}}, map[string]Factory{
		"google": func(ProviderConfig, Deps) (Strategy, error) { return nil, boom },
	}, Deps{})
	require.ErrorIs(t, err, boom)
}

func TestProviderConfig_Validate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	cfg := testConfig()
	cfg.ClientSecret = ""
	cfg.TokenURL = "/relative"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "client_secret")
	require.Contains(t, err.Error(), "token_url")

	require.NotContains(t, testConfig().String(), "secret")
}

func TestProviderConfig_WithDefaults(t *testing.T) {
	cfg := ProviderConfig{ID: "x", TokenURL: "https://custom/token"}.WithDefaults(ProviderConfig{
		AuthorizeURL: "https://d/authorize",
		TokenURL:     "https://d/token",
		Scopes:       []string{"a"},
	})
	require.Equal(t, "https://d/authorize", cfg.AuthorizeURL)
	require.Equal(t, "https://custom/token", cfg.TokenURL)
	require.Equal(t, []string{"a"}, cfg.Scopes)
	require.Equal(t, "common", cfg.ExtraValue("tenant", "common"))
}
