// Package config loads the service configuration: YAML file, then defaults,
// then environment overrides, then validation.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/socialauth/internal/oauth"
)

// CallbackPath is where providers send the user back, relative to base_url.
const CallbackPath = "/v2/auth/social/%s/callback"

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"env"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr         string        `yaml:"addr"`
		BaseURL      string        `yaml:"base_url"` // public origin, used for default redirect URIs
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	State struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"state"`

	HTTPClient struct {
		Timeout    time.Duration `yaml:"timeout"`
		GetRetries int           `yaml:"get_retries"`
	} `yaml:"http_client"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Limit   int           `yaml:"limit"`
		Window  time.Duration `yaml:"window"`
		// Peers (CIDR or address) whose X-Forwarded-For is honored. Empty
		// means the limiter keys on the TCP peer only.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"rate"`

	// Providers by id. The id is also the implementation unless kind is set.
	Providers map[string]Provider `yaml:"providers"`
}

type Provider struct {
	Enabled      bool              `yaml:"enabled"`
	Kind         string            `yaml:"kind"`
	ClientID     string            `yaml:"client_id"`
	ClientSecret string            `yaml:"client_secret"`
	RedirectURL  string            `yaml:"redirect_url"` // empty => <base_url>/v2/auth/social/<id>/callback
	Scopes       []string          `yaml:"scopes"`
	AuthorizeURL string            `yaml:"authorize_url"`
	TokenURL     string            `yaml:"token_url"`
	UserInfoURL  string            `yaml:"userinfo_url"`
	RevokeURL    string            `yaml:"revoke_url"`
	Extra        map[string]string `yaml:"extra"`
}

// Load reads path (optional: an empty path means defaults plus environment).
func Load(path string) (*Config, error) {
	var c Config
	c.presetDefaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()
	c.applyDerived()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// defaultGetRetries is preset before parsing so an explicit 0 in the YAML
// survives; applyDefaults cannot tell a missing key from a zero.
const defaultGetRetries = 1

func (c *Config) presetDefaults() {
	c.HTTPClient.GetRetries = defaultGetRetries
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "socialauth:"
	}
	if c.State.TTL == 0 {
		c.State.TTL = 10 * time.Minute
	}
	if c.HTTPClient.Timeout == 0 {
		c.HTTPClient.Timeout = 10 * time.Second
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 30
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
	if c.Providers == nil {
		c.Providers = map[string]Provider{}
	}
}

// knownProviders get env overrides even when absent from the YAML.
var knownProviders = []string{"google", "github", "microsoft"}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides lets the environment win over config.yaml.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// STATE / HTTP CLIENT
	if v, ok := getEnvDur("STATE_TTL"); ok {
		c.State.TTL = v
	}
	if v, ok := getEnvDur("HTTP_CLIENT_TIMEOUT"); ok {
		c.HTTPClient.Timeout = v
	}
	if v, ok := getEnvInt("HTTP_CLIENT_GET_RETRIES"); ok {
		c.HTTPClient.GetRetries = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LIMIT"); ok {
		c.Rate.Limit = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvCSV("RATE_TRUSTED_PROXIES"); ok {
		c.Rate.TrustedProxies = v
	}

	// PROVIDERS: <ID>_CLIENT_ID, <ID>_CLIENT_SECRET, ...
	ids := map[string]bool{}
	for _, id := range knownProviders {
		ids[id] = true
	}
	for id := range c.Providers {
		ids[id] = true
	}
	for id := range ids {
		p, existed := c.Providers[id]
		env := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(id)) + "_"
		touched := false
		if v, ok := getEnvBool(env + "ENABLED"); ok {
			p.Enabled, touched = v, true
		}
		if v, ok := getEnvStr(env + "CLIENT_ID"); ok {
			p.ClientID, touched = v, true
		}
		if v, ok := getEnvStr(env + "CLIENT_SECRET"); ok {
			p.ClientSecret, touched = v, true
		}
		if v, ok := getEnvStr(env + "REDIRECT_URL"); ok {
			p.RedirectURL, touched = v, true
		}
		if v, ok := getEnvCSV(env + "SCOPES"); ok {
			p.Scopes, touched = v, true
		}
		if existed || touched {
			c.Providers[id] = p
		}
	}
}

func (c *Config) applyDerived() {
	base := strings.TrimRight(c.Server.BaseURL, "/")
	for id, p := range c.Providers {
		if p.RedirectURL == "" {
			p.RedirectURL = base + fmt.Sprintf(CallbackPath, url.PathEscape(id))
			c.Providers[id] = p
		}
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required when cache.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q is not memory or redis", c.Cache.Kind))
	}
	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, errors.New("server.base_url must be an absolute URL"))
	}
	if c.State.TTL < time.Minute || c.State.TTL > time.Hour {
		errs = append(errs, fmt.Errorf("state.ttl %s must be between 1m and 1h", c.State.TTL))
	}
	if c.HTTPClient.Timeout < time.Second || c.HTTPClient.Timeout > 30*time.Second {
		errs = append(errs, fmt.Errorf("http_client.timeout %s must be between 1s and 30s", c.HTTPClient.Timeout))
	}
	if c.HTTPClient.GetRetries < 0 || c.HTTPClient.GetRetries > 1 {
		errs = append(errs, errors.New("http_client.get_retries must be 0 or 1"))
	}
	if c.Rate.Enabled && (c.Rate.Limit <= 0 || c.Rate.Window <= 0) {
		errs = append(errs, errors.New("rate.limit and rate.window must be positive"))
	}
	for _, id := range c.EnabledProviders() {
		p := c.Providers[id]
		if p.ClientID == "" || p.ClientSecret == "" {
			errs = append(errs, fmt.Errorf("providers.%s: client_id and client_secret are required", id))
		}
	}
	return errors.Join(errs...)
}

// IsProd reports whether the service runs in production mode.
func (c *Config) IsProd() bool { return c.App.Env == "prod" || c.App.Env == "production" }

// EnabledProviders returns the ids of enabled providers, sorted.
func (c *Config) EnabledProviders() []string {
	out := make([]string, 0, len(c.Providers))
	for id, p := range c.Providers {
		if p.Enabled {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// ProviderConfigs converts the enabled providers for oauth.Build.
func (c *Config) ProviderConfigs() []oauth.ProviderConfig {
	ids := c.EnabledProviders()
	out := make([]oauth.ProviderConfig, 0, len(ids))
	for _, id := range ids {
		p := c.Providers[id]
		out = append(out, oauth.ProviderConfig{
			ID:           id,
			Kind:         p.Kind,
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			AuthorizeURL: p.AuthorizeURL,
			TokenURL:     p.TokenURL,
			UserInfoURL:  p.UserInfoURL,
			RevokeURL:    p.RevokeURL,
			Scopes:       append([]string(nil), p.Scopes...),
			RedirectURI:  p.RedirectURL,
			Extra:        p.Extra,
		})
	}
	return out
}
