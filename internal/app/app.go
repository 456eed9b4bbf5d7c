// Package app wires configuration into a running social login service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/cache"
	"github.com/dropDatabas3/socialauth/internal/clock"
	"github.com/dropDatabas3/socialauth/internal/config"
	healthctrl "github.com/dropDatabas3/socialauth/internal/http/v2/controllers/health"
	socialctrl "github.com/dropDatabas3/socialauth/internal/http/v2/controllers/social"
	"github.com/dropDatabas3/socialauth/internal/http/v2/helpers"
	mw "github.com/dropDatabas3/socialauth/internal/http/v2/middlewares"
	"github.com/dropDatabas3/socialauth/internal/http/v2/router"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/oauth/github"
	"github.com/dropDatabas3/socialauth/internal/oauth/google"
	"github.com/dropDatabas3/socialauth/internal/oauth/microsoft"
	"github.com/dropDatabas3/socialauth/internal/oauth/state"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	"github.com/dropDatabas3/socialauth/internal/rate"
	"github.com/dropDatabas3/socialauth/internal/social"
)

// Factories maps provider kinds to their implementation.
var Factories = map[string]oauth.Factory{
	google.ProviderName:    google.Factory,
	github.ProviderName:    github.Factory,
	microsoft.ProviderName: microsoft.Factory,
}

// LoggerConfig maps cfg onto the logger settings. Every production alias
// selects the JSON encoder.
func LoggerConfig(cfg *config.Config) logger.Config {
	env := cfg.App.Env
	if cfg.IsProd() {
		env = "prod"
	}
	return logger.Config{
		Env:         env,
		Level:       cfg.Log.Level,
		ServiceName: "socialauth",
		Version:     cfg.App.Version,
	}
}

// Options override collaborators, mostly for tests.
type Options struct {
	HTTP  oauth.HTTPDoer      // outbound client for providers
	Clock clock.Clock
	Sink  social.IdentitySink // defaults to social.LogSink
	Cache cache.Client        // skips building one from config
}

// App is the wired service.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Cache     cache.Client
	Registry  *oauth.Registry
	States    *state.Service
	Auth      *social.Authenticator
	Refresher *social.Refresher
	Handler   http.Handler
}

// New builds every component from cfg.
func New(cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	log = logger.OrNop(log)
	clk := clock.OrSystem(opts.Clock)

	store := opts.Cache
	if store == nil {
		var err error
		store, err = cache.New(cache.Config{
			Driver:   cfg.Cache.Kind,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("app: cache: %w", err)
		}
	}

	reg, err := oauth.Build(cfg.ProviderConfigs(), Factories, oauth.Deps{
		HTTP:       opts.HTTP,
		Clock:      clk,
		Log:        log.Named("oauth"),
		Timeout:    cfg.HTTPClient.Timeout,
		GetRetries: cfg.HTTPClient.GetRetries,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if reg.Len() == 0 {
		log.Warn("no identity providers enabled")
	}

	states := state.NewService(store,
		state.WithTTL(cfg.State.TTL),
		state.WithClock(clk),
		state.WithLogger(log.Named("state")),
	)
	auth := social.NewAuthenticator(social.AuthenticatorDeps{
		Registry: reg,
		States:   states,
		Sink:     opts.Sink,
		Log:      log.Named("social"),
	})

	if err := metrics.Register(nil); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	a := &App{
		Config:    cfg,
		Log:       log,
		Cache:     store,
		Registry:  reg,
		States:    states,
		Auth:      auth,
		Refresher: social.NewRefresher(reg, log.Named("refresh")),
	}
	rl, err := a.rateLimit(clk)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.Handler = router.New(router.Deps{
		Log:       log.Named("http"),
		Social:    socialctrl.NewControllers(auth),
		Health:    healthctrl.NewHealthController(cfg.App.Version, map[string]healthctrl.Pinger{"cache": store}),
		Metrics:   metrics.Handler(),
		RateLimit: rl,
	})

	log.Info("app wired",
		logger.String("cache", store.Driver()),
		zap.Strings("providers", reg.IDs()),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)
	return a, nil
}

// rateLimit shares counters through Redis when the state store is Redis,
// so every replica sees the same window.
func (a *App) rateLimit(clk clock.Clock) (mw.Middleware, error) {
	rc := a.Config.Rate
	if !rc.Enabled {
		return nil, nil
	}
	trusted, err := mw.ParseTrustedProxies(rc.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("app: rate: %w", err)
	}
	var l rate.Limiter
	if r, ok := a.Cache.(*cache.Redis); ok {
		l = rate.NewRedisLimiter(r.Client(), a.Config.Cache.Redis.Prefix+"rl:", rc.Limit, rc.Window, clk)
	} else {
		l = rate.NewMemoryLimiter(rc.Limit, rc.Window, clk)
	}
	return mw.WithRateLimit(mw.RateLimitConfig{Limiter: l, Route: "social", TrustedProxies: trusted}), nil
}

// Serve runs the HTTP server until ctx is done, then drains it.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Server.Addr,
		Handler:           a.Handler,
		ReadTimeout:       a.Config.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.Config.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.Log.Info("listening", logger.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.Log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// ErrUnsafeRedirect rejects a post-login target that is not a relative path.
var ErrUnsafeRedirect = errors.New("app: redirect_to must be a relative path")

// AuthorizeURL starts a login outside HTTP, for the CLI. redirectTo obeys
// the same rule as the start route.
func (a *App) AuthorizeURL(ctx context.Context, provider, redirectTo string) (string, error) {
	redirectTo = strings.TrimSpace(redirectTo)
	if !helpers.SafeRedirect(redirectTo) {
		return "", ErrUnsafeRedirect
	}
	var cont state.Continuation
	if redirectTo != "" {
		cont = state.Continuation{social.ContinuationRedirect: redirectTo}
	}
	return a.Auth.Begin(ctx, provider, cont, nil)
}

// Close releases the cache connection.
func (a *App) Close() error {
	return a.Cache.Close()
}
