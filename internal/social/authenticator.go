// Package social runs the authorization-code login flow on top of the
// provider registry and the state service, and serializes token refreshes.
package social

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/audit"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/oauth/state"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

var (
	// ErrAccessDenied means the provider redirected back with an error
	// (typically the user declined consent).
	ErrAccessDenied = errors.New("social: access denied by provider")

	// ErrMissingCode means the callback carried neither a code nor an error.
	ErrMissingCode = errors.New("social: authorization code missing")
)

// ContinuationRedirect is the continuation key for the post-login target.
const ContinuationRedirect = "redirect_to"

// Callback is what the provider sends back to the redirect URI.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Result is a completed login.
type Result struct {
	Profile      *oauth.Profile
	UserID       string
	Continuation state.Continuation
}

// RedirectTo returns the continuation redirect target, if any.
func (r *Result) RedirectTo() string { return r.Continuation[ContinuationRedirect] }

// StateIssuer is the part of state.Service the flow uses.
type StateIssuer interface {
	Issue(ctx context.Context, provider string, cont state.Continuation) (*state.Token, error)
	ValidateAndConsume(ctx context.Context, value string) (*state.Token, error)
}

// AuthenticatorDeps are the collaborators of an Authenticator.
type AuthenticatorDeps struct {
	Registry *oauth.Registry
	States   StateIssuer
	Sink     IdentitySink // defaults to LogSink
	Log      *zap.Logger
}

// Authenticator drives Begin/Complete for every registered provider.
type Authenticator struct {
	registry *oauth.Registry
	states   StateIssuer
	sink     IdentitySink
	log      *zap.Logger
}

// NewAuthenticator wires deps.
func NewAuthenticator(d AuthenticatorDeps) *Authenticator {
	log := logger.OrNop(d.Log)
	sink := d.Sink
	if sink == nil {
		sink = LogSink{Log: log}
	}
	return &Authenticator{registry: d.Registry, states: d.States, sink: sink, log: log}
}

// Providers lists the ids a login can start with.
func (a *Authenticator) Providers() []string { return a.registry.IDs() }

// Capabilities reports the optional operations of providerID.
func (a *Authenticator) Capabilities(providerID string) (oauth.Capabilities, error) {
	strat, err := a.registry.Get(providerID)
	if err != nil {
		return oauth.Capabilities{}, err
	}
	return strat.Capabilities(), nil
}

// Begin issues a state bound to providerID and returns the URL to redirect
// the user to.
func (a *Authenticator) Begin(ctx context.Context, providerID string, cont state.Continuation, extra url.Values) (string, error) {
	log := logger.FromOr(ctx, a.log).With(
		logger.Component("social.authenticator"),
		logger.Op("Begin"),
		logger.Provider(providerID),
	)

	strat, err := a.registry.Get(providerID)
	if err != nil {
		return "", err
	}
	tok, err := a.states.Issue(ctx, strat.ID(), cont)
	if err != nil {
		log.Error("state issue failed", logger.Err(err))
		return "", err
	}

	log.Debug("login initiated", logger.Phase(PhaseAwaitingCallback.String()))
	return strat.AuthorizationURL(tok.Value, extra), nil
}

// Complete handles the provider callback. The state is consumed before
// anything else so a callback can never be replayed, including error
// callbacks.
func (a *Authenticator) Complete(ctx context.Context, providerID string, cb Callback) (res *Result, err error) {
	log := logger.FromOr(ctx, a.log).With(
		logger.Component("social.authenticator"),
		logger.Op("Complete"),
		logger.Provider(providerID),
	)
	at := &attempt{phase: PhaseAwaitingCallback}
	defer func() { a.finish(ctx, log, providerID, at, res, err) }()

	strat, err := a.registry.Get(providerID)
	if err != nil {
		at.reject()
		return nil, err
	}

	tok, err := a.states.ValidateAndConsume(ctx, strings.TrimSpace(cb.State))
	if err != nil {
		at.reject()
		return nil, err
	}
	if tok.Provider != "" && tok.Provider != strat.ID() {
		at.reject()
		return nil, fmt.Errorf("%w: issued for another provider", oauth.ErrInvalidState)
	}
	at.advance(PhaseStateValidated)

	if e := strings.TrimSpace(cb.Error); e != "" {
		log.Info("provider returned an error", logger.OAuthError(e), zap.String("description", cb.ErrorDescription))
		at.reject()
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, e)
	}
	code := strings.TrimSpace(cb.Code)
	if code == "" {
		at.reject()
		return nil, ErrMissingCode
	}

	tokens, err := strat.ExchangeCode(ctx, code)
	if err != nil {
		at.reject()
		return nil, err
	}
	at.advance(PhaseTokenExchanged)

	profile, err := strat.FetchProfile(ctx, tokens)
	if err != nil {
		at.reject()
		return nil, err
	}
	at.advance(PhaseProfileFetched)

	userID, err := a.sink.Link(ctx, profile)
	if err != nil {
		at.reject()
		return nil, fmt.Errorf("social: link identity: %w", err)
	}
	at.advance(PhaseCompleted)

	return &Result{Profile: profile, UserID: userID, Continuation: tok.Continuation}, nil
}

func (a *Authenticator) finish(ctx context.Context, log *zap.Logger, provider string, at *attempt, res *Result, err error) {
	if at.phase == PhaseCompleted && res != nil {
		metrics.LoginAttempts.WithLabelValues(provider, "completed", PhaseCompleted.String()).Inc()
		audit.Log(ctx, a.log, audit.LoginCompleted,
			logger.Provider(provider),
			logger.ProviderUserID(res.Profile.ProviderID),
			logger.UserID(res.UserID),
		)
		log.Debug("login completed", logger.Email(res.Profile.Email), zap.Bool("email_verified", res.Profile.EmailVerified))
		return
	}

	metrics.LoginAttempts.WithLabelValues(provider, "rejected", at.failedIn.String()).Inc()
	fields := []zap.Field{logger.Phase(at.failedIn.String()), logger.Err(err)}
	if s := oauth.StatusOf(err); s != 0 {
		fields = append(fields, logger.Status(s))
	}
	if oauth.IsAmbiguous(err) {
		fields = append(fields, zap.Bool("ambiguous", true))
	}
	log.Warn("login rejected", fields...)
}
