package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/audit"
	"github.com/dropDatabas3/socialauth/internal/clock"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
)

// Base is the default authorization-code behavior shared by strategies.
// Provider packages keep one as a field and call the pieces they need.
type Base struct {
	cfg       ProviderConfig
	transport *Transport
	clock     clock.Clock
	log       *zap.Logger
}

// NewBase wires cfg to deps. Missing deps get defaults.
func NewBase(cfg ProviderConfig, deps Deps) *Base {
	return &Base{
		cfg:       cfg,
		transport: NewTransport(cfg.ID, deps),
		clock:     clock.OrSystem(deps.Clock),
		log:       logger.OrNop(deps.Log),
	}
}

func (b *Base) ID() string             { return b.cfg.ID }
func (b *Base) Config() ProviderConfig { return b.cfg }
func (b *Base) Transport() *Transport  { return b.transport }
func (b *Base) Clock() clock.Clock     { return b.clock }

// Logger returns the request-scoped logger with the provider attached.
func (b *Base) Logger(ctx context.Context) *zap.Logger {
	return logger.FromOr(ctx, b.log).With(logger.Provider(b.cfg.ID))
}

// AuthorizationURL builds the authorize redirect with providerExtra then
// callerExtra merged in.
func (b *Base) AuthorizationURL(state string, providerExtra, callerExtra url.Values) string {
	return BuildAuthorizationURL(b.cfg, state, providerExtra, callerExtra)
}

// ExchangeCode posts an authorization_code grant to the token endpoint.
// extra is merged into the form.
func (b *Base) ExchangeCode(ctx context.Context, code string, extra url.Values) (*TokenResponse, error) {
	if code == "" {
		return nil, TokenError(b.cfg.ID, OpExchange, 0, "", errors.New("empty authorization code"))
	}
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {b.cfg.RedirectURI},
		"client_id":     {b.cfg.ClientID},
		"client_secret": {b.cfg.ClientSecret},
	}
	mergeForm(form, extra)
	return b.tokenRequest(ctx, OpExchange, form)
}

// RefreshToken posts a refresh_token grant to the token endpoint.
func (b *Base) RefreshToken(ctx context.Context, refreshToken string, extra url.Values) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, TokenError(b.cfg.ID, OpRefresh, 0, "", errors.New("empty refresh token"))
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {b.cfg.ClientID},
		"client_secret": {b.cfg.ClientSecret},
	}
	mergeForm(form, extra)
	tr, err := b.tokenRequest(ctx, OpRefresh, form)
	if err != nil {
		return nil, err
	}
	audit.Log(ctx, b.log, audit.TokenRefreshed, logger.Provider(b.cfg.ID))
	return tr, nil
}

func (b *Base) tokenRequest(ctx context.Context, op string, form url.Values) (*TokenResponse, error) {
	log := b.Logger(ctx).With(logger.Op(op))

	resp, err := b.transport.Do(ctx, Request{
		Op:     op,
		Method: http.MethodPost,
		URL:    b.cfg.TokenURL,
		Header: http.Header{"Accept": {"application/json"}},
		Form:   form,
	})
	if err != nil {
		pe := TokenError(b.cfg.ID, op, 0, "", err)
		// the request may have reached the provider before we gave up
		pe.Ambiguous = true
		log.Warn("token endpoint unreachable", logger.Err(err))
		return nil, pe
	}

	if !resp.OK() {
		code := oauthErrorCode(resp.Body)
		log.Warn("token endpoint rejected request",
			logger.Status(resp.Status),
			logger.OAuthError(code),
			zap.String("body", truncate(resp.Body, 512)),
		)
		return nil, TokenError(b.cfg.ID, op, resp.Status, code, nil)
	}

	tr, code, err := decodeTokenResponse(resp.Body)
	if err != nil {
		// 2xx bodies may carry tokens: never log them.
		log.Warn("token endpoint returned unusable body", logger.Status(resp.Status), logger.OAuthError(code), logger.Err(err))
		return nil, TokenError(b.cfg.ID, op, resp.Status, code, err)
	}
	return tr, nil
}

// GetJSON performs a bearer GET against endpoint and decodes the reply into
// out (numbers as json.Number). Failures are profile errors.
func (b *Base) GetJSON(ctx context.Context, op, endpoint, accessToken string, header http.Header, out any) error {
	if accessToken == "" {
		return ProfileError(b.cfg.ID, 0, errors.New("missing access token"))
	}
	h := http.Header{
		"Authorization": {"Bearer " + accessToken},
		"Accept":        {"application/json"},
	}
	for k, vs := range header {
		h[k] = vs
	}

	log := b.Logger(ctx).With(logger.Op(op))
	resp, err := b.transport.Do(ctx, Request{Op: op, Method: http.MethodGet, URL: endpoint, Header: h})
	if err != nil {
		log.Warn("userinfo endpoint unreachable", logger.Err(err))
		return ProfileError(b.cfg.ID, 0, err)
	}
	if !resp.OK() {
		log.Warn("userinfo endpoint rejected request", logger.Status(resp.Status))
		return ProfileError(b.cfg.ID, resp.Status, nil)
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		log.Warn("userinfo body is not valid JSON", logger.Status(resp.Status), logger.Err(err))
		return ProfileError(b.cfg.ID, resp.Status, fmt.Errorf("decode userinfo: %w", err))
	}
	return nil
}

// CompleteProfile stamps provider, tokens and expiry onto a normalized
// profile and emits the profile audit event. A profile without a provider
// user id is rejected.
func (b *Base) CompleteProfile(ctx context.Context, p *Profile, tokens *TokenResponse) (*Profile, error) {
	if p == nil || p.ProviderID == "" {
		b.Logger(ctx).Warn("userinfo has no user id")
		return nil, ProfileError(b.cfg.ID, http.StatusOK, errors.New("userinfo has no user id"))
	}
	p.Provider = b.cfg.ID
	p.AccessToken = tokens.AccessToken
	p.RefreshToken = tokens.RefreshToken
	p.TokenExpiresAt = ExpiresAt(b.clock.Now(), tokens.ExpiresIn)

	audit.Log(ctx, b.log, audit.ProfileFetched,
		logger.Provider(p.Provider),
		logger.ProviderUserID(p.ProviderID),
	)
	return p, nil
}

// Revoke sends r and reports whether the provider answered 2xx.
func (b *Base) Revoke(ctx context.Context, r Request) bool {
	r.Op = OpRevoke
	log := b.Logger(ctx).With(logger.Op(OpRevoke))

	resp, err := b.transport.Do(ctx, r)
	if err != nil {
		log.Warn("revocation failed", logger.Err(err))
		return false
	}
	if !resp.OK() {
		log.Warn("revocation failed", logger.Status(resp.Status), logger.OAuthError(oauthErrorCode(resp.Body)))
		return false
	}
	audit.Log(ctx, b.log, audit.TokenRevoked, logger.Provider(b.cfg.ID))
	return true
}

// RequireTokens rejects a nil or empty token set before a profile fetch.
func (b *Base) RequireTokens(tokens *TokenResponse) error {
	if tokens == nil || tokens.AccessToken == "" {
		return ProfileError(b.cfg.ID, 0, errors.New("missing access token"))
	}
	return nil
}

func mergeForm(dst, extra url.Values) {
	for k, vs := range extra {
		dst[k] = vs
	}
}
