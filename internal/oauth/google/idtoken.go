package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/socialauth/internal/clock"
	"github.com/dropDatabas3/socialauth/internal/oauth"
)

const (
	jwksMaxAge = time.Hour
	idLeeway   = 30 * time.Second
)

var issuers = map[string]bool{
	"https://accounts.google.com": true,
	"accounts.google.com":         true,
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// IDClaims are the id_token claims the strategy cross-checks.
type IDClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	HostedDomain  string
}

// Verifier checks Google id_tokens against the published JWKS.
// Keys are cached for an hour and revalidated with If-None-Match.
type Verifier struct {
	clientID  string
	jwksURL   string
	transport *oauth.Transport
	clock     clock.Clock

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
	etag      string
}

// NewVerifier builds a Verifier for tokens issued to clientID.
func NewVerifier(clientID, jwksURL string, transport *oauth.Transport, clk clock.Clock) *Verifier {
	return &Verifier{
		clientID:  clientID,
		jwksURL:   jwksURL,
		transport: transport,
		clock:     clock.OrSystem(clk),
	}
}

// Verify checks signature (RS256), audience, issuer and expiry.
func (v *Verifier) Verify(ctx context.Context, raw string) (*IDClaims, error) {
	tok, err := jwtv5.Parse(raw, func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.key(ctx, kid)
	},
		jwtv5.WithValidMethods([]string{"RS256"}),
		jwtv5.WithAudience(v.clientID),
		jwtv5.WithLeeway(idLeeway),
		jwtv5.WithTimeFunc(v.clock.Now),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	iss, _ := claims["iss"].(string)
	if !issuers[iss] {
		return nil, fmt.Errorf("bad iss: %s", iss)
	}

	m := map[string]any(claims)
	return &IDClaims{
		Subject:       oauth.StringField(m, "sub"),
		Email:         oauth.StringField(m, "email"),
		EmailVerified: oauth.BoolField(m, "email_verified"),
		HostedDomain:  oauth.StringField(m, "hd"),
	}, nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	k, ok := v.keys[kid]
	fresh := v.clock.Now().Sub(v.fetchedAt) < jwksMaxAge
	v.mu.RUnlock()
	if ok && fresh {
		return k, nil
	}

	// unknown kid or stale set: Google may have rotated keys
	if err := v.refresh(ctx); err != nil {
		if ok {
			return k, nil
		}
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if k, ok := v.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("kid %q not found", kid)
}

func (v *Verifier) refresh(ctx context.Context) error {
	v.mu.RLock()
	etag := v.etag
	v.mu.RUnlock()

	h := http.Header{}
	if etag != "" {
		h.Set("If-None-Match", etag)
	}
	resp, err := v.transport.Do(ctx, oauth.Request{Op: "jwks", Method: http.MethodGet, URL: v.jwksURL, Header: h})
	if err != nil {
		return fmt.Errorf("jwks: %w", err)
	}

	if resp.Status == http.StatusNotModified {
		v.mu.Lock()
		v.fetchedAt = v.clock.Now()
		v.mu.Unlock()
		return nil
	}
	if !resp.OK() {
		return fmt.Errorf("jwks http %d", resp.Status)
	}

	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(resp.Body, &set); err != nil {
		return fmt.Errorf("jwks: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if !strings.EqualFold(k.Kty, "RSA") {
			continue
		}
		pub, err := rsaKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = v.clock.Now()
	v.etag = resp.Header.Get("ETag")
	v.mu.Unlock()
	return nil
}

func rsaKey(k jwk) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, err
	}
	e := 65537
	if len(eb) > 0 {
		e = 0
		for _, b := range eb {
			e = e<<8 | int(b)
		}
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
