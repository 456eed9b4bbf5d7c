// Package state issues and consumes single-use anti-CSRF state tokens for the
// authorization-code flow.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/socialauth/internal/audit"
	"github.com/dropDatabas3/socialauth/internal/cache"
	"github.com/dropDatabas3/socialauth/internal/clock"
	"github.com/dropDatabas3/socialauth/internal/metrics"
	"github.com/dropDatabas3/socialauth/internal/oauth"
	"github.com/dropDatabas3/socialauth/internal/observability/logger"
	tokens "github.com/dropDatabas3/socialauth/internal/security/token"
)

const (
	// DefaultTTL bounds how long a user may take at the provider.
	DefaultTTL = 10 * time.Minute

	tokenBytes = 32
	keyPrefix  = "oauth:state:"
)

// Store is the subset of cache.Client the service needs. GetDel must be
// atomic: it is what makes a token single-use.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

// ErrStoreUnavailable means a token could not be persisted.
var ErrStoreUnavailable = errors.New("state: store unavailable")

// Continuation is caller data carried across the provider round trip,
// e.g. the post-login redirect target.
type Continuation map[string]string

// Token is an issued state.
type Token struct {
	Value        string
	Provider     string // empty when the token is not bound to a provider
	CreatedAt    time.Time
	ExpiresAt    time.Time
	Continuation Continuation
}

type record struct {
	Provider     string       `json:"p,omitempty"`
	CreatedAt    int64        `json:"c"`
	Continuation Continuation `json:"d,omitempty"`
}

// Service issues and validates state tokens.
type Service struct {
	store   Store
	ttl     time.Duration
	clock   clock.Clock
	log     *zap.Logger
	entropy io.Reader
}

// Option configures a Service.
type Option func(*Service)

func WithTTL(d time.Duration) Option  { return func(s *Service) { s.ttl = d } }
func WithClock(c clock.Clock) Option  { return func(s *Service) { s.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }
func WithEntropy(r io.Reader) Option  { return func(s *Service) { s.entropy = r } }

// NewService builds a Service on store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, ttl: DefaultTTL}
	for _, o := range opts {
		o(s)
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	s.clock = clock.OrSystem(s.clock)
	s.log = logger.OrNop(s.log)
	return s
}

// TTL is the configured lifetime of a token.
func (s *Service) TTL() time.Duration { return s.ttl }

// Issue mints a token, optionally bound to provider, and stores cont with it.
func (s *Service) Issue(ctx context.Context, provider string, cont Continuation) (*Token, error) {
	var (
		value string
		err   error
	)
	if s.entropy != nil {
		value, err = tokens.OpaqueFrom(s.entropy, tokenBytes)
	} else {
		value, err = tokens.Opaque(tokenBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("state: generate: %w", err)
	}

	now := s.clock.Now()
	b, err := json.Marshal(record{Provider: provider, CreatedAt: now.UnixNano(), Continuation: cont})
	if err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	if err := s.store.Set(ctx, key(value), string(b), s.ttl); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	metrics.StateTokens.WithLabelValues("issued").Inc()
	return &Token{
		Value:        value,
		Provider:     provider,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		Continuation: cont,
	}, nil
}

// ValidateAndConsume removes the token and returns what was stored with it.
// Missing, reused, expired or unreadable tokens yield oauth.ErrInvalidState.
// Store failures also reject the attempt.
func (s *Service) ValidateAndConsume(ctx context.Context, value string) (*Token, error) {
	if value == "" {
		return nil, s.reject(ctx, "missing", nil)
	}

	raw, err := s.store.GetDel(ctx, key(value))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, s.reject(ctx, "unknown_or_used", nil)
		}
		return nil, s.reject(ctx, "store_error", err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, s.reject(ctx, "corrupt", err)
	}

	created := time.Unix(0, rec.CreatedAt)
	if s.clock.Now().Sub(created) > s.ttl {
		return nil, s.reject(ctx, "expired", nil)
	}

	metrics.StateTokens.WithLabelValues("consumed").Inc()
	return &Token{
		Value:        value,
		Provider:     rec.Provider,
		CreatedAt:    created,
		ExpiresAt:    created.Add(s.ttl),
		Continuation: rec.Continuation,
	}, nil
}

func (s *Service) reject(ctx context.Context, reason string, cause error) error {
	metrics.StateTokens.WithLabelValues("rejected").Inc()
	fields := []zap.Field{zap.String("reason", reason)}
	if cause != nil {
		fields = append(fields, logger.Err(cause))
	}
	audit.Log(ctx, s.log, audit.StateRejected, fields...)
	return fmt.Errorf("%w: %s", oauth.ErrInvalidState, reason)
}

func key(value string) string {
	return keyPrefix + tokens.Fingerprint(value)
}
