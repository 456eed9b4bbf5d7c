// Package cache provides the key/value store behind short-lived OAuth state.
//
// Backends:
//   - memory: in-process, backed by go-cache. Fine for a single replica.
//   - redis: shared across replicas. Required when the service is scaled out,
//     otherwise a callback landing on another replica cannot see its state.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client is the store contract used by the state service and readiness checks.
type Client interface {
	// Get returns ErrNotFound when the key is missing or expired.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDel atomically reads and removes key. Of several concurrent callers
	// for the same key at most one gets the value; the rest get ErrNotFound.
	GetDel(ctx context.Context, key string) (string, error)

	Ping(ctx context.Context) error
	Close() error

	// Driver names the backend ("memory" or "redis").
	Driver() string
}

// Config selects and configures a backend.
type Config struct {
	Driver   string // "memory" | "redis"
	Addr     string // host:port, redis only
	Password string
	DB       int
	Prefix   string // prepended to every key
}

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// New builds a client for cfg.Driver.
func New(cfg Config) (Client, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("cache: unknown driver %q", cfg.Driver)
	}
}

func prefixed(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + ":" + key
}
