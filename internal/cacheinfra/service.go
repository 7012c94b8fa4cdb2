package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Resolver computes the value for a missing key. It is an alias so that the
// public cache package can expose the same signature without an import cycle.
type Resolver = func(ctx context.Context) (any, error)

// Service is the backend contract every adapter in this package satisfies.
type Service interface {
	GetOrCompute(ctx context.Context, ttl time.Duration, key string, resolver Resolver) (any, error)
}

// Invalidator is implemented by backends that can drop entries.
type Invalidator interface {
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Encoded is a msgpack payload returned by serializing backends on a hit.
// Callers decode it into the concrete type they expect.
type Encoded []byte

// keyRegistry tracks keys for backends that cannot enumerate their own
// contents, so prefix invalidation still works.
type keyRegistry struct {
	keys *xsync.MapOf[string, struct{}]
}

func newKeyRegistry() *keyRegistry {
	return &keyRegistry{keys: xsync.NewMapOf[string, struct{}]()}
}

func (r *keyRegistry) track(key string) {
	r.keys.Store(key, struct{}{})
}

func (r *keyRegistry) forget(key string) {
	r.keys.Delete(key)
}

func (r *keyRegistry) withPrefix(prefix string) []string {
	var matched []string
	r.keys.Range(func(key string, _ struct{}) bool {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
		return true
	})
	return matched
}

// NewService builds the in-process backend selected by cfg.Backend.
func NewService(cfg Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendSturdyc:
		return NewSturdycService(cfg)
	case BackendOtter:
		return NewOtterService(cfg)
	case BackendRistretto:
		return NewRistrettoService(cfg)
	default:
		return NewMemoryService(), nil
	}
}
