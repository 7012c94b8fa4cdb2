package cacheinfra

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"
)

// RistrettoService is a cost-bounded backend where every entry costs 1, so
// Config.Capacity is the entry limit. Ristretto may reject a write under its
// admission policy; the value is still returned and the next miss resolves
// again.
type RistrettoService struct {
	cache    *ristretto.Cache[string, any]
	flight   singleflight.Group
	registry *keyRegistry
	ttl      time.Duration
}

var (
	_ Service     = (*RistrettoService)(nil)
	_ Invalidator = (*RistrettoService)(nil)
)

// NewRistrettoService creates a ristretto backed service.
func NewRistrettoService(cfg Config) (*RistrettoService, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendRistretto
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, any]{
		NumCounters: int64(cfg.Capacity) * 10, // ~10x expected items
		MaxCost:     int64(cfg.Capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ristretto cache")
	}
	return &RistrettoService{
		cache:    c,
		registry: newKeyRegistry(),
		ttl:      cfg.TTL,
	}, nil
}

// GetOrCompute returns the cached value or resolves and stores a new one.
func (s *RistrettoService) GetOrCompute(ctx context.Context, ttl time.Duration, key string, resolver Resolver) (any, error) {
	if resolver == nil {
		return nil, nilResolverError()
	}
	if value, ok := s.cache.Get(key); ok {
		return value, nil
	}

	if ttl <= 0 {
		ttl = s.ttl
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		if value, ok := s.cache.Get(key); ok {
			return value, nil
		}
		value, err := resolver(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache.SetWithTTL(key, value, 1, ttl) {
			// make the write visible before the flight ends
			s.cache.Wait()
			s.registry.track(key)
		}
		return value, nil
	})
	return value, err
}

// Delete removes a single entry.
func (s *RistrettoService) Delete(_ context.Context, key string) error {
	s.cache.Del(key)
	s.registry.forget(key)
	return nil
}

// DeleteByPrefix removes every tracked entry whose key starts with prefix.
func (s *RistrettoService) DeleteByPrefix(ctx context.Context, prefix string) error {
	for _, key := range s.registry.withPrefix(prefix) {
		if err := s.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Close shuts down the cache and releases resources.
func (s *RistrettoService) Close() {
	s.cache.Close()
}
