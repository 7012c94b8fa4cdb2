package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/viccon/sturdyc"
)

// SturdycService wraps a sturdyc client providing a bounded, sharded backend.
// sturdyc deduplicates in-flight fetches for the same key, which gives the
// at-most-once resolution guarantee.
//
// sturdyc applies one TTL to the whole client, so the per-call TTL hint is
// ignored in favour of Config.TTL.
type SturdycService struct {
	client *sturdyc.Client[sturdycEntry]
}

// sturdycEntry boxes the resolved value. sturdyc type-asserts fetch results
// to the client's type parameter, which fails for a nil interface.
type sturdycEntry struct {
	value any
}

var (
	_ Service     = (*SturdycService)(nil)
	_ Invalidator = (*SturdycService)(nil)
)

// NewSturdycService creates a new sturdyc cache service adapter.
// It validates the configuration and initializes a sturdyc client with the provided settings.
//
// Capacity, NumShards, TTL, EvictionPercentage are passed to sturdyc.New();
// other options are applied via ToSturdycOptions().
func NewSturdycService(cfg Config) (*SturdycService, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendSturdyc
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[sturdycEntry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	return &SturdycService{client: client}, nil
}

// GetOrCompute returns the cached value for key or runs resolver through
// sturdyc's GetOrFetch.
func (s *SturdycService) GetOrCompute(ctx context.Context, _ time.Duration, key string, resolver Resolver) (any, error) {
	if resolver == nil {
		return nil, nilResolverError()
	}
	e, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (sturdycEntry, error) {
		value, err := resolver(ctx)
		if err != nil {
			return sturdycEntry{}, err
		}
		return sturdycEntry{value: value}, nil
	})
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Len returns the number of entries currently held by the client.
func (s *SturdycService) Len() int {
	return s.client.Size()
}

// Delete removes a single entry from the cache.
func (s *SturdycService) Delete(_ context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// DeleteByPrefix removes all entries whose keys start with prefix.
func (s *SturdycService) DeleteByPrefix(_ context.Context, prefix string) error {
	for _, key := range s.client.ScanKeys() {
		if strings.HasPrefix(key, prefix) {
			s.client.Delete(key)
		}
	}
	return nil
}

// InvalidateKeys removes multiple entries in one call.
func (s *SturdycService) InvalidateKeys(_ context.Context, keys []string) error {
	for _, key := range keys {
		s.client.Delete(key)
	}
	return nil
}
