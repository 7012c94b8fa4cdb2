package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/maypok86/otter/v2"
)

// otterEntry keeps the per-call TTL next to the value so the expiry
// calculator can honour it.
type otterEntry struct {
	value any
	ttl   time.Duration
}

// OtterService is a bounded W-TinyLFU backend. Concurrent loads of the same
// key are collapsed by otter's loader, and each entry expires after the TTL
// passed on the call that stored it (Config.TTL when that is zero).
type OtterService struct {
	cache *otter.Cache[string, otterEntry]
}

var (
	_ Service     = (*OtterService)(nil)
	_ Invalidator = (*OtterService)(nil)
)

// NewOtterService creates an otter backed service.
func NewOtterService(cfg Config) (*OtterService, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendOtter
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fallback := cfg.TTL
	c, err := otter.New(&otter.Options[string, otterEntry]{
		MaximumSize: cfg.Capacity,
		ExpiryCalculator: otter.ExpiryWritingFunc(func(e otter.Entry[string, otterEntry]) time.Duration {
			if e.Value.ttl > 0 {
				return e.Value.ttl
			}
			if fallback > 0 {
				return fallback
			}
			// no TTL anywhere: keep until evicted by size
			return 100 * 365 * 24 * time.Hour
		}),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create otter cache")
	}
	return &OtterService{cache: c}, nil
}

// GetOrCompute returns the cached value or loads it through resolver.
func (s *OtterService) GetOrCompute(ctx context.Context, ttl time.Duration, key string, resolver Resolver) (any, error) {
	if resolver == nil {
		return nil, nilResolverError()
	}

	e, err := s.cache.Get(ctx, key, otter.LoaderFunc[string, otterEntry](func(ctx context.Context, _ string) (otterEntry, error) {
		value, err := resolver(ctx)
		if err != nil {
			return otterEntry{}, err
		}
		return otterEntry{value: value, ttl: ttl}, nil
	}))
	if err != nil {
		return nil, err
	}
	return e.value, nil
}

// Len returns the estimated number of entries.
func (s *OtterService) Len() int {
	return s.cache.EstimatedSize()
}

// Delete removes a single entry.
func (s *OtterService) Delete(_ context.Context, key string) error {
	s.cache.Invalidate(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *OtterService) DeleteByPrefix(_ context.Context, prefix string) error {
	var matched []string
	for key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			matched = append(matched, key)
		}
	}
	for _, key := range matched {
		s.cache.Invalidate(key)
	}
	return nil
}
