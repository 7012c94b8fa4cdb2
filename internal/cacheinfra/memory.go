package cacheinfra

import (
	"context"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// MemoryService is the minimum backend: an unbounded in-memory map with no
// eviction. The TTL hint is ignored.
//
// Concurrent misses on the same key are collapsed with singleflight, and the
// flight re-checks the store before resolving, so a resolver runs at most once
// per key until the entry is deleted.
type MemoryService struct {
	store  *xsync.MapOf[string, any]
	flight singleflight.Group
}

var (
	_ Service     = (*MemoryService)(nil)
	_ Invalidator = (*MemoryService)(nil)
)

// NewMemoryService creates an empty memory backend.
func NewMemoryService() *MemoryService {
	return &MemoryService{store: xsync.NewMapOf[string, any]()}
}

// GetOrCompute returns the stored value for key or resolves, stores and
// returns a fresh one. Resolver errors are returned unchanged and not stored.
func (s *MemoryService) GetOrCompute(ctx context.Context, _ time.Duration, key string, resolver Resolver) (any, error) {
	if resolver == nil {
		return nil, nilResolverError()
	}

	if value, ok := s.store.Load(key); ok {
		return value, nil
	}

	value, err, _ := s.flight.Do(key, func() (any, error) {
		// a previous flight may have published between Load and Do
		if value, ok := s.store.Load(key); ok {
			return value, nil
		}
		value, err := resolver(ctx)
		if err != nil {
			return nil, err
		}
		s.store.Store(key, value)
		return value, nil
	})
	return value, err
}

// Len returns the number of stored entries.
func (s *MemoryService) Len() int {
	return s.store.Size()
}

// Delete removes a single entry.
func (s *MemoryService) Delete(_ context.Context, key string) error {
	s.store.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *MemoryService) DeleteByPrefix(_ context.Context, prefix string) error {
	s.store.Range(func(key string, _ any) bool {
		if strings.HasPrefix(key, prefix) {
			s.store.Delete(key)
		}
		return true
	})
	return nil
}
