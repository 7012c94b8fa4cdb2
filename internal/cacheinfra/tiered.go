package cacheinfra

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

// TieredService chains backends: a miss in tier N resolves through tier N+1,
// and only a miss in the last tier runs the caller's resolver. A value found
// in a lower tier is therefore copied into every tier above it.
type TieredService struct {
	tiers []Service
}

var (
	_ Service     = (*TieredService)(nil)
	_ Invalidator = (*TieredService)(nil)
)

// NewTiered returns a TieredService. At least one tier is required.
func NewTiered(first Service, rest ...Service) *TieredService {
	tiers := make([]Service, 0, len(rest)+1)
	tiers = append(tiers, first)
	tiers = append(tiers, rest...)
	return &TieredService{tiers: tiers}
}

// GetOrCompute asks the first tier, wiring each lower tier in as its resolver.
func (s *TieredService) GetOrCompute(ctx context.Context, ttl time.Duration, key string, resolver Resolver) (any, error) {
	if resolver == nil {
		return nil, nilResolverError()
	}

	next := resolver
	for i := len(s.tiers) - 1; i >= 1; i-- {
		tier, inner := s.tiers[i], next
		next = func(ctx context.Context) (any, error) {
			return tier.GetOrCompute(ctx, ttl, key, inner)
		}
	}
	return s.tiers[0].GetOrCompute(ctx, ttl, key, next)
}

// Delete removes key from every tier that supports invalidation. Tiers are
// cleared bottom-up so an upper tier cannot be refilled from a stale lower one.
func (s *TieredService) Delete(ctx context.Context, key string) error {
	return s.each(func(inv Invalidator) error { return inv.Delete(ctx, key) })
}

// DeleteByPrefix removes prefix from every tier that supports invalidation.
func (s *TieredService) DeleteByPrefix(ctx context.Context, prefix string) error {
	return s.each(func(inv Invalidator) error { return inv.DeleteByPrefix(ctx, prefix) })
}

func (s *TieredService) each(fn func(Invalidator) error) error {
	var errs error
	supported := false
	for i := len(s.tiers) - 1; i >= 0; i-- {
		inv, ok := s.tiers[i].(Invalidator)
		if !ok {
			continue
		}
		supported = true
		if err := fn(inv); err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}
	if !supported {
		return ErrInvalidationUnsupported
	}
	return errs
}
