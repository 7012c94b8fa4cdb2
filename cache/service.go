package cache

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-cacheable/internal/cacheinfra"
)

// Resolver computes the value for a missing key. The interceptor builds one
// per invocation; when called it runs the wrapped operation once.
type Resolver = cacheinfra.Resolver

// ComputeFn is the typed form of Resolver used by GetOrCompute.
type ComputeFn[T any] func(ctx context.Context) (T, error)

// CacheService is the backend contract.
//
//   - If key is present, the stored value is returned and resolver is not called.
//   - If key is absent, resolver is called at most once per key across
//     concurrent callers; its value is stored and returned.
//   - If resolver fails, nothing is stored and the error is returned unchanged.
//
// ttl is a hint. Backends that do not expire entries may ignore it.
type CacheService interface {
	GetOrCompute(ctx context.Context, ttl time.Duration, key string, resolver Resolver) (any, error)
}

// Invalidator is implemented by backends that can drop entries.
type Invalidator = cacheinfra.Invalidator

// Encoded is the msgpack payload serializing backends (redis) return on a
// hit. GetOrCompute decodes it into T.
type Encoded = cacheinfra.Encoded

// GetOrCompute is a type-safe wrapper around CacheService.GetOrCompute.
func GetOrCompute[T any](ctx context.Context, service CacheService, ttl time.Duration, key string, fn ComputeFn[T]) (T, error) {
	result, err := service.GetOrCompute(ctx, ttl, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](result)
}

// As converts a value returned by a backend into T. Nil becomes the zero
// value of T and Encoded payloads are decoded with msgpack.
func As[T any](result any) (T, error) {
	var zero T
	if result == nil {
		return zero, nil
	}
	if typed, ok := result.(T); ok {
		return typed, nil
	}
	if payload, ok := result.(Encoded); ok {
		var decoded T
		if err := msgpack.Unmarshal(payload, &decoded); err != nil {
			return zero, cacheinfra.Mark(errors.Wrapf(err, "cache: decode into %T", zero), ErrInvalidResultType)
		}
		return decoded, nil
	}
	return zero, errors.Wrapf(ErrInvalidResultType, "cache: cannot convert %T to %T", result, zero)
}

// Invalidate deletes key when service supports it.
func Invalidate(ctx context.Context, service CacheService, key string) error {
	inv, ok := service.(Invalidator)
	if !ok {
		return ErrInvalidationUnsupported
	}
	return inv.Delete(ctx, key)
}

// InvalidatePrefix deletes every key starting with prefix when service
// supports it.
func InvalidatePrefix(ctx context.Context, service CacheService, prefix string) error {
	inv, ok := service.(Invalidator)
	if !ok {
		return ErrInvalidationUnsupported
	}
	return inv.DeleteByPrefix(ctx, prefix)
}
