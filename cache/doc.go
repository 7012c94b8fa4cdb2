// Package cache defines the backend contract and key construction used by
// the memoize interceptor.
//
// # Overview
//
// The package exports two main interfaces and their default implementations:
//
//   - CacheService: get-or-compute with at-most-once resolution per key
//   - KeyBuilder: derives namespace.arg.arg keys from selected arguments
//
// Backends are selected through Config:
//
//	cfg := cache.DefaultConfig()          // unbounded memory backend
//	cfg.Backend = cache.BackendOtter      // or sturdyc, ristretto
//	svc, err := cache.NewCacheService(cfg)
//
// A redis backend is available through NewRedisService and can be stacked
// under an in-process one with NewTiered.
//
// # Typed access
//
//	value, err := cache.GetOrCompute(ctx, svc, 20*time.Second, "cache1.text",
//		func(ctx context.Context) (string, error) {
//			return strings.ToUpper("text"), nil
//		})
//
// Serializing backends return Encoded payloads on a hit; GetOrCompute decodes
// them into the requested type.
//
// # Keys
//
// DottedKeyBuilder renders each selected argument with %v. Only arguments whose
// textual form depends on their value belong in a key: funcs, channels and
// unsafe pointers are rejected with ErrUnstableKeyArgument, pointers are
// dereferenced. Long keys can be compacted with NewHashedKeyBuilder.
//
// # Errors
//
// Resolver errors are returned unchanged and never stored. Backend failures
// carry ErrBackend and infrastructure failures ErrInfrastructure; use
// IsBackend and IsInfrastructure to tell them apart.
package cache
